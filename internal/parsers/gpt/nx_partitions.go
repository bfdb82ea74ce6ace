package gpt

import (
	"github.com/google/uuid"

	"github.com/deploymenttheory/go-nxnand/internal/types"
)

// NX partition type GUIDs
// https://switchbrew.org/wiki/Flash_Filesystem
var (
	TypeProdInfo         = uuid.MustParse("98109E25-64E2-4C95-8A77-414916F5BCEB")
	TypeProdInfoF        = uuid.MustParse("F3056AEC-5449-494C-9F2C-5FDCB75B6E6E")
	TypeBCPKG2NormalMain = uuid.MustParse("5365DE36-911B-4BB4-8FF9-AA1EBCD73990")
	TypeBCPKG2NormalSub  = uuid.MustParse("8455717B-BD2B-4162-8454-91695218FC38")
	TypeBCPKG2SafeMain   = uuid.MustParse("8ED6C9A6-9C48-490B-BBEB-001D17A4C0F7")
	TypeBCPKG2SafeSub    = uuid.MustParse("5E99751C-56C9-47CC-AA30-B65039888917")
	TypeBCPKG2RepairMain = uuid.MustParse("C447D9A2-24B7-468A-98C8-595CD077165A")
	TypeBCPKG2RepairSub  = uuid.MustParse("9586E1A1-3AA2-4C90-91B3-2F4A5195B4D2")
	TypeSafe             = uuid.MustParse("A44F9F6B-4ED3-441F-A34A-56AAA136BC6A")
	TypeSystem           = uuid.MustParse("ACB0CDF0-4F72-432D-AA0D-5388C733B224")
	TypeUser             = uuid.MustParse("2B777F63-E842-47AF-94C4-25A7F18B2280")
)

// FAT boot sectors carry the volume label at 0x47
var fatLabelMagic = []byte("NO NAME")

var nxPartitions = map[uuid.UUID]types.NxPartitionMeta{
	TypeProdInfo:         {Name: "PRODINFO", Format: types.FormatUnknown, BisKeyID: types.BisKey0, MagicOffset: 0, Magic: []byte("CAL0")},
	TypeProdInfoF:        {Name: "PRODINFOF", Format: types.FormatFat12, BisKeyID: types.BisKey0, MagicOffset: 0x680, Magic: []byte("CERTIF")},
	TypeBCPKG2NormalMain: {Name: "BCPKG2-1-Normal-Main", Format: types.FormatUnknown, BisKeyID: types.BisKeyNone},
	TypeBCPKG2NormalSub:  {Name: "BCPKG2-2-Normal-Sub", Format: types.FormatUnknown, BisKeyID: types.BisKeyNone},
	TypeBCPKG2SafeMain:   {Name: "BCPKG2-3-SafeMode-Main", Format: types.FormatUnknown, BisKeyID: types.BisKeyNone},
	TypeBCPKG2SafeSub:    {Name: "BCPKG2-4-SafeMode-Sub", Format: types.FormatUnknown, BisKeyID: types.BisKeyNone},
	TypeBCPKG2RepairMain: {Name: "BCPKG2-5-Repair-Main", Format: types.FormatUnknown, BisKeyID: types.BisKeyNone},
	TypeBCPKG2RepairSub:  {Name: "BCPKG2-6-Repair-Sub", Format: types.FormatUnknown, BisKeyID: types.BisKeyNone},
	TypeSafe:             {Name: "SAFE", Format: types.FormatFat32, BisKeyID: types.BisKey1, MagicOffset: 0x47, Magic: fatLabelMagic},
	TypeSystem:           {Name: "SYSTEM", Format: types.FormatFat32, BisKeyID: types.BisKey2, MagicOffset: 0x47, Magic: fatLabelMagic},
	TypeUser:             {Name: "USER", Format: types.FormatFat32, BisKeyID: types.BisKey3, MagicOffset: 0x47, Magic: fatLabelMagic},
}

// LookupNx returns the metadata of a known NX partition type
func LookupNx(typeGUID uuid.UUID) (types.NxPartitionMeta, bool) {
	meta, ok := nxPartitions[typeGUID]
	if !ok {
		return types.NxPartitionMeta{BisKeyID: types.BisKeyNone}, false
	}
	meta.Magic = append([]byte(nil), meta.Magic...)
	return meta, true
}

// NxPartitionTypes returns the known type GUIDs
func NxPartitionTypes() []uuid.UUID {
	return []uuid.UUID{
		TypeProdInfo, TypeProdInfoF,
		TypeBCPKG2NormalMain, TypeBCPKG2NormalSub,
		TypeBCPKG2SafeMain, TypeBCPKG2SafeSub,
		TypeBCPKG2RepairMain, TypeBCPKG2RepairSub,
		TypeSafe, TypeSystem, TypeUser,
	}
}
