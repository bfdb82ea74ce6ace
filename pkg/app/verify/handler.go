package verify

import (
	"fmt"

	"github.com/deploymenttheory/go-nxnand/internal/types"
	"github.com/deploymenttheory/go-nxnand/pkg/app"
)

// Handle verifies the partition table and repairs the backup on request.
// A primary table that fails its own checks is never used for a repair.
func Handle(ctx *app.Context, req *Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	nand, err := ctx.OpenNand(req.NandPath)
	if err != nil {
		return nil, err
	}
	defer nand.Close()

	report, err := nand.VerifyPartitionTable()
	if err != nil {
		return nil, app.Wrap("failed to verify partition table", err)
	}
	resp := &Response{NandPath: req.NandPath, OK: report.OK(), Problem: report.Problem(), Report: report}
	if resp.OK || !req.Repair {
		return resp, nil
	}

	if ctx.Config.ReadOnly {
		return resp, app.NewError(app.ErrCodeReadOnly, "writes are disabled by the read_only setting", types.ErrReadOnly)
	}
	if !report.PrimaryHeaderValid || !report.PrimaryTableValid {
		return resp, app.NewError(app.ErrCodeUnsupported, fmt.Sprintf("cannot repair from a damaged primary table: %s", resp.Problem), nil)
	}

	ctx.Log(fmt.Sprintf("Rewriting backup GPT of %s: %s", req.NandPath, resp.Problem))
	if err := nand.RepairBackupPartitionTable(); err != nil {
		return resp, app.Wrap("failed to repair partition table", err)
	}

	report, err = nand.VerifyPartitionTable()
	if err != nil {
		return resp, app.Wrap("failed to verify partition table", err)
	}
	resp.Report, resp.OK, resp.Problem, resp.Repaired = report, report.OK(), report.Problem(), true
	return resp, nil
}
