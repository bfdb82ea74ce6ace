// Package mkfake writes synthetic NAND dumps for testing tools against.
package mkfake

// Layout names accepted by Request.Layout
const (
	LayoutCompact = "compact"
	LayoutFull    = "full"
)

// Request represents an image generation request
type Request struct {
	Output string
	Layout string
	// Clear stores every partition in plaintext instead of encrypting it
	// with the context's BIS keys
	Clear bool
	Force bool
}

// Response describes the written image
type Response struct {
	Output     string `json:"output" yaml:"output"`
	Layout     string `json:"layout" yaml:"layout"`
	Size       int64  `json:"size" yaml:"size"`
	Partitions int    `json:"partitions" yaml:"partitions"`
	Encrypted  bool   `json:"encrypted" yaml:"encrypted"`
}
