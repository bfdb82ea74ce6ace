package mkfake

import (
	"fmt"
	"io"

	"github.com/deploymenttheory/go-nxnand/pkg/app"
)

// FormatOutput writes the generation summary in the requested format
func FormatOutput(w io.Writer, response *Response, format string) error {
	if done, err := app.WriteStructured(w, response, format); done {
		return err
	}
	state := "encrypted"
	if !response.Encrypted {
		state = "plaintext"
	}
	fmt.Fprintf(w, "Wrote %s (%s layout, %d partitions, %s, %s)\n",
		response.Output, response.Layout, response.Partitions, app.FormatBytes(response.Size), state)
	return nil
}
