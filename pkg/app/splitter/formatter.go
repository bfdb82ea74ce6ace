package splitter

import (
	"fmt"
	"io"
	"time"

	"github.com/deploymenttheory/go-nxnand/pkg/app"
)

// FormatOutput writes a split or merge summary in the requested format
func FormatOutput(w io.Writer, response *Response, format string) error {
	if done, err := app.WriteStructured(w, response, format); done {
		return err
	}

	if !response.OK {
		fmt.Fprintf(w, "%s failed: %s\n", response.Operation, response.Error)
		return nil
	}
	for _, p := range response.Parts {
		fmt.Fprintf(w, "  %s\n", p)
	}
	fmt.Fprintf(w, "%s complete: %d parts, output %s in %v\n",
		response.Operation, len(response.Parts), response.Output, response.Elapsed.Round(time.Millisecond))
	return nil
}
