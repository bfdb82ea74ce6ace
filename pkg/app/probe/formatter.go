package probe

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/deploymenttheory/go-nxnand/pkg/app"
)

// FormatOutput writes the probe results in the requested format
func FormatOutput(w io.Writer, response *Response, format string) error {
	if done, err := app.WriteStructured(w, response, format); done {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "PARTITION\tKEY\tSTATUS\tDETAIL\n")
	fmt.Fprintf(tw, "---------\t---\t------\t------\n")
	for _, r := range response.Results {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Partition, r.BisKeyID, r.Status, r.Detail)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if response.Failed() {
		fmt.Fprintln(w, "\nSome partitions did not decrypt, check the BIS keys")
	}
	return nil
}
