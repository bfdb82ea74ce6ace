package partitions

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/deploymenttheory/go-nxnand/pkg/app"
)

// FormatOutput writes the partitions in the requested format
func FormatOutput(w io.Writer, response *Response, format string) error {
	if done, err := app.WriteStructured(w, response, format); done {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "#\tNAME\tOFFSET\tSIZE\tFORMAT\tKEY\tFREE\n")
	fmt.Fprintf(tw, "-\t----\t------\t----\t------\t---\t----\n")
	for _, p := range response.Partitions {
		free := "-"
		if p.Free != nil {
			free = app.FormatBytes(*p.Free)
		}
		name := p.Name
		if !p.Known {
			name += " (unknown type)"
		}
		fmt.Fprintf(tw, "%d\t%s\t0x%x\t%s\t%s\t%s\t%s\n",
			p.Index, name, p.Offset, app.FormatBytes(p.Size), p.Format, p.BisKeyID, free)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\n%d partitions, dump size %s\n", len(response.Partitions), app.FormatBytes(response.Size))
	return nil
}
