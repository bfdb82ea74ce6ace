package verify

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/deploymenttheory/go-nxnand/pkg/app"
)

// FormatOutput writes the check result in the requested format
func FormatOutput(w io.Writer, response *Response, format string) error {
	if done, err := app.WriteStructured(w, response, format); done {
		return err
	}

	r := response.Report
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "CHECK\tRESULT\n")
	fmt.Fprintf(tw, "-----\t------\n")
	for _, c := range []struct {
		name string
		ok   bool
	}{
		{"primary header CRC", r.PrimaryHeaderValid},
		{"primary table CRC", r.PrimaryTableValid},
		{"backup readable", r.BackupReadable},
		{"backup header CRC", r.BackupHeaderValid},
		{"backup table CRC", r.BackupTableValid},
		{"tables match", r.TablesMatch},
		{"headers mirrored", r.HeadersMirrored},
	} {
		fmt.Fprintf(tw, "%s\t%s\n", c.name, passFail(c.ok))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	switch {
	case response.OK && response.Repaired:
		fmt.Fprintln(w, "Backup GPT repaired")
	case response.OK:
		fmt.Fprintln(w, "GPT is valid")
	default:
		fmt.Fprintf(w, "GPT is damaged: %s\n", response.Problem)
	}
	return nil
}

func passFail(ok bool) string {
	if ok {
		return "ok"
	}
	return "FAIL"
}
