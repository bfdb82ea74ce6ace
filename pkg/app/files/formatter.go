package files

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/deploymenttheory/go-nxnand/internal/services"
	"github.com/deploymenttheory/go-nxnand/pkg/app"
)

// FormatList writes a directory listing in the requested format
func FormatList(w io.Writer, response *ListResponse, format string) error {
	if done, err := app.WriteStructured(w, response, format); done {
		return err
	}

	entries := make([]services.FileEntry, len(response.Entries))
	copy(entries, response.Entries)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "PATH\tSIZE\tMODIFIED\tSHORT NAME\n")
	fmt.Fprintf(tw, "----\t----\t--------\t----------\n")
	for _, e := range entries {
		name, size := e.Path, app.FormatBytes(e.Size)
		if e.IsDir {
			name, size = name+"/", "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", name, size, e.Modified.Format("2006-01-02 15:04"), e.ShortName)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\n%s (%s): %d entries, %s free\n", response.Partition, response.Label, len(entries), app.FormatBytes(response.Free))
	return nil
}

// FormatCopy writes a copy summary in the requested format
func FormatCopy(w io.Writer, response *CopyResponse, format string) error {
	if done, err := app.WriteStructured(w, response, format); done {
		return err
	}
	fmt.Fprintf(w, "%s: copied %d files and %d directories, %s in %v\n",
		response.Partition, response.Files, response.Directories,
		app.FormatBytes(response.Bytes), response.Elapsed.Round(time.Millisecond))
	return nil
}
