package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/dmitrijs2005/blobvault/internal/models"
)

const previewLen = 64

func humanSize(n int64) string {
	if n < 0 {
		return fmt.Sprintf("%d B", n)
	}
	return humanize.IBytes(uint64(n))
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}

func printFileTable(w io.Writer, files []models.FileInfo) error {
	if len(files) == 0 {
		_, err := fmt.Fprintln(w, "No files stored.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 1, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tMIME\tSIZE\tSHA256")
	for _, f := range files {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			f.ID,
			f.Filename,
			f.MimeType,
			humanSize(f.Size),
			shortDigest(f.SHA256),
		)
	}
	return tw.Flush()
}

func printFile(w io.Writer, f *models.File) error {
	head := f.Data
	if len(head) > previewLen {
		head = head[:previewLen]
	}

	tw := tabwriter.NewWriter(w, 0, 1, 1, ' ', 0)
	fmt.Fprintf(tw, "id:\t%d\n", f.ID)
	fmt.Fprintf(tw, "filename:\t%s\n", f.Filename)
	fmt.Fprintf(tw, "mime type:\t%s\n", f.MimeType)
	fmt.Fprintf(tw, "size:\t%s (%s bytes)\n", humanSize(f.Size), humanize.Comma(f.Size))
	fmt.Fprintf(tw, "sha256:\t%s\n", f.SHA256)
	fmt.Fprintf(tw, "head:\t%q\n", head)
	return tw.Flush()
}
