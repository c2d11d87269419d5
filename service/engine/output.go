package engine

import (
	"context"
	"fmt"

	"github.com/viant/afs"
	"github.com/viant/afs/url"

	"github.com/provisor/provisor/model/record"
)

// Record options consulted by OutputCat.
const (
	OptionWorkdir        = "workdir"
	OptionOutputFilename = "output_filename"
)

// OutputCat returns the content of a record's retrieved output file, resolved
// from the record's workdir and output_filename options. Both options must be
// present; records whose files were never retrieved yield an explicit error.
func OutputCat(ctx context.Context, fs afs.Service, r *record.ProcessRecord) (string, error) {
	if r == nil {
		return "", fmt.Errorf("nil record")
	}
	if fs == nil {
		fs = afs.New()
	}
	workdir, _ := r.Options[OptionWorkdir].(string)
	if workdir == "" {
		return "", fmt.Errorf("record %s has no %q option; have its files been retrieved", r.ID, OptionWorkdir)
	}
	filename, _ := r.Options[OptionOutputFilename].(string)
	if filename == "" {
		return "", fmt.Errorf("record %s does not define an output file (option %q not found); specify a path explicitly", r.ID, OptionOutputFilename)
	}
	data, err := fs.DownloadWithURL(ctx, url.Join(workdir, filename))
	if err != nil {
		return "", fmt.Errorf("could not open output path %q: %w", filename, err)
	}
	return string(data), nil
}
