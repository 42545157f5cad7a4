package classify

import (
	"context"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"
)

// MaxUploadBytes caps a single uploaded file.
const MaxUploadBytes = 32 << 20

// Source is one uploaded file that has not been read yet.
type Source struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// Upload is a read file. Err is set when that file alone could not be read.
type Upload struct {
	Name string
	Data []byte
	Err  error
}

// ReadUploads reads sources with at most limit concurrent readers and
// returns them in input order, so routing and slot overwrites follow the
// order the files were uploaded in.
func ReadUploads(ctx context.Context, srcs []Source, limit int) []Upload {
	out := make([]Upload, len(srcs))
	if limit <= 0 {
		limit = 4
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, src := range srcs {
		i, src := i, src
		out[i].Name = src.Name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				out[i].Err = err
				return nil
			}
			out[i].Data, out[i].Err = readAll(src)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func readAll(src Source) ([]byte, error) {
	if src.Open == nil {
		return nil, fmt.Errorf("%s: no content", src.Name)
	}
	rc, err := src.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", src.Name, err)
	}
	defer rc.Close()
	b, err := io.ReadAll(io.LimitReader(rc, MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", src.Name, err)
	}
	if len(b) > MaxUploadBytes {
		return nil, fmt.Errorf("%s: larger than %s", src.Name, humanize.IBytes(MaxUploadBytes))
	}
	return b, nil
}
