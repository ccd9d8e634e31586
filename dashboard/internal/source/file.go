package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// fileSource reads a local JSON export such as the bundled demo data.
// Query parameters do not apply; range filtering is done by the caller.
type fileSource struct {
	path string
}

func (s *fileSource) Fetch(ctx context.Context, _ Query) *FetchResult {
	res := newResult("file", s.path)
	if err := ctx.Err(); err != nil {
		return res.finish(err)
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		slog.Warn("source: file read failed", "path", s.path, "err", err)
		return res.finish(fmt.Errorf("source: read file: %w", err))
	}
	rows, err := decodeList(data)
	if err != nil {
		slog.Warn("source: bad payload", "path", s.path, "err", err)
		return res.finish(err)
	}
	res.Rows = rows
	return res.finish(nil)
}
