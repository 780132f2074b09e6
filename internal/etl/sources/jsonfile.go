package sources

import (
	"context"
	"os"

	"go.uber.org/zap"

	"jobfeed/internal/errors"
	"jobfeed/internal/etl"
	"jobfeed/internal/logger"
)

// ── JSON File Source ────────────────────────────────────────
// Reads records from a local JSON file, e.g. a saved copy of the feed.
// The file goes through the same decoding and validation as a response body.

type FileSource struct {
	Path string
	// DataPath is a dot-separated path to the array (e.g. "data.items").
	// Empty when the root is the array.
	DataPath string
	Schema   *etl.Schema
	Logger   *zap.SugaredLogger
}

// Extract implements etl.Source.
func (s *FileSource) Extract(ctx context.Context) (*etl.Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Path == "" {
		return nil, errors.New("file source: path is required")
	}

	f, err := os.Open(s.Path)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}
	defer f.Close()

	rows, err := decodeRows(f, s.DataPath)
	if err != nil {
		return nil, &etl.ValidationError{
			Schema:   s.Schema.Name,
			Record:   -1,
			Code:     etl.CodeMalformedBody,
			Expected: "JSON array of objects",
			Reason:   err.Error(),
		}
	}
	logger.OrNop(s.Logger).Debugw("Read source file", logger.FieldFile, s.Path, logger.FieldCount, len(rows))

	return etl.Validate(etl.NewBatch(rows), s.Schema)
}
