package sources

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"jobfeed/internal/errors"
	"jobfeed/internal/etl"
	"jobfeed/internal/logger"
)

// ── HTTP Source ─────────────────────────────────────────────
// Fetches one JSON array of objects from a REST endpoint and validates it
// against the raw schema before handing it on.

// Doer sends an HTTP request. *http.Client satisfies it; tests stub it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPSource is the pipeline's fetcher.
type HTTPSource struct {
	URL    string
	Schema *etl.Schema
	Client Doer
	Logger *zap.SugaredLogger
}

// NewHTTPSource returns an HTTPSource using a plain http.Client with the
// given timeout. A zero timeout means no client-side timeout.
func NewHTTPSource(url string, timeout time.Duration, schema *etl.Schema, log *zap.SugaredLogger) *HTTPSource {
	return &HTTPSource{
		URL:    url,
		Schema: schema,
		Client: &http.Client{Timeout: timeout},
		Logger: log,
	}
}

// Extract implements etl.Source.
func (s *HTTPSource) Extract(ctx context.Context) (*etl.Batch, error) {
	log := logger.OrNop(s.Logger)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	log.Debugw("Fetching source", logger.FieldURL, s.URL)
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.WithHint(
			&etl.TransportError{URL: s.URL, Err: err},
			"check network access to the source endpoint and source.url",
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &etl.TransportError{URL: s.URL, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	rows, err := decodeRows(resp.Body, "")
	if err != nil {
		return nil, &etl.ValidationError{
			Schema:   s.Schema.Name,
			Record:   -1,
			Code:     etl.CodeMalformedBody,
			Expected: "JSON array of objects",
			Reason:   err.Error(),
		}
	}
	log.Debugw("Fetched source", logger.FieldURL, s.URL, logger.FieldStatus, resp.StatusCode, logger.FieldCount, len(rows))

	return etl.Validate(etl.NewBatch(rows), s.Schema)
}

// decodeRows reads r as a JSON array of objects, keeping numbers as
// json.Number so integer and float checks see the literal that was sent.
// A non-empty dataPath ("data.items") selects a nested array. Anything
// after the top-level document is an error.
func decodeRows(r io.Reader, dataPath string) ([]map[string]any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, errors.New("unexpected data after JSON document")
	}

	if dataPath != "" {
		for _, part := range strings.Split(dataPath, ".") {
			m, ok := doc.(map[string]any)
			if !ok {
				return nil, errors.Newf("invalid data path: %q not found", part)
			}
			doc = m[part]
		}
	}

	if doc == nil {
		return nil, errors.New("body is null")
	}
	items, ok := doc.([]any)
	if !ok {
		return nil, errors.Newf("expected an array, got %s", jsonKind(doc))
	}
	rows := make([]map[string]any, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, errors.Newf("element %d: expected an object, got %s", i, jsonKind(item))
		}
		rows[i] = obj
	}
	return rows, nil
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	default:
		return "number"
	}
}
