package incident

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

var ErrTagLoad = goerr.NewTag("dataset_load")

// Loader reads the dataset from a file path or an http(s) URL.
type Loader struct {
	Client *http.Client
}

// NewLoader returns a Loader with a bounded HTTP timeout.
func NewLoader() *Loader {
	return &Loader{Client: &http.Client{Timeout: 30 * time.Second}}
}

// Load performs a single read of source and decodes it as a JSON array of
// records. It never retries and never returns a partial dataset.
func (l *Loader) Load(ctx context.Context, source string) ([]Record, error) {
	data, err := l.read(ctx, source)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read dataset", goerr.V("source", source), goerr.T(ErrTagLoad))
	}

	records, err := Decode(data)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to decode dataset", goerr.V("source", source), goerr.T(ErrTagLoad))
	}

	ctxlog.From(ctx).Info("dataset loaded", "source", source, "records", len(records))
	return records, nil
}

func (l *Loader) read(ctx context.Context, source string) ([]byte, error) {
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		return os.ReadFile(source)
	}

	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, goerr.New("unexpected status", goerr.V("status", resp.StatusCode))
	}
	return io.ReadAll(resp.Body)
}

// Decode parses a JSON array of records. The top level must be an array;
// fields missing from an element decode to their zero or invalid values.
func Decode(data []byte) ([]Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, goerr.New("dataset is not a JSON array")
	}
	var records []Record
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, err
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}
