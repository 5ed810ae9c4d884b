// Package source fetches catalog partitions from a spreadsheet export
// endpoint.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/JonMunkholm/catalogsync/internal/config"
	"github.com/JonMunkholm/catalogsync/internal/core"
	"github.com/JonMunkholm/catalogsync/internal/logging"
)

var errTooLarge = errors.New("body exceeds limit")

// HTTPSource implements core.Source over HTTP. Each partition (a sheet
// tab) is one GET against the configured URL template.
type HTTPSource struct {
	client   *http.Client
	template string
	sheetID  string
	maxBytes int64
}

// New returns a source for cfg. A nil client uses http.DefaultClient;
// deadlines come from the context passed to Fetch.
func New(cfg config.SourceConfig, client *http.Client) *HTTPSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSource{
		client:   client,
		template: cfg.URLTemplate,
		sheetID:  cfg.SheetID,
		maxBytes: cfg.MaxBytes,
	}
}

// URL returns the export URL for a partition.
func (s *HTTPSource) URL(partition string) string {
	return fmt.Sprintf(s.template, url.PathEscape(s.sheetID), url.QueryEscape(partition))
}

// Fetch downloads one partition as text.
func (s *HTTPSource) Fetch(ctx context.Context, partition string) (string, error) {
	logger := logging.WithFields(ctx, "partition", partition)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL(partition), nil)
	if err != nil {
		return "", &core.TransportError{Partition: partition, Err: err}
	}
	req.Header.Set("Accept", "text/csv, text/plain;q=0.9, */*;q=0.1")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", &core.TransportError{Partition: partition, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		_, _ = io.CopyN(io.Discard, resp.Body, 4<<10)
		return "", &core.TransportError{Partition: partition, StatusCode: resp.StatusCode}
	}

	var body io.Reader = resp.Body
	var limited *limitedReader
	if s.maxBytes > 0 {
		limited = newLimitedReader(resp.Body, s.maxBytes)
		body = limited
	}

	raw, err := io.ReadAll(decodeReader(body))
	if err != nil {
		if errors.Is(err, errTooLarge) {
			return "", &core.TransportError{
				Partition: partition,
				Err:       fmt.Errorf("%w: more than %d bytes", core.ErrSourceTooLarge, s.maxBytes),
			}
		}
		return "", &core.TransportError{Partition: partition, Err: err}
	}

	text := string(raw)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("fetch %q: %w", partition, core.ErrEmptySource)
	}

	if limited != nil {
		logger.Debug("partition fetched", "bytes", limited.BytesRead())
	}
	return text, nil
}
