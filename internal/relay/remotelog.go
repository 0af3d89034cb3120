package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// LogSink receives relay diagnostic records. Relay failures never end a
// call; they are reported here and to the local logger instead.
type LogSink interface {
	Report(event string, fields map[string]any)
}

// NopSink discards all records.
type NopSink struct{}

// Report implements LogSink.
func (NopSink) Report(string, map[string]any) {}

// HTTPSink ships diagnostic records as JSON to a collection endpoint.
// Shipping is best-effort: a failed report is logged locally and dropped.
type HTTPSink struct {
	url  string
	http *http.Client
	log  *slog.Logger
}

// NewHTTPSink creates a sink posting to url.
func NewHTTPSink(url string, log *slog.Logger) *HTTPSink {
	if log == nil {
		log = slog.Default()
	}
	return &HTTPSink{
		url:  url,
		http: &http.Client{Timeout: 5 * time.Second},
		log:  log,
	}
}

// Report implements LogSink.
func (s *HTTPSink) Report(event string, fields map[string]any) {
	record := map[string]any{
		"event":     event,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	}
	for k, v := range fields {
		record[k] = v
	}
	body, err := json.Marshal(record)
	if err != nil {
		s.log.Warn("remote log record not serializable", "event", event, "error", err)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
		if err != nil {
			s.log.Warn("remote log request failed", "event", event, "error", err)
			return
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := s.http.Do(req)
		if err != nil {
			s.log.Warn("remote log delivery failed", "event", event, "error", err)
			return
		}
		_ = resp.Body.Close()
	}()
}
