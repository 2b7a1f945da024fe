package api

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// RequestLogEntry is a single structured record written to the request log.
// Each field uses snake_case JSON keys for easy grep/jq consumption.
type RequestLogEntry struct {
	Timestamp  string `json:"ts"`
	Event      string `json:"event"`           // "request" or "rejected"
	Label      string `json:"label,omitempty"` // endpoint name
	File       string `json:"file,omitempty"`  // local image path
	AlbumID    string `json:"album_id,omitempty"`
	SizeBytes  int64  `json:"size_bytes,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
	DurationMS int64  `json:"duration_ms,omitempty"`
	URL        string `json:"url,omitempty"`
	Error      string `json:"error,omitempty"`
}

// RequestLog writes JSON-line entries to a dedicated log file.
// A nil *RequestLog is valid and discards everything.
// All methods are safe for concurrent use.
type RequestLog struct {
	mu  sync.Mutex
	enc *json.Encoder
	w   io.WriteCloser
	now func() time.Time
}

// OpenRequestLog opens (or creates) the request log at logPath in append mode.
// The directory is created with mode 0700 if it does not exist.
func OpenRequestLog(logPath string) (*RequestLog, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
		return nil, fmt.Errorf("request log: mkdir %s: %w", filepath.Dir(logPath), err)
	}
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("request log: open %s: %w", logPath, err)
	}
	return NewRequestLog(f), nil
}

// NewRequestLog wraps an already open writer.
func NewRequestLog(w io.WriteCloser) *RequestLog {
	return &RequestLog{w: w, enc: json.NewEncoder(w), now: time.Now}
}

// Close closes the underlying file.
func (l *RequestLog) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Close()
}

// Write appends e. Failures are silently ignored: a logging error must
// never abort a run.
func (l *RequestLog) Write(e RequestLogEntry) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	e.Timestamp = l.now().UTC().Format(time.RFC3339Nano)
	_ = l.enc.Encode(e)
}

// LogRequest records a completed (or failed) upload round trip.
func (l *RequestLog) LogRequest(label, file, albumID string, size int64, statusCode int, duration time.Duration, url string, reqErr error) {
	e := RequestLogEntry{
		Event:      "request",
		Label:      label,
		File:       file,
		AlbumID:    albumID,
		SizeBytes:  size,
		StatusCode: statusCode,
		DurationMS: duration.Milliseconds(),
		URL:        url,
	}
	if reqErr != nil {
		e.Error = reqErr.Error()
	}
	l.Write(e)
}

// LogRejected records an upload that never reached the network, such as a
// missing local file.
func (l *RequestLog) LogRejected(label, file string, reason error) {
	e := RequestLogEntry{Event: "rejected", Label: label, File: file}
	if reason != nil {
		e.Error = reason.Error()
	}
	l.Write(e)
}
