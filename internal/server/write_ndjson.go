package server

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"

	"github.com/terenceang/TN9K-DVI-HDMI/internal/rules"
)

// NDJSONWriter serializes objects as newline-delimited JSON, flushing after
// each record so streaming clients observe findings as they are produced.
type NDJSONWriter struct {
	mu      sync.Mutex
	writer  io.Writer
	flusher http.Flusher
}

func NewNDJSONWriter(w io.Writer) *NDJSONWriter {
	nw := &NDJSONWriter{writer: w}
	if f, ok := w.(http.Flusher); ok {
		nw.flusher = f
	}
	return nw
}

func (nw *NDJSONWriter) WriteObject(obj any) error {
	nw.mu.Lock()
	defer nw.mu.Unlock()
	data, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	if _, err := nw.writer.Write(append(data, '\n')); err != nil {
		return err
	}
	if nw.flusher != nil {
		nw.flusher.Flush()
	}
	return nil
}

// WriteDiagnostic emits a single finding tagged for stream consumers.
func (nw *NDJSONWriter) WriteDiagnostic(d rules.Diagnostic) error {
	record := struct {
		Type string `json:"type"`
		rules.Diagnostic
	}{Type: "diagnostic", Diagnostic: d}
	return nw.WriteObject(record)
}
