package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"
)

// FileLog appends one line per outcome, either JSON or pipe-delimited text.
type FileLog struct {
	sessionID string
	format    string
	logger    *log.Logger
	closer    io.Closer
}

// NewFileLog opens (or creates) path for appending.
func NewFileLog(path, format, sessionID string) (*FileLog, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("could not open audit log: %w", err)
	}
	l := NewWriterLog(file, format, sessionID)
	l.closer = file
	return l, nil
}

// NewWriterLog writes outcomes to w.
func NewWriterLog(w io.Writer, format, sessionID string) *FileLog {
	return &FileLog{
		sessionID: sessionID,
		format:    format,
		logger:    log.New(w, "", 0),
	}
}

// Record writes an audit log entry.
func (f *FileLog) Record(operation, target, attribute string, success bool) error {
	o := newOutcome(f.sessionID, operation, target, attribute, success)

	if f.format == "json" {
		data, err := json.Marshal(o)
		if err != nil {
			return fmt.Errorf("failed to marshal audit entry: %w", err)
		}
		f.logger.Println(string(data))
		return nil
	}

	status := "success"
	if !success {
		status = "failed"
	}
	f.logger.Printf("%s|session:%s|%s|%s|%s|%s",
		o.Timestamp.Format(time.RFC3339),
		o.SessionID,
		o.Operation,
		o.Target,
		o.Attribute,
		status,
	)
	return nil
}

// Close closes the underlying file, if any.
func (f *FileLog) Close() error {
	if f.closer != nil {
		return f.closer.Close()
	}
	return nil
}
