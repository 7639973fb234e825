// Package audit records every dispatched API call as a JSON-lines entry, so
// policy reads and updates against shared storage are traceable after the
// fact.
package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/objstore-policy-mgmt/internal/config"
)

// Entry represents a single API call made by a client
type Entry struct {
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"requestId"`
	Operation  string    `json:"operation"`
	Method     string    `json:"method,omitempty"`
	URI        string    `json:"uri,omitempty"`
	Tenant     string    `json:"tenant,omitempty"`
	Domain     string    `json:"domain,omitempty"`
	Bucket     string    `json:"bucket,omitempty"`
	StatusCode int       `json:"statusCode,omitempty"`
	DurationMs int64     `json:"durationMs"`
	ErrorMsg   string    `json:"error,omitempty"`
}

// Logger is the interface for audit logging
type Logger interface {
	Log(entry *Entry) error
	Close() error
}

// JSONLogger writes audit logs in JSON lines format
type JSONLogger struct {
	mu      sync.Mutex
	writers []io.Writer
	file    *os.File
	enabled bool
}

// NewLogger creates a new audit logger based on configuration
func NewLogger(cfg *config.AuditSettings) (*JSONLogger, error) {
	logger := &JSONLogger{
		enabled: cfg.Enabled,
		writers: []io.Writer{},
	}

	if !cfg.Enabled {
		return logger, nil
	}

	switch cfg.Output {
	case "stdout":
		logger.writers = append(logger.writers, os.Stdout)
	case "file":
		file, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open audit log file: %w", err)
		}
		logger.file = file
		logger.writers = append(logger.writers, file)
	case "both":
		logger.writers = append(logger.writers, os.Stdout)
		file, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open audit log file: %w", err)
		}
		logger.file = file
		logger.writers = append(logger.writers, file)
	default:
		logger.writers = append(logger.writers, os.Stdout)
	}

	return logger, nil
}

// Log writes an audit entry
func (l *JSONLogger) Log(entry *Entry) error {
	if !l.enabled || len(l.writers) == 0 {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, w := range l.writers {
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("failed to write audit entry: %w", err)
		}
	}

	return nil
}

// Close closes the audit logger
func (l *JSONLogger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// NewDomainEntry creates an audit entry for an administrative-API call
func NewDomainEntry(requestID, operation, method, uri, tenant, domain string, statusCode int, duration time.Duration, err error) *Entry {
	entry := &Entry{
		Timestamp:  time.Now().UTC(),
		RequestID:  requestID,
		Operation:  operation,
		Method:     method,
		URI:        uri,
		Tenant:     tenant,
		Domain:     domain,
		StatusCode: statusCode,
		DurationMs: duration.Milliseconds(),
	}
	if err != nil {
		entry.ErrorMsg = err.Error()
	}
	return entry
}

// NewBucketEntry creates an audit entry for a native S3 bucket-policy call
func NewBucketEntry(requestID, operation, bucket string, duration time.Duration, err error) *Entry {
	entry := &Entry{
		Timestamp:  time.Now().UTC(),
		RequestID:  requestID,
		Operation:  operation,
		Bucket:     bucket,
		DurationMs: duration.Milliseconds(),
	}
	if err != nil {
		entry.ErrorMsg = err.Error()
	}
	return entry
}

// Nop is a disabled logger for clients constructed without audit output
func Nop() Logger {
	return &JSONLogger{}
}
