// internal/actionlog/log.go

// Package actionlog records every action the engine applies to a page as an
// append-only JSON Lines stream.
package actionlog

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/pagepilot-ai/pagepilot/api/schemas"
	"github.com/pagepilot-ai/pagepilot/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// credentialHints flag locators whose typed values must never reach the log.
var credentialHints = []string{"password", "passwd", "pwd", "secret", "token", "api-key", "apikey"}

// Log is an append-only action record sink. Writes are serialized; the
// underlying writer handles rotation when file-backed.
type Log struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	now    func() time.Time
}

// New opens a file-backed log with rotation per cfg.
func New(cfg config.ActionLogConfig) *Log {
	lj := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		Compress:   cfg.Compress,
	}
	return &Log{w: lj, closer: lj, now: time.Now}
}

// NewWithWriter builds a log over an arbitrary writer. Tests use this.
func NewWithWriter(w io.Writer) *Log {
	return &Log{w: w, now: time.Now}
}

// Record appends one entry for an executed action. The record id and timestamp
// are filled here; typed values headed for credential fields are redacted
// before anything touches the writer.
func (l *Log) Record(action schemas.Action, url, status string, actionErr error) (schemas.ActionRecord, error) {
	rec := schemas.ActionRecord{
		ID:        uuid.NewString(),
		Action:    action.Type,
		Locator:   action.Locator.String(),
		Value:     action.Value,
		URL:       url,
		Status:    status,
		Timestamp: l.now().UTC(),
	}
	if actionErr != nil {
		rec.Error = actionErr.Error()
	}
	if action.Type == schemas.ActionInput && IsCredentialLocator(rec.Locator) {
		rec.Value = schemas.RedactedValue
	}
	if action.Type == schemas.ActionNavigate {
		// The URL column already carries the destination.
		rec.Value = ""
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return rec, fmt.Errorf("failed to marshal action record: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.w.Write(append(line, '\n')); err != nil {
		return rec, fmt.Errorf("failed to append action record: %w", err)
	}
	return rec, nil
}

// Close releases the underlying file, if any.
func (l *Log) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// IsCredentialLocator reports whether the locator text smells like a
// credential field.
func IsCredentialLocator(locator string) bool {
	locator = strings.ToLower(locator)
	for _, hint := range credentialHints {
		if strings.Contains(locator, hint) {
			return true
		}
	}
	return false
}
