// Package audit mirrors log entries into the store's audit collection.
//
// The Core is meant to be teed next to the console core. A failed store write
// never reaches the caller; the entry is echoed to the fallback writer instead.
package audit

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/JakeFAU/stationsync/internal/station"
)

const defaultWriteTimeout = 5 * time.Second

// Option customizes a Core.
type Option func(*Core)

// WithTimeout bounds each audit write.
func WithTimeout(d time.Duration) Option {
	return func(c *Core) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithFallback sets where entries go when the store rejects them.
func WithFallback(w io.Writer) Option {
	return func(c *Core) {
		if w != nil {
			c.fallback = &lockedWriter{w: w}
		}
	}
}

// Core is a zapcore.Core that appends AuditRecords to a station.AuditWriter.
type Core struct {
	zapcore.LevelEnabler
	writer   station.AuditWriter
	fields   []zapcore.Field
	timeout  time.Duration
	fallback *lockedWriter
}

var _ zapcore.Core = (*Core)(nil)

// NewCore builds an audit core enabled at level.
func NewCore(writer station.AuditWriter, level zapcore.LevelEnabler, opts ...Option) *Core {
	c := &Core{
		LevelEnabler: level,
		writer:       writer,
		timeout:      defaultWriteTimeout,
		fallback:     &lockedWriter{w: os.Stderr},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// With returns a copy of the core carrying additional fields.
func (c *Core) With(fields []zapcore.Field) zapcore.Core {
	clone := *c
	clone.fields = append(append([]zapcore.Field(nil), c.fields...), fields...)
	return &clone
}

// Check registers the core when the entry's level is enabled.
func (c *Core) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

// Write appends the entry to the store. It always returns nil.
func (c *Core) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	rec := c.record(ent, fields)
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	if err := c.writer.AppendAudit(ctx, rec); err != nil {
		c.fallback.printf("%s audit write failed: %v; %s %s: %s\n",
			rec.Timestamp.Format(time.RFC3339), err, rec.Level, rec.Module, rec.Message)
	}
	return nil
}

// Sync is a no-op; writes are not buffered.
func (c *Core) Sync() error { return nil }

func (c *Core) record(ent zapcore.Entry, fields []zapcore.Field) station.AuditRecord {
	rec := station.AuditRecord{
		Timestamp: ent.Time.UTC(),
		Level:     ent.Level.CapitalString(),
		Message:   ent.Message,
		Module:    moduleName(ent),
	}
	if ent.Caller.Defined {
		rec.Line = ent.Caller.Line
		rec.Pathname = ent.Caller.File
	}
	if len(c.fields)+len(fields) > 0 {
		enc := zapcore.NewMapObjectEncoder()
		for _, f := range c.fields {
			f.AddTo(enc)
		}
		for _, f := range fields {
			f.AddTo(enc)
		}
		if len(enc.Fields) > 0 {
			rec.Fields = enc.Fields
		}
	}
	return rec
}

// moduleName is the caller's file name without extension, or the logger name
// when no caller was recorded.
func moduleName(ent zapcore.Entry) string {
	if ent.Caller.Defined && ent.Caller.File != "" {
		base := filepath.Base(ent.Caller.File)
		return strings.TrimSuffix(base, filepath.Ext(base))
	}
	return ent.LoggerName
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) printf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = fmt.Fprintf(l.w, format, args...)
}
