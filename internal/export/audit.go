package export

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// AuditLogger records export audit entries.
type AuditLogger interface {
	Record(ctx context.Context, entry AuditEntry)
}

// AuditEntry captures one export lifecycle transition.
type AuditEntry struct {
	ID         string            `json:"id"`
	Action     string            `json:"action"`
	Actor      string            `json:"actor,omitempty"`
	ExportID   string            `json:"export_id"`
	RecordID   string            `json:"record_id"`
	Status     Status            `json:"status"`
	Reason     string            `json:"reason,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// MemoryAuditLog captures audit entries in-memory for assertions.
type MemoryAuditLog struct {
	mu      sync.Mutex
	entries []AuditEntry
}

// Record stores an audit entry.
func (l *MemoryAuditLog) Record(_ context.Context, entry AuditEntry) {
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()
}

// Entries returns a copy of recorded audit entries.
func (l *MemoryAuditLog) Entries() []AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]AuditEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// SlogAuditLog writes audit entries as structured log records.
type SlogAuditLog struct {
	Logger *slog.Logger
}

// Record logs the entry at info level under the "audit" group.
func (l SlogAuditLog) Record(ctx context.Context, e AuditEntry) {
	if l.Logger == nil {
		return
	}
	l.Logger.LogAttrs(ctx, slog.LevelInfo, "audit",
		slog.Group("audit",
			slog.String("id", e.ID),
			slog.String("action", e.Action),
			slog.String("actor", e.Actor),
			slog.String("export_id", e.ExportID),
			slog.String("record_id", e.RecordID),
			slog.String("status", string(e.Status)),
			slog.String("reason", e.Reason),
			slog.Any("metadata", e.Metadata),
		),
	)
}
