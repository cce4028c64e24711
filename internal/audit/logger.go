// Package audit keeps a best-effort record of requests the envelope gate rejected.
package audit

import (
	"context"
	"log/slog"
	"time"

	"playlog/backend/internal/audit/domain"
	auditrepo "playlog/backend/internal/audit/repository"
	"playlog/backend/internal/protocol"
)

// writeTimeout bounds a single audit write so a slow store cannot stall the request.
const writeTimeout = 2 * time.Second

// Extractor returns a request attribute (client IP, path) from the request context.
type Extractor func(context.Context) string

// Logger implements protocol.RejectionRecorder using the audit repository.
// RecordRejection is best-effort: failures are logged and do not affect the caller.
type Logger struct {
	repo     auditrepo.Repository
	ip       Extractor
	endpoint Extractor
	log      *slog.Logger
	now      func() time.Time
}

var _ protocol.RejectionRecorder = (*Logger)(nil)

// NewLogger returns a Logger that persists to repo. ip and endpoint may be nil; then the
// IP is recorded as "unknown" and the endpoint is left empty.
func NewLogger(repo auditrepo.Repository, ip, endpoint Extractor, log *slog.Logger) *Logger {
	if log == nil {
		log = slog.Default()
	}
	return &Logger{repo: repo, ip: ip, endpoint: endpoint, log: log, now: time.Now}
}

// RecordRejection writes one rejection record. Reasons never contain key material.
func (l *Logger) RecordRejection(ctx context.Context, r protocol.Rejection) {
	if l == nil || l.repo == nil {
		return
	}
	ip := "unknown"
	if l.ip != nil {
		ip = l.ip(ctx)
	}
	var endpoint string
	if l.endpoint != nil {
		endpoint = l.endpoint(ctx)
	}
	entry := &domain.Rejection{
		CreatedAt: l.now().UTC(),
		Endpoint:  endpoint,
		Binding:   r.Binding.String(),
		BindingID: r.BindingID,
		Kind:      string(r.Kind),
		Reason:    r.Reason,
		ClientIP:  ip,
	}
	// The request may already be cancelled by the time it is rejected.
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()
	if err := l.repo.Create(wctx, entry); err != nil {
		l.log.Warn("audit: failed to record rejection", "endpoint", endpoint, "kind", entry.Kind, "error", err)
	}
}

// Recent returns up to limit rejection records, newest first.
func (l *Logger) Recent(ctx context.Context, limit int) ([]*domain.Rejection, error) {
	return l.repo.ListRecent(ctx, limit)
}
