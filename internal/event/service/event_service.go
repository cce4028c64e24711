// Package service validates and stores event batches.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"playlog/backend/internal/apperr"
	"playlog/backend/internal/event/repository"
)

const instrumentation = "playlog/backend/internal/event"

// Service ingests event batches for a session.
type Service struct {
	events   repository.Repository
	now      func() time.Time
	tracer   trace.Tracer
	ingested metric.Int64Counter
	rejected metric.Int64Counter
}

// NewService returns an ingestion service. Metrics go to the global MeterProvider.
func NewService(events repository.Repository) *Service {
	meter := otel.Meter(instrumentation)
	ingested, _ := meter.Int64Counter("playlog.events.ingested",
		metric.WithDescription("Events stored by the ingestion pipeline"))
	rejected, _ := meter.Int64Counter("playlog.event_batches.rejected",
		metric.WithDescription("Event batches refused, by error kind"))
	return &Service{
		events:   events,
		now:      time.Now,
		tracer:   otel.Tracer(instrumentation),
		ingested: ingested,
		rejected: rejected,
	}
}

// Ingest validates every record and then stores the batch atomically. Records are
// inserted in slice order, which becomes their canonical order. All records share one
// server receipt time. Validation failures name every offending field and nothing is written.
// TaskEvent linkage is not checked here; a dangling task_id surfaces at export.
func (s *Service) Ingest(ctx context.Context, sessionID string, records []json.RawMessage) (err error) {
	ctx, span := s.tracer.Start(ctx, "event.Ingest", trace.WithAttributes(
		attribute.String("playlog.session_id", sessionID),
		attribute.Int("playlog.batch_size", len(records)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(apperr.KindOf(err)))
			s.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(apperr.KindOf(err)))))
		}
		span.End()
	}()

	sid, perr := uuid.Parse(sessionID)
	if perr != nil {
		return apperr.Validation("session id must be a uuid", "session")
	}

	events, fields := parseRecords(sid.String(), s.now().UTC(), records)
	if len(fields) > 0 {
		return apperr.Validation(fmt.Sprintf("%d invalid event field(s)", len(fields)), fields...)
	}
	if len(events) == 0 {
		// Nothing to insert, so no foreign key check runs; look the session up instead.
		ok, err := s.events.SessionExists(ctx, sid.String())
		if err != nil {
			return err
		}
		if !ok {
			return apperr.New(apperr.KindNotFound, "session not found")
		}
		return nil
	}
	if err := s.events.InsertBatch(ctx, events); err != nil {
		return err
	}
	s.ingested.Add(ctx, int64(len(events)))
	return nil
}
