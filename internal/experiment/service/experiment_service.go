// Package service assigns users to experimental conditions.
package service

import (
	"context"
	"errors"
	"math/rand/v2"

	"github.com/google/uuid"

	"playlog/backend/internal/apperr"
	"playlog/backend/internal/experiment/domain"
	"playlog/backend/internal/experiment/repository"
)

// ErrUnknownExperiment is returned for experiment ids missing from the catalog.
var ErrUnknownExperiment = apperr.New(apperr.KindNotFound, "unknown experiment")

// Catalog lists the conditions of each configured experiment.
type Catalog interface {
	Conditions(experimentID string) ([]int, bool)
}

// Service hands out stable experiment conditions.
type Service struct {
	assignments repository.Repository
	catalog     Catalog
	pick        func(n int) int
}

// NewService returns an experiment service.
func NewService(assignments repository.Repository, catalog Catalog) *Service {
	return &Service{assignments: assignments, catalog: catalog, pick: rand.IntN}
}

// Condition returns the condition of userID in experimentID, assigning one uniformly at
// random on first use. Racing first assignments converge: only one insert lands and every
// caller reads back the stored row.
func (s *Service) Condition(ctx context.Context, userID, experimentID string) (int, error) {
	var fields []string
	if _, err := uuid.Parse(userID); err != nil {
		fields = append(fields, "user_id")
	}
	if _, err := uuid.Parse(experimentID); err != nil {
		fields = append(fields, "experiment_id")
	}
	if len(fields) > 0 {
		return 0, apperr.Validation("invalid experiment lookup", fields...)
	}
	// Ids are stored in canonical lower-case form.
	userID = uuid.MustParse(userID).String()
	experimentID = uuid.MustParse(experimentID).String()

	conditions, ok := s.catalog.Conditions(experimentID)
	if !ok {
		return 0, ErrUnknownExperiment
	}

	a, err := s.assignments.Get(ctx, userID, experimentID)
	if err != nil {
		return 0, err
	}
	if a != nil {
		return a.Condition, nil
	}

	choice := &domain.Assignment{
		UserID:       userID,
		ExperimentID: experimentID,
		Condition:    conditions[s.pick(len(conditions))],
	}
	if err := s.assignments.CreateIfAbsent(ctx, choice); err != nil && !errors.Is(err, apperr.ErrConflict) {
		return 0, err
	}
	a, err = s.assignments.Get(ctx, userID, experimentID)
	if err != nil {
		return 0, err
	}
	if a == nil {
		return 0, apperr.New(apperr.KindStoreUnavailable, "assignment vanished after insert")
	}
	return a.Condition, nil
}
