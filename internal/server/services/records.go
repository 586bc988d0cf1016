package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/tailorkeeper/internal/common"
	"github.com/dmitrijs2005/tailorkeeper/internal/logging"
	"github.com/dmitrijs2005/tailorkeeper/internal/models"
	"github.com/dmitrijs2005/tailorkeeper/internal/server/repositories/records"
	"github.com/dmitrijs2005/tailorkeeper/internal/server/repositories/repomanager"
)

// RecordService applies owner-scoped record operations. Entities are
// validated before they reach a repository; checks and writes of one call
// share a transaction.
type RecordService struct {
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewRecordService(rm repomanager.RepositoryManager, l logging.Logger) *RecordService {
	return &RecordService{repomanager: rm, logger: l.With("module", "record_service")}
}

func (s *RecordService) List(ctx context.Context, userID string, t models.EntityType) ([]models.Canonical, error) {
	repo, err := s.repomanager.Records(t)
	if err != nil {
		return nil, err
	}
	return repo.List(ctx, userID)
}

// inTx runs fn with the repository of t inside a transaction.
func (s *RecordService) inTx(ctx context.Context, t models.EntityType, fn func(ctx context.Context, repo records.Repository) error) error {
	return s.repomanager.WithTx(ctx, func(ctx context.Context, tx repomanager.Repos) error {
		repo, err := tx.Records(t)
		if err != nil {
			return err
		}
		return fn(ctx, repo)
	})
}

func (s *RecordService) Create(ctx context.Context, userID, clientRef string, e models.Entity) (models.Canonical, error) {
	if err := models.Validate(e); err != nil {
		return models.Canonical{}, err
	}

	var result models.Canonical
	err := s.inTx(ctx, e.Type(), func(ctx context.Context, repo records.Repository) error {
		var err error
		result, err = repo.Create(ctx, userID, clientRef, e)
		return err
	})
	if err != nil {
		return models.Canonical{}, err
	}

	s.logger.Debug(ctx, "record created", "entity", e.Type(), "id", result.ID, "client_ref", clientRef)
	return result, nil
}

func (s *RecordService) Update(ctx context.Context, userID string, id int64, base time.Time, e models.Entity) (models.Canonical, error) {
	if err := models.Validate(e); err != nil {
		return models.Canonical{}, err
	}
	if id <= 0 {
		return models.Canonical{}, fmt.Errorf("%w: %s id %d", common.ErrValidation, e.Type().Singular(), id)
	}

	var result models.Canonical
	err := s.inTx(ctx, e.Type(), func(ctx context.Context, repo records.Repository) error {
		var err error
		result, err = repo.Update(ctx, userID, id, base, e)
		return err
	})
	if err != nil {
		return models.Canonical{}, err
	}

	s.logger.Debug(ctx, "record updated", "entity", e.Type(), "id", id)
	return result, nil
}

func (s *RecordService) Delete(ctx context.Context, userID string, t models.EntityType, id int64) error {
	return s.inTx(ctx, t, func(ctx context.Context, repo records.Repository) error {
		return repo.Delete(ctx, userID, id)
	})
}

func (s *RecordService) BulkDelete(ctx context.Context, userID string, t models.EntityType, ids []int64) (int64, error) {
	var n int64
	err := s.inTx(ctx, t, func(ctx context.Context, repo records.Repository) error {
		var err error
		n, err = repo.BulkDelete(ctx, userID, ids)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.logger.Debug(ctx, "records deleted", "entity", t, "requested", len(ids), "deleted", n)
	return n, nil
}

// Get returns one record of the owner.
func (s *RecordService) Get(ctx context.Context, userID string, t models.EntityType, id int64) (models.Canonical, error) {
	repo, err := s.repomanager.Records(t)
	if err != nil {
		return models.Canonical{}, err
	}
	return repo.Get(ctx, userID, id)
}
