package core

import (
	"context"
	"fmt"

	"synthesis.io/tutor-backend/internal/logger"
	"synthesis.io/tutor-backend/internal/store"
)

// ProgressStore is the persistence needed for keyed progress upserts.
type ProgressStore interface {
	FindProgressByKey(ctx context.Context, studentID, moduleID string) (*store.ProgressRecord, error)
	GetProgressByID(ctx context.Context, id string) (*store.ProgressRecord, error)
	InsertProgress(ctx context.Context, rec *store.ProgressRecord) error
	UpdateProgressFields(ctx context.Context, id string, upd store.ProgressUpdate) error
	ListProgressByStudent(ctx context.Context, studentID string, limit int) ([]store.ProgressRecord, error)
}

// ProgressInput is one progress report. A nil Score leaves the stored score alone.
type ProgressInput struct {
	StudentID  string
	ModuleID   string
	ModuleName string
	Completed  bool
	Score      *float64
}

// ProgressService records and lists per-module progress.
type ProgressService struct {
	store ProgressStore
	limit int
	log   *logger.Logger
}

func NewProgressService(ps ProgressStore, limit int, log *logger.Logger) *ProgressService {
	if limit <= 0 {
		limit = 100
	}
	return &ProgressService{store: ps, limit: limit, log: log}
}

// RecordProgress upserts by (student, module). On update, completed is always
// overwritten and score only when supplied. Concurrent calls for one key are
// not serialised: the last writer wins on the fields it supplies.
func (s *ProgressService) RecordProgress(ctx context.Context, in ProgressInput) (*store.ProgressRecord, error) {
	existing, err := s.store.FindProgressByKey(ctx, in.StudentID, in.ModuleID)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		rec := &store.ProgressRecord{
			StudentID:  in.StudentID,
			ModuleID:   in.ModuleID,
			ModuleName: in.ModuleName,
			Completed:  in.Completed,
			Score:      in.Score,
		}
		if err := s.store.InsertProgress(ctx, rec); err != nil {
			return nil, err
		}
		s.log.Debug("Progress created", "student_id", in.StudentID, "module_id", in.ModuleID)
		return rec, nil
	}

	if err := s.store.UpdateProgressFields(ctx, existing.ID, store.ProgressUpdate{Completed: in.Completed, Score: in.Score}); err != nil {
		return nil, err
	}
	updated, err := s.store.GetProgressByID(ctx, existing.ID)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, fmt.Errorf("progress %s vanished after update: %w", existing.ID, ErrNotFound)
	}
	s.log.Debug("Progress updated", "student_id", in.StudentID, "module_id", in.ModuleID)
	return updated, nil
}

func (s *ProgressService) ListProgress(ctx context.Context, studentID string) ([]store.ProgressRecord, error) {
	return s.store.ListProgressByStudent(ctx, studentID, s.limit)
}
