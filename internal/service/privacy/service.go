// Package privacy implements data-subject export and erasure.
package privacy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vietddude/packup/internal/core/domain"
	"github.com/vietddude/packup/internal/infra/storage"
)

var ErrMissingUser = errors.New("user id required")

type Service struct {
	repo   storage.PrivacyRepository
	events storage.EventRepository
}

func New(repo storage.PrivacyRepository, events storage.EventRepository) *Service {
	return &Service{repo: repo, events: events}
}

// Export returns every row held for userID.
func (s *Service) Export(ctx context.Context, userID string) (*domain.UserExport, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	out, err := s.repo.Export(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("export user data: %w", err)
	}
	return out, nil
}

// Delete erases the user's data and writes a privacy_delete audit event.
// A failed audit write is logged, not returned: the erasure already happened.
func (s *Service) Delete(ctx context.Context, userID, op string) (domain.DeleteCounts, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	counts, err := s.repo.Delete(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("delete user data: %w", err)
	}

	slog.Info("user data deleted", "op", op, "user", userID, "counts", counts)

	if s.events == nil {
		return counts, nil
	}
	ev, err := domain.NewEvent(domain.EventTypePrivacyDelete, map[string]any{
		"user_id":     userID,
		"operationId": op,
		"counts":      counts,
	})
	if err == nil {
		err = s.events.Add(ctx, ev)
	}
	if err != nil {
		slog.Warn("privacy audit event failed", "op", op, "error", err)
	}
	return counts, nil
}
