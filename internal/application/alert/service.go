package alert

import (
	"context"
	"fmt"

	"github.com/clearflow/clearflow-api/internal/domain"
)

type Service interface {
	ListUnread(ctx context.Context, userID string) ([]domain.Alert, error)
	MarkAsRead(ctx context.Context, userID, alertID string) (*domain.Alert, error)
}

type alertStore interface {
	ListUnread(ctx context.Context, userID string) ([]domain.Alert, error)
	Get(ctx context.Context, alertID string) (*domain.Alert, error)
	MarkAsRead(ctx context.Context, alertID string) error
}

type service struct {
	repo alertStore
}

func NewService(repo alertStore) Service { return &service{repo: repo} }

func (s *service) ListUnread(ctx context.Context, userID string) ([]domain.Alert, error) {
	return s.repo.ListUnread(ctx, userID)
}

// MarkAsRead acknowledges an alert. Alerts are only visible to the account
// they were raised for.
func (s *service) MarkAsRead(ctx context.Context, userID, alertID string) (*domain.Alert, error) {
	a, err := s.repo.Get(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if a.UserID != userID {
		return nil, fmt.Errorf("alert belongs to another account: %w", domain.ErrForbidden)
	}
	if err := s.repo.MarkAsRead(ctx, alertID); err != nil {
		return nil, err
	}
	a.Read = 1
	return a, nil
}
