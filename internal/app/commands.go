package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"review_engine/internal/domain"
)

var ErrNoApprovalStore = errors.New("approval store not configured")

type ModerationService struct {
	repo  Fetcher
	store domain.ApprovalStore
}

func NewModerationService(r Fetcher, s domain.ApprovalStore) *ModerationService {
	return &ModerationService{repo: r, store: s}
}

// SetApproval flips the public flag of a review. The review must exist in the
// current batch; approving an id nobody can see is a caller error.
func (s *ModerationService) SetApproval(ctx context.Context, id int64, approved bool) (domain.Review, error) {
	if s.store == nil {
		return domain.Review{}, ErrNoApprovalStore
	}
	res := s.repo.Fetch(ctx, "")
	var (
		rv    domain.Review
		found bool
	)
	for _, r := range res.Reviews {
		if r.ID == id {
			rv, found = r, true
			break
		}
	}
	if !found {
		return domain.Review{}, domain.ErrNotFound
	}

	if err := s.store.SetApproved(ctx, id, approved); err != nil {
		return domain.Review{}, fmt.Errorf("set approval for review %d: %w", id, err)
	}
	log.Info().Int64("review_id", id).Str("listing", rv.Listing).Bool("approved", approved).Msg("review approval updated")
	return rv, nil
}
