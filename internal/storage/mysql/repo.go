package mysql

import (
	"context"
	"database/sql"
	"strings"
)

// ApprovalStore keeps the moderation flag in the review_approvals table.
// Rows are only written on SetApproved; a review without a row is pending.
type ApprovalStore struct{ db *sql.DB }

func New(db *sql.DB) *ApprovalStore { return &ApprovalStore{db: db} }

func (s *ApprovalStore) SetApproved(ctx context.Context, id int64, approved bool) error {
	_, err := s.db.ExecContext(ctx, upsertApprovalSQL, id, approved)
	return err
}

func (s *ApprovalStore) ApprovedSet(ctx context.Context, ids []int64) (map[int64]bool, error) {
	out := make(map[int64]bool, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	marks := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		marks[i] = "?"
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx, approvedInPrefix+strings.Join(marks, ",")+")", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

func (s *ApprovalStore) ListApproved(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, listApprovedSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
