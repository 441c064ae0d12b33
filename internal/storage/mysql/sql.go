package mysql

const upsertApprovalSQL = `
INSERT INTO review_approvals
  (review_id, approved)
VALUES
  (?, ?)
ON DUPLICATE KEY UPDATE
  approved   = VALUES(approved),
  updated_at = CURRENT_TIMESTAMP
`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

// Placeholders for the IN list are appended at call time.
const approvedInPrefix = `
SELECT review_id
FROM review_approvals
WHERE approved = 1 AND review_id IN (`

const listApprovedSQL = `
SELECT review_id
FROM review_approvals
WHERE approved = 1
ORDER BY review_id
`
