package store

import (
	"context"
	"fmt"

	"github.com/HendryAvila/specgate/internal/specs"
)

const conflictColumns = `id, project_id, category, old_specification_id, proposed_key,
	proposed_value, proposed_confidence, proposed_source, conflict_type, explanation,
	judgment_confidence, status, resolution, resolved_value, resolved_specification_id,
	clarify_count, detected_at, resolved_at`

// ─── Conflicts ───────────────────────────────────────────────────────────────

// GetConflict returns a conflict by id.
func (s *Store) GetConflict(ctx context.Context, id string) (*specs.Conflict, error) {
	return getConflict(ctx, s.db, id)
}

// ListConflicts returns a project's conflicts in detection order. An empty
// status lists all of them.
func (s *Store) ListConflicts(ctx context.Context, projectID string, status specs.ConflictStatus) ([]specs.Conflict, error) {
	if status == "" {
		return queryConflicts(ctx, s.db, `WHERE project_id = ?`, projectID)
	}
	return queryConflicts(ctx, s.db, `WHERE project_id = ? AND status = ?`, projectID, status)
}

// CreateConflict inserts a pending conflict for the writer's category. The
// partial unique index backs the one-pending-per-category rule; hitting it
// reports the conflict already holding the lock.
func (w *CategoryWriter) CreateConflict(c *specs.Conflict) error {
	c.ID = newID()
	c.ProjectID = w.projectID
	c.Category = w.category
	c.Status = specs.StatusPending
	c.DetectedAt = specs.Now()

	_, err := w.tx.ExecContext(w.ctx,
		`INSERT INTO conflicts (`+conflictColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, '', '', '', 0, ?, '')`,
		c.ID, c.ProjectID, c.Category, c.OldSpecificationID, c.ProposedKey,
		c.ProposedValue, c.ProposedConfidence, c.ProposedSource, c.ConflictType, c.Explanation,
		c.JudgmentConfidence, c.Status, c.DetectedAt,
	)
	if isUniqueViolation(err) {
		existing, perr := w.PendingConflict()
		if perr != nil {
			return perr
		}
		locked := &specs.CategoryLockedError{ProjectID: w.projectID, Category: w.category}
		if existing != nil {
			locked.ConflictID = existing.ID
		}
		return locked
	}
	if err != nil {
		return fmt.Errorf("store: insert conflict: %w", err)
	}
	return nil
}

// SaveConflict persists the mutable resolution fields of c.
func (w *CategoryWriter) SaveConflict(c *specs.Conflict) error {
	res, err := w.tx.ExecContext(w.ctx,
		`UPDATE conflicts
		 SET status = ?, resolution = ?, resolved_value = ?,
		     resolved_specification_id = ?, clarify_count = ?, resolved_at = ?
		 WHERE id = ? AND project_id = ?`,
		c.Status, c.Resolution, c.ResolvedValue, c.ResolvedSpecID, c.ClarifyCount, c.ResolvedAt,
		c.ID, w.projectID,
	)
	if err != nil {
		return fmt.Errorf("store: update conflict: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("conflict", c.ID)
	}
	return nil
}

func getConflict(ctx context.Context, q queryer, id string) (*specs.Conflict, error) {
	list, err := queryConflicts(ctx, q, `WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, notFound("conflict", id)
	}
	return &list[0], nil
}

func queryConflicts(ctx context.Context, q queryer, where string, args ...any) ([]specs.Conflict, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+conflictColumns+` FROM conflicts `+where+` ORDER BY detected_at, rowid`, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query conflicts: %w", err)
	}
	defer rows.Close()

	var out []specs.Conflict
	for rows.Next() {
		var c specs.Conflict
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.Category, &c.OldSpecificationID, &c.ProposedKey,
			&c.ProposedValue, &c.ProposedConfidence, &c.ProposedSource, &c.ConflictType, &c.Explanation,
			&c.JudgmentConfidence, &c.Status, &c.Resolution, &c.ResolvedValue, &c.ResolvedSpecID,
			&c.ClarifyCount, &c.DetectedAt, &c.ResolvedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
