package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/HendryAvila/specgate/internal/specs"
)

const specColumns = `id, project_id, category, key, value, confidence, source,
	is_current, supersedes, superseded_by, created_at`

// ─── Specifications ──────────────────────────────────────────────────────────

// GetSpecification returns a specification by id, current or not.
func (s *Store) GetSpecification(ctx context.Context, id string) (*specs.Specification, error) {
	return getSpecification(ctx, s.db, id)
}

// ListSpecifications returns a project's specifications in creation order.
// An empty category lists all categories; withHistory includes superseded
// records.
func (s *Store) ListSpecifications(ctx context.Context, projectID string, cat specs.Category, withHistory bool) ([]specs.Specification, error) {
	where := `WHERE project_id = ?`
	args := []any{projectID}
	if cat != "" {
		where += ` AND category = ?`
		args = append(args, cat)
	}
	if !withHistory {
		where += ` AND is_current = 1`
	}
	return querySpecifications(ctx, s.db, where, args...)
}

func getSpecification(ctx context.Context, q queryer, id string) (*specs.Specification, error) {
	list, err := querySpecifications(ctx, q, `WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, notFound("specification", id)
	}
	return &list[0], nil
}

func querySpecifications(ctx context.Context, q queryer, where string, args ...any) ([]specs.Specification, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+specColumns+` FROM specifications `+where+` ORDER BY created_at, rowid`, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query specifications: %w", err)
	}
	defer rows.Close()

	var out []specs.Specification
	for rows.Next() {
		var (
			sp      specs.Specification
			current int
		)
		if err := rows.Scan(&sp.ID, &sp.ProjectID, &sp.Category, &sp.Key, &sp.Value,
			&sp.Confidence, &sp.Source, &current, &sp.Supersedes, &sp.SupersededBy, &sp.CreatedAt); err != nil {
			return nil, err
		}
		sp.IsCurrent = current == 1
		out = append(out, sp)
	}
	return out, rows.Err()
}

// ─── Category writes ─────────────────────────────────────────────────────────

// CategoryWriter performs writes against one (project, category) inside a
// transaction opened by WriteCategory.
type CategoryWriter struct {
	ctx       context.Context
	tx        *sql.Tx
	projectID string
	category  specs.Category
}

// WriteCategory runs fn in one transaction whose first statement advances the
// category revision from expected. A moved revision aborts with
// *specs.StaleWriteError before fn runs. Any error from fn rolls back.
func (s *Store) WriteCategory(ctx context.Context, projectID string, cat specs.Category, expected int64, fn func(w *CategoryWriter) error) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := bumpRevision(ctx, tx, projectID, cat, expected); err != nil {
			return err
		}
		return fn(&CategoryWriter{ctx: ctx, tx: tx, projectID: projectID, category: cat})
	})
}

// PendingConflict returns the conflict locking the category, or nil.
func (w *CategoryWriter) PendingConflict() (*specs.Conflict, error) {
	list, err := queryConflicts(w.ctx, w.tx,
		`WHERE project_id = ? AND category = ? AND status = 'pending'`, w.projectID, w.category)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return &list[0], nil
}

// ExpectRevision fails with a stale write if another category moved past
// the revision observed at read time. Used for linked categories, which a
// write reads but does not bump.
func (w *CategoryWriter) ExpectRevision(cat specs.Category, expected int64) error {
	actual, err := revision(w.ctx, w.tx, w.projectID, cat)
	if err != nil {
		return err
	}
	if actual != expected {
		return &specs.StaleWriteError{ProjectID: w.projectID, Category: cat, Expected: expected, Actual: actual}
	}
	return nil
}

// Conflict re-reads a conflict inside the transaction.
func (w *CategoryWriter) Conflict(id string) (*specs.Conflict, error) {
	return getConflict(w.ctx, w.tx, id)
}

// Specification re-reads a specification inside the transaction.
func (w *CategoryWriter) Specification(id string) (*specs.Specification, error) {
	return getSpecification(w.ctx, w.tx, id)
}

// Current returns the current specification of (cat, key), or nil.
func (w *CategoryWriter) Current(cat specs.Category, key string) (*specs.Specification, error) {
	list, err := querySpecifications(w.ctx, w.tx,
		`WHERE project_id = ? AND category = ? AND key = ? AND is_current = 1`, w.projectID, cat, key)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return &list[0], nil
}

// Commit stores p as the current specification for its key. The current
// specification with the same key, and every id in supersede, is stamped
// as superseded by the new record. Superseding something that is no longer
// current is a stale write.
func (w *CategoryWriter) Commit(p specs.Proposal, supersede ...string) (*specs.Specification, error) {
	sp := &specs.Specification{
		ID:         newID(),
		ProjectID:  w.projectID,
		Category:   p.Category,
		Key:        p.Key,
		Value:      p.Value,
		Confidence: p.Confidence,
		Source:     p.Source,
		IsCurrent:  true,
		CreatedAt:  specs.Now(),
	}

	var sameKey string
	err := w.tx.QueryRowContext(w.ctx,
		`SELECT id FROM specifications
		 WHERE project_id = ? AND category = ? AND key = ? AND is_current = 1`,
		w.projectID, p.Category, p.Key,
	).Scan(&sameKey)
	if err != nil && !isNoRows(err) {
		return nil, fmt.Errorf("store: find current specification: %w", err)
	}

	targets := append([]string{}, supersede...)
	if sameKey != "" && !contains(targets, sameKey) {
		targets = append(targets, sameKey)
	}
	if len(targets) > 0 {
		sp.Supersedes = targets[0]
	}

	for _, id := range targets {
		old, err := getSpecification(w.ctx, w.tx, id)
		if err != nil {
			return nil, err
		}
		res, err := w.tx.ExecContext(w.ctx,
			`UPDATE specifications SET is_current = 0, superseded_by = ?
			 WHERE id = ? AND is_current = 1`,
			sp.ID, id,
		)
		if err != nil {
			return nil, fmt.Errorf("store: supersede specification: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil, &specs.StaleWriteError{ProjectID: w.projectID, Category: old.Category}
		}
		if old.Category != w.category {
			if err := touchRevision(w.ctx, w.tx, w.projectID, old.Category); err != nil {
				return nil, err
			}
		}
	}

	if p.Category != w.category {
		if err := touchRevision(w.ctx, w.tx, w.projectID, p.Category); err != nil {
			return nil, err
		}
	}

	_, err = w.tx.ExecContext(w.ctx,
		`INSERT INTO specifications (`+specColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, '', ?)`,
		sp.ID, sp.ProjectID, sp.Category, sp.Key, sp.Value, sp.Confidence, sp.Source,
		sp.Supersedes, sp.CreatedAt,
	)
	if isUniqueViolation(err) {
		return nil, &specs.StaleWriteError{ProjectID: w.projectID, Category: p.Category}
	}
	if err != nil {
		return nil, fmt.Errorf("store: insert specification: %w", err)
	}
	return sp, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
