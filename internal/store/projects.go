package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/HendryAvila/specgate/internal/specs"
)

// ─── Projects ────────────────────────────────────────────────────────────────

// EnsureProject creates the project in the discovery phase if it does not
// exist yet. A non-empty name is recorded only on creation.
func (s *Store) EnsureProject(ctx context.Context, id, name string) (*specs.Project, error) {
	if id == "" {
		return nil, &specs.ValidationError{Field: "project_id", Reason: "is required"}
	}
	now := specs.Now()
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO projects (id, name, current_phase, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		id, name, specs.PhaseDiscovery, now, now,
	); err != nil {
		return nil, fmt.Errorf("store: ensure project: %w", err)
	}
	return s.GetProject(ctx, id)
}

// GetProject returns a project by id.
func (s *Store) GetProject(ctx context.Context, id string) (*specs.Project, error) {
	return getProject(ctx, s.db, id)
}

func getProject(ctx context.Context, q queryer, id string) (*specs.Project, error) {
	var p specs.Project
	err := q.QueryRowContext(ctx,
		`SELECT id, name, current_phase, created_at, updated_at FROM projects WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.CurrentPhase, &p.CreatedAt, &p.UpdatedAt)
	if isNoRows(err) {
		return nil, notFound("project", id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get project: %w", err)
	}
	return &p, nil
}

// ListProjects returns every project ordered by creation.
func (s *Store) ListProjects(ctx context.Context) ([]specs.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, current_phase, created_at, updated_at FROM projects ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("store: list projects: %w", err)
	}
	defer rows.Close()

	var out []specs.Project
	for rows.Next() {
		var p specs.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.CurrentPhase, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ─── Project view ────────────────────────────────────────────────────────────

// ProjectView is a consistent read of everything scoring and gating need.
type ProjectView struct {
	Project    specs.Project
	Current    []specs.Specification // every current specification, all categories
	Pending    []specs.Conflict
	OpenIssues []specs.ArchitectureIssue

	// Revisions are the category revisions at read time. Categories never
	// written are absent.
	Revisions map[specs.Category]int64
}

// CurrentIn returns the current specifications of one category.
func (v *ProjectView) CurrentIn(cat specs.Category) []specs.Specification {
	var out []specs.Specification
	for _, sp := range v.Current {
		if sp.Category == cat {
			out = append(out, sp)
		}
	}
	return out
}

// PendingIn returns the pending conflict locking cat, if any.
func (v *ProjectView) PendingIn(cat specs.Category) *specs.Conflict {
	for i := range v.Pending {
		if v.Pending[i].Category == cat {
			return &v.Pending[i]
		}
	}
	return nil
}

// ReadProject reads the project aggregate inside one transaction.
func (s *Store) ReadProject(ctx context.Context, projectID string) (*ProjectView, error) {
	tx, err := s.beginTxHook(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: begin read: %w", err)
	}
	defer tx.Rollback()

	p, err := getProject(ctx, tx, projectID)
	if err != nil {
		return nil, err
	}
	view := &ProjectView{Project: *p}

	if view.Current, err = querySpecifications(ctx, tx,
		`WHERE project_id = ? AND is_current = 1`, projectID); err != nil {
		return nil, err
	}
	if view.Pending, err = queryConflicts(ctx, tx,
		`WHERE project_id = ? AND status = 'pending'`, projectID); err != nil {
		return nil, err
	}
	if view.OpenIssues, err = queryIssues(ctx, tx,
		`WHERE project_id = ? AND status = 'open'`, projectID); err != nil {
		return nil, err
	}
	if view.Revisions, err = revisions(ctx, tx, projectID); err != nil {
		return nil, err
	}
	return view, nil
}

// ─── Category revisions ──────────────────────────────────────────────────────

// CategoryState is the snapshot read taken before an external contradiction
// check. Revision is the optimistic concurrency token.
type CategoryState struct {
	Revision int64
	Pending  *specs.Conflict
	Current  []specs.Specification // the category plus any linked categories

	// LinkedRevisions are the revisions of the linked categories at read time.
	LinkedRevisions map[specs.Category]int64
}

// ReadCategory returns the category's revision, pending conflict, and the
// current specifications of cat and linked.
func (s *Store) ReadCategory(ctx context.Context, projectID string, cat specs.Category, linked []specs.Category) (*CategoryState, error) {
	tx, err := s.beginTxHook(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: begin read: %w", err)
	}
	defer tx.Rollback()

	st := &CategoryState{LinkedRevisions: make(map[specs.Category]int64, len(linked))}
	if st.Revision, err = revision(ctx, tx, projectID, cat); err != nil {
		return nil, err
	}
	for _, l := range linked {
		if st.LinkedRevisions[l], err = revision(ctx, tx, projectID, l); err != nil {
			return nil, err
		}
	}
	pending, err := queryConflicts(ctx, tx,
		`WHERE project_id = ? AND category = ? AND status = 'pending'`, projectID, cat)
	if err != nil {
		return nil, err
	}
	if len(pending) > 0 {
		st.Pending = &pending[0]
	}
	for _, c := range append([]specs.Category{cat}, linked...) {
		current, err := querySpecifications(ctx, tx,
			`WHERE project_id = ? AND category = ? AND is_current = 1`, projectID, c)
		if err != nil {
			return nil, err
		}
		st.Current = append(st.Current, current...)
	}
	return st, nil
}

// Revision returns the current revision of a category (0 if never written).
func (s *Store) Revision(ctx context.Context, projectID string, cat specs.Category) (int64, error) {
	return revision(ctx, s.db, projectID, cat)
}

func revision(ctx context.Context, q queryer, projectID string, cat specs.Category) (int64, error) {
	var rev int64
	err := q.QueryRowContext(ctx,
		`SELECT revision FROM category_revisions WHERE project_id = ? AND category = ?`,
		projectID, cat,
	).Scan(&rev)
	if isNoRows(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("store: read revision: %w", err)
	}
	return rev, nil
}

// revisions returns every recorded category revision of a project.
func revisions(ctx context.Context, q queryer, projectID string) (map[specs.Category]int64, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT category, revision FROM category_revisions WHERE project_id = ?`, projectID)
	if err != nil {
		return nil, fmt.Errorf("store: read revisions: %w", err)
	}
	defer rows.Close()

	out := make(map[specs.Category]int64)
	for rows.Next() {
		var (
			cat specs.Category
			rev int64
		)
		if err := rows.Scan(&cat, &rev); err != nil {
			return nil, err
		}
		out[cat] = rev
	}
	return out, rows.Err()
}

// bumpRevision advances the revision only if it still equals expected.
// It is the first statement of every category write so the transaction
// takes SQLite's write lock before reading anything.
func bumpRevision(ctx context.Context, tx *sql.Tx, projectID string, cat specs.Category, expected int64) error {
	var (
		res sql.Result
		err error
	)
	if expected == 0 {
		res, err = tx.ExecContext(ctx,
			`INSERT INTO category_revisions (project_id, category, revision) VALUES (?, ?, 1)
			 ON CONFLICT (project_id, category) DO NOTHING`,
			projectID, cat,
		)
	} else {
		res, err = tx.ExecContext(ctx,
			`UPDATE category_revisions SET revision = revision + 1
			 WHERE project_id = ? AND category = ? AND revision = ?`,
			projectID, cat, expected,
		)
	}
	if err != nil {
		return fmt.Errorf("store: bump revision: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: bump revision: %w", err)
	}
	if n == 0 {
		actual, err := revision(ctx, tx, projectID, cat)
		if err != nil {
			return err
		}
		return &specs.StaleWriteError{ProjectID: projectID, Category: cat, Expected: expected, Actual: actual}
	}
	return nil
}

// touchRevision advances a category's revision unconditionally.
func touchRevision(ctx context.Context, tx *sql.Tx, projectID string, cat specs.Category) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO category_revisions (project_id, category, revision) VALUES (?, ?, 1)
		 ON CONFLICT (project_id, category) DO UPDATE SET revision = revision + 1`,
		projectID, cat,
	)
	if err != nil {
		return fmt.Errorf("store: touch revision: %w", err)
	}
	return nil
}
