package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/HendryAvila/specgate/internal/specs"
)

// Snapshot reasons.
const (
	ReasonCommit     = "commit"
	ReasonTransition = "transition"
)

// ─── Maturity snapshots ──────────────────────────────────────────────────────

// SnapshotRecord is a persisted maturity snapshot with the reason it was taken.
type SnapshotRecord struct {
	specs.MaturitySnapshot
	Reason string `json:"reason"`
}

// SaveSnapshots appends snapshots to the maturity history.
func (s *Store) SaveSnapshots(ctx context.Context, reason string, snaps []specs.MaturitySnapshot) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return insertSnapshots(ctx, tx, reason, snaps)
	})
}

func insertSnapshots(ctx context.Context, tx *sql.Tx, reason string, snaps []specs.MaturitySnapshot) error {
	for _, sn := range snaps {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO maturity_snapshots (project_id, category, score, reason, computed_at)
			 VALUES (?, ?, ?, ?, ?)`,
			sn.ProjectID, sn.Category, sn.Score, reason, sn.ComputedAt,
		); err != nil {
			return fmt.Errorf("store: insert snapshot: %w", err)
		}
	}
	return nil
}

// ListSnapshots returns the snapshot history of a project, oldest first.
// An empty category lists all categories.
func (s *Store) ListSnapshots(ctx context.Context, projectID string, cat specs.Category) ([]SnapshotRecord, error) {
	query := `SELECT project_id, category, score, reason, computed_at
		FROM maturity_snapshots WHERE project_id = ?`
	args := []any{projectID}
	if cat != "" {
		query += ` AND category = ?`
		args = append(args, cat)
	}
	rows, err := s.db.QueryContext(ctx, query+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query snapshots: %w", err)
	}
	defer rows.Close()

	var out []SnapshotRecord
	for rows.Next() {
		var r SnapshotRecord
		if err := rows.Scan(&r.ProjectID, &r.Category, &r.Score, &r.Reason, &r.ComputedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ─── Phase transitions ───────────────────────────────────────────────────────

// TransitionCheck is the state a transition's guards were evaluated on.
type TransitionCheck struct {
	Revisions    map[specs.Category]int64
	NoOpenIssues bool
}

// Transition moves the project from t.FromPhase to t.ToPhase, recording the
// transition and the maturity snapshots in the same transaction. It fails
// with a stale write if the project left FromPhase, if any category moved
// past check.Revisions, if a conflict is pending, or, with NoOpenIssues, if
// an architecture issue is open.
func (s *Store) Transition(ctx context.Context, t *specs.PhaseTransition, snaps []specs.MaturitySnapshot, check TransitionCheck) error {
	if t.ID == "" {
		t.ID = newID()
	}
	if t.TransitionedAt == "" {
		t.TransitionedAt = specs.Now()
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE projects SET current_phase = ?, updated_at = ?
			 WHERE id = ? AND current_phase = ?`,
			t.ToPhase, t.TransitionedAt, t.ProjectID, t.FromPhase,
		)
		if err != nil {
			return fmt.Errorf("store: update phase: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("project %s is no longer in phase %s: %w", t.ProjectID, t.FromPhase, specs.ErrStaleWrite)
		}
		if err := revalidate(ctx, tx, t.ProjectID, check); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO phase_transitions
			 (id, project_id, from_phase, to_phase, overall_score, readiness, gate_decision_id, transitioned_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.ProjectID, t.FromPhase, t.ToPhase, t.OverallScore, t.Readiness,
			t.GateDecisionID, t.TransitionedAt,
		); err != nil {
			return fmt.Errorf("store: insert transition: %w", err)
		}
		return insertSnapshots(ctx, tx, ReasonTransition, snaps)
	})
}

func revalidate(ctx context.Context, tx *sql.Tx, projectID string, check TransitionCheck) error {
	actual, err := revisions(ctx, tx, projectID)
	if err != nil {
		return err
	}
	for cat, rev := range actual {
		if expected := check.Revisions[cat]; rev != expected {
			return &specs.StaleWriteError{ProjectID: projectID, Category: cat, Expected: expected, Actual: rev}
		}
	}

	pending, err := queryConflicts(ctx, tx,
		`WHERE project_id = ? AND status = 'pending'`, projectID)
	if err != nil {
		return err
	}
	if len(pending) > 0 {
		return &specs.StaleWriteError{ProjectID: projectID, Category: pending[0].Category}
	}

	if check.NoOpenIssues {
		var open int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM architecture_issues WHERE project_id = ? AND status = 'open'`, projectID,
		).Scan(&open); err != nil {
			return fmt.Errorf("store: count open issues: %w", err)
		}
		if open > 0 {
			return fmt.Errorf("project %s has %d open architecture issue(s): %w", projectID, open, specs.ErrStaleWrite)
		}
	}
	return nil
}

// ListTransitions returns a project's phase transitions, oldest first.
func (s *Store) ListTransitions(ctx context.Context, projectID string) ([]specs.PhaseTransition, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, from_phase, to_phase, overall_score, readiness, gate_decision_id, transitioned_at
		 FROM phase_transitions WHERE project_id = ? ORDER BY transitioned_at, rowid`, projectID)
	if err != nil {
		return nil, fmt.Errorf("store: query transitions: %w", err)
	}
	defer rows.Close()

	var out []specs.PhaseTransition
	for rows.Next() {
		var t specs.PhaseTransition
		if err := rows.Scan(&t.ID, &t.ProjectID, &t.FromPhase, &t.ToPhase, &t.OverallScore,
			&t.Readiness, &t.GateDecisionID, &t.TransitionedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ─── Architecture issues ─────────────────────────────────────────────────────

// ReportIssue records an open architecture issue.
func (s *Store) ReportIssue(ctx context.Context, projectID, summary string) (*specs.ArchitectureIssue, error) {
	if summary == "" {
		return nil, &specs.ValidationError{Field: "summary", Reason: "is required"}
	}
	is := &specs.ArchitectureIssue{
		ID:         newID(),
		ProjectID:  projectID,
		Summary:    summary,
		Status:     "open",
		ReportedAt: specs.Now(),
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO architecture_issues (id, project_id, summary, status, reported_at)
		 VALUES (?, ?, ?, ?, ?)`,
		is.ID, is.ProjectID, is.Summary, is.Status, is.ReportedAt,
	); err != nil {
		return nil, fmt.Errorf("store: insert architecture issue: %w", err)
	}
	return is, nil
}

// ResolveIssue marks an open issue resolved.
func (s *Store) ResolveIssue(ctx context.Context, id string) (*specs.ArchitectureIssue, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE architecture_issues SET status = 'resolved', resolved_at = ?
		 WHERE id = ? AND status = 'open'`, specs.Now(), id)
	if err != nil {
		return nil, fmt.Errorf("store: resolve architecture issue: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		list, err := queryIssues(ctx, s.db, `WHERE id = ?`, id)
		if err != nil {
			return nil, err
		}
		if len(list) == 0 {
			return nil, notFound("architecture issue", id)
		}
		return nil, &specs.ValidationError{Field: "issue_id", Reason: "issue is already resolved"}
	}
	list, err := queryIssues(ctx, s.db, `WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	return &list[0], nil
}

// OpenIssues returns the unresolved architecture issues of a project.
func (s *Store) OpenIssues(ctx context.Context, projectID string) ([]specs.ArchitectureIssue, error) {
	return queryIssues(ctx, s.db, `WHERE project_id = ? AND status = 'open'`, projectID)
}

func queryIssues(ctx context.Context, q queryer, where string, args ...any) ([]specs.ArchitectureIssue, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, project_id, summary, status, reported_at, resolved_at
		 FROM architecture_issues `+where+` ORDER BY reported_at, rowid`, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query architecture issues: %w", err)
	}
	defer rows.Close()

	var out []specs.ArchitectureIssue
	for rows.Next() {
		var is specs.ArchitectureIssue
		if err := rows.Scan(&is.ID, &is.ProjectID, &is.Summary, &is.Status, &is.ReportedAt, &is.ResolvedAt); err != nil {
			return nil, err
		}
		out = append(out, is)
	}
	return out, rows.Err()
}
