package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/HendryAvila/specgate/internal/specs"
)

const decisionColumns = `id, project_id, operation_type, path_proceed, path_remediate,
	blocking, would_block, severity, critical_gap_count, risk_margin, gaps,
	alternatives, overridden, decided_at`

// ─── Gate decisions ──────────────────────────────────────────────────────────

// SaveGateDecision appends a decision to the audit log, assigning its id
// and timestamp when missing.
func (s *Store) SaveGateDecision(ctx context.Context, d *specs.GateDecision) error {
	if d.ID == "" {
		d.ID = newID()
	}
	if d.DecidedAt == "" {
		d.DecidedAt = specs.Now()
	}
	proceed, err := json.Marshal(d.PathProceed)
	if err != nil {
		return fmt.Errorf("store: encode path_proceed: %w", err)
	}
	remediate, err := json.Marshal(d.PathRemediate)
	if err != nil {
		return fmt.Errorf("store: encode path_remediate: %w", err)
	}
	gaps, err := json.Marshal(nonNil(d.Gaps))
	if err != nil {
		return fmt.Errorf("store: encode gaps: %w", err)
	}
	alts, err := json.Marshal(nonNil(d.Alternatives))
	if err != nil {
		return fmt.Errorf("store: encode alternatives: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO gate_decisions (`+decisionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.ProjectID, d.OperationType, string(proceed), string(remediate),
		boolToInt(d.Blocking), boolToInt(d.WouldBlock), d.Severity, d.CriticalGapCount,
		d.RiskMargin, string(gaps), string(alts), boolToInt(d.Overridden), d.DecidedAt,
	)
	if err != nil {
		return fmt.Errorf("store: insert gate decision: %w", err)
	}
	return nil
}

// GetGateDecision returns a decision by id.
func (s *Store) GetGateDecision(ctx context.Context, id string) (*specs.GateDecision, error) {
	list, err := s.queryDecisions(ctx, `WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, notFound("gate decision", id)
	}
	return &list[0], nil
}

// ListGateDecisions returns a project's decisions in chronological order.
func (s *Store) ListGateDecisions(ctx context.Context, projectID string) ([]specs.GateDecision, error) {
	return s.queryDecisions(ctx, `WHERE project_id = ?`, projectID)
}

// MarkOverridden records an explicit override of a stored decision. It is
// the only mutation the audit log allows.
func (s *Store) MarkOverridden(ctx context.Context, id string) (*specs.GateDecision, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE gate_decisions SET overridden = 1, blocking = 0 WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("store: override gate decision: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, notFound("gate decision", id)
	}
	return s.GetGateDecision(ctx, id)
}

func (s *Store) queryDecisions(ctx context.Context, where string, args ...any) ([]specs.GateDecision, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+decisionColumns+` FROM gate_decisions `+where+` ORDER BY decided_at, rowid`, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query gate decisions: %w", err)
	}
	defer rows.Close()

	var out []specs.GateDecision
	for rows.Next() {
		var (
			d                                specs.GateDecision
			proceed, remediate, gaps, alts   string
			blocking, wouldBlock, overridden int
		)
		if err := rows.Scan(&d.ID, &d.ProjectID, &d.OperationType, &proceed, &remediate,
			&blocking, &wouldBlock, &d.Severity, &d.CriticalGapCount, &d.RiskMargin,
			&gaps, &alts, &overridden, &d.DecidedAt); err != nil {
			return nil, err
		}
		d.Blocking = blocking == 1
		d.WouldBlock = wouldBlock == 1
		d.Overridden = overridden == 1
		if err := decodeJSON(proceed, &d.PathProceed); err != nil {
			return nil, err
		}
		if err := decodeJSON(remediate, &d.PathRemediate); err != nil {
			return nil, err
		}
		if err := decodeJSON(gaps, &d.Gaps); err != nil {
			return nil, err
		}
		if err := decodeJSON(alts, &d.Alternatives); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func decodeJSON(raw string, dst any) error {
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("store: decode gate decision: %w", err)
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
