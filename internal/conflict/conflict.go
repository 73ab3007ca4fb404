// Package conflict implements the propose/resolve protocol that keeps the
// specification set free of unacknowledged contradictions.
//
// A proposal is compared against the current specifications of its category
// (and linked categories) by an external checker, outside any lock. The
// commit then re-enters a per-(project, category) exclusive section and a
// transaction that first advances the category revision from the value
// observed before the check. If anything moved, the write aborts with a
// stale-write error and the caller retries.
package conflict

import (
	"context"
	"log/slog"

	"github.com/HendryAvila/specgate/internal/collab"
	"github.com/HendryAvila/specgate/internal/config"
	"github.com/HendryAvila/specgate/internal/lock"
	"github.com/HendryAvila/specgate/internal/specs"
	"github.com/HendryAvila/specgate/internal/store"
)

// Outcome of a proposal.
type Outcome string

const (
	OutcomeCommitted Outcome = "committed"
	OutcomeConflict  Outcome = "conflict"
)

// ProposeResult is either a committed specification or a pending conflict.
type ProposeResult struct {
	Outcome       Outcome              `json:"outcome"`
	Specification *specs.Specification `json:"specification,omitempty"`
	Conflict      *specs.Conflict      `json:"conflict,omitempty"`
}

// ResolutionResult reports the conflict after resolution and, for replace
// and merge, the specification that became current.
type ResolutionResult struct {
	Conflict      *specs.Conflict      `json:"conflict"`
	Specification *specs.Specification `json:"specification,omitempty"`
	Released      bool                 `json:"released"`
}

// CommitHook runs after a specification commit, outside the lock. Its
// failures are the hook's to log.
type CommitHook func(ctx context.Context, projectID string, cat specs.Category)

// Options configures a Detector.
type Options struct {
	Store    *store.Store
	Checker  collab.ContradictionChecker
	Locker   lock.Locker
	Config   *config.Config
	Logger   *slog.Logger
	OnCommit CommitHook
}

// Detector runs the propose and resolve protocols.
type Detector struct {
	store    *store.Store
	checker  collab.ContradictionChecker
	locker   lock.Locker
	cfg      *config.Config
	logger   *slog.Logger
	onCommit CommitHook
}

// New creates a Detector. A nil Locker uses an in-process one.
func New(opts Options) *Detector {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Locker == nil {
		opts.Locker = lock.NewLocal()
	}
	return &Detector{
		store:    opts.Store,
		checker:  opts.Checker,
		locker:   opts.Locker,
		cfg:      opts.Config,
		logger:   opts.Logger,
		onCommit: opts.OnCommit,
	}
}

// Locker returns the lock guarding compare-then-commit.
func (d *Detector) Locker() lock.Locker {
	return d.locker
}

// ─── Propose ─────────────────────────────────────────────────────────────────

// Propose validates p, checks it for contradictions, and either commits it
// or records a pending conflict. The project must exist.
func (d *Detector) Propose(ctx context.Context, p specs.Proposal) (*ProposeResult, error) {
	p = p.Normalize()
	if err := p.Validate(); err != nil {
		return nil, err
	}

	linked := d.cfg.Linked(p.Category)
	st, err := d.store.ReadCategory(ctx, p.ProjectID, p.Category, linked)
	if err != nil {
		return nil, err
	}
	if st.Pending != nil {
		return nil, lockedBy(st.Pending)
	}

	existing := sameKeyFirst(st.Current, p)
	var verdict collab.Verdict
	if len(existing) > 0 {
		verdict, err = d.checker.Check(ctx, collab.ContradictionQuery{
			Proposal:        p,
			Existing:        existing,
			CategoryContext: string(p.Category),
		})
		if err != nil {
			return nil, &specs.ExternalCollaboratorError{Capability: collab.CapCheckContradiction, Err: err}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var conflicting *specs.Specification
	if verdict.IsConflict && verdict.Confidence >= d.cfg.ConflictThreshold {
		conflicting = pick(existing, verdict.ExistingID)
	}

	unlock, err := d.locker.Lock(ctx, lock.Key(p.ProjectID, p.Category))
	if err != nil {
		return nil, err
	}
	res := &ProposeResult{}
	err = d.store.WriteCategory(ctx, p.ProjectID, p.Category, st.Revision, func(w *store.CategoryWriter) error {
		for _, l := range linked {
			if err := w.ExpectRevision(l, st.LinkedRevisions[l]); err != nil {
				return err
			}
		}
		pending, err := w.PendingConflict()
		if err != nil {
			return err
		}
		if pending != nil {
			return lockedBy(pending)
		}

		if conflicting != nil {
			c := &specs.Conflict{
				OldSpecificationID: conflicting.ID,
				ProposedKey:        p.Key,
				ProposedValue:      p.Value,
				ProposedConfidence: p.Confidence,
				ProposedSource:     p.Source,
				ConflictType:       conflictType(verdict, p.Category),
				Explanation:        verdict.Explanation,
				JudgmentConfidence: verdict.Confidence,
			}
			if err := w.CreateConflict(c); err != nil {
				return err
			}
			res.Outcome = OutcomeConflict
			res.Conflict = c
			return nil
		}

		sp, err := w.Commit(p)
		if err != nil {
			return err
		}
		res.Outcome = OutcomeCommitted
		res.Specification = sp
		return nil
	})
	unlock()
	if err != nil {
		return nil, err
	}

	switch res.Outcome {
	case OutcomeConflict:
		d.logger.Info("conflict detected",
			"project_id", p.ProjectID, "category", p.Category,
			"conflict_id", res.Conflict.ID, "conflict_type", res.Conflict.ConflictType)
	case OutcomeCommitted:
		d.logger.Info("specification committed",
			"project_id", p.ProjectID, "category", p.Category,
			"key", p.Key, "specification_id", res.Specification.ID)
		d.committed(ctx, p.ProjectID, p.Category)
	}
	return res, nil
}

// ─── Resolve ─────────────────────────────────────────────────────────────────

// Resolve settles a pending conflict. keep_old, replace, and merge are
// terminal and release the category; clarify keeps the conflict pending
// and counts the extra turn. merge requires clarification, which becomes
// the merged value.
func (d *Detector) Resolve(ctx context.Context, conflictID string, resolution specs.Resolution, clarification string) (*ResolutionResult, error) {
	if err := specs.ValidateResolution(resolution); err != nil {
		return nil, err
	}
	if resolution == specs.ResolutionMerge && clarification == "" {
		return nil, &specs.ValidationError{Field: "clarification", Reason: "merge requires the merged value"}
	}

	c, err := d.store.GetConflict(ctx, conflictID)
	if err != nil {
		return nil, err
	}
	if c.Status != specs.StatusPending {
		return nil, alreadyResolved(c)
	}
	rev, err := d.store.Revision(ctx, c.ProjectID, c.Category)
	if err != nil {
		return nil, err
	}

	unlock, err := d.locker.Lock(ctx, lock.Key(c.ProjectID, c.Category))
	if err != nil {
		return nil, err
	}
	res := &ResolutionResult{}
	err = d.store.WriteCategory(ctx, c.ProjectID, c.Category, rev, func(w *store.CategoryWriter) error {
		cur, err := w.Conflict(conflictID)
		if err != nil {
			return err
		}
		if cur.Status != specs.StatusPending {
			return alreadyResolved(cur)
		}
		res.Conflict = cur

		if resolution == specs.ResolutionClarify {
			cur.ClarifyCount++
			return w.SaveConflict(cur)
		}

		old, err := w.Specification(cur.OldSpecificationID)
		if err != nil {
			return err
		}
		// A specification in a linked category can be refined while the
		// conflict is pending. Resolution follows its key to the current one.
		live := old
		var supersede []string
		if !old.IsCurrent {
			if live, err = w.Current(old.Category, old.Key); err != nil {
				return err
			}
			if live == nil {
				live = old
			}
		}
		if live.IsCurrent {
			supersede = append(supersede, live.ID)
		}

		switch resolution {
		case specs.ResolutionKeepOld:
			cur.ResolvedValue = live.Value
			cur.ResolvedSpecID = live.ID
		case specs.ResolutionReplace, specs.ResolutionMerge:
			p := cur.ProposalOf()
			if resolution == specs.ResolutionMerge {
				p.Value = clarification
				if live.Confidence > p.Confidence {
					p.Confidence = live.Confidence
				}
			}
			sp, err := w.Commit(p, supersede...)
			if err != nil {
				return err
			}
			res.Specification = sp
			cur.ResolvedValue = sp.Value
			cur.ResolvedSpecID = sp.ID
		}

		cur.Status = specs.StatusResolved
		cur.Resolution = resolution
		cur.ResolvedAt = specs.Now()
		res.Released = true
		return w.SaveConflict(cur)
	})
	unlock()
	if err != nil {
		return nil, err
	}

	d.logger.Info("conflict resolution recorded",
		"project_id", c.ProjectID, "category", c.Category,
		"conflict_id", c.ID, "resolution", resolution, "released", res.Released)
	if res.Specification != nil {
		d.committed(ctx, c.ProjectID, c.Category)
	}
	return res, nil
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func (d *Detector) committed(ctx context.Context, projectID string, cat specs.Category) {
	if d.onCommit != nil {
		d.onCommit(ctx, projectID, cat)
	}
}

func lockedBy(c *specs.Conflict) error {
	return &specs.CategoryLockedError{ProjectID: c.ProjectID, Category: c.Category, ConflictID: c.ID}
}

func alreadyResolved(c *specs.Conflict) error {
	return &specs.ValidationError{Field: "conflict_id", Reason: "conflict " + c.ID + " is already resolved"}
}

// sameKeyFirst orders the comparison set so the specification the proposal
// would supersede is first.
func sameKeyFirst(current []specs.Specification, p specs.Proposal) []specs.Specification {
	out := make([]specs.Specification, 0, len(current))
	for _, sp := range current {
		if sp.Category == p.Category && sp.Key == p.Key {
			out = append(out, sp)
		}
	}
	for _, sp := range current {
		if !(sp.Category == p.Category && sp.Key == p.Key) {
			out = append(out, sp)
		}
	}
	return out
}

// pick returns the specification the verdict names, falling back to the
// first one compared.
func pick(existing []specs.Specification, id string) *specs.Specification {
	for i := range existing {
		if existing[i].ID == id {
			return &existing[i]
		}
	}
	return &existing[0]
}

func conflictType(v collab.Verdict, cat specs.Category) specs.ConflictType {
	t := specs.ParseConflictType(string(v.ConflictType))
	if t == specs.ConflictOther && v.ConflictType == "" {
		return collab.TypeFor(cat)
	}
	return t
}
