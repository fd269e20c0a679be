package pubdiff

import (
	"context"
	"strings"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/internal/repositories/published"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Plan is the classified outcome of diffing staged FABS rows against the
// active published set. Publication applies it atomically: deactivate the
// superseded keys, then insert the new and corrected rows.
type Plan struct {
	// New rows insert with no prior active row
	New []models.FABSRow
	// Corrections insert after deactivating the prior active row
	Corrections []models.FABSRow
	// Deletes deactivate the prior active row and insert a deletion marker
	Deletes []models.FABSRow
	// DeactivateKeys are the unique award keys whose active rows supersede
	DeactivateKeys []string
	// Conflicts are staged non-correction rows whose key is already active.
	// A non-empty conflict set blocks publication.
	Conflicts []Conflict
}

// Conflict is one staged row colliding with an already-published award
type Conflict struct {
	RowNumber      int
	UniqueAwardKey string
}

// Differ classifies staged FABS rows against published state
type Differ struct {
	logger        ectologger.Logger
	publishedRepo *published.Repository
}

// NewDiffer creates a new publication differ
func NewDiffer(logger ectologger.Logger, publishedRepo *published.Repository) *Differ {
	return &Differ{
		logger:        logger,
		publishedRepo: publishedRepo,
	}
}

// Diff builds the publication plan for a submission's staged FABS rows.
// Classification follows the correction/delete indicator: "C" corrects the
// active row for its key, "D" deletes it, anything else is a new award and
// conflicts when its key is already active. Keys in republished are awards
// this submission itself published before; a republish supersedes them
// instead of conflicting.
func (d *Differ) Diff(ctx context.Context, rows []models.FABSRow, republished map[string]bool) (*Plan, error) {
	ctx, span := tracing.StartSpan(ctx, "pubdiff.Differ.Diff")
	defer span.End()

	keys := make([]string, 0, len(rows))
	for _, row := range rows {
		keys = append(keys, row.UniqueKey())
	}

	active, err := d.publishedRepo.FindActiveFABSKeys(ctx, keys)
	if err != nil {
		return nil, err
	}

	plan := classify(rows, active, republished)

	d.logger.WithContext(ctx).WithFields(map[string]any{
		"new":         len(plan.New),
		"corrections": len(plan.Corrections),
		"deletes":     len(plan.Deletes),
		"conflicts":   len(plan.Conflicts),
	}).Info("Built publication plan")
	return plan, nil
}

func classify(rows []models.FABSRow, active, republished map[string]bool) *Plan {
	plan := &Plan{}
	deactivate := map[string]bool{}
	for _, row := range rows {
		key := row.UniqueKey()
		switch indicator(row.CorrectionDeleteIndicatr) {
		case "C":
			plan.Corrections = append(plan.Corrections, row)
			if active[key] {
				deactivate[key] = true
			}
		case "D":
			plan.Deletes = append(plan.Deletes, row)
			if active[key] {
				deactivate[key] = true
			}
		default:
			if active[key] {
				if republished[key] {
					plan.Corrections = append(plan.Corrections, row)
					deactivate[key] = true
					continue
				}
				plan.Conflicts = append(plan.Conflicts, Conflict{RowNumber: row.RowNumber, UniqueAwardKey: key})
				continue
			}
			plan.New = append(plan.New, row)
		}
	}

	for key := range deactivate {
		plan.DeactivateKeys = append(plan.DeactivateKeys, key)
	}
	return plan
}

func indicator(s *string) string {
	if s == nil {
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(*s))
}
