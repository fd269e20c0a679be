package catalog

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/internal/repositories/rule"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Catalog is the in-memory rule catalog. It loads once at startup and is
// immutable afterward; rule changes ship as catalog migrations, not runtime
// writes. Keys are (file_type, rule_id) so the same rule id can exist for
// different files without colliding.
type Catalog struct {
	ruleRepo *rule.Repository
	logger   ectologger.Logger

	mu    sync.RWMutex
	rules map[catalogKey]models.Rule
}

type catalogKey struct {
	fileType models.FileType
	ruleID   string
}

// NewCatalog creates an unloaded catalog
func NewCatalog(ruleRepo *rule.Repository, logger ectologger.Logger) *Catalog {
	return &Catalog{
		ruleRepo: ruleRepo,
		logger:   logger,
		rules:    map[catalogKey]models.Rule{},
	}
}

// Load reads the full catalog from the database. A duplicate (file_type,
// rule_id) pair fails the load outright: a catalog that cannot be keyed
// unambiguously must not serve evaluations.
func (c *Catalog) Load(ctx context.Context) error {
	ctx, span := tracing.StartSpan(ctx, "catalog.Catalog.Load")
	defer span.End()

	rules, err := c.ruleRepo.ListAll(ctx)
	if err != nil {
		return err
	}

	loaded := make(map[catalogKey]models.Rule, len(rules))
	for _, r := range rules {
		key := catalogKey{fileType: r.FileType, ruleID: r.RuleID}
		if _, exists := loaded[key]; exists {
			c.logger.WithContext(ctx).WithFields(map[string]any{"file_type": r.FileType, "rule_id": r.RuleID}).Error("Duplicate rule in catalog")
			return httperror.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("duplicate catalog entry %s/%s", r.FileType, r.RuleID))
		}
		loaded[key] = r
	}

	c.mu.Lock()
	c.rules = loaded
	c.mu.Unlock()

	c.logger.WithContext(ctx).WithFields(map[string]any{"count": len(loaded)}).Info("Loaded rule catalog")
	return nil
}

// Get returns one catalog entry
func (c *Catalog) Get(fileType models.FileType, ruleID string) (models.Rule, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.rules[catalogKey{fileType: fileType, ruleID: ruleID}]
	return r, ok
}

// RulesFor returns the active single-file rules for a file type, in catalog
// order. Cross-file rules are excluded; use CrossFileRules.
func (c *Catalog) RulesFor(fileType models.FileType) []models.Rule {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []models.Rule
	for _, r := range c.rules {
		if r.FileType == fileType && r.TargetFileType == nil && r.IsActive && r.HasPredicate() {
			out = append(out, r)
		}
	}
	sortRules(out)
	return out
}

// CrossFileRules returns the active rules for one cross-file pair, in catalog
// order.
func (c *Catalog) CrossFileRules(pair models.CrossFilePair) []models.Rule {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []models.Rule
	for _, r := range c.rules {
		if r.TargetFileType == nil || !r.IsActive || !r.HasPredicate() {
			continue
		}
		if r.FileType == pair.First && *r.TargetFileType == pair.Second {
			out = append(out, r)
		}
	}
	sortRules(out)
	return out
}

// Size returns the number of loaded entries, active or not
func (c *Catalog) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rules)
}

func sortRules(rules []models.Rule) {
	sort.Slice(rules, func(i, j int) bool {
		if rules[i].Ordinal != rules[j].Ordinal {
			return rules[i].Ordinal < rules[j].Ordinal
		}
		return rules[i].RuleID < rules[j].RuleID
	})
}
