package refdata

import (
	"sort"
	"strings"

	"finsync/internal"
	"finsync/internal/util"
)

// Resolver maps human-entered strings to cached reference entities with an
// ordered cascade of matching strategies, first hit wins. It never touches
// the network; the index is built from the local cache for one scope.
type Resolver struct {
	index *Index
}

func NewResolver(index *Index) *Resolver {
	return &Resolver{index: index}
}

type strategyFunc func(query string, candidates []internal.ReferenceEntity) *internal.ReferenceEntity

// cascade is the base matching order. Keeping it as data makes the order a
// testable property rather than nested conditionals.
var cascade = []strategyFunc{
	matchExact,
	matchExactFold,
	matchQueryInName,
	matchNameInQuery,
}

// Resolve runs the cascade for a query. Returns nil when every strategy
// exhausts; callers decide whether that is fatal.
func (r *Resolver) Resolve(query string, kind internal.RefKind) *internal.ReferenceEntity {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	candidates := r.index.Candidates(kind)
	if len(candidates) == 0 {
		return nil
	}

	// Budget codes carry a sub-period suffix that the ERP master record
	// does not: try the stripped prefix first.
	if kind == internal.KindDepartment {
		if prefix := util.StripNumericSuffix(query); prefix != query {
			if hit := runCascade(prefix, candidates); hit != nil {
				return hit
			}
		}
	}

	if hit := runCascade(query, candidates); hit != nil {
		return hit
	}

	normalized := util.StripParenthetical(query)
	if normalized != query {
		if hit := runCascade(normalized, candidates); hit != nil {
			return hit
		}
	}

	if hit := matchByTokens(normalized, candidates); hit != nil {
		return hit
	}

	if kind == internal.KindCurrency {
		return matchCurrencyFallback(query, candidates)
	}
	return nil
}

func runCascade(query string, candidates []internal.ReferenceEntity) *internal.ReferenceEntity {
	for _, strat := range cascade {
		if hit := strat(query, candidates); hit != nil {
			return hit
		}
	}
	return nil
}

func matchExact(query string, candidates []internal.ReferenceEntity) *internal.ReferenceEntity {
	for i := range candidates {
		c := &candidates[i]
		if c.DisplayName == query {
			return c
		}
		if c.Code != nil && *c.Code == query {
			return c
		}
	}
	return nil
}

func matchExactFold(query string, candidates []internal.ReferenceEntity) *internal.ReferenceEntity {
	folded := util.Fold(query)
	for i := range candidates {
		c := &candidates[i]
		if util.Fold(c.DisplayName) == folded {
			return c
		}
		if c.Code != nil && util.Fold(*c.Code) == folded {
			return c
		}
	}
	return nil
}

func matchQueryInName(query string, candidates []internal.ReferenceEntity) *internal.ReferenceEntity {
	for i := range candidates {
		if util.ContainsFold(candidates[i].DisplayName, query) {
			return &candidates[i]
		}
	}
	return nil
}

func matchNameInQuery(query string, candidates []internal.ReferenceEntity) *internal.ReferenceEntity {
	for i := range candidates {
		if util.ContainsFold(query, candidates[i].DisplayName) {
			return &candidates[i]
		}
	}
	return nil
}

// matchByTokens splits the query and tries containment per token, longest
// token first so the most specific part of the query decides.
func matchByTokens(query string, candidates []internal.ReferenceEntity) *internal.ReferenceEntity {
	tokens := util.Tokenize(query)
	sort.SliceStable(tokens, func(i, j int) bool {
		return len(tokens[i]) > len(tokens[j])
	})
	for _, token := range tokens {
		if hit := matchQueryInName(token, candidates); hit != nil {
			return hit
		}
	}
	return nil
}

// currencySearchTerms maps common ISO codes and keywords to the names the
// ERP uses for its currency records.
var currencySearchTerms = map[string][]string{
	"usd":       {"US Dollar", "Dollar"},
	"dollar":    {"US Dollar", "Dollar"},
	"eur":       {"Euro"},
	"euro":      {"Euro"},
	"gbp":       {"British Pound", "Pound", "Sterling"},
	"pound":     {"British Pound", "Pound"},
	"sterling":  {"British Pound", "Sterling"},
	"myr":       {"Malaysian Ringgit", "Ringgit"},
	"ringgit":   {"Malaysian Ringgit", "Ringgit"},
	"sgd":       {"Singapore Dollar", "Singapore"},
	"singapore": {"Singapore Dollar", "Singapore"},
}

func matchCurrencyFallback(query string, candidates []internal.ReferenceEntity) *internal.ReferenceEntity {
	terms, ok := currencySearchTerms[util.Fold(query)]
	if !ok {
		return nil
	}
	for _, term := range terms {
		if hit := runCascade(term, candidates); hit != nil {
			return hit
		}
	}
	return nil
}
