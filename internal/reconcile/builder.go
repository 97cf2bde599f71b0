package reconcile

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"finsync/internal"
	"finsync/internal/mapping"
	"finsync/internal/pricing"
	"finsync/internal/refdata"
	"finsync/internal/util"
)

// Builder assembles validated transaction drafts from source rows. The
// account map and exclusion list are injected at construction, loaded once
// per run.
type Builder struct {
	resolver   *refdata.Resolver
	accountMap *mapping.AccountItemMap
	exclusions []string
	sandbox    bool
	validate   *validator.Validate
}

func NewBuilder(resolver *refdata.Resolver, accountMap *mapping.AccountItemMap, exclusions []string, sandbox bool) *Builder {
	return &Builder{
		resolver:   resolver,
		accountMap: accountMap,
		exclusions: exclusions,
		sandbox:    sandbox,
		validate:   validator.New(),
	}
}

// Build resolves, prices and splits a source row into a draft. Warnings
// cover non-fatal findings (missing location, currency outside the vendor's
// allowed list); a returned error is fatal for the row.
func (b *Builder) Build(kind internal.TxKind, row internal.SourceRow) (internal.TransactionDraft, []string, error) {
	var warnings []string

	counterparty := b.resolver.Resolve(row.Vendor, internal.KindVendor)
	if counterparty == nil {
		return internal.TransactionDraft{}, nil, &internal.ResolutionError{Kind: internal.KindVendor, Query: row.Vendor}
	}

	var currency *internal.ReferenceEntity
	if strings.TrimSpace(row.CurrencyCode) != "" {
		currency = b.resolver.Resolve(row.CurrencyCode, internal.KindCurrency)
		if currency == nil {
			return internal.TransactionDraft{}, nil, &internal.ResolutionError{Kind: internal.KindCurrency, Query: row.CurrencyCode}
		}
		if len(counterparty.CurrencyCodes) > 0 && !allowsCurrency(counterparty.CurrencyCodes, currency) {
			warnings = append(warnings, fmt.Sprintf("currency %s not in vendor %s allowed list", currency.DisplayName, counterparty.DisplayName))
		}
	}

	defaultBudget := firstNonEmpty(lineValues(row.Lines, func(l internal.SourceLineItem) string { return l.BudgetCode }), row.BudgetCode)
	defaultLocation := firstNonEmpty(lineValues(row.Lines, func(l internal.SourceLineItem) string { return l.Location }), "")

	draft := internal.TransactionDraft{
		Kind:         kind,
		Counterparty: *counterparty,
		Memo:         memoKey(row),
		Date:         row.Date,
		Currency:     currency,
		Sandbox:      b.sandbox,
	}
	if row.TransactionNumber != "" {
		draft.ExternalRef = util.StringPtr(row.TransactionNumber)
	}

	for _, line := range row.Lines {
		resolved, lineWarnings, err := b.buildLine(row, line, defaultBudget, defaultLocation)
		if err != nil {
			return internal.TransactionDraft{}, nil, err
		}
		warnings = append(warnings, lineWarnings...)
		if resolved.MatchedRef != nil {
			draft.CatalogLines = append(draft.CatalogLines, resolved)
		} else {
			draft.GenericLines = append(draft.GenericLines, resolved)
		}
	}

	if len(draft.CatalogLines) > 0 {
		draft.Department = draft.CatalogLines[0].DepartmentRef
		draft.Location = draft.CatalogLines[0].LocationRef
	} else if len(draft.GenericLines) > 0 {
		draft.Department = draft.GenericLines[0].DepartmentRef
		draft.Location = draft.GenericLines[0].LocationRef
	}

	if len(draft.CatalogLines)+len(draft.GenericLines) == 0 {
		return internal.TransactionDraft{}, nil, &internal.ValidationError{Field: "lines", Reason: "no line items"}
	}
	if err := b.validate.Struct(draft); err != nil {
		return internal.TransactionDraft{}, nil, &internal.ValidationError{Field: "draft", Reason: err.Error()}
	}

	return draft, warnings, nil
}

func (b *Builder) buildLine(row internal.SourceRow, line internal.SourceLineItem, defaultBudget, defaultLocation string) (internal.ResolvedLine, []string, error) {
	var warnings []string

	adjusted := pricing.Adjust(line.UnitPrice, line.Quantity, line.Discount)
	resolved := internal.ResolvedLine{
		SourceLineItem:    line,
		Strategy:          internal.StrategyNone,
		AdjustedUnitPrice: adjusted.UnitPrice,
		LineAmount:        adjusted.LineTotal,
		Memo:              line.Name,
	}

	// A transaction must always be attributable to a budget code; a missing
	// location only costs us reporting granularity.
	budget := firstNonEmpty([]string{line.BudgetCode}, defaultBudget)
	department := b.resolver.Resolve(budget, internal.KindDepartment)
	if department == nil {
		return internal.ResolvedLine{}, nil, &internal.ResolutionError{Kind: internal.KindDepartment, Query: budget}
	}
	resolved.DepartmentRef = department

	location := firstNonEmpty([]string{line.Location}, defaultLocation)
	if location != "" {
		if loc := b.resolver.Resolve(location, internal.KindLocation); loc != nil {
			resolved.LocationRef = loc
		} else {
			warnings = append(warnings, fmt.Sprintf("location %q not found for row %s; line proceeds without location", location, row.Key))
		}
	}

	if item := b.catalogItem(line); item != nil {
		resolved.MatchedRef = item
		resolved.Strategy = internal.StrategyReference
		return resolved, warnings, nil
	}

	account := b.resolver.Resolve(row.Subcode, internal.KindAccount)
	if account == nil {
		return internal.ResolvedLine{}, nil, &internal.ResolutionError{Kind: internal.KindAccount, Query: row.Subcode}
	}
	resolved.AccountRef = account
	resolved.Memo = fmt.Sprintf("%s unit - %s", line.Quantity.String(), line.Name)

	// The account map can still promote a generic subcode to a catalog item.
	if entry, ok := b.accountMap.ItemFor(row.Subcode); ok {
		if item := b.resolver.Resolve(entry.ItemName, internal.KindItem); item != nil &&
			!item.Inactive && !b.excluded(item) && isNonInventory(item) {
			resolved.MatchedRef = item
			resolved.Strategy = internal.StrategyName
			resolved.Memo = line.Name
		}
	}

	return resolved, warnings, nil
}

// catalogItem resolves the line's explicit item reference to an active,
// non-excluded catalog item.
func (b *Builder) catalogItem(line internal.SourceLineItem) *internal.ReferenceEntity {
	if line.ItemReference == nil {
		return nil
	}
	item := b.resolver.Resolve(*line.ItemReference, internal.KindItem)
	if item == nil || item.Inactive || b.excluded(item) {
		return nil
	}
	return item
}

func (b *Builder) excluded(item *internal.ReferenceEntity) bool {
	for _, name := range b.exclusions {
		if util.Fold(item.DisplayName) == util.Fold(name) {
			return true
		}
	}
	return false
}

func isNonInventory(item *internal.ReferenceEntity) bool {
	return item.ItemType != nil && util.Fold(*item.ItemType) == "non-inventory"
}

func allowsCurrency(allowed []string, currency *internal.ReferenceEntity) bool {
	for _, code := range allowed {
		if util.Fold(code) == util.Fold(currency.DisplayName) {
			return true
		}
		if currency.Code != nil && util.Fold(code) == util.Fold(*currency.Code) {
			return true
		}
	}
	return false
}

// memoKey writes the source row key into the memo, verbatim, so a later run
// can detect the transaction by memo equality even if the number write-back
// never happened.
func memoKey(row internal.SourceRow) string {
	return row.Key
}

func lineValues(lines []internal.SourceLineItem, get func(internal.SourceLineItem) string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, get(l))
	}
	return out
}

func firstNonEmpty(values []string, fallback string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return fallback
}
