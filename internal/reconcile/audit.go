package reconcile

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"finsync/internal"
	"finsync/internal/erp"
	"finsync/internal/pricing"
)

// Auditor recomputes expected line amounts from source data and diffs them
// against the live ERP transaction. It never mutates the ERP or the sheet.
type Auditor struct {
	transport erp.Transport
	sandbox   bool
}

func NewAuditor(transport erp.Transport, sandbox bool) *Auditor {
	return &Auditor{transport: transport, sandbox: sandbox}
}

type AuditResult struct {
	Discrepancies  []internal.Discrepancy
	UnmatchedSheet []internal.SourceLineItem
}

// Audit produces a full comparison table for a transaction: every ERP line,
// matched or not, plus the sheet lines no pairing consumed. The double check
// in both directions exists because the matching cascade is lossy both ways.
func (a *Auditor) Audit(ctx context.Context, kind internal.TxKind, number string, sheetLines []internal.SourceLineItem) (AuditResult, error) {
	tx, err := a.transport.FindByNumber(ctx, kind, number, a.sandbox)
	if err != nil {
		return AuditResult{}, err
	}
	if tx == nil {
		return AuditResult{}, fmt.Errorf("transaction not found: %s", number)
	}

	// Lines without a meaningful discount have nothing to recompute and are
	// excluded from the check entirely.
	withDiscount := make([]internal.SourceLineItem, 0, len(sheetLines))
	for _, line := range sheetLines {
		if pricing.HasDiscount(line.UnitPrice, line.Quantity, line.Discount) {
			withDiscount = append(withDiscount, line)
		}
	}

	outcome := MatchLines(withDiscount, tx.Lines)

	result := AuditResult{UnmatchedSheet: outcome.UnmatchedSheet}
	for _, pair := range outcome.Pairs {
		d := internal.Discrepancy{
			LineLabel:    lineLabel(pair.Existing),
			CurrentValue: pair.Existing.Amount,
		}
		if pair.Sheet == nil {
			// No match is itself a finding; current values stay untouched.
			d.ExpectedValue = pair.Existing.Amount
			d.Delta = decimal.Zero
			d.Matched = false
		} else {
			expected := pricing.Adjust(pair.Sheet.UnitPrice, pair.Sheet.Quantity, pair.Sheet.Discount)
			d.ExpectedValue = expected.LineTotal
			d.Delta = pair.Existing.Amount.Sub(expected.LineTotal)
			d.Matched = true
		}
		result.Discrepancies = append(result.Discrepancies, d)
	}

	return result, nil
}

// Discrepant reports whether a matched line's current value drifted beyond
// the monetary tolerance. Unmatched lines are always discrepant.
func Discrepant(d internal.Discrepancy) bool {
	if !d.Matched {
		return true
	}
	return !pricing.WithinTolerance(d.CurrentValue, d.ExpectedValue)
}

func lineLabel(line internal.ExistingLine) string {
	if line.ItemName != nil && *line.ItemName != "" {
		return *line.ItemName
	}
	if line.Description != "" {
		return line.Description
	}
	return line.LineID
}
