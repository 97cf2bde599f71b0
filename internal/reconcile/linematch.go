package reconcile

import (
	"finsync/internal"
	"finsync/internal/util"
)

type LinePair struct {
	Existing internal.ExistingLine
	Sheet    *internal.SourceLineItem
	Strategy internal.MatchStrategy
}

type MatchOutcome struct {
	Pairs          []LinePair
	UnmatchedSheet []internal.SourceLineItem
}

// MatchLines pairs existing ERP lines against sheet lines. Equal counts
// auto-enable positional pairing; this assumes order-preserving
// correspondence and is a known risk the auditor exists to catch. Otherwise
// each ERP line runs a description/name/reference cascade, first hit wins.
// The cascade is deliberately permissive toward human-entered free text.
func MatchLines(sheetLines []internal.SourceLineItem, erpLines []internal.ExistingLine) MatchOutcome {
	outcome := MatchOutcome{Pairs: make([]LinePair, 0, len(erpLines))}

	if len(sheetLines) == len(erpLines) {
		for i := range erpLines {
			outcome.Pairs = append(outcome.Pairs, LinePair{
				Existing: erpLines[i],
				Sheet:    &sheetLines[i],
				Strategy: internal.StrategyPositional,
			})
		}
		return outcome
	}

	consumed := make([]bool, len(sheetLines))
	for _, erpLine := range erpLines {
		pair := LinePair{Existing: erpLine, Strategy: internal.StrategyNone}
		if i, strategy := findSheetLine(erpLine, sheetLines, consumed); i >= 0 {
			consumed[i] = true
			pair.Sheet = &sheetLines[i]
			pair.Strategy = strategy
		}
		outcome.Pairs = append(outcome.Pairs, pair)
	}

	for i, used := range consumed {
		if !used {
			outcome.UnmatchedSheet = append(outcome.UnmatchedSheet, sheetLines[i])
		}
	}
	return outcome
}

func findSheetLine(erpLine internal.ExistingLine, sheetLines []internal.SourceLineItem, consumed []bool) (int, internal.MatchStrategy) {
	if i := findByText(erpLine.Description, sheetLines, consumed); i >= 0 {
		return i, internal.StrategyDescription
	}
	if erpLine.ItemName != nil {
		if i := findByText(*erpLine.ItemName, sheetLines, consumed); i >= 0 {
			return i, internal.StrategyName
		}
	}
	if erpLine.ItemCode != nil {
		if i := findByReference(*erpLine.ItemCode, sheetLines, consumed); i >= 0 {
			return i, internal.StrategyReference
		}
	}
	return -1, internal.StrategyNone
}

// findByText tries exact (case-insensitive) first, then containment in
// either direction, so the stronger match always wins over a substring hit.
func findByText(text string, sheetLines []internal.SourceLineItem, consumed []bool) int {
	if text == "" {
		return -1
	}
	for i := range sheetLines {
		if !consumed[i] && util.Fold(sheetLines[i].Name) == util.Fold(text) {
			return i
		}
	}
	for i := range sheetLines {
		if consumed[i] {
			continue
		}
		if util.ContainsFold(text, sheetLines[i].Name) || util.ContainsFold(sheetLines[i].Name, text) {
			return i
		}
	}
	return -1
}

func findByReference(code string, sheetLines []internal.SourceLineItem, consumed []bool) int {
	if code == "" {
		return -1
	}
	for i := range sheetLines {
		if consumed[i] || sheetLines[i].ItemReference == nil {
			continue
		}
		if util.Fold(*sheetLines[i].ItemReference) == util.Fold(code) {
			return i
		}
	}
	for i := range sheetLines {
		if consumed[i] || sheetLines[i].ItemReference == nil {
			continue
		}
		if util.ContainsFold(code, *sheetLines[i].ItemReference) || util.ContainsFold(*sheetLines[i].ItemReference, code) {
			return i
		}
	}
	return -1
}
