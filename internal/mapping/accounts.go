package mapping

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// AccountItemMap is the static legacy table mapping GL account numbers to
// catalog item names. Loaded once at batch start and injected where needed;
// failing to load it is fatal to the whole run.
type AccountItemMap struct {
	byAccount map[string]Entry
}

type Entry struct {
	AccountNumber string `json:"accountNumber"`
	CanonicalName string `json:"canonicalName"`
	ItemName      string `json:"itemName"`
}

func Load(path string) (*AccountItemMap, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load account map: %w", err)
	}

	var entries []Entry
	if err := json.Unmarshal(blob, &entries); err != nil {
		return nil, fmt.Errorf("parse account map: %w", err)
	}

	m := &AccountItemMap{byAccount: map[string]Entry{}}
	for _, e := range entries {
		key := strings.TrimSpace(e.AccountNumber)
		if key == "" {
			continue
		}
		m.byAccount[key] = e
	}
	return m, nil
}

func Empty() *AccountItemMap {
	return &AccountItemMap{byAccount: map[string]Entry{}}
}

func FromEntries(entries []Entry) *AccountItemMap {
	m := &AccountItemMap{byAccount: map[string]Entry{}}
	for _, e := range entries {
		key := strings.TrimSpace(e.AccountNumber)
		if key == "" {
			continue
		}
		m.byAccount[key] = e
	}
	return m
}

// ItemFor returns the mapped catalog item name for an account number, which
// may appear as a numeric prefix of the subcode cell ("88000 Teaching
// Resources" -> "88000").
func (m *AccountItemMap) ItemFor(subcode string) (Entry, bool) {
	trimmed := strings.TrimSpace(subcode)
	if e, ok := m.byAccount[trimmed]; ok {
		return e, true
	}
	if fields := strings.Fields(trimmed); len(fields) > 0 {
		if e, ok := m.byAccount[fields[0]]; ok {
			return e, true
		}
	}
	return Entry{}, false
}
