package internal

import (
	"time"

	"github.com/shopspring/decimal"
)

type RefKind string

const (
	KindVendor     RefKind = "vendor"
	KindAccount    RefKind = "account"
	KindDepartment RefKind = "department"
	KindLocation   RefKind = "location"
	KindCurrency   RefKind = "currency"
	KindItem       RefKind = "item"
)

// ReferenceEntity is a cached copy of an ERP master record. Lookups are
// always scoped by (kind, sandbox); production and sandbox sets never
// cross-match.
type ReferenceEntity struct {
	ExternalID    string
	Kind          RefKind
	DisplayName   string
	Code          *string
	Sandbox       bool
	Inactive      bool
	ItemType      *string
	CurrencyCodes []string
	RawJSON       string
}

// SourceLineItem is one parsed sheet line. Discount keeps the raw cell text
// because "10%" and "1,200.50" mean different things to the calculator.
type SourceLineItem struct {
	Name          string
	Quantity      decimal.Decimal
	UnitPrice     decimal.Decimal
	Discount      string
	ItemReference *string
	BudgetCode    string
	Location      string
}

type MatchStrategy string

const (
	StrategyPositional  MatchStrategy = "positional"
	StrategyDescription MatchStrategy = "description"
	StrategyName        MatchStrategy = "name"
	StrategyReference   MatchStrategy = "reference"
	StrategyNone        MatchStrategy = "none"
)

type ResolvedLine struct {
	SourceLineItem
	MatchedRef        *ReferenceEntity
	AccountRef        *ReferenceEntity
	DepartmentRef     *ReferenceEntity
	LocationRef       *ReferenceEntity
	Strategy          MatchStrategy
	AdjustedUnitPrice decimal.Decimal
	LineAmount        decimal.Decimal
	Memo              string
}

type TxKind string

const (
	TxPurchaseOrder TxKind = "purchase_order"
	TxVendorBill    TxKind = "vendor_bill"
	TxExpenseReport TxKind = "expense_report"
)

// TransactionDraft is immutable once built; the transport consumes it as-is.
type TransactionDraft struct {
	Kind         TxKind
	Counterparty ReferenceEntity `validate:"required"`
	Memo         string          `validate:"required"`
	Date         time.Time       `validate:"required"`
	Currency     *ReferenceEntity
	Department   *ReferenceEntity
	Location     *ReferenceEntity
	CatalogLines []ResolvedLine
	GenericLines []ResolvedLine
	ExternalRef  *string
	Sandbox      bool
}

type Outcome string

const (
	OutcomeAlreadyExists Outcome = "already_exists"
	OutcomeCreated       Outcome = "created"
	OutcomeFailed        Outcome = "failed"
	OutcomeDryRun        Outcome = "dry_run"
)

type SyncRecord struct {
	SourceRowKey  string
	ExistingTxRef *string
	TxNumber      *string
	Outcome       Outcome
	ErrorMessage  *string
}

type Discrepancy struct {
	LineLabel     string
	CurrentValue  decimal.Decimal
	ExpectedValue decimal.Decimal
	Delta         decimal.Decimal
	Matched       bool
}

type LineKind string

const (
	LineItem    LineKind = "item"
	LineExpense LineKind = "expense"
)

// ExistingLine is an ERP transaction line decoded once at the transport
// boundary. Optional nested fields in the wire payload become nil pointers
// here; nothing downstream inspects raw payloads.
type ExistingLine struct {
	LineID      string
	Kind        LineKind
	Description string
	ItemName    *string
	ItemCode    *string
	Quantity    decimal.Decimal
	Rate        decimal.Decimal
	Amount      decimal.Decimal
}

type ExistingTransaction struct {
	ExternalID string
	Number     string
	Memo       string
	Lines      []ExistingLine
}

// SourceRow groups the sheet rows that form one transaction, keyed by the
// request identifier column. RowIndexes are 1-based sheet positions used for
// relocation after sync.
type SourceRow struct {
	Key               string
	Vendor            string
	BudgetCode        string
	Subcode           string
	CurrencyCode      string
	Memo              string
	Date              time.Time
	TransactionNumber string
	Lines             []SourceLineItem
	RowIndexes        []int
	RawRows           [][]string
}

type RowError struct {
	RowKey  string
	Message string
}

// RunReport accumulates per-row outcomes; the driver merges one per row
// instead of threading counters through the batch.
type RunReport struct {
	Processed     int
	Created       int
	AlreadyExists int
	Skipped       int
	Failed        int
	Errors        []RowError
}

func (r *RunReport) Merge(other RunReport) {
	r.Processed += other.Processed
	r.Created += other.Created
	r.AlreadyExists += other.AlreadyExists
	r.Skipped += other.Skipped
	r.Failed += other.Failed
	r.Errors = append(r.Errors, other.Errors...)
}

func (r RunReport) Counts() map[string]int {
	return map[string]int{
		"processed":     r.Processed,
		"created":       r.Created,
		"alreadyExists": r.AlreadyExists,
		"skipped":       r.Skipped,
		"failed":        r.Failed,
	}
}
