package erp

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/shopspring/decimal"

	"finsync/internal"
)

type CreateResult struct {
	ExternalID string
	Number     string
}

// Transport is the transaction-side contract the reconciler depends on.
// Every call is a single atomic external operation; there is no multi-call
// rollback.
type Transport interface {
	Create(ctx context.Context, draft internal.TransactionDraft) (CreateResult, error)
	FindByNumber(ctx context.Context, kind internal.TxKind, number string, sandbox bool) (*internal.ExistingTransaction, error)
	MemoExists(ctx context.Context, kind internal.TxKind, memo string, sandbox bool) (bool, error)
	UpdateLines(ctx context.Context, kind internal.TxKind, externalID string, lines []internal.ExistingLine) error
}

var kindEndpoints = map[internal.TxKind]string{
	internal.TxPurchaseOrder: "transaction/purchase-order",
	internal.TxVendorBill:    "transaction/vendor-bill",
	internal.TxExpenseReport: "transaction/expense-report",
}

type createPayload struct {
	CounterpartyID string        `json:"counterpartyId"`
	Memo           string        `json:"memo"`
	Date           string        `json:"date"`
	CurrencyID     *string       `json:"currencyId,omitempty"`
	DepartmentID   *string       `json:"departmentId,omitempty"`
	LocationID     *string       `json:"locationId,omitempty"`
	ExternalRef    *string       `json:"externalRef,omitempty"`
	Sandbox        bool          `json:"sandbox"`
	ItemLines      []linePayload `json:"itemLines"`
	ExpenseLines   []linePayload `json:"expenseLines"`
}

type linePayload struct {
	ItemID       *string         `json:"itemId,omitempty"`
	AccountID    *string         `json:"accountId,omitempty"`
	DepartmentID *string         `json:"departmentId,omitempty"`
	LocationID   *string         `json:"locationId,omitempty"`
	Memo         string          `json:"memo"`
	Quantity     decimal.Decimal `json:"quantity"`
	Rate         decimal.Decimal `json:"rate"`
	Amount       decimal.Decimal `json:"amount"`
}

type createResponse struct {
	ExternalID string `json:"id"`
	Number     string `json:"tranId"`
}

type transactionResponse struct {
	ExternalID string         `json:"id"`
	Number     string         `json:"tranId"`
	Memo       string         `json:"memo"`
	Lines      []lineResponse `json:"lines"`
}

type lineResponse struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Description string          `json:"description"`
	ItemName    *string         `json:"itemName"`
	ItemCode    *string         `json:"itemCode"`
	Quantity    decimal.Decimal `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
	Amount      decimal.Decimal `json:"amount"`
}

func (c *Client) Create(ctx context.Context, draft internal.TransactionDraft) (CreateResult, error) {
	payload := createPayload{
		CounterpartyID: draft.Counterparty.ExternalID,
		Memo:           draft.Memo,
		Date:           draft.Date.Format("2006-01-02"),
		ExternalRef:    draft.ExternalRef,
		Sandbox:        draft.Sandbox,
		ItemLines:      toLinePayloads(draft.CatalogLines, true),
		ExpenseLines:   toLinePayloads(draft.GenericLines, false),
	}
	if draft.Currency != nil {
		payload.CurrencyID = &draft.Currency.ExternalID
	}
	if draft.Department != nil {
		payload.DepartmentID = &draft.Department.ExternalID
	}
	if draft.Location != nil {
		payload.LocationID = &draft.Location.ExternalID
	}

	body, err := c.postJSON(ctx, kindEndpoints[draft.Kind], payload)
	if err != nil {
		return CreateResult{}, &internal.TransportError{Op: "create", Err: err}
	}

	var resp createResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return CreateResult{}, &internal.TransportError{Op: "create", Err: err}
	}
	return CreateResult{ExternalID: resp.ExternalID, Number: resp.Number}, nil
}

func (c *Client) FindByNumber(ctx context.Context, kind internal.TxKind, number string, sandbox bool) (*internal.ExistingTransaction, error) {
	body, err := c.getJSON(ctx, kindEndpoints[kind]+"/by-number", map[string]string{
		"number":  number,
		"sandbox": strconv.FormatBool(sandbox),
	})
	if err != nil {
		return nil, &internal.TransportError{Op: "find_by_number", Err: err}
	}
	if string(body) == "null" {
		return nil, nil
	}

	var resp transactionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &internal.TransportError{Op: "find_by_number", Err: err}
	}
	return toExistingTransaction(resp), nil
}

func (c *Client) MemoExists(ctx context.Context, kind internal.TxKind, memo string, sandbox bool) (bool, error) {
	body, err := c.getJSON(ctx, kindEndpoints[kind]+"/memo-exists", map[string]string{
		"memo":    memo,
		"sandbox": strconv.FormatBool(sandbox),
	})
	if err != nil {
		return false, &internal.TransportError{Op: "memo_exists", Err: err}
	}

	var resp struct {
		Exists bool `json:"exists"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return false, &internal.TransportError{Op: "memo_exists", Err: err}
	}
	return resp.Exists, nil
}

func (c *Client) UpdateLines(ctx context.Context, kind internal.TxKind, externalID string, lines []internal.ExistingLine) error {
	payload := struct {
		Lines []linePayload `json:"lines"`
	}{}
	for _, line := range lines {
		payload.Lines = append(payload.Lines, linePayload{
			Memo:     line.Description,
			Quantity: line.Quantity,
			Rate:     line.Rate,
			Amount:   line.Amount,
		})
	}
	if _, err := c.postJSON(ctx, kindEndpoints[kind]+"/"+externalID+"/lines", payload); err != nil {
		return &internal.TransportError{Op: "update_lines", Err: err}
	}
	return nil
}

func toLinePayloads(lines []internal.ResolvedLine, catalog bool) []linePayload {
	out := make([]linePayload, 0, len(lines))
	for _, line := range lines {
		p := linePayload{
			Memo:     line.Memo,
			Quantity: line.Quantity,
			Rate:     line.AdjustedUnitPrice,
			Amount:   line.LineAmount,
		}
		if catalog && line.MatchedRef != nil {
			p.ItemID = &line.MatchedRef.ExternalID
		}
		if line.AccountRef != nil {
			p.AccountID = &line.AccountRef.ExternalID
		}
		if line.DepartmentRef != nil {
			p.DepartmentID = &line.DepartmentRef.ExternalID
		}
		if line.LocationRef != nil {
			p.LocationID = &line.LocationRef.ExternalID
		}
		out = append(out, p)
	}
	return out
}

func toExistingTransaction(resp transactionResponse) *internal.ExistingTransaction {
	tx := &internal.ExistingTransaction{
		ExternalID: resp.ExternalID,
		Number:     resp.Number,
		Memo:       resp.Memo,
	}
	for _, line := range resp.Lines {
		kind := internal.LineExpense
		if line.Type == "item" {
			kind = internal.LineItem
		}
		tx.Lines = append(tx.Lines, internal.ExistingLine{
			LineID:      line.ID,
			Kind:        kind,
			Description: line.Description,
			ItemName:    line.ItemName,
			ItemCode:    line.ItemCode,
			Quantity:    line.Quantity,
			Rate:        line.Rate,
			Amount:      line.Amount,
		})
	}
	return tx
}
