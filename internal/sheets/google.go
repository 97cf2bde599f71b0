package sheets

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"finsync/internal/config"
)

// GoogleSheets implements Tabular against one spreadsheet.
type GoogleSheets struct {
	service       *sheetsapi.Service
	spreadsheetID string
	sheetIDs      map[string]int64
}

func NewGoogleSheets(ctx context.Context, cfg config.Config) (*GoogleSheets, error) {
	if err := cfg.Require("SHEETS_SPREADSHEET_ID", cfg.SpreadsheetID); err != nil {
		return nil, err
	}
	if err := cfg.Require("SHEETS_CLIENT_ID", cfg.SheetsClientID); err != nil {
		return nil, err
	}
	if err := cfg.Require("SHEETS_CLIENT_SECRET", cfg.SheetsClientSecret); err != nil {
		return nil, err
	}
	if err := cfg.Require("SHEETS_REFRESH_TOKEN", cfg.SheetsRefreshToken); err != nil {
		return nil, err
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.SheetsClientID,
		ClientSecret: cfg.SheetsClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{sheetsapi.SpreadsheetsScope},
	}
	tokenSource := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.SheetsRefreshToken})

	svc, err := sheetsapi.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, err
	}

	return &GoogleSheets{service: svc, spreadsheetID: cfg.SpreadsheetID, sheetIDs: map[string]int64{}}, nil
}

func (g *GoogleSheets) ReadRows(ctx context.Context, table string) ([][]string, error) {
	resp, err := g.service.Spreadsheets.Values.Get(g.spreadsheetID, table).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	out := make([][]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		cells := make([]string, 0, len(row))
		for _, cell := range row {
			cells = append(cells, fmt.Sprint(cell))
		}
		out = append(out, cells)
	}
	return out, nil
}

func (g *GoogleSheets) WriteRows(ctx context.Context, table string, rows [][]string) error {
	_, err := g.service.Spreadsheets.Values.Append(g.spreadsheetID, table, valueRange(rows)).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	return err
}

func (g *GoogleSheets) UpdateRange(ctx context.Context, table, topLeft string, rows [][]string) error {
	rng := fmt.Sprintf("%s!%s", table, topLeft)
	_, err := g.service.Spreadsheets.Values.Update(g.spreadsheetID, rng, valueRange(rows)).
		ValueInputOption("RAW").Context(ctx).Do()
	return err
}

func (g *GoogleSheets) DeleteRows(ctx context.Context, table string, rowIndex, count int) error {
	sheetID, err := g.sheetID(ctx, table)
	if err != nil {
		return err
	}
	req := &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{{
			DeleteDimension: &sheetsapi.DeleteDimensionRequest{
				Range: &sheetsapi.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(rowIndex - 1),
					EndIndex:   int64(rowIndex - 1 + count),
				},
			},
		}},
	}
	_, err = g.service.Spreadsheets.BatchUpdate(g.spreadsheetID, req).Context(ctx).Do()
	return err
}

func (g *GoogleSheets) sheetID(ctx context.Context, table string) (int64, error) {
	if id, ok := g.sheetIDs[table]; ok {
		return id, nil
	}
	meta, err := g.service.Spreadsheets.Get(g.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, err
	}
	for _, sheet := range meta.Sheets {
		if sheet.Properties != nil {
			g.sheetIDs[sheet.Properties.Title] = sheet.Properties.SheetId
		}
	}
	id, ok := g.sheetIDs[table]
	if !ok {
		return 0, fmt.Errorf("sheet not found: %s", table)
	}
	return id, nil
}

func valueRange(rows [][]string) *sheetsapi.ValueRange {
	values := make([][]any, 0, len(rows))
	for _, row := range rows {
		cells := make([]any, 0, len(row))
		for _, cell := range row {
			cells = append(cells, cell)
		}
		values = append(values, cells)
	}
	return &sheetsapi.ValueRange{Values: values}
}
