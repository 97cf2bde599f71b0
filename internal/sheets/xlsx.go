package sheets

import (
	"context"

	"github.com/xuri/excelize/v2"
)

// XLSXFile implements Tabular over a local workbook for deployments that
// drop files instead of sharing a Google spreadsheet. Mutations are saved
// back to the same path immediately.
type XLSXFile struct {
	path string
}

func NewXLSXFile(path string) *XLSXFile {
	return &XLSXFile{path: path}
}

func (x *XLSXFile) ReadRows(_ context.Context, table string) ([][]string, error) {
	f, err := excelize.OpenFile(x.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.GetRows(table)
}

func (x *XLSXFile) WriteRows(_ context.Context, table string, rows [][]string) error {
	return x.mutate(func(f *excelize.File) error {
		existing, err := f.GetRows(table)
		if err != nil {
			return err
		}
		start := len(existing) + 1
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, start+i)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(table, cell, &row); err != nil {
				return err
			}
		}
		return nil
	})
}

func (x *XLSXFile) UpdateRange(_ context.Context, table, topLeft string, rows [][]string) error {
	return x.mutate(func(f *excelize.File) error {
		col, row, err := excelize.CellNameToCoordinates(topLeft)
		if err != nil {
			return err
		}
		for i, cells := range rows {
			cell, err := excelize.CoordinatesToCellName(col, row+i)
			if err != nil {
				return err
			}
			line := cells
			if err := f.SetSheetRow(table, cell, &line); err != nil {
				return err
			}
		}
		return nil
	})
}

func (x *XLSXFile) DeleteRows(_ context.Context, table string, rowIndex, count int) error {
	return x.mutate(func(f *excelize.File) error {
		for i := 0; i < count; i++ {
			if err := f.RemoveRow(table, rowIndex); err != nil {
				return err
			}
		}
		return nil
	})
}

func (x *XLSXFile) mutate(fn func(*excelize.File) error) error {
	f, err := excelize.OpenFile(x.path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := fn(f); err != nil {
		return err
	}
	return f.Save()
}
