// Package export renders the imported dataset as a spreadsheet.
package export

import (
	"fmt"
	"io"

	"github.com/tinytelemetry/druguse/internal/model"
	"github.com/xuri/excelize/v2"
)

// ContentTypeXLSX is the media type of WriteXLSX output.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// SheetName is the single worksheet written by WriteXLSX.
const SheetName = model.TableName

// WriteXLSX writes records to w as a workbook with one header row of column
// names followed by one row per record in the given order. Cells that parse
// as finite numbers are written as numbers, NULL cells are left empty and
// everything else is kept as text.
func WriteXLSX(w io.Writer, records []model.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	for col, name := range model.Columns {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(SheetName, cell, name); err != nil {
			return err
		}
		if err := f.SetCellStyle(SheetName, cell, cell, headerStyle); err != nil {
			return err
		}
	}

	for i, rec := range records {
		for col, nf := range rec.Fields() {
			if !nf.Value.Valid {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(SheetName, cell, cellValue(nf)); err != nil {
				return err
			}
		}
	}

	last, err := excelize.ColumnNumberToName(len(model.Columns))
	if err != nil {
		return err
	}
	if err := f.SetColWidth(SheetName, "A", last, 15); err != nil {
		return err
	}

	return f.Write(w)
}

// cellValue keeps labels as text so ages like "12" or "22-23" are not
// turned into numbers or dates.
func cellValue(nf model.NamedField) any {
	if nf.Column == "age" {
		return nf.Value.Text
	}
	if v, ok := nf.Value.Number(); ok {
		return v
	}
	return nf.Value.Text
}
