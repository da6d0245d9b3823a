package xlsx

import (
	"errors"
	"fmt"
	"io"

	"fraud-viewer/internal/domain"

	"github.com/xuri/excelize/v2"
)

const SheetName = "Predictions"

var ErrEmptyTable = errors.New("preview table is empty")

// Write exports a preview table as a single-sheet workbook. Positive cells get the
// same red highlight the results page uses.
func Write(w io.Writer, table domain.PreviewTable) error {
	if len(table.Header) == 0 {
		return ErrEmptyTable
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	positiveStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "E74C3C"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FDECEA"}},
	})
	if err != nil {
		return fmt.Errorf("failed to create highlight style: %w", err)
	}

	if err := writeRow(f, 1, table.Header, headerStyle, headerStyle); err != nil {
		return err
	}
	for i, row := range table.Rows {
		if err := writeRow(f, i+2, row, 0, positiveStyle); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, row int, cells []domain.Cell, style, positiveStyle int) error {
	for col, cell := range cells {
		name, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return fmt.Errorf("failed to address cell: %w", err)
		}

		if err := f.SetCellStr(SheetName, name, cell.Text); err != nil {
			return fmt.Errorf("failed to set cell %s: %w", name, err)
		}

		applied := style
		if cell.Positive {
			applied = positiveStyle
		}
		if applied == 0 {
			continue
		}
		if err := f.SetCellStyle(SheetName, name, name, applied); err != nil {
			return fmt.Errorf("failed to style cell %s: %w", name, err)
		}
	}
	return nil
}
