package parser

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"dataset-processor/internal/models"
)

// PageFunc receives one page of spreadsheet rows. offset is the index of
// the page's first row among all data rows.
type PageFunc func(page models.Table, offset int) error

// SpreadsheetPages streams the first sheet of a workbook, calling fn with
// up to pageSize data rows at a time. The first row is the header. Blank
// rows are skipped.
func SpreadsheetPages(filePath string, pageSize int, fn PageFunc) error {
	if pageSize <= 0 {
		return fmt.Errorf("invalid page size %d", pageSize)
	}

	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return fmt.Errorf("workbook %s has no sheets", filePath)
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		return err
	}
	defer rows.Close()

	var columns []string
	page := models.Table{}
	offset, pageNumber := 0, 0

	flush := func() error {
		if len(page.Rows) == 0 {
			return nil
		}
		pageNumber++
		log.Info().Str("sheet", sheet).Int("page", pageNumber).Int("rows", len(page.Rows)).Msg("Processing spreadsheet page")
		if err := fn(page, offset); err != nil {
			return err
		}
		offset += len(page.Rows)
		page = models.Table{Columns: columns}
		return nil
	}

	for rows.Next() {
		record, err := rows.Columns()
		if err != nil {
			return fmt.Errorf("failed to read row: %w", err)
		}
		if columns == nil {
			if blank(record) {
				continue
			}
			columns = columnNames(record)
			page.Columns = columns
			continue
		}
		if blank(record) {
			continue
		}
		page.Rows = append(page.Rows, toCells(record, len(columns)))
		if len(page.Rows) == pageSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := rows.Error(); err != nil {
		return err
	}
	if columns == nil {
		return ErrNoHeader
	}
	return flush()
}

func blank(record []string) bool {
	for _, v := range record {
		if v != "" {
			return false
		}
	}
	return true
}
