package api

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"fieldlog/internal/tabular"
)

// parseRowParam validates the positional "row" parameter of edit and delete
// requests. Data rows start at index 2; row 1 is the header.
func parseRowParam(p Params) (int, error) {
	raw := strings.TrimSpace(p.Get("row"))
	if raw == "" {
		return 0, errors.New("row parameter is required")
	}
	index, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid row number: %q", raw)
	}
	if index < 2 {
		return 0, fmt.Errorf("invalid row number: %d refers to the header row or above", index)
	}
	return index, nil
}

// storeError rewrites sentinel store errors into the descriptive envelope
// messages the clients expect. Sentinels describe client mistakes; anything
// else is a genuine storage failure and counts toward the error metric.
func (h *Handler) storeError(err error, sheet string, row int) error {
	switch {
	case errors.Is(err, tabular.ErrSheetNotFound):
		return fmt.Errorf("sheet %q does not exist", sheet)
	case errors.Is(err, tabular.ErrRowOutOfRange):
		return fmt.Errorf("row %d is out of range for sheet %q", row, sheet)
	default:
		h.recorder().ObserveStorageError(sheet)
		return fmt.Errorf("storage failure on sheet %q: %w", sheet, err)
	}
}

// idColumn extracts the first column of every data row.
func idColumn(rows [][]string) []string {
	if len(rows) < 2 {
		return nil
	}
	column := make([]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		column = append(column, row[0])
	}
	return column
}
