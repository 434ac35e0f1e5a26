package api

import (
	"context"
	"fmt"

	"fieldlog/internal/tabular"
)

func weeklyStatusRow(p Params) []string {
	return []string{
		p.Get("week"),
		p.Get("zone"),
		p.Get("district"),
		p.Get("thisWeek"),
		p.Get("nextWeek"),
	}
}

func (h *Handler) addWeeklyStatus(ctx context.Context, p Params) (envelope, error) {
	unlock := h.locks.lock(tabular.SheetWeeklyStatus)
	defer unlock()

	if err := h.Store.EnsureSheet(ctx, tabular.SheetWeeklyStatus, tabular.WeeklyStatusHeader); err != nil {
		return nil, fmt.Errorf("prepare sheet %q: %w", tabular.SheetWeeklyStatus, err)
	}
	if err := h.Store.AppendRow(ctx, tabular.SheetWeeklyStatus, weeklyStatusRow(p)); err != nil {
		return nil, h.storeError(err, tabular.SheetWeeklyStatus, 0)
	}
	return envelope{"message": "Weekly status added successfully"}, nil
}

func (h *Handler) editWeeklyStatus(ctx context.Context, p Params) (envelope, error) {
	index, err := parseRowParam(p)
	if err != nil {
		return nil, err
	}
	unlock := h.locks.lock(tabular.SheetWeeklyStatus)
	defer unlock()

	if err := h.Store.UpdateRow(ctx, tabular.SheetWeeklyStatus, index, weeklyStatusRow(p)); err != nil {
		return nil, h.storeError(err, tabular.SheetWeeklyStatus, index)
	}
	return envelope{"message": "Weekly status updated successfully"}, nil
}

func (h *Handler) deleteWeeklyStatus(ctx context.Context, p Params) (envelope, error) {
	index, err := parseRowParam(p)
	if err != nil {
		return nil, err
	}
	unlock := h.locks.lock(tabular.SheetWeeklyStatus)
	defer unlock()

	if err := h.Store.DeleteRow(ctx, tabular.SheetWeeklyStatus, index); err != nil {
		return nil, h.storeError(err, tabular.SheetWeeklyStatus, index)
	}
	return envelope{"message": "Weekly status deleted successfully"}, nil
}
