package api

import (
	"context"
	"fmt"

	"fieldlog/internal/tabular"
)

func actionItemRow(p Params) []string {
	return []string{
		p.Get("meetingId"),
		p.Get("actionItem"),
		p.Get("assignedTo"),
		p.Get("deadline"),
		p.Get("status"),
	}
}

func (h *Handler) addActionItem(ctx context.Context, p Params) (envelope, error) {
	unlock := h.locks.lock(tabular.SheetActionItems)
	defer unlock()

	if err := h.Store.EnsureSheet(ctx, tabular.SheetActionItems, tabular.ActionItemHeader); err != nil {
		return nil, fmt.Errorf("prepare sheet %q: %w", tabular.SheetActionItems, err)
	}
	if err := h.Store.AppendRow(ctx, tabular.SheetActionItems, actionItemRow(p)); err != nil {
		return nil, h.storeError(err, tabular.SheetActionItems, 0)
	}
	return envelope{"message": "Action item added successfully"}, nil
}

func (h *Handler) editActionItem(ctx context.Context, p Params) (envelope, error) {
	index, err := parseRowParam(p)
	if err != nil {
		return nil, err
	}
	unlock := h.locks.lock(tabular.SheetActionItems)
	defer unlock()

	if err := h.Store.UpdateRow(ctx, tabular.SheetActionItems, index, actionItemRow(p)); err != nil {
		return nil, h.storeError(err, tabular.SheetActionItems, index)
	}
	return envelope{"message": "Action item updated successfully"}, nil
}

func (h *Handler) deleteActionItem(ctx context.Context, p Params) (envelope, error) {
	index, err := parseRowParam(p)
	if err != nil {
		return nil, err
	}
	unlock := h.locks.lock(tabular.SheetActionItems)
	defer unlock()

	if err := h.Store.DeleteRow(ctx, tabular.SheetActionItems, index); err != nil {
		return nil, h.storeError(err, tabular.SheetActionItems, index)
	}
	return envelope{"message": "Action item deleted successfully"}, nil
}
