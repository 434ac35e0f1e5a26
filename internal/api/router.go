package api

import (
	"context"
	"fmt"
)

type actionFunc func(ctx context.Context, p Params) (envelope, error)

// routes maps the ten supported action discriminators to their handlers.
func (h *Handler) routes() map[string]actionFunc {
	return map[string]actionFunc{
		"add_meeting":    h.addMeeting,
		"edit_meeting":   h.editMeeting,
		"delete_meeting": h.deleteMeeting,
		"add_action":     h.addActionItem,
		"edit_action":    h.editActionItem,
		"delete_action":  h.deleteActionItem,
		"add_status":     h.addWeeklyStatus,
		"edit_status":    h.editWeeklyStatus,
		"delete_status":  h.deleteWeeklyStatus,
		"upload_media":   h.uploadMedia,
	}
}

// dispatch runs the handler selected by action and folds every failure mode,
// including panics, into the error envelope. Handler failures never surface
// as transport-level errors.
func (h *Handler) dispatch(ctx context.Context, action string, params Params) envelope {
	fn, ok := h.routes()[action]
	if !ok {
		h.recorder().ObserveAction(action, "unknown")
		return envelope{"error": fmt.Sprintf("Unknown action: %s", action)}
	}

	result, err := h.invoke(ctx, action, fn, params)
	if err != nil {
		h.recorder().ObserveAction(action, "error")
		h.logger().Warn("action failed", "action", action, "error", err)
		return envelope{"error": err.Error()}
	}
	h.recorder().ObserveAction(action, "ok")
	return result
}

func (h *Handler) invoke(ctx context.Context, action string, fn actionFunc, params Params) (result envelope, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			h.logger().Error("action handler panicked", "action", action, "panic", recovered)
			result = nil
			err = fmt.Errorf("internal error handling %s", action)
		}
	}()
	return fn(ctx, params)
}
