package api

import (
	"context"
	"fmt"

	"fieldlog/internal/tabular"
)

func meetingRow(id string, p Params) []string {
	return []string{
		id,
		p.Get("meetingDate"),
		p.Get("zone"),
		p.Get("district"),
		p.Get("coldRoom"),
		p.Get("meetingTitle"),
		p.Get("conductedBy"),
		p.Get("attendees"),
		p.Get("meetingAgenda"),
		p.Get("meetingDiscussion"),
		p.Get("photoUrl"),
	}
}

// addMeeting appends a meeting row with a freshly generated sequential ID.
// The sheet lock spans the ID-column scan and the append; without it two
// concurrent adds would mint the same identifier.
func (h *Handler) addMeeting(ctx context.Context, p Params) (envelope, error) {
	unlock := h.locks.lock(tabular.SheetMeetings)
	defer unlock()

	if err := h.Store.EnsureSheet(ctx, tabular.SheetMeetings, tabular.MeetingHeader); err != nil {
		return nil, fmt.Errorf("prepare sheet %q: %w", tabular.SheetMeetings, err)
	}
	rows, err := h.Store.Rows(ctx, tabular.SheetMeetings)
	if err != nil {
		return nil, h.storeError(err, tabular.SheetMeetings, 0)
	}
	id := tabular.NextSequentialID(idColumn(rows), h.idPrefix())
	if err := h.Store.AppendRow(ctx, tabular.SheetMeetings, meetingRow(id, p)); err != nil {
		return nil, h.storeError(err, tabular.SheetMeetings, 0)
	}
	return envelope{"message": "Meeting added successfully", "meetingId": id}, nil
}

func (h *Handler) editMeeting(ctx context.Context, p Params) (envelope, error) {
	index, err := parseRowParam(p)
	if err != nil {
		return nil, err
	}
	unlock := h.locks.lock(tabular.SheetMeetings)
	defer unlock()

	row := meetingRow(p.Get("meetingId"), p)
	if err := h.Store.UpdateRow(ctx, tabular.SheetMeetings, index, row); err != nil {
		return nil, h.storeError(err, tabular.SheetMeetings, index)
	}
	return envelope{"message": "Meeting updated successfully"}, nil
}

func (h *Handler) deleteMeeting(ctx context.Context, p Params) (envelope, error) {
	index, err := parseRowParam(p)
	if err != nil {
		return nil, err
	}
	unlock := h.locks.lock(tabular.SheetMeetings)
	defer unlock()

	if err := h.Store.DeleteRow(ctx, tabular.SheetMeetings, index); err != nil {
		return nil, h.storeError(err, tabular.SheetMeetings, index)
	}
	return envelope{"message": "Meeting deleted successfully"}, nil
}
