package api

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"fieldlog/internal/tabular"
)

// uploadMedia decodes a base64 payload, stores it in the blob sink as a
// link-shareable object, and appends a metadata row to the Media sheet.
func (h *Handler) uploadMedia(ctx context.Context, p Params) (envelope, error) {
	fileData := p.Get("fileData")
	fileName := strings.TrimSpace(p.Get("fileName"))
	mimeType := strings.TrimSpace(p.Get("mimeType"))

	// Report every absent field in one pass so the client can fix the whole
	// request at once.
	var missing []string
	if fileData == "" {
		missing = append(missing, "fileData")
	}
	if fileName == "" {
		missing = append(missing, "fileName")
	}
	if mimeType == "" {
		missing = append(missing, "mimeType")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("Missing required fields: %s", strings.Join(missing, ", "))
	}

	data, err := decodeBase64Payload(fileData)
	if err != nil {
		return nil, fmt.Errorf("decode fileData: %w", err)
	}

	fileURL, err := h.Blobs.Upload(ctx, fileName, mimeType, data)
	if err != nil {
		return nil, fmt.Errorf("store file %q: %w", fileName, err)
	}
	h.recorder().ObserveUpload(len(data))

	unlock := h.locks.lock(tabular.SheetMedia)
	defer unlock()

	if err := h.Store.EnsureSheet(ctx, tabular.SheetMedia, tabular.MediaHeader); err != nil {
		return nil, fmt.Errorf("prepare sheet %q: %w", tabular.SheetMedia, err)
	}
	row := []string{
		p.Get("week"),
		p.Get("zone"),
		p.Get("district"),
		fileName,
		fileURL,
		mimeType,
		h.timeNow().UTC().Format(time.RFC3339),
	}
	if err := h.Store.AppendRow(ctx, tabular.SheetMedia, row); err != nil {
		return nil, h.storeError(err, tabular.SheetMedia, 0)
	}

	return envelope{
		"message":  "File uploaded successfully",
		"fileName": fileName,
		"fileUrl":  fileURL,
	}, nil
}

// decodeBase64Payload accepts plain base64 as well as browser FileReader
// output of the form "data:<mime>;base64,<payload>".
func decodeBase64Payload(raw string) ([]byte, error) {
	payload := raw
	if strings.HasPrefix(payload, "data:") {
		if idx := strings.Index(payload, ","); idx >= 0 {
			payload = payload[idx+1:]
		}
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("payload is not valid base64: %s", err.Error())
	}
	return data, nil
}
