package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sakif/photolog/internal/model"
	"github.com/sakif/photolog/internal/service"
)

// PhotoHandler serves /events/{eventID}/photos for the event's host.
type PhotoHandler struct {
	photos *service.PhotoService
	logger *slog.Logger
}

func NewPhotoHandler(photos *service.PhotoService, logger *slog.Logger) *PhotoHandler {
	return &PhotoHandler{photos: photos, logger: logger}
}

type photoIDsRequest struct {
	PhotoIDs []string `json:"photo_ids" validate:"required"`
}

// PhotoListResponse is one page of photos. T is model.Photo for hosts and
// model.PublicPhotoView for visitors.
type PhotoListResponse[T any] struct {
	Photos   []T  `json:"photos"`
	Total    int  `json:"total"`
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasMore  bool `json:"has_more"`
}

func photoList[T any](p model.Page[T]) PhotoListResponse[T] {
	return PhotoListResponse[T]{
		Photos:   p.Items,
		Total:    p.Total,
		Page:     p.Page,
		PageSize: p.PageSize,
		HasMore:  p.HasMore,
	}
}

// HandleList returns every photo of the event, approved or not.
//
// HTTP: GET /events/{eventID}/photos?page=1&page_size=20
func (h *PhotoHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	u, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	req, err := pageRequest(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	page, err := h.photos.List(r.Context(), u.ID, r.PathValue("eventID"), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, photoList(page))
}

// HandleGet
//
// HTTP: GET /events/{eventID}/photos/{photoID}
func (h *PhotoHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	u, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	p, err := h.photos.Get(r.Context(), u.ID, r.PathValue("eventID"), r.PathValue("photoID"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleUpload adds a host photo. Host photos are approved on arrival.
//
// HTTP: POST /events/{eventID}/photos (multipart: file, caption)
func (h *PhotoHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	u, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	file, err := readUpload(w, r, service.QuotaCeiling, quotaTooLarge)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	p, err := h.photos.HostUpload(r.Context(), u.ID, r.PathValue("eventID"), file, formValue(r, "caption"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// HandleUpdate moderates a photo.
//
// HTTP: PATCH /events/{eventID}/photos/{photoID}
// REQUEST BODY: {"approved": true} and/or {"caption": "..."}
func (h *PhotoHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	u, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	var patch model.PhotoPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, h.logger, err)
		return
	}

	p, err := h.photos.Update(r.Context(), u.ID, r.PathValue("eventID"), r.PathValue("photoID"), patch)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleDelete
//
// HTTP: DELETE /events/{eventID}/photos/{photoID}
func (h *PhotoHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	u, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	eventID, photoID := r.PathValue("eventID"), r.PathValue("photoID")
	if err := h.photos.Delete(r.Context(), u.ID, eventID, photoID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeMessage(w, http.StatusOK,
		fmt.Sprintf("Photo '%s' deleted successfully from event '%s'.", photoID, eventID))
}

// HandleBulkDelete
//
// HTTP: POST /events/{eventID}/photos/bulk-delete
// REQUEST BODY: {"photo_ids": ["a", "b"]}
func (h *PhotoHandler) HandleBulkDelete(w http.ResponseWriter, r *http.Request) {
	u, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	var req photoIDsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	eventID := r.PathValue("eventID")
	n, err := h.photos.BulkDelete(r.Context(), u.ID, eventID, req.PhotoIDs)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, BulkActionResponse{
		Message:  fmt.Sprintf("Successfully deleted %d photo(s) from event '%s'.", n, eventID),
		Affected: n,
	})
}

// HandleBulkDownload acknowledges a download request.
//
// HTTP: POST /events/{eventID}/photos/bulk-download
func (h *PhotoHandler) HandleBulkDownload(w http.ResponseWriter, r *http.Request) {
	u, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	var req photoIDsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	eventID := r.PathValue("eventID")
	n, err := h.photos.PrepareDownload(r.Context(), u.ID, eventID, req.PhotoIDs)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeMessage(w, http.StatusOK, fmt.Sprintf(
		"Download prepared for %d photo(s) from event '%s'. Download link will be provided shortly.", n, eventID))
}
