package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/photolog/internal/service"
)

// PublicHandler serves /public/events/{slug} to visitors. No route here is
// authenticated; visibility and the password gate are enforced by
// service.PublicService.
type PublicHandler struct {
	public *service.PublicService
	logger *slog.Logger
}

func NewPublicHandler(public *service.PublicService, logger *slog.Logger) *PublicHandler {
	return &PublicHandler{public: public, logger: logger}
}

// HandleGetEvent
//
// HTTP: GET /public/events/{slug}
func (h *PublicHandler) HandleGetEvent(w http.ResponseWriter, r *http.Request) {
	v, err := h.public.GetEvent(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// HandleListPhotos returns approved photos only.
//
// HTTP: GET /public/events/{slug}/photos?page=1&page_size=20
func (h *PublicHandler) HandleListPhotos(w http.ResponseWriter, r *http.Request) {
	req, err := pageRequest(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	page, err := h.public.ListPhotos(r.Context(), r.PathValue("slug"), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, photoList(page))
}

// HandleVerifyPassword
//
// HTTP: POST /public/events/{slug}/verify-password (form field "password")
func (h *PublicHandler) HandleVerifyPassword(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	// Either encoding is accepted; the error only tells us which one it was.
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		_ = r.ParseForm()
	}

	var supplied string
	if p := formValue(r, "password"); p != nil {
		supplied = *p
	}

	msg, err := h.public.CheckPassword(r.Context(), r.PathValue("slug"), supplied)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeMessage(w, http.StatusOK, msg)
}

// HandleUpload accepts a visitor photo. It is stored unapproved and stays
// invisible to other visitors until the host approves it.
//
// HTTP: POST /public/events/{slug}/photos (multipart: file, caption, password, email)
//
// The event is resolved before the body is read, so hidden or unknown
// events answer 404 without buffering the file. The password travels in
// the same multipart body, which means an oversized body is still rejected
// before the password can be checked.
func (h *PublicHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if _, err := h.public.ResolvePublicEvent(r.Context(), r.PathValue("slug")); err != nil {
		writeError(w, h.logger, err)
		return
	}

	file, err := readUpload(w, r, service.MaxPublicUploadSize, publicTooLarge)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	p, err := h.public.Upload(r.Context(), r.PathValue("slug"), service.PublicUploadInput{
		File:     file,
		Caption:  formValue(r, "caption"),
		Password: formValue(r, "password"),
		Email:    formValue(r, "email"),
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}
