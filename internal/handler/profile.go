package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/photolog/internal/auth"
	"github.com/sakif/photolog/internal/model"
	"github.com/sakif/photolog/internal/service"
)

// ProfileHandler serves /me: the signed-in host's own profile and storage.
type ProfileHandler struct {
	users    *service.UserService
	quota    *service.QuotaService
	verifier auth.Verifier
	logger   *slog.Logger
}

func NewProfileHandler(
	users *service.UserService,
	quota *service.QuotaService,
	verifier auth.Verifier,
	logger *slog.Logger,
) *ProfileHandler {
	return &ProfileHandler{
		users:    users,
		quota:    quota,
		verifier: verifier,
		logger:   logger,
	}
}

// ProfileResponse is the stored user plus the verification flag from the
// current token.
type ProfileResponse struct {
	*model.User
	EmailVerified bool `json:"email_verified"`
}

type updateProfileRequest struct {
	Name model.Optional[*string] `json:"name"`
}

// StorageResponse reports quota consumption.
type StorageResponse struct {
	UsedBytes  int64 `json:"used_bytes"`
	LimitBytes int64 `json:"limit_bytes"`
	model.StorageUsage
}

func (h *ProfileHandler) profile(r *http.Request, u *model.User) ProfileResponse {
	id, _ := auth.IdentityFromContext(r.Context())
	return ProfileResponse{User: u, EmailVerified: id.EmailVerified}
}

// HandleGet returns the profile.
//
// HTTP: GET /me
func (h *ProfileHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	u, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.profile(r, u))
}

// HandleUpdate changes the display name. {"name": null} clears it; an
// absent name leaves the profile unchanged.
//
// HTTP: PATCH /me
func (h *ProfileHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	u, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	var req updateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	name, present := req.Name.Get()
	if !present {
		writeJSON(w, http.StatusOK, h.profile(r, u))
		return
	}
	updated, err := h.users.UpdateName(r.Context(), u.ID, name)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.profile(r, updated))
}

// HandleChangePassword confirms a password change done through Firebase by
// verifying the token issued afterwards.
//
// HTTP: PATCH /me/password
// REQUEST BODY: {"token": "<new firebase id token>"}
func (h *ProfileHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if _, err := verifyToken(r.Context(), h.verifier, req.Token); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeMessage(w, http.StatusOK, "Password changed successfully")
}

// HandleUploadAvatar
//
// HTTP: POST /me/avatar (multipart, field "file")
func (h *ProfileHandler) HandleUploadAvatar(w http.ResponseWriter, r *http.Request) {
	u, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	file, err := readUpload(w, r, service.QuotaCeiling, quotaTooLarge)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	updated, err := h.users.UploadAvatar(r.Context(), u.ID, file)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.profile(r, updated))
}

// HandleStorage reports how much of the quota is used.
//
// HTTP: GET /me/storage
func (h *ProfileHandler) HandleStorage(w http.ResponseWriter, r *http.Request) {
	u, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	usage, err := h.quota.Usage(r.Context(), u.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, StorageResponse{
		UsedBytes:    usage.Total(),
		LimitBytes:   service.QuotaCeiling,
		StorageUsage: usage,
	})
}
