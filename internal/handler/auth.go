package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/photolog/internal/apperror"
	"github.com/sakif/photolog/internal/auth"
	"github.com/sakif/photolog/internal/model"
	"github.com/sakif/photolog/internal/service"
)

// AuthHandler serves /auth and /admin/auth.
//
// WHO DOES WHAT:
// The frontend talks to Firebase directly for every credential flow
// (sign-up, password reset, email verification). It then hands the fresh
// ID token to these endpoints, which verify it and return the user. Flows
// that need nothing from the backend (sign-out, resend verification,
// forgot password) only acknowledge.
//
// DEPENDENCY CHAIN:
//   - verifier auth.Verifier        → checks ID tokens from the request body
//   - users    *service.UserService → upserts the user on sign-in
//   - admins   *auth.AdminList      → allow-list for /admin/auth
type AuthHandler struct {
	verifier auth.Verifier
	users    *service.UserService
	admins   *auth.AdminList
	logger   *slog.Logger
}

func NewAuthHandler(
	verifier auth.Verifier,
	users *service.UserService,
	admins *auth.AdminList,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		verifier: verifier,
		users:    users,
		admins:   admins,
		logger:   logger,
	}
}

type tokenRequest struct {
	Token string `json:"token" validate:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// UserResponse is the user as the auth endpoints report it.
type UserResponse struct {
	UID           string  `json:"uid"`
	Email         string  `json:"email"`
	EmailVerified bool    `json:"email_verified"`
	Name          *string `json:"name"`
}

// SigninResponse echoes the verified token with the resolved user.
type SigninResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// verifyToken runs the verifier and translates its failures into the
// error taxonomy: a bad token is 401, a verifier that cannot run is 500.
func verifyToken(ctx context.Context, v auth.Verifier, token string) (model.Identity, error) {
	id, err := v.Verify(ctx, token)
	if err == nil {
		return id, nil
	}
	if auth.IsCredentialError(err) {
		return model.Identity{}, apperror.Unauthenticated("Invalid authentication credentials")
	}
	return model.Identity{}, apperror.Upstream("Authentication service", err)
}

// signin verifies the body token and resolves the user. Sign-up, sign-in
// and refresh all reduce to this.
func (h *AuthHandler) signin(w http.ResponseWriter, r *http.Request, adminOnly bool) {
	var req tokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	id, err := verifyToken(r.Context(), h.verifier, req.Token)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if adminOnly && !h.admins.IsAdmin(id.Email) {
		h.logger.Warn("admin sign-in refused", slog.String("subject", id.Subject))
		writeError(w, h.logger, apperror.Forbidden("Admin access required"))
		return
	}

	user, err := h.users.Resolve(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, SigninResponse{
		Token: req.Token,
		User: UserResponse{
			UID:           user.ID,
			Email:         user.Email,
			EmailVerified: id.EmailVerified,
			Name:          user.Name,
		},
	})
}

// HandleSignup registers a host on first sight of their token.
//
// HTTP: POST /auth/signup
// REQUEST BODY: {"token": "<firebase id token>"}
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	h.signin(w, r, false)
}

// HandleSignin
//
// HTTP: POST /auth/signin
func (h *AuthHandler) HandleSignin(w http.ResponseWriter, r *http.Request) {
	h.signin(w, r, false)
}

// HandleRefresh accepts the token the frontend just refreshed with Firebase.
//
// HTTP: POST /auth/refresh
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	h.signin(w, r, false)
}

// HandleSignout acknowledges; tokens are revoked client-side.
//
// HTTP: POST /auth/signout, POST /admin/auth/signout
func (h *AuthHandler) HandleSignout(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "Signed out successfully")
}

// HTTP: POST /auth/resend-verification
func (h *AuthHandler) HandleResendVerification(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "Verification email sent")
}

// HandleForgotPassword acknowledges; Firebase sends the reset mail.
//
// HTTP: POST /auth/forgot-password
// REQUEST BODY: {"email": "host@example.com"}
func (h *AuthHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeMessage(w, http.StatusOK, "Password reset email sent")
}

// HandleVerifyEmail checks the token issued after verification.
//
// HTTP: POST /auth/verify-email
func (h *AuthHandler) HandleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	h.confirm(w, r, "Email verified successfully")
}

// HandleResetPassword checks the token issued after a reset.
//
// HTTP: POST /auth/reset-password
func (h *AuthHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	h.confirm(w, r, "Password reset successfully")
}

// confirm verifies the body token and answers with message.
func (h *AuthHandler) confirm(w http.ResponseWriter, r *http.Request, message string) {
	var req tokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if _, err := verifyToken(r.Context(), h.verifier, req.Token); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeMessage(w, http.StatusOK, message)
}

// HandleAdminSignin is HandleSignin restricted to the admin allow-list.
//
// HTTP: POST /admin/auth/signin
func (h *AuthHandler) HandleAdminSignin(w http.ResponseWriter, r *http.Request) {
	h.signin(w, r, true)
}

// HandleAdminRefresh requires a valid admin bearer token on the request
// (RequireAuth + RequireAdmin) and the refreshed token in the body.
//
// HTTP: POST /admin/auth/refresh
func (h *AuthHandler) HandleAdminRefresh(w http.ResponseWriter, r *http.Request) {
	h.signin(w, r, true)
}

// RequireAdmin rejects requests whose verified identity is not on the
// allow-list. It must run after auth.RequireAuth.
func (h *AuthHandler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.IdentityFromContext(r.Context())
		if !ok {
			writeError(w, h.logger, apperror.Unauthenticated("Not authenticated"))
			return
		}
		if !h.admins.IsAdmin(id.Email) {
			writeError(w, h.logger, apperror.Forbidden("Admin access required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
