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

type userKey struct{}

// ResolveUser turns the verified Identity stored by auth.RequireAuth into
// the stored user and puts it in the request context.
//
// WHY NOT USE THE TOKEN SUBJECT DIRECTLY?
// The stored user ID is fixed the first time an email is seen. If the
// provider later issues the same email under a new subject, ownership must
// still follow the stored ID, so every host-scoped handler reads the user
// from here.
func ResolveUser(users *service.UserService, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := auth.IdentityFromContext(r.Context())
			if !ok {
				writeError(w, logger, apperror.Unauthenticated("Not authenticated"))
				return
			}
			user, err := users.Resolve(r.Context(), id)
			if err != nil {
				writeError(w, logger, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
		})
	}
}

func withUser(ctx context.Context, u *model.User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// currentUser returns the user stored by ResolveUser. Handlers mounted
// behind it can rely on ok being true.
func currentUser(r *http.Request) (*model.User, bool) {
	u, ok := r.Context().Value(userKey{}).(*model.User)
	return u, ok && u != nil
}

// requireUser is currentUser for handlers: it writes the 401 itself.
func requireUser(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*model.User, bool) {
	u, ok := currentUser(r)
	if !ok {
		writeError(w, logger, apperror.Unauthenticated("Not authenticated"))
	}
	return u, ok
}
