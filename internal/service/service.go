// Package service contains the business rules of PhotoLog.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → authorizes, validates, orchestrates
//	Repository (Data layer)  → reads/writes the database
//
// Services never see an *http.Request. They take primitives and model types
// and return model types or apperror values, so the same rules hold for any
// caller.
//
// AUTHORIZATION MODEL:
// Every host-scoped operation starts with EventService.VerifyOwnership,
// which distinguishes "no such event" (404) from "not yours" (403). Public
// operations start with PublicService.ResolvePublicEvent, which does not:
// an archived event and a missing one both read as 404.
//
// SIDE EFFECTS:
// Remote asset deletion and moderation mail happen after the database write
// and are best-effort. Their failures are logged, never returned.
package service

import (
	"context"
	"log/slog"

	"github.com/sakif/photolog/internal/storage"
)

// PasswordHasher hashes and checks event passwords.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Matches(hash, plaintext string) (bool, error)
}

// deleteAsset removes the remote object behind url, logging failures.
func deleteAsset(ctx context.Context, assets storage.Uploader, logger *slog.Logger, url string) {
	publicID := storage.PublicIDFromURL(url)
	if publicID == "" {
		return
	}
	if err := assets.Delete(ctx, publicID); err != nil {
		logger.Error("failed to delete remote asset",
			slog.String("publicID", publicID),
			slog.String("error", err.Error()),
		)
	}
}
