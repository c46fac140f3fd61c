package service

import (
	"context"
	"fmt"

	"github.com/sakif/photolog/internal/apperror"
	"github.com/sakif/photolog/internal/model"
	"github.com/sakif/photolog/internal/repository"
)

// QuotaCeiling is the per-user storage limit: 1 GiB.
const QuotaCeiling int64 = 1_073_741_824

// QuotaService accounts for storage across photos, covers and avatar.
type QuotaService struct {
	usage repository.UsageRepository
}

func NewQuotaService(usage repository.UsageRepository) *QuotaService {
	return &QuotaService{usage: usage}
}

// Usage returns the user's current consumption broken down by source.
func (q *QuotaService) Usage(ctx context.Context, userID string) (model.StorageUsage, error) {
	u, err := q.usage.StorageUsage(ctx, userID)
	if err != nil {
		return model.StorageUsage{}, fmt.Errorf("computing storage usage: %w", err)
	}
	return u, nil
}

// Check fails with QuotaExceeded when adding incoming bytes would take the
// user past QuotaCeiling. Landing exactly on the ceiling is allowed.
func (q *QuotaService) Check(ctx context.Context, userID string, incoming int64) error {
	u, err := q.Usage(ctx, userID)
	if err != nil {
		return err
	}
	current := u.Total()
	if current+incoming <= QuotaCeiling {
		return nil
	}
	return apperror.QuotaExceeded(fmt.Sprintf(
		"Storage quota exceeded. Current usage: %s GB of %s GB. Upload of %s GB would exceed the limit.",
		gib(current), gib(QuotaCeiling), gib(incoming)))
}

// gib formats bytes as GiB with two decimals.
func gib(bytes int64) string {
	return fmt.Sprintf("%.2f", float64(bytes)/float64(1<<30))
}
