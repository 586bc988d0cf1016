package remote

import (
	"context"
	"time"

	"github.com/dmitrijs2005/tailorkeeper/internal/models"
)

// Remote is the persistence service scoped to the caller's owner identity.
type Remote interface {
	List(ctx context.Context, t models.EntityType) ([]models.Canonical, error)

	// Create is idempotent on clientRef: repeating it returns the record the
	// first call created.
	Create(ctx context.Context, clientRef string, e models.Entity) (models.Canonical, error)

	// Update applies e if the stored record's updatedAt equals base.
	Update(ctx context.Context, id int64, base time.Time, e models.Entity) (models.Canonical, error)

	Delete(ctx context.Context, t models.EntityType, id int64) error
	BulkDelete(ctx context.Context, t models.EntityType, ids []int64) (int64, error)

	PresignImageUpload(ctx context.Context, orderID int64, contentType string) (ImageUpload, error)
}

// ImageUpload describes where to PUT an order image and where it will be
// served from afterwards.
type ImageUpload struct {
	UploadURL string
	ObjectURL string
	ExpiresAt time.Time
}
