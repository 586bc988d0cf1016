package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	cmodels "github.com/dmitrijs2005/tailorkeeper/internal/client/models"
	"github.com/dmitrijs2005/tailorkeeper/internal/client/remote"
	"github.com/dmitrijs2005/tailorkeeper/internal/common"
	"github.com/dmitrijs2005/tailorkeeper/internal/logging"
	"github.com/dmitrijs2005/tailorkeeper/internal/models"
	"github.com/dmitrijs2005/tailorkeeper/internal/netx"
)

var (
	// ErrNotSynced is returned when an image is attached to an order that has
	// no server id yet.
	ErrNotSynced = errors.New("order has not been synced yet")
	ErrNotImage  = errors.New("file is not an image")
)

// Uploader is the part of the remote client that signs image uploads.
type Uploader interface {
	PresignImageUpload(ctx context.Context, orderID int64, contentType string) (remote.ImageUpload, error)
}

// ImageService uploads order reference images to object storage. Unlike
// record writes it needs the server: the upload URL is signed remotely.
type ImageService struct {
	records RecordService
	up      Uploader
	client  *http.Client
	log     logging.Logger
}

func NewImageService(records RecordService, up Uploader, client *http.Client, log logging.Logger) *ImageService {
	if log == nil {
		log = logging.Nop()
	}
	return &ImageService{records: records, up: up, client: client, log: log.With("module", "images")}
}

// Attach uploads data as the image of order orderID and stores the object
// URL on the order as a regular pending edit.
func (s *ImageService) Attach(ctx context.Context, orderID int64, data []byte) (*cmodels.Record, error) {
	rec, err := s.records.Get(ctx, models.Orders, orderID)
	if err != nil {
		return nil, err
	}
	if !rec.Confirmed() {
		return nil, fmt.Errorf("order %d: %w", orderID, ErrNotSynced)
	}
	if rec.Conflict {
		return nil, fmt.Errorf("order %d: %w", orderID, common.ErrConflictPending)
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, fmt.Errorf("%w: detected %s", ErrNotImage, mt.String())
	}

	upload, err := s.up.PresignImageUpload(ctx, orderID, mt.String())
	if err != nil {
		return nil, fmt.Errorf("presign upload: %w", err)
	}
	if err := netx.UploadToPresignedURL(ctx, s.client, upload.UploadURL, mt.String(), data); err != nil {
		return nil, err
	}
	s.log.Info(ctx, "image uploaded", "order", orderID, "bytes", len(data), "type", mt.String())

	order := rec.Entity.(models.Order)
	order.ImageURL = upload.ObjectURL
	return s.records.Edit(ctx, models.Orders, orderID, order)
}
