package rpc

import (
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dmitrijs2005/tailorkeeper/internal/models"
)

// Record is the wire form of models.Canonical.
type Record struct {
	Entity    models.EntityType `json:"entity"`
	ID        int64             `json:"id"`
	ClientRef string            `json:"clientRef,omitempty"`
	UpdatedAt time.Time         `json:"updatedAt"`
	Fields    json.RawMessage   `json:"fields"`
}

type ListRequest struct {
	Entity models.EntityType `json:"entity"`
}

type ListResponse struct {
	Records []Record `json:"records"`
}

type CreateRequest struct {
	Entity    models.EntityType `json:"entity"`
	ClientRef string            `json:"clientRef"`
	Fields    json.RawMessage   `json:"fields"`
}

// UpdateRequest carries BaseVersion, the updatedAt the client last saw. The
// server rejects the update with Aborted if the stored value differs.
type UpdateRequest struct {
	Entity      models.EntityType `json:"entity"`
	ID          int64             `json:"id"`
	BaseVersion time.Time         `json:"baseVersion"`
	Fields      json.RawMessage   `json:"fields"`
}

type RecordResponse struct {
	Record Record `json:"record"`
}

type DeleteRequest struct {
	Entity models.EntityType `json:"entity"`
	ID     int64             `json:"id"`
}

type BulkDeleteRequest struct {
	Entity models.EntityType `json:"entity"`
	IDs    []int64           `json:"ids"`
}

type BulkDeleteResponse struct {
	Deleted int64 `json:"deleted"`
}

type PresignRequest struct {
	OrderID     int64  `json:"orderId"`
	ContentType string `json:"contentType,omitempty"`
}

// PresignResponse holds a URL the client PUTs the image to and the URL the
// uploaded object is served from.
type PresignResponse struct {
	UploadURL string    `json:"uploadUrl"`
	ObjectURL string    `json:"objectUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Encode converts a message to a Struct.
func Encode(msg any) (*structpb.Struct, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", msg, err)
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("encode %T: %w", msg, err)
	}
	return out, nil
}

// Decode fills msg from a Struct.
func Decode(in *structpb.Struct, msg any) error {
	if in == nil {
		in = &structpb.Struct{}
	}
	data, err := protojson.Marshal(in)
	if err != nil {
		return fmt.Errorf("decode %T: %w", msg, err)
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("decode %T: %w", msg, err)
	}
	return nil
}

// FromCanonical builds the wire record for c.
func FromCanonical(c models.Canonical) (Record, error) {
	fields, err := models.Marshal(c.Entity)
	if err != nil {
		return Record{}, err
	}
	return Record{
		Entity:    c.Type(),
		ID:        c.ID,
		ClientRef: c.ClientRef,
		UpdatedAt: c.UpdatedAt,
		Fields:    fields,
	}, nil
}

// Canonical decodes the record's fields into the entity type it names.
func (r Record) Canonical() (models.Canonical, error) {
	e, err := models.Unmarshal(r.Entity, r.Fields)
	if err != nil {
		return models.Canonical{}, err
	}
	return models.Canonical{
		ID:        r.ID,
		ClientRef: r.ClientRef,
		UpdatedAt: r.UpdatedAt,
		Entity:    e,
	}, nil
}
