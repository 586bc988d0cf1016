package models

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/tailorkeeper/internal/common"
)

// Canonical is a record as the server persisted it: the server id, the
// client-generated idempotency key, and the server's modification time,
// which doubles as the optimistic concurrency token.
type Canonical struct {
	ID        int64
	ClientRef string
	UpdatedAt time.Time
	Entity    Entity
}

func (c Canonical) Type() EntityType {
	if c.Entity == nil {
		return ""
	}
	return c.Entity.Type()
}

// ConflictError reports an update rejected because the stored record changed
// after BaseVersion. Current is the record as it is stored now.
type ConflictError struct {
	Current Canonical
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %d changed on the server at %s",
		e.Current.Type().Singular(), e.Current.ID, e.Current.UpdatedAt.Format(time.RFC3339Nano))
}

func (e *ConflictError) Unwrap() error { return common.ErrVersionConflict }
