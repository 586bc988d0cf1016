// Package models defines the client-side sync record: an entity plus the
// bookkeeping the offline store keeps for it.
package models

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/tailorkeeper/internal/common"
	"github.com/dmitrijs2005/tailorkeeper/internal/models"
)

// Snapshot is a server copy of a record kept for conflict display. A
// Deleted snapshot means the server no longer has the record; it carries no
// entity.
type Snapshot struct {
	Entity    models.Entity
	UpdatedAt time.Time
	Deleted   bool
}

// Record is a locally stored entity.
//
// A record is clean (not pending, not conflicted), pending, or conflicted.
// A conflicted record keeps PendingSync set until it is resolved; the sync
// engine does not replay it while Conflict is true.
type Record struct {
	// ID is the server id once confirmed; locally created records carry a
	// negative temporary id until their first successful create.
	ID        int64
	ClientRef string
	OwnerID   string
	Entity    models.Entity

	PendingSync bool
	Conflict    bool
	// Deleted marks a tombstone: a confirmed record deleted locally whose
	// remote delete has not been acknowledged yet.
	Deleted bool

	// BaseVersion is the server updatedAt this copy was derived from; zero
	// if the record never reached the server.
	BaseVersion   time.Time
	ServerVersion *Snapshot
	UpdatedAt     time.Time
}

func (r *Record) Type() models.EntityType {
	if r.Entity == nil {
		return ""
	}
	return r.Entity.Type()
}

// Confirmed reports whether the record has a server-assigned id.
func (r *Record) Confirmed() bool { return r.ID > 0 }

// Synced reports whether the server holds a copy this record can be
// updated against. A confirmed record with a zero BaseVersion was deleted on
// the server and is created again.
func (r *Record) Synced() bool { return r.Confirmed() && !r.BaseVersion.IsZero() }

// Clean reports whether the local copy matches the last known server copy.
func (r *Record) Clean() bool { return !r.PendingSync && !r.Conflict }

// Check verifies the record's structural invariants.
func (r *Record) Check() error {
	switch {
	case r.Entity == nil:
		return fmt.Errorf("%w: record %d has no entity", common.ErrInvalidRecord, r.ID)
	case r.Conflict != (r.ServerVersion != nil):
		return fmt.Errorf("%w: record %d conflict=%t without matching server version",
			common.ErrInvalidRecord, r.ID, r.Conflict)
	case r.ServerVersion != nil && r.ServerVersion.Deleted != (r.ServerVersion.Entity == nil):
		return fmt.Errorf("%w: record %d server version entity does not match deleted=%t",
			common.ErrInvalidRecord, r.ID, r.ServerVersion.Deleted)
	case r.ServerVersion != nil && !r.ServerVersion.Deleted && r.ServerVersion.Entity.Type() != r.Entity.Type():
		return fmt.Errorf("%w: record %d server version is a %s", common.ErrInvalidRecord, r.ID,
			r.ServerVersion.Entity.Type())
	case r.Deleted && !r.Confirmed():
		return fmt.Errorf("%w: unconfirmed record %d cannot be a tombstone", common.ErrInvalidRecord, r.ID)
	}
	return nil
}

// MarkPending records a local mutation.
func (r *Record) MarkPending(now time.Time) {
	r.PendingSync = true
	r.Conflict = false
	r.ServerVersion = nil
	r.UpdatedAt = now
}

// MarkConflict stores the server's copy and blocks the record until the user
// resolves it. PendingSync is left as it is.
func (r *Record) MarkConflict(server Snapshot, now time.Time) {
	r.Conflict = true
	r.ServerVersion = &server
	r.UpdatedAt = now
}

// ApplyCanonical replaces the record with the server's confirmed copy.
func (r *Record) ApplyCanonical(c models.Canonical, now time.Time) {
	r.ID = c.ID
	if c.ClientRef != "" {
		r.ClientRef = c.ClientRef
	}
	r.Entity = c.Entity
	r.BaseVersion = c.UpdatedAt
	r.PendingSync = false
	r.Conflict = false
	r.Deleted = false
	r.ServerVersion = nil
	r.UpdatedAt = now
}

// Clone returns a copy that shares no mutable state with r.
func (r *Record) Clone() *Record {
	c := *r
	if r.ServerVersion != nil {
		sv := *r.ServerVersion
		c.ServerVersion = &sv
	}
	return &c
}
