package conflicts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	cmodels "github.com/dmitrijs2005/tailorkeeper/internal/client/models"
	"github.com/dmitrijs2005/tailorkeeper/internal/logging"
	"github.com/dmitrijs2005/tailorkeeper/internal/models"
)

// ErrInvalidChoice is returned by ParseChoice for anything but local or server.
var ErrInvalidChoice = errors.New("choice must be local or server")

// Choice picks the side that wins a conflict.
type Choice string

const (
	KeepLocal  Choice = "local"
	KeepServer Choice = "server"
)

func ParseChoice(s string) (Choice, error) {
	switch Choice(strings.ToLower(strings.TrimSpace(s))) {
	case KeepLocal:
		return KeepLocal, nil
	case KeepServer:
		return KeepServer, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidChoice, s)
}

// Store is the part of the local store the resolver needs.
type Store interface {
	Update(ctx context.Context, t models.EntityType, id int64, fn func(*cmodels.Record) error) (bool, error)
	GetConflicted(ctx context.Context, t models.EntityType) ([]*cmodels.Record, error)
}

type Option func(*Resolver)

func WithLogger(l logging.Logger) Option {
	return func(r *Resolver) { r.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

type Resolver struct {
	store Store
	log   logging.Logger
	now   func() time.Time
}

func New(st Store, opts ...Option) *Resolver {
	r := &Resolver{store: st, log: logging.Nop(), now: time.Now}
	for _, o := range opts {
		o(r)
	}
	r.log = r.log.With("module", "conflicts")
	return r
}

// Resolve settles the conflict on record id. It reports false, without error,
// when the record does not exist or is not conflicted.
//
// KeepLocal leaves the local fields in place and rebases them on the server
// version, so the next pass overwrites the remote copy. KeepServer replaces
// the local fields with the server's and marks the record clean.
//
// When the server deleted the record, KeepLocal sends it again as a new
// create and KeepServer turns it into a tombstone.
func (r *Resolver) Resolve(ctx context.Context, t models.EntityType, id int64, choice Choice) (bool, error) {
	if choice != KeepLocal && choice != KeepServer {
		return false, fmt.Errorf("%w: %q", ErrInvalidChoice, string(choice))
	}

	resolved := false
	found, err := r.store.Update(ctx, t, id, func(rec *cmodels.Record) error {
		if !rec.Conflict || rec.ServerVersion == nil {
			return nil
		}
		server := *rec.ServerVersion
		switch {
		case server.Deleted && choice == KeepLocal:
			// zero base: the next pass creates the record again
			rec.BaseVersion = time.Time{}
			rec.MarkPending(r.now())
		case server.Deleted:
			rec.Deleted = true
			rec.MarkPending(r.now())
		case choice == KeepLocal:
			rec.BaseVersion = server.UpdatedAt
			rec.MarkPending(r.now())
		default:
			rec.Entity = server.Entity
			rec.BaseVersion = server.UpdatedAt
			rec.PendingSync = false
			rec.Conflict = false
			rec.ServerVersion = nil
			rec.UpdatedAt = r.now()
		}
		resolved = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("resolve %s %d: %w", t.Singular(), id, err)
	}
	if !found || !resolved {
		return false, nil
	}

	r.log.Info(ctx, "conflict resolved", "entity", t, "id", id, "choice", string(choice))
	return true, nil
}

// ListAll returns every conflicted record, grouped by type in models.All
// order.
func (r *Resolver) ListAll(ctx context.Context) ([]*cmodels.Record, error) {
	var out []*cmodels.Record
	for _, t := range models.All() {
		recs, err := r.store.GetConflicted(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("list conflicted %s: %w", t, err)
		}
		out = append(out, recs...)
	}
	return out, nil
}
