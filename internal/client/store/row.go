package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	cmodels "github.com/dmitrijs2005/tailorkeeper/internal/client/models"
	"github.com/dmitrijs2005/tailorkeeper/internal/common"
	"github.com/dmitrijs2005/tailorkeeper/internal/dbx"
	"github.com/dmitrijs2005/tailorkeeper/internal/models"
)

const columns = `id, client_ref, owner_id, parent_id, data, pending_sync, conflict, deleted,
	base_version, server_version, updated_at`

// row mirrors one table row.
type row struct {
	ID            int64
	ClientRef     sql.NullString
	OwnerID       string
	ParentID      int64
	Data          string
	PendingSync   bool
	Conflict      bool
	Deleted       bool
	BaseVersion   string
	ServerVersion sql.NullString
	UpdatedAt     string
}

type snapshotJSON struct {
	UpdatedAt time.Time       `json:"updatedAt"`
	Fields    json.RawMessage `json:"fields,omitempty"`
	Deleted   bool            `json:"deleted,omitempty"`
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRow(sc scanner) (row, error) {
	var r row
	err := sc.Scan(&r.ID, &r.ClientRef, &r.OwnerID, &r.ParentID, &r.Data, &r.PendingSync,
		&r.Conflict, &r.Deleted, &r.BaseVersion, &r.ServerVersion, &r.UpdatedAt)
	return r, err
}

func (r row) args() []any {
	return []any{r.ID, r.ClientRef, r.OwnerID, r.ParentID, r.Data, dbx.BoolToInt(r.PendingSync),
		dbx.BoolToInt(r.Conflict), dbx.BoolToInt(r.Deleted), r.BaseVersion, r.ServerVersion, r.UpdatedAt}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

func encode(rec *cmodels.Record) (row, error) {
	data, err := models.Marshal(rec.Entity)
	if err != nil {
		return row{}, err
	}

	r := row{
		ID:          rec.ID,
		ClientRef:   sql.NullString{String: rec.ClientRef, Valid: rec.ClientRef != ""},
		OwnerID:     rec.OwnerID,
		ParentID:    rec.Entity.ParentID(),
		Data:        string(data),
		PendingSync: rec.PendingSync,
		Conflict:    rec.Conflict,
		Deleted:     rec.Deleted,
		BaseVersion: formatTime(rec.BaseVersion),
		UpdatedAt:   formatTime(rec.UpdatedAt),
	}

	if sv := rec.ServerVersion; sv != nil {
		snap := snapshotJSON{UpdatedAt: sv.UpdatedAt.UTC(), Deleted: sv.Deleted}
		if !sv.Deleted {
			fields, err := models.Marshal(sv.Entity)
			if err != nil {
				return row{}, err
			}
			snap.Fields = fields
		}
		b, err := json.Marshal(snap)
		if err != nil {
			return row{}, err
		}
		r.ServerVersion = sql.NullString{String: string(b), Valid: true}
	}
	return r, nil
}

func decode(t models.EntityType, r row) (*cmodels.Record, error) {
	e, err := models.Unmarshal(t, []byte(r.Data))
	if err != nil {
		return nil, fmt.Errorf("%s %d: %w", t, r.ID, err)
	}

	rec := &cmodels.Record{
		ID:          r.ID,
		ClientRef:   r.ClientRef.String,
		OwnerID:     r.OwnerID,
		Entity:      e,
		PendingSync: r.PendingSync,
		Conflict:    r.Conflict,
		Deleted:     r.Deleted,
	}

	if rec.BaseVersion, err = parseTime(r.BaseVersion); err != nil {
		return nil, fmt.Errorf("%w: %s %d base version: %v", common.ErrInvalidRecord, t, r.ID, err)
	}
	if rec.UpdatedAt, err = parseTime(r.UpdatedAt); err != nil {
		return nil, fmt.Errorf("%w: %s %d updated at: %v", common.ErrInvalidRecord, t, r.ID, err)
	}

	if r.ServerVersion.Valid {
		var snap snapshotJSON
		if err := json.Unmarshal([]byte(r.ServerVersion.String), &snap); err != nil {
			return nil, fmt.Errorf("%w: %s %d server version: %v", common.ErrInvalidRecord, t, r.ID, err)
		}
		sv := &cmodels.Snapshot{UpdatedAt: snap.UpdatedAt, Deleted: snap.Deleted}
		if !snap.Deleted {
			if sv.Entity, err = models.Unmarshal(t, snap.Fields); err != nil {
				return nil, fmt.Errorf("%s %d server version: %w", t, r.ID, err)
			}
		}
		rec.ServerVersion = sv
	}
	return rec, nil
}
