package conflicts

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	cmodels "github.com/dmitrijs2005/tailorkeeper/internal/client/models"
	"github.com/dmitrijs2005/tailorkeeper/internal/models"
)

// NoConflictsMessage is printed when nothing needs resolving.
const NoConflictsMessage = "No conflicts to resolve!"

const timeLayout = "2006-01-02 15:04"

// Row is one field of a conflicted record side by side.
type Row struct {
	Field   string
	Local   string
	Server  string
	Differs bool
}

// Compare lines up the local and server values of fields. A nil fields
// slice means models.Comparable for the record's type. Records without a
// server version yield nil.
func Compare(rec *cmodels.Record, fields []string) []Row {
	if rec == nil || rec.Entity == nil || rec.ServerVersion == nil || rec.ServerVersion.Entity == nil {
		return nil
	}
	if fields == nil {
		fields = models.Comparable(rec.Type())
	}

	rows := make([]Row, 0, len(fields))
	for _, name := range fields {
		local, okL := models.FieldValue(rec.Entity, name)
		server, okS := models.FieldValue(rec.ServerVersion.Entity, name)
		if !okL && !okS {
			continue
		}
		rows = append(rows, Row{Field: name, Local: local, Server: server, Differs: local != server})
	}
	return rows
}

// Render writes one block per conflicted record: a heading with the record
// and both edit times, then the comparable fields with differing ones marked
// by an asterisk.
func Render(w io.Writer, recs []*cmodels.Record) error {
	if len(recs) == 0 {
		_, err := fmt.Fprintln(w, NoConflictsMessage)
		return err
	}

	sorted := append([]*cmodels.Record(nil), recs...)
	order := make(map[models.EntityType]int, len(models.All()))
	for i, t := range models.All() {
		order[t] = i
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Type() != b.Type() {
			return order[a.Type()] < order[b.Type()]
		}
		return a.ID < b.ID
	})

	for i, rec := range sorted {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if err := renderOne(w, rec); err != nil {
			return err
		}
	}
	return nil
}

func renderOne(w io.Writer, rec *cmodels.Record) error {
	server := "-"
	if sv := rec.ServerVersion; sv != nil {
		server = sv.UpdatedAt.UTC().Format(timeLayout)
		if sv.Deleted {
			server = "deleted"
		}
	}
	if _, err := fmt.Fprintf(w, "%s %d (local edit %s, server edit %s)\n",
		rec.Type().Singular(), rec.ID, rec.UpdatedAt.UTC().Format(timeLayout), server); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  \tFIELD\tLOCAL\tSERVER")
	if rec.ServerVersion != nil && rec.ServerVersion.Deleted {
		for _, name := range models.Comparable(rec.Type()) {
			local, _ := models.FieldValue(rec.Entity, name)
			fmt.Fprintf(tw, "  *\t%s\t%s\t-\n", name, orDash(local))
		}
		return tw.Flush()
	}
	for _, row := range Compare(rec, nil) {
		mark := " "
		if row.Differs {
			mark = "*"
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", mark, row.Field, orDash(row.Local), orDash(row.Server))
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
