package cli

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"text/tabwriter"

	cmodels "github.com/dmitrijs2005/tailorkeeper/internal/client/models"
	"github.com/dmitrijs2005/tailorkeeper/internal/client/syncer"
	"github.com/dmitrijs2005/tailorkeeper/internal/models"
)

func state(rec *cmodels.Record) string {
	switch {
	case rec.Conflict:
		return "conflict"
	case rec.Deleted:
		return "deleting"
	case rec.PendingSync:
		return "pending"
	}
	return "synced"
}

// columns returns the list heading and the row cells for records of type t.
func columns(t models.EntityType) ([]string, func(models.Entity) []string) {
	switch t {
	case models.Clients:
		return []string{"NAME", "PHONE", "EMAIL"}, func(e models.Entity) []string {
			c := e.(models.Client)
			return []string{c.Name, c.Phone, c.Email}
		}
	case models.Orders:
		return []string{"CLIENT", "STATUS", "DUE", "DESCRIPTION"}, func(e models.Entity) []string {
			o := e.(models.Order)
			return []string{strconv.FormatInt(o.ClientID, 10), o.Status, o.DueDate, o.Description}
		}
	case models.Inventory:
		return []string{"NAME", "QTY", "UNIT", "STOCK"}, func(e models.Entity) []string {
			i := e.(models.InventoryItem)
			stock := "ok"
			if i.LowStock() {
				stock = "LOW"
			}
			return []string{i.Name, strconv.FormatInt(i.Quantity, 10), i.Unit, stock}
		}
	case models.Payments:
		return []string{"ORDER", "AMOUNT", "METHOD", "STATUS"}, func(e models.Entity) []string {
			p := e.(models.Payment)
			return []string{strconv.FormatInt(p.OrderID, 10), formatMoney(p.Amount), p.Method, p.Status}
		}
	}
	return nil, func(models.Entity) []string { return nil }
}

// formatMoney renders minor units as cedis with two decimals.
func formatMoney(minor int64) string {
	sign := ""
	if minor < 0 {
		sign, minor = "-", -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}

// sortRecords puts confirmed records first by id, then local ones in the
// order they were created.
func sortRecords(recs []*cmodels.Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.Confirmed() != b.Confirmed() {
			return a.Confirmed()
		}
		if a.Confirmed() {
			return a.ID < b.ID
		}
		return a.ID > b.ID
	})
}

// renderList writes records of type t as a table followed by the pending
// badge.
func renderList(w io.Writer, t models.EntityType, recs []*cmodels.Record) error {
	if len(recs) == 0 {
		_, err := fmt.Fprintf(w, "No %s yet.\n", t)
		return err
	}
	sortRecords(recs)

	head, cells := columns(t)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprint(tw, "ID\tSTATE")
	for _, h := range head {
		fmt.Fprint(tw, "\t", h)
	}
	fmt.Fprintln(tw)

	pending := 0
	for _, rec := range recs {
		if rec.PendingSync {
			pending++
		}
		fmt.Fprintf(tw, "%d\t%s", rec.ID, state(rec))
		for _, c := range cells(rec.Entity) {
			fmt.Fprint(tw, "\t", orDash(c))
		}
		fmt.Fprintln(tw)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if pending > 0 {
		_, err := fmt.Fprintf(w, "%d pending sync\n", pending)
		return err
	}
	return nil
}

func renderRecord(w io.Writer, rec *cmodels.Record) error {
	if _, err := fmt.Fprintf(w, "%s %d (%s)\n", rec.Type().Singular(), rec.ID, state(rec)); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, f := range rec.Entity.Fields() {
		if f.Value == "" {
			continue
		}
		fmt.Fprintf(tw, "  %s:\t%s\n", f.Name, f.Value)
	}
	return tw.Flush()
}

// renderPending lists the queue across types, tombstones included.
func renderPending(w io.Writer, recs []*cmodels.Record) error {
	if len(recs) == 0 {
		_, err := fmt.Fprintln(w, "Nothing waiting to sync.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tID\tSTATE")
	for _, rec := range recs {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", rec.Type(), rec.ID, state(rec))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d pending sync\n", len(recs))
	return err
}

// summaryToast is the line printed after a sync pass.
func summaryToast(s syncer.Summary) string {
	msg := s.Message()
	if total := s.Total(); total.Conflicts > 0 {
		msg += fmt.Sprintf(" (%d new conflicts, type 'conflicts' to review)", total.Conflicts)
	}
	return msg
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
