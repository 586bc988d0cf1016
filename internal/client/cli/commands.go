package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/dmitrijs2005/tailorkeeper/internal/client/conflicts"
	"github.com/dmitrijs2005/tailorkeeper/internal/common"
	"github.com/dmitrijs2005/tailorkeeper/internal/models"
)

// ErrUsage is returned when a command gets the wrong arguments.
var ErrUsage = errors.New("usage")

func usage(s string) error {
	return fmt.Errorf("%w: %s", ErrUsage, s)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: %q is not a record id", common.ErrValidation, s)
	}
	return id, nil
}

// typeAndID parses "<type> <id>".
func typeAndID(args []string, cmd string) (models.EntityType, int64, error) {
	if len(args) != 2 {
		return "", 0, usage(cmd + " <type> <id>")
	}
	t, err := models.ParseEntityType(args[0])
	if err != nil {
		return "", 0, err
	}
	id, err := parseID(args[1])
	return t, id, err
}

func (a *App) form() form {
	return form{r: a.reader, w: a.out}
}

func (a *App) Status(ctx context.Context, _ []string) error {
	online := a.link != nil && a.link.Online()
	pending, err := a.records.PendingCount(ctx)
	if err != nil {
		return err
	}
	conflicted, err := a.records.Conflicted(ctx)
	if err != nil {
		return err
	}

	mode := "Offline: changes are saved on this device and sync when the connection returns"
	if online {
		mode = "Online"
	}
	fmt.Fprintln(a.out, mode)
	fmt.Fprintf(a.out, "%d pending sync, %d conflicts\n", pending, len(conflicted))
	return nil
}

func (a *App) List(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("list <type>")
	}
	t, err := models.ParseEntityType(args[0])
	if err != nil {
		return err
	}
	recs, err := a.records.List(ctx, t)
	if err != nil {
		return err
	}
	return renderList(a.out, t, recs)
}

func (a *App) Show(ctx context.Context, args []string) error {
	t, id, err := typeAndID(args, "show")
	if err != nil {
		return err
	}
	rec, err := a.records.Get(ctx, t, id)
	if err != nil {
		return err
	}
	return renderRecord(a.out, rec)
}

func (a *App) Add(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("add <type>")
	}
	t, err := models.ParseEntityType(args[0])
	if err != nil {
		return err
	}
	e, err := a.form().entity(t, nil)
	if err != nil {
		return err
	}
	rec, err := a.records.Add(ctx, e)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Saved %s %d (pending sync)\n", t.Singular(), rec.ID)
	return nil
}

func (a *App) Edit(ctx context.Context, args []string) error {
	t, id, err := typeAndID(args, "edit")
	if err != nil {
		return err
	}
	cur, err := a.records.Get(ctx, t, id)
	if err != nil {
		return err
	}
	if cur.Conflict {
		return fmt.Errorf("%s %d: %w; run 'resolve %s %d local|server' first",
			t.Singular(), id, common.ErrConflictPending, t, id)
	}

	fmt.Fprintln(a.out, "Press Enter to keep a value, '-' to clear it.")
	e, err := a.form().entity(t, cur.Entity)
	if err != nil {
		return err
	}
	if _, err := a.records.Edit(ctx, t, id, e); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Saved %s %d (pending sync)\n", t.Singular(), id)
	return nil
}

func (a *App) Delete(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return usage("delete <type> <id...>")
	}
	t, err := models.ParseEntityType(args[0])
	if err != nil {
		return err
	}
	ids := make([]int64, 0, len(args)-1)
	for _, s := range args[1:] {
		id, err := parseID(s)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}

	if len(ids) == 1 {
		if err := a.records.Remove(ctx, t, ids[0]); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Deleted %s %d\n", t.Singular(), ids[0])
		return nil
	}

	n, err := a.records.BulkRemove(ctx, t, ids)
	fmt.Fprintf(a.out, "Deleted %d of %d %s\n", n, len(ids), t)
	return err
}

func (a *App) Pending(ctx context.Context, _ []string) error {
	recs, err := a.records.Pending(ctx)
	if err != nil {
		return err
	}
	return renderPending(a.out, recs)
}

func (a *App) Conflicts(ctx context.Context, _ []string) error {
	recs, err := a.resolver.ListAll(ctx)
	if err != nil {
		return err
	}
	if err := conflicts.Render(a.out, recs); err != nil {
		return err
	}
	if len(recs) > 0 {
		fmt.Fprintln(a.out, "\nResolve with: resolve <type> <id> local|server")
	}
	return nil
}

func (a *App) Resolve(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return usage("resolve <type> <id> local|server")
	}
	t, id, err := typeAndID(args[:2], "resolve")
	if err != nil {
		return err
	}
	choice, err := conflicts.ParseChoice(args[2])
	if err != nil {
		return err
	}

	ok, err := a.resolver.Resolve(ctx, t, id, choice)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintf(a.out, "%s %d has no conflict\n", t.Singular(), id)
		return nil
	}
	if choice == conflicts.KeepLocal {
		fmt.Fprintf(a.out, "Kept your version of %s %d; it will overwrite the server on the next sync\n", t.Singular(), id)
	} else {
		fmt.Fprintf(a.out, "Took the server version of %s %d\n", t.Singular(), id)
	}
	return nil
}

func (a *App) Sync(ctx context.Context, _ []string) error {
	if a.link != nil && !a.link.Online() {
		fmt.Fprintln(a.out, "Offline: changes will sync when the connection returns")
		return nil
	}

	a.manualSync.Store(true)
	sum, err := a.engine.SyncAll(ctx)
	a.manualSync.Store(false)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, sum.String())
	return nil
}

func (a *App) AttachImage(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usage("attach-image <orderID> <path>")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	data, err := os.ReadFile(args[1])
	if err != nil {
		return err
	}
	rec, err := a.images.Attach(ctx, id, data)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Image attached to order %d: %s\n", rec.ID, rec.Entity.(models.Order).ImageURL)
	return nil
}
