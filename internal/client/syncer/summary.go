package syncer

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/tailorkeeper/internal/models"
)

// TypeSummary counts what happened to one entity type's queue.
type TypeSummary struct {
	// Attempted records were sent to the server.
	Attempted int
	Synced    int
	Failed    int
	// Conflicts were detected during this pass.
	Conflicts int
	// Deferred records reference a parent that has no server id yet.
	Deferred int
	// Blocked records were already conflicted and were skipped.
	Blocked int
	// Pulled counts local rows added, replaced or removed by the refresh.
	Pulled int
}

func (t TypeSummary) add(o TypeSummary) TypeSummary {
	return TypeSummary{
		Attempted: t.Attempted + o.Attempted,
		Synced:    t.Synced + o.Synced,
		Failed:    t.Failed + o.Failed,
		Conflicts: t.Conflicts + o.Conflicts,
		Deferred:  t.Deferred + o.Deferred,
		Blocked:   t.Blocked + o.Blocked,
		Pulled:    t.Pulled + o.Pulled,
	}
}

func (t TypeSummary) clean() bool {
	return t.Failed == 0 && t.Conflicts == 0 && t.Deferred == 0 && t.Blocked == 0
}

// Summary is the outcome of one pass.
type Summary struct {
	Types         map[models.EntityType]TypeSummary
	RefreshFailed bool
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Total sums the per-type counts.
func (s Summary) Total() TypeSummary {
	var total TypeSummary
	for _, t := range s.Types {
		total = total.add(t)
	}
	return total
}

// AllSynced reports whether every pending record reached the server.
func (s Summary) AllSynced() bool {
	return s.Total().clean()
}

// Message is the one-line notice shown to the user after a pass.
func (s Summary) Message() string {
	total := s.Total()
	switch {
	case !total.clean():
		return "Some changes could not be synced"
	case total.Attempted == 0:
		return "Nothing to sync"
	default:
		return "All synced"
	}
}

func (s Summary) String() string {
	var b strings.Builder
	b.WriteString(s.Message())
	for _, t := range models.All() {
		ts, ok := s.Types[t]
		if !ok || ts == (TypeSummary{}) {
			continue
		}
		fmt.Fprintf(&b, "\n  %-9s synced %d/%d", t, ts.Synced, ts.Attempted)
		if ts.Failed > 0 {
			fmt.Fprintf(&b, ", failed %d", ts.Failed)
		}
		if ts.Conflicts > 0 {
			fmt.Fprintf(&b, ", conflicts %d", ts.Conflicts)
		}
		if ts.Deferred > 0 {
			fmt.Fprintf(&b, ", waiting for parent %d", ts.Deferred)
		}
		if ts.Blocked > 0 {
			fmt.Fprintf(&b, ", unresolved %d", ts.Blocked)
		}
		if ts.Pulled > 0 {
			fmt.Fprintf(&b, ", refreshed %d", ts.Pulled)
		}
	}
	return b.String()
}

// collector gathers per-type results from parallel stages.
type collector struct {
	mu    sync.Mutex
	types map[models.EntityType]TypeSummary
}

func newCollector() *collector {
	return &collector{types: make(map[models.EntityType]TypeSummary)}
}

func (c *collector) add(t models.EntityType, ts TypeSummary) {
	c.mu.Lock()
	c.types[t] = c.types[t].add(ts)
	c.mu.Unlock()
}

func (c *collector) snapshot() map[models.EntityType]TypeSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[models.EntityType]TypeSummary, len(c.types))
	for k, v := range c.types {
		out[k] = v
	}
	return out
}
