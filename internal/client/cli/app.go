package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/tailorkeeper/internal/auth"
	"github.com/dmitrijs2005/tailorkeeper/internal/client/config"
	"github.com/dmitrijs2005/tailorkeeper/internal/client/conflicts"
	"github.com/dmitrijs2005/tailorkeeper/internal/client/connectivity"
	cmodels "github.com/dmitrijs2005/tailorkeeper/internal/client/models"
	"github.com/dmitrijs2005/tailorkeeper/internal/client/remote"
	"github.com/dmitrijs2005/tailorkeeper/internal/client/services"
	"github.com/dmitrijs2005/tailorkeeper/internal/client/store"
	"github.com/dmitrijs2005/tailorkeeper/internal/client/syncer"
	"github.com/dmitrijs2005/tailorkeeper/internal/filex"
	"github.com/dmitrijs2005/tailorkeeper/internal/logging"
	"github.com/dmitrijs2005/tailorkeeper/internal/models"
)

type syncRunner interface {
	SyncAll(ctx context.Context) (syncer.Summary, error)
}

type linkState interface {
	Online() bool
}

type imageAttacher interface {
	Attach(ctx context.Context, orderID int64, data []byte) (*cmodels.Record, error)
}

type conflictResolver interface {
	Resolve(ctx context.Context, t models.EntityType, id int64, choice conflicts.Choice) (bool, error)
	ListAll(ctx context.Context) ([]*cmodels.Record, error)
}

// App is the interactive client: the REPL plus the background sync wiring.
type App struct {
	records  services.RecordService
	images   imageAttacher
	resolver conflictResolver
	engine   syncRunner
	link     linkState

	out    io.Writer
	reader *bufio.Reader
	log    logging.Logger

	// start launches background work and returns the func that stops it.
	start   func(ctx context.Context) (stop func())
	closers []func() error

	manualSync atomic.Bool
}

// lockedWriter serializes REPL output with toasts printed from background
// goroutines.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// NewApp opens the local store and wires the remote client, connectivity
// monitor, sync engine and services. When cfg has no token the user is
// prompted for one.
func NewApp(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) (*App, error) {
	logger := logging.New(os.Stderr, "text", cfg.LogLevel)
	a := &App{
		out:    &lockedWriter{w: out},
		reader: bufio.NewReader(in),
		log:    logger.With("module", "cli"),
	}

	token := cfg.Token
	if token == "" {
		t, err := GetToken(a.out)
		if err != nil {
			return nil, fmt.Errorf("read token: %w", err)
		}
		token = t
	}
	owner, err := auth.OwnerFromTokenUnverified(token)
	if err != nil {
		return nil, fmt.Errorf("access token: %w", err)
	}

	if err := filex.EnsureParentDir(cfg.DBPath); err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}
	st, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}
	rc, err := remote.Dial(cfg.ServerEndpointAddr, token)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	mon := connectivity.New(
		connectivity.NewInterfaceLink(0),
		connectivity.NewHTTPProber(cfg.PingURL, nil),
		connectivity.WithInterval(cfg.OnlineCheckInterval),
		connectivity.WithProbeTimeout(cfg.ProbeTimeout),
		connectivity.WithLogger(logger),
	)
	engine := syncer.New(st, rc,
		syncer.WithCallTimeout(cfg.CallTimeout),
		syncer.WithRefresh(cfg.Refresh),
		syncer.WithNotifier(syncer.NotifierFunc(a.onSyncFinished)),
		syncer.WithLogger(logger),
		syncer.WithOwner(owner),
	)
	records := services.NewRecordService(st, owner,
		services.WithSync(engine, mon),
		services.WithLogger(logger),
	)

	a.records = records
	a.images = services.NewImageService(records, rc, nil, logger)
	a.resolver = conflicts.New(st, conflicts.WithLogger(logger))
	a.engine = engine
	a.link = mon
	a.closers = []func() error{rc.Close, st.Close}
	a.start = func(ctx context.Context) func() {
		mon.Start(ctx)
		detach := engine.Attach(ctx, mon)
		unsubscribe := mon.Subscribe(a.onConnectivity)
		if mon.Online() {
			engine.Trigger(ctx)
		}
		return func() {
			unsubscribe()
			detach()
			mon.Stop()
			engine.Wait()
		}
	}
	return a, nil
}

// Run starts background sync and runs the REPL until exit or EOF.
func (a *App) Run(ctx context.Context) error {
	fmt.Fprintln(a.out, "Welcome to tailorkeeper (type 'help' for commands)")

	if a.start != nil {
		stop := a.start(ctx)
		defer stop()
	}

	runREPL(ctx, a, a.status, a.reader, a.out)
	return nil
}

// Close releases the remote connection and the local store.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

func (a *App) toast(format string, args ...any) {
	fmt.Fprintf(a.out, "\n[%s]\n", fmt.Sprintf(format, args...))
}

func (a *App) onConnectivity(online bool) {
	if online {
		a.toast("Back online, syncing changes")
		return
	}
	a.toast("You are offline. Changes are saved on this device")
}

func (a *App) onSyncFinished(s syncer.Summary) {
	if a.manualSync.Load() {
		return
	}
	if s.Total() == (syncer.TypeSummary{}) {
		return
	}
	a.toast("%s", summaryToast(s))
}

// status is shown in the prompt.
func (a *App) status() string {
	mode := "offline"
	if a.link != nil && a.link.Online() {
		mode = "online"
	}
	n, err := a.records.PendingCount(context.Background())
	if err != nil || n == 0 {
		return mode
	}
	return fmt.Sprintf("%s, %d pending", mode, n)
}
