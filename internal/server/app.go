// Package server wires the tailorkeeper server together: storage, record
// services, the records gRPC endpoint and the HTTP liveness endpoint. It
// handles graceful shutdown on SIGINT, SIGTERM and SIGQUIT.
package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/tailorkeeper/internal/logging"
	"github.com/dmitrijs2005/tailorkeeper/internal/server/config"
	"github.com/dmitrijs2005/tailorkeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/tailorkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/tailorkeeper/internal/server/services"

	gs "github.com/dmitrijs2005/tailorkeeper/internal/server/grpc"
)

// MemoryDSN selects in-process storage instead of PostgreSQL. Records are
// lost when the server stops.
const MemoryDSN = "memory"

type runner interface {
	Run(ctx context.Context) error
}

type App struct {
	config      *config.Config
	logger      logging.Logger
	repomanager repomanager.RepositoryManager
	grpcServer  runner
	httpServer  runner
}

// NewApp opens storage, runs migrations and builds the servers.
func NewApp(ctx context.Context, c *config.Config, logOut io.Writer) (*App, error) {
	logger := logging.New(logOut, "json", c.LogLevel)

	rm, err := openStorage(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := rm.RunMigrations(ctx); err != nil {
		_ = rm.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	rs := services.NewRecordService(rm, logger)
	is := services.NewImageService(rs, c)

	return &App{
		config:      c,
		logger:      logger,
		repomanager: rm,
		grpcServer:  gs.NewGRPCServer(c.EndpointAddrGRPC, logger, rs, is, c.SecretKey),
		httpServer:  httpapi.NewServer(c.EndpointAddrHTTP, logger),
	}, nil
}

func openStorage(ctx context.Context, dsn string) (repomanager.RepositoryManager, error) {
	if dsn == MemoryDSN {
		return repomanager.NewInMemoryRepositoryManager(nil), nil
	}
	return repomanager.OpenPostgres(ctx, dsn)
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case s := <-sigs:
			app.logger.Info(ctx, "Received signal", "signal", s.String())
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

// startServer runs r until ctx is done. A server failure stops the others.
func (app *App) startServer(ctx context.Context, cancelFunc context.CancelFunc, name string, r runner) {
	if err := r.Run(ctx); err != nil {
		app.logger.Error(ctx, "server failed", "server", name, "error", err)
		cancelFunc()
	}
}

// Run serves until ctx is cancelled, a signal arrives, or a server fails.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(ctx, cancelFunc)

	var wg sync.WaitGroup
	for name, r := range map[string]runner{"grpc": app.grpcServer, "http": app.httpServer} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startServer(ctx, cancelFunc, name, r)
		}()
	}
	wg.Wait()

	if err := app.repomanager.Close(); err != nil {
		app.logger.Error(ctx, "closing storage", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
