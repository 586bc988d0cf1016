package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/tailorkeeper/internal/logging"
)

const (
	DefaultInterval     = 10 * time.Second
	DefaultProbeTimeout = 3 * time.Second
)

// LinkSource reports the state of the local network link.
type LinkSource interface {
	Online() bool
	// Watch streams link changes until ctx is done, then closes the channel.
	Watch(ctx context.Context) <-chan bool
}

// Prober checks that the server is reachable. Any error means offline.
type Prober interface {
	Probe(ctx context.Context) error
}

// Ticker drives the heartbeat.
type Ticker interface {
	Chan() <-chan time.Time
	Stop()
}

type realTicker struct{ t *time.Ticker }

func (r realTicker) Chan() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()                  { r.t.Stop() }

func newRealTicker(d time.Duration) Ticker { return realTicker{t: time.NewTicker(d)} }

type Option func(*Monitor)

func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

func WithProbeTimeout(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.probeTimeout = d
		}
	}
}

// WithTicker replaces the heartbeat ticker factory.
func WithTicker(f func(time.Duration) Ticker) Option {
	return func(m *Monitor) { m.newTicker = f }
}

func WithLogger(l logging.Logger) Option {
	return func(m *Monitor) { m.log = l }
}

// Monitor owns the online signal. Create it with New, then Start it; Stop
// releases its goroutine.
type Monitor struct {
	link         LinkSource
	prober       Prober
	interval     time.Duration
	probeTimeout time.Duration
	newTicker    func(time.Duration) Ticker
	log          logging.Logger

	mu      sync.Mutex
	online  bool
	subs    map[int]func(bool)
	nextSub int
	cancel  context.CancelFunc
	done    chan struct{}
}

func New(link LinkSource, prober Prober, opts ...Option) *Monitor {
	m := &Monitor{
		link:         link,
		prober:       prober,
		interval:     DefaultInterval,
		probeTimeout: DefaultProbeTimeout,
		newTicker:    newRealTicker,
		log:          logging.Nop(),
		subs:         make(map[int]func(bool)),
	}
	for _, o := range opts {
		o(m)
	}
	m.log = m.log.With("module", "connectivity")
	return m
}

// Start takes the initial state from the link and begins watching. Calling
// Start on a running monitor does nothing.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return
	}

	m.online = m.link.Online()
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})

	changes := m.link.Watch(ctx)
	ticker := m.newTicker(m.interval)
	go m.run(ctx, changes, ticker, m.done)

	m.log.Info(ctx, "connectivity monitor started", "online", m.online, "interval", m.interval)
}

// Stop ends the watch and waits for the monitor goroutine to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Subscribe registers fn for online/offline transitions.
func (m *Monitor) Subscribe(fn func(online bool)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

func (m *Monitor) run(ctx context.Context, changes <-chan bool, ticker Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// the link closes its channel once it sees ctx is done
			for changes != nil {
				if _, ok := <-changes; !ok {
					changes = nil
				}
			}
			return

		case v, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			m.set(ctx, v, "link")

		case <-ticker.Chan():
			pctx, cancel := context.WithTimeout(ctx, m.probeTimeout)
			err := m.prober.Probe(pctx)
			cancel()
			if ctx.Err() != nil {
				continue
			}
			if err != nil {
				m.log.Debug(ctx, "liveness probe failed", "error", err)
			}
			m.set(ctx, err == nil, "probe")
		}
	}
}

// set records an observation and notifies subscribers if it changes the state.
func (m *Monitor) set(ctx context.Context, online bool, source string) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	fns := make([]func(bool), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	m.log.Info(ctx, "connectivity changed", "online", online, "source", source)
	for _, fn := range fns {
		fn(online)
	}
}
