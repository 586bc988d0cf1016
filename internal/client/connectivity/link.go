package connectivity

import (
	"context"
	"net"
	"time"
)

// InterfaceLink reports the link as up when some non-loopback interface is up
// and has an address. It polls because the standard library offers no
// interface change notifications.
type InterfaceLink struct {
	poll  time.Duration
	check func() bool
}

func NewInterfaceLink(poll time.Duration) *InterfaceLink {
	if poll <= 0 {
		poll = 2 * time.Second
	}
	return &InterfaceLink{poll: poll, check: hasUsableInterface}
}

func (l *InterfaceLink) Online() bool { return l.check() }

func (l *InterfaceLink) Watch(ctx context.Context) <-chan bool {
	out := make(chan bool)
	go func() {
		defer close(out)

		t := time.NewTicker(l.poll)
		defer t.Stop()

		last := l.check()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				cur := l.check()
				if cur == last {
					continue
				}
				last = cur
				select {
				case out <- cur:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func hasUsableInterface() bool {
	ifaces, err := net.Interfaces()
	if err != nil {
		return false
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err == nil && len(addrs) > 0 {
			return true
		}
	}
	return false
}

// StaticLink is a LinkSource that never changes. It is used when interface
// detection is disabled, leaving the decision to the probe.
type StaticLink bool

func (s StaticLink) Online() bool { return bool(s) }

func (StaticLink) Watch(ctx context.Context) <-chan bool {
	out := make(chan bool)
	go func() {
		<-ctx.Done()
		close(out)
	}()
	return out
}
