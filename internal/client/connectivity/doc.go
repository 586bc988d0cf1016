// Package connectivity decides whether the client is online.
//
// A Monitor combines two signals: the link state reported by a LinkSource
// (is any network interface up) and a periodic liveness probe against the
// server. The link signal is applied as soon as it changes; every heartbeat
// the probe result overrides it in either direction, so a stale "link up"
// cannot keep the client online while the server is unreachable.
//
// Subscribers are called once per actual transition, in order, on the
// monitor's goroutine. They must return quickly.
package connectivity
