// Package cli implements the interactive tailorkeeper client.
//
// The REPL reads one command per line. Every write goes to the local store
// first and works offline; the status line shows the connection state and
// how many records are waiting to sync. Connectivity changes and sync
// results are announced as one-line toasts between prompts.
package cli
