package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// execIface defines the command surface the REPL dispatches to. The real App
// satisfies it; tests provide a lightweight stub. Handlers report their own
// errors.
type execIface interface {
	Status(ctx context.Context, args []string) error
	List(ctx context.Context, args []string) error
	Show(ctx context.Context, args []string) error
	Add(ctx context.Context, args []string) error
	Edit(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	Pending(ctx context.Context, args []string) error
	Conflicts(ctx context.Context, args []string) error
	Resolve(ctx context.Context, args []string) error
	Sync(ctx context.Context, args []string) error
	AttachImage(ctx context.Context, args []string) error
}

const helpText = `Available commands:
  status                         connection and queue state
  list <type>                    list clients, orders, inventory or payments
  show <type> <id>               show one record
  add <type>                     add a record
  edit <type> <id>               edit a record
  delete <type> <id...>          delete one or more records
  pending                        records waiting to sync
  conflicts                      records changed on both sides
  resolve <type> <id> local|server
  sync                           sync now
  attach-image <orderID> <path>  upload a reference image for an order
  exit | quit`

// runREPL reads a line from in, parses the first token as the command and
// dispatches to a. The loop exits on EOF or on "exit"/"quit". The prompt
// shows statusFn's result. Handlers that prompt for input read from the same
// reader, so no input is buffered outside it.
func runREPL(ctx context.Context, a execIface, statusFn func() string, in *bufio.Reader, w io.Writer) {
	commands := map[string]func(context.Context, []string) error{
		"status":       a.Status,
		"l":            a.List,
		"list":         a.List,
		"show":         a.Show,
		"add":          a.Add,
		"edit":         a.Edit,
		"delete":       a.Delete,
		"rm":           a.Delete,
		"pending":      a.Pending,
		"conflicts":    a.Conflicts,
		"resolve":      a.Resolve,
		"sync":         a.Sync,
		"attach-image": a.AttachImage,
	}

	for {
		fmt.Fprintf(w, "tk (%s)> ", statusFn())
		line, err := in.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			fmt.Fprintln(w, helpText)
			continue
		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return
		}

		run, ok := commands[cmd]
		if !ok {
			fmt.Fprintln(w, "Unknown command:", cmd)
			continue
		}
		if err := run(ctx, args); err != nil {
			fmt.Fprintln(w, "Error:", err)
		}
	}
}
