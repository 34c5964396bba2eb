// Package console is the operator command surface: a registry of slash
// commands, the navigation commands that drive the navigator, and a
// read-eval loop shared by the local terminal and SSH sessions.
package console

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Context holds the state available to command handlers.
type Context struct {
	Ctx     context.Context
	Out     io.Writer
	Session *Session
	Args    []string
}

// Handler processes a command. It returns true if the session should end
// (e.g. /quit).
type Handler func(c Context) bool

// Command describes a registered command.
type Command struct {
	Usage   string // full usage for help (e.g. "/goto <oid>"); defaults to the name
	Help    string
	Aliases []string // single-word shortcuts typed without the slash, e.g. "n"
	Handler Handler
}

// Registrar is the interface for registering commands before sessions start.
type Registrar interface {
	Register(name string, cmd Command)
}

// Registry maps command names and aliases to handlers and produces help.
// It is safe for concurrent use; Dispatch and HelpText may be called from
// several sessions at once. Once frozen, no new commands can be registered.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]Command
	aliases  map[string]string
	order    []string // insertion order for stable help output
	frozen   bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]Command),
		aliases:  make(map[string]string),
	}
}

// Register adds a command. The name includes the leading slash. Registering
// the same name twice overwrites the previous entry. Panics if the handler
// is nil or the registry is frozen.
func (r *Registry) Register(name string, cmd Command) {
	if cmd.Handler == nil {
		panic("console: Register called with nil handler for " + name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		panic("console: Register called on frozen registry for " + name)
	}
	if _, exists := r.commands[name]; !exists {
		r.order = append(r.order, name)
	}
	r.commands[name] = cmd
	for _, a := range cmd.Aliases {
		r.aliases[strings.ToLower(a)] = name
	}
}

// Freeze prevents further registration.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// IsCommand reports whether line would be dispatched to a command rather
// than treated as a note: it starts with a slash or its first word is an
// alias.
func (r *Registry) IsCommand(line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	if strings.HasPrefix(parts[0], "/") {
		return true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.aliases[strings.ToLower(parts[0])]
	return ok
}

// Dispatch parses a command line and calls the matching handler.
// Returns true if the session should end.
func (r *Registry) Dispatch(ctx context.Context, line string, session *Session, out io.Writer) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	name := parts[0]
	args := parts[1:]

	r.mu.RLock()
	if target, ok := r.aliases[strings.ToLower(name)]; ok {
		name = target
	}
	cmd, ok := r.commands[strings.ToLower(name)]
	r.mu.RUnlock()

	if !ok {
		_, _ = fmt.Fprintf(out, "Unknown command: %s (try /help)\n", parts[0])
		return false
	}

	return cmd.Handler(Context{
		Ctx:     ctx,
		Out:     out,
		Session: session,
		Args:    args,
	})
}

// HelpText lists all registered commands in registration order.
func (r *Registry) HelpText() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var b strings.Builder
	b.WriteString("Commands:\n")
	for _, name := range r.order {
		cmd := r.commands[name]
		display := name
		if cmd.Usage != "" {
			display = cmd.Usage
		}
		if len(cmd.Aliases) > 0 {
			display += " (" + strings.Join(cmd.Aliases, ", ") + ")"
		}
		_, _ = fmt.Fprintf(&b, "  %-30s %s\n", display, cmd.Help)
	}
	return b.String()
}

// RegisterBuiltins registers /help and /quit.
func (r *Registry) RegisterBuiltins() {
	r.Register("/help", Command{
		Help: "show this help",
		Handler: func(c Context) bool {
			_, _ = fmt.Fprint(c.Out, r.HelpText())
			return false
		},
	})

	r.Register("/quit", Command{
		Aliases: []string{"q"},
		Help:    "end the session",
		Handler: func(c Context) bool {
			_, _ = fmt.Fprintln(c.Out, "Goodbye.")
			return true
		},
	})
}
