package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"featnav/internal/logging"
	"featnav/internal/status"
)

var consolelog = logging.For("console")

// Terminal is a line-oriented operator connection. *term.Terminal
// satisfies it; Lines adapts a plain reader for scripted input.
type Terminal interface {
	io.Writer
	ReadLine() (string, error)
}

// Session is one attached operator.
type Session struct {
	Operator string
	Key      string // unique per connection, used for rate limiting
	Status   *status.Session
}

// Console ties the registry, the command environment and the rate limiter
// together and runs operator sessions.
type Console struct {
	Registry *Registry
	Env      *Env
	Limiter  *RateLimiter
	Banner   string
}

// New builds a console with the builtin and navigation commands registered.
// The registry is left open so callers can add commands before Serve.
func New(env *Env, limiter *RateLimiter) *Console {
	reg := NewRegistry()
	RegisterNavigation(reg, env)
	reg.RegisterBuiltins()
	return &Console{Registry: reg, Env: env, Limiter: limiter}
}

// Serve runs one operator session until /quit, end of input or ctx
// cancellation. With a hub the session attaches to it and status lines are
// copied to the terminal as they arrive; text that is not a command is
// shared with the other operators as a note.
func (c *Console) Serve(ctx context.Context, t Terminal, operator, key string) error {
	c.Registry.Freeze()

	session := &Session{Operator: operator, Key: key}
	hub := c.Env.Hub
	done := make(chan struct{})
	if hub != nil {
		session.Status = hub.Join(operator)
		go func() {
			defer close(done)
			for line := range session.Status.Send {
				_, _ = fmt.Fprintln(t, line)
			}
		}()
	} else {
		close(done)
	}
	defer func() {
		if hub != nil {
			hub.Leave(session.Status)
		}
		<-done
		c.Limiter.Forget(key)
		consolelog.Info("session ended", "operator", operator, "session", key)
	}()

	consolelog.Info("session started", "operator", operator, "session", key)
	if c.Banner != "" {
		_, _ = fmt.Fprintln(t, c.Banner)
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		line, err := t.ReadLine()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("read command: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !c.Limiter.Allow(key) {
			_, _ = fmt.Fprintln(t, "Slow down: command rate limit reached")
			consolelog.Warn("command rate limited", "operator", operator, "session", key)
			continue
		}
		if !c.Registry.IsCommand(line) {
			if hub == nil {
				_, _ = fmt.Fprintf(t, "Unknown command: %s (try /help)\n", line)
				continue
			}
			hub.Announce(session.Status, line)
			continue
		}
		consolelog.Debug("command", "operator", operator, "line", line)
		if c.Registry.Dispatch(ctx, line, session, t) {
			return nil
		}
	}
}

// Lines adapts r to Terminal for scripted, non-interactive sessions.
func Lines(r io.Reader, w io.Writer) Terminal {
	return &lineTerminal{Writer: w, scanner: bufio.NewScanner(r)}
}

type lineTerminal struct {
	io.Writer
	scanner *bufio.Scanner
}

func (l *lineTerminal) ReadLine() (string, error) {
	if l.scanner.Scan() {
		return l.scanner.Text(), nil
	}
	if err := l.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

// SessionKey builds a connection key from an operator and a sequence number.
func SessionKey(operator string, seq uint64) string {
	return operator + "#" + strconv.FormatUint(seq, 10)
}
