package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"featnav/internal/config"
	"featnav/internal/console"
	"featnav/internal/identity"
	"featnav/internal/logging"
	"featnav/internal/ssh"
)

var clilog = logging.For("cli")

func newConsoleCommand(opts *rootOptions) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "console",
		Short: "Navigate interactively (also serves SSH when ssh.listen is set)",
		Long: "console loads the source and reads commands from standard input. " +
			"On a terminal the session is interactive; otherwise each input line is run as a command. " +
			"When an SSH listen address is configured, remote operators share the same navigator.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen != "" {
				opts.cfg.SSH.Listen = listen
			}
			return runConsole(cmd.Context(), opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&listen, "ssh-listen", "", "SSH listen address (overrides config)")
	return cmd
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the console over SSH only",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen != "" {
				opts.cfg.SSH.Listen = listen
			}
			if opts.cfg.SSH.Listen == "" {
				return NewExitError(ExitCommandError, "serve needs an SSH listen address (ssh.listen or --ssh-listen)")
			}
			return runServe(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&listen, "ssh-listen", "", "SSH listen address (overrides config)")
	return cmd
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func banner(a *app, n int) string {
	return fmt.Sprintf("featnav: %s records from %s. Type /help for commands.",
		a.env.Format.Number(n), a.nav.Source().Name())
}

// runConsole runs the local session, plus the SSH server when configured,
// until the local session ends or a signal arrives.
func runConsole(parent context.Context, opts *rootOptions, in io.Reader, out io.Writer) error {
	cfg := opts.cfg
	tty, interactive := in.(*os.File)
	interactive = interactive && term.IsTerminal(int(tty.Fd()))
	withHub := interactive || cfg.SSH.Listen != ""

	if interactive {
		logFile, err := redirectLogs(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = logFile.Close() }()
	}

	var statusOut io.Writer
	if !withHub {
		statusOut = out
	}
	a, err := newApp(cfg, withHub, statusOut)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctx, stop := signalContext(parent)
	defer stop()

	n, err := a.load(ctx)
	if err != nil {
		return err
	}
	con := a.console()
	con.Banner = banner(a, n)

	g, gctx := errgroup.WithContext(ctx)
	if cfg.SSH.Listen != "" {
		srv, err := newSSHServer(a, con)
		if err != nil {
			return err
		}
		g.Go(func() error { return srv.Start(gctx) })
		g.Go(func() error {
			<-gctx.Done()
			srv.Stop()
			return nil
		})
	}

	// stdin reads cannot be interrupted, so the local session is not part
	// of the group; a signal ends the command without waiting for it.
	local := make(chan error, 1)
	go func() {
		if interactive {
			local <- serveTerminal(gctx, con, tty, out, cfg.Console.Prompt)
			return
		}
		operator := localOperator()
		local <- con.Serve(gctx, console.Lines(in, out), operator, console.SessionKey(operator, 0))
	}()

	var sessionErr error
	select {
	case sessionErr = <-local:
	case <-gctx.Done():
	}
	stop()
	if err := g.Wait(); err != nil {
		return WrapExitError(ExitFailure, "ssh server", err)
	}
	if sessionErr != nil {
		return WrapExitError(ExitFailure, "console session", sessionErr)
	}
	return nil
}

// serveTerminal runs the local session on a raw-mode terminal.
func serveTerminal(ctx context.Context, con *console.Console, in *os.File, out io.Writer, prompt string) error {
	operator := localOperator()
	key := console.SessionKey(operator, 0)
	fd := int(in.Fd())
	old, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("raw terminal: %w", err)
	}
	defer func() { _ = term.Restore(fd, old) }()

	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{in, out}, prompt)
	if w, h, err := term.GetSize(fd); err == nil {
		_ = t.SetSize(w, h)
	}
	return con.Serve(ctx, t, operator, key)
}

// redirectLogs moves log output to featnav.log in the data directory so it
// does not interleave with the raw-mode terminal.
func redirectLogs(cfg *config.Config) (*os.File, error) {
	if err := os.MkdirAll(cfg.SSH.DataDir, 0700); err != nil {
		return nil, WrapExitError(ExitCommandError, "creating data dir", err)
	}
	path := filepath.Join(cfg.SSH.DataDir, "featnav.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "opening log file", err)
	}
	logging.InitWriter(f, cfg.Logging.Level, cfg.Logging.Format)
	return f, nil
}

func localOperator() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "local"
}

func newSSHServer(a *app, con *console.Console) (*ssh.Server, error) {
	cfg := a.cfg
	if err := os.MkdirAll(cfg.SSH.DataDir, 0700); err != nil {
		return nil, WrapExitError(ExitCommandError, "creating data dir", err)
	}
	hk, err := identity.Load(cfg.SSH.DataDir)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "host key", err)
	}
	authKeysPath := filepath.Join(cfg.SSH.DataDir, "authorized_keys")
	srv, err := ssh.NewServer(cfg.SSH.Listen, hk, con, cfg.Console.Prompt, authKeysPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "ssh", err)
	}
	return srv, nil
}

// runServe serves SSH sessions until a signal arrives.
func runServe(parent context.Context, opts *rootOptions, out io.Writer) error {
	a, err := newApp(opts.cfg, true, nil)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctx, stop := signalContext(parent)
	defer stop()

	n, err := a.load(ctx)
	if err != nil {
		return err
	}
	con := a.console()
	con.Banner = banner(a, n)

	srv, err := newSSHServer(a, con)
	if err != nil {
		return err
	}
	if err := srv.Listen(); err != nil {
		return WrapExitError(ExitCommandError, "ssh", err)
	}
	_, _ = fmt.Fprintf(out, "Serving %s records from %s on %s\n", a.env.Format.Number(n), a.nav.Source().Name(), srv.Addr())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Serve(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		clilog.Info("shutting down")
		srv.Stop()
		return nil
	})
	if err := g.Wait(); err != nil {
		return WrapExitError(ExitFailure, "ssh server", err)
	}
	return nil
}
