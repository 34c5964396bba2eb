// Package ssh serves the operator console over SSH. Every connection runs
// its own console session against the shared navigator, so moves made by
// one operator are seen by all of them through the status hub.
package ssh

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"

	gossh "golang.org/x/crypto/ssh"
	"golang.org/x/term"

	"featnav/internal/console"
	"featnav/internal/identity"
	"featnav/internal/logging"
)

var sshlog = logging.For("ssh")

// Server is an SSH server that exposes the console to connected operators.
type Server struct {
	addr     string
	key      *identity.HostKey
	console  *console.Console
	prompt   string
	authKeys []gossh.PublicKey
	config   *gossh.ServerConfig
	listener net.Listener
	seq      atomic.Uint64

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

// NewServer creates an SSH server. authKeysPath points to an authorized_keys
// file in OpenSSH format. If the file doesn't exist, the server starts but
// rejects all connections.
func NewServer(addr string, key *identity.HostKey, con *console.Console, prompt, authKeysPath string) (*Server, error) {
	s := &Server{
		addr:    addr,
		key:     key,
		console: con,
		prompt:  prompt,
		conns:   make(map[net.Conn]struct{}),
	}

	s.authKeys = loadAuthorizedKeys(authKeysPath)
	if len(s.authKeys) == 0 {
		sshlog.Warn("no authorized keys loaded", "path", authKeysPath)
	}

	s.config = &gossh.ServerConfig{
		PublicKeyCallback: s.publicKeyCallback,
	}
	s.config.AddHostKey(key.Signer)

	return s, nil
}

// Listen binds the server socket. Call Serve to start accepting connections.
// Once Listen is called, the command registry is frozen and no new commands
// can be registered.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.console.Registry.Freeze()
	sshlog.Info("console listening", "addr", ln.Addr().String(), "fingerprint", s.key.Fingerprint)

	return nil
}

// Addr returns the listener's address. Useful when listening on :0.
func (s *Server) Addr() string {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return ""
	}
	return ln.Addr().String()
}

// Serve accepts SSH connections until ctx is cancelled. Call Listen first.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return fmt.Errorf("Serve called before Listen")
	}

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil // clean shutdown
			}
			sshlog.Warn("accept error", "err", err)
			continue
		}

		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		go s.handleConnection(ctx, conn)
	}
}

// Start is a convenience that calls Listen + Serve.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Stop closes the listener and all active connections.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	for conn := range s.conns {
		_ = conn.Close()
	}
}

// Commands returns the console's command registry so callers can add
// commands before the server starts. Register panics after Listen.
func (s *Server) Commands() console.Registrar {
	return s.console.Registry
}

func (s *Server) removeConn(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

func (s *Server) publicKeyCallback(meta gossh.ConnMetadata, key gossh.PublicKey) (*gossh.Permissions, error) {
	keyBytes := key.Marshal()
	for _, authorized := range s.authKeys {
		if bytes.Equal(keyBytes, authorized.Marshal()) {
			return &gossh.Permissions{}, nil
		}
	}
	return nil, fmt.Errorf("unknown public key for %s", meta.User())
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer func() { _ = conn.Close() }()
	defer s.removeConn(conn)

	sshConn, chans, reqs, err := gossh.NewServerConn(conn, s.config)
	if err != nil {
		sshlog.Warn("handshake failed", "remote", conn.RemoteAddr(), "err", err)
		return
	}
	defer func() { _ = sshConn.Close() }()

	sshlog.Info("client connected", "remote", conn.RemoteAddr(), "user", sshConn.User())
	go gossh.DiscardRequests(reqs)

	for newChan := range chans {
		if newChan.ChannelType() != "session" {
			_ = newChan.Reject(gossh.UnknownChannelType, "unsupported channel type")
			continue
		}
		channel, requests, err := newChan.Accept()
		if err != nil {
			sshlog.Warn("channel accept error", "err", err)
			continue
		}
		go s.handleSession(ctx, channel, requests, sshConn)
	}
}

func (s *Server) handleSession(ctx context.Context, ch gossh.Channel, reqs <-chan *gossh.Request, conn *gossh.ServerConn) {
	defer func() { _ = ch.Close() }()

	// Wait for pty-req and shell before starting the terminal.
	// Drain other requests in the background once shell is received.
	for req := range reqs {
		switch req.Type {
		case "pty-req":
			if req.WantReply {
				_ = req.Reply(true, nil)
			}
		case "shell":
			if req.WantReply {
				_ = req.Reply(true, nil)
			}
			go func() {
				for req := range reqs {
					if req.WantReply {
						_ = req.Reply(false, nil)
					}
				}
			}()
			s.runTerminal(ctx, ch, conn)
			return
		default:
			if req.WantReply {
				_ = req.Reply(false, nil)
			}
		}
	}
}

func (s *Server) runTerminal(ctx context.Context, ch gossh.Channel, conn *gossh.ServerConn) {
	operator := conn.User()
	terminal := term.NewTerminal(ch, s.prompt)
	key := console.SessionKey(operator, s.seq.Add(1))

	if err := s.console.Serve(ctx, terminal, operator, key); err != nil {
		sshlog.Debug("session closed", "session", key, "err", err)
	}
}

func loadAuthorizedKeys(path string) []gossh.PublicKey {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var keys []gossh.PublicKey
	for len(data) > 0 {
		key, _, _, rest, err := gossh.ParseAuthorizedKey(data)
		if err != nil {
			break
		}
		keys = append(keys, key)
		data = rest
	}
	return keys
}
