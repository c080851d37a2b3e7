// Package server exposes the inspection console over SSH. Every input line
// is parsed into a dispatcher event and the command result is written back.
package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"

	"github.com/OCAP2/luxreplay/internal/config"
	"github.com/OCAP2/luxreplay/internal/dispatcher"
	"github.com/gliderlabs/ssh"
	"golang.org/x/term"
)

const prompt = "lux> "

// Executor runs console commands.
type Executor interface {
	Dispatch(e dispatcher.Event) (any, error)
}

// SSHServer serves the console to SSH sessions.
type SSHServer struct {
	srv    *ssh.Server
	exec   Executor
	logger *slog.Logger
}

// NewSSHServer creates a console server for cfg. An empty host key path
// makes the server generate a throwaway key; an empty password disables
// authentication.
func NewSSHServer(cfg config.ConsoleConfig, exec Executor, logger *slog.Logger) (*SSHServer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &SSHServer{exec: exec, logger: logger.With("component", "console")}
	s.srv = &ssh.Server{
		Addr:    cfg.Address,
		Handler: s.handleSession,
	}

	if cfg.HostKey != "" {
		if err := s.srv.SetOption(ssh.HostKeyFile(cfg.HostKey)); err != nil {
			return nil, fmt.Errorf("set host key: %w", err)
		}
	}
	if cfg.Password != "" {
		want := []byte(cfg.Password)
		err := s.srv.SetOption(ssh.PasswordAuth(func(ctx ssh.Context, password string) bool {
			return subtle.ConstantTimeCompare([]byte(password), want) == 1
		}))
		if err != nil {
			return nil, fmt.Errorf("set password auth: %w", err)
		}
	}
	return s, nil
}

// ListenAndServe listens on the configured address.
func (s *SSHServer) ListenAndServe() error {
	s.logger.Info("Console listening", "address", s.srv.Addr)
	return s.serveErr(s.srv.ListenAndServe())
}

// Serve accepts sessions on ln.
func (s *SSHServer) Serve(ln net.Listener) error {
	s.logger.Info("Console listening", "address", ln.Addr().String())
	return s.serveErr(s.srv.Serve(ln))
}

func (s *SSHServer) serveErr(err error) error {
	if errors.Is(err, ssh.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting sessions and waits for open ones until ctx ends.
func (s *SSHServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Execute runs one console line and renders the outcome.
func (s *SSHServer) Execute(line string) string {
	e, ok := dispatcher.ParseEvent(line)
	if !ok {
		return ""
	}
	result, err := s.exec.Dispatch(e)
	if err != nil {
		return "error: " + err.Error()
	}
	switch v := result.(type) {
	case nil:
		return "ok"
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func (s *SSHServer) handleSession(sess ssh.Session) {
	user := sess.User()
	if user == "" {
		user = "anonymous"
	}
	log := s.logger.With("user", user, "remote", sess.RemoteAddr().String())

	// "ssh host turn 3" runs a single command.
	if cmd := sess.Command(); len(cmd) > 0 {
		log.Debug("Console command", "command", cmd[0])
		writeLines(sess, s.Execute(strings.Join(cmd, " ")), false)
		return
	}

	ptyReq, winCh, isPty := sess.Pty()
	log.Info("Console session opened", "pty", isPty)
	defer log.Info("Console session closed")

	io.WriteString(sess, "luxreplay console, type help for commands\r\n")
	lines := newLineSource(sess, isPty, ptyReq.Window.Width, ptyReq.Window.Height)
	if t, ok := lines.(*term.Terminal); ok {
		go func() {
			for win := range winCh {
				t.SetSize(win.Width, win.Height)
			}
		}()
	}
	for {
		line, err := lines.ReadLine()
		if err != nil {
			if isPty {
				io.WriteString(sess, "\r\n")
			}
			return
		}
		switch strings.TrimSpace(line) {
		case "quit", "exit":
			return
		case "":
			continue
		}
		writeLines(sess, s.Execute(line), isPty)
	}
}

// writeLines writes out with a trailing newline, using CRLF on terminals.
func writeLines(w io.Writer, out string, crlf bool) {
	if out == "" {
		return
	}
	if crlf {
		out = strings.ReplaceAll(out, "\n", "\r\n")
		io.WriteString(w, out+"\r\n")
		return
	}
	io.WriteString(w, out+"\n")
}

// Close drops every open session immediately.
func (s *SSHServer) Close() error {
	return s.srv.Close()
}
