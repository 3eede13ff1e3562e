// Package server exposes alush's interpreter over SSH: every
// connecting client gets its own eval.Evaluator and heap.Heap, driven
// through a golang.org/x/term line-editing terminal exactly the way
// the teacher's game.Game.HandleSession drives a MUD session, and
// every top-level command is optionally persisted through
// internal/audit the same way the teacher persists WebDAV requests
// through its own request logger (SPEC_FULL.md §3's "serve -ssh"
// surface).
package server

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/gliderlabs/ssh"
	"github.com/google/uuid"
	cache "github.com/go-pkgz/expirable-cache/v3"
	gossh "golang.org/x/crypto/ssh"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/alush-lang/alush"
	"github.com/alush-lang/alush/crypto"
	"github.com/alush-lang/alush/eval"
	"github.com/alush-lang/alush/heap"
	"github.com/alush-lang/alush/internal/audit"
	"github.com/alush-lang/alush/internal/stats"
	"github.com/alush-lang/alush/parser"
	"github.com/alush-lang/alush/termio"
	"github.com/alush-lang/alush/tty"
)

// Config configures a Server.
type Config struct {
	// SSHAddr is the listen address for incoming SSH connections.
	SSHAddr string
	// PrivKeyPath and SSHPubKeyPath locate the server's persistent host
	// key pair, generated on first run (see crypto.HostKey).
	PrivKeyPath   string
	SSHPubKeyPath string
	// Strategy is the heap.Strategy every session's Evaluator starts
	// under.
	Strategy heap.Strategy
	// AuditPath, if non-empty, opens an internal/audit log at this
	// path and records every top-level command every session runs.
	AuditPath string
	// SessionIdleTimeout evicts a tracked session's evaluator from the
	// in-memory session cache after this long without input from the
	// client — it does not close the connection, only stops counting
	// the session in Sessions().
	SessionIdleTimeout time.Duration
}

// DefaultConfig returns the configuration cmd/alush's `serve -ssh`
// subcommand starts from, the same shape as the teacher's
// server.DefaultConfig.
func DefaultConfig() Config {
	return Config{
		SSHAddr:            "127.0.0.1:2222",
		Strategy:           heap.Default,
		SessionIdleTimeout: 30 * time.Minute,
	}
}

// Server listens for SSH connections and hands each one a private
// alush REPL.
type Server struct {
	cfg      Config
	sessions cache.Cache[string, *eval.Evaluator]
	audit    *audit.Log
}

// New builds a Server from cfg. If cfg.AuditPath is set, it opens (or
// creates) the SQLite audit log immediately so a bad path fails fast
// rather than on the first connection.
func New(cfg Config) (*Server, error) {
	sessions, err := cache.New[string, *eval.Evaluator](cache.TTL[string, *eval.Evaluator](cfg.SessionIdleTimeout))
	if err != nil {
		return nil, alush.WithStack(err)
	}
	s := &Server{cfg: cfg, sessions: sessions}
	if cfg.AuditPath != "" {
		l, err := audit.Open(cfg.AuditPath)
		if err != nil {
			return nil, err
		}
		s.audit = l
	}
	return s, nil
}

// Sessions reports how many sessions have connected or sent input
// within the configured idle timeout.
func (s *Server) Sessions() int {
	return s.sessions.Len()
}

// Serve listens on cfg.SSHAddr until ctx is canceled or the listener
// errors. It generates a host key pair on first run, matching the
// teacher's server.go's on-demand crypto.Crypto.Generate call.
func (s *Server) Serve(ctx context.Context) error {
	hostKey := crypto.HostKey{PrivKeyPath: s.cfg.PrivKeyPath, SSHPubKeyPath: s.cfg.SSHPubKeyPath}
	signer, err := hostKey.LoadOrGenerate()
	if err != nil {
		return err
	}

	sshServer := &ssh.Server{
		Addr:    s.cfg.SSHAddr,
		Handler: s.handleSession,
	}
	sshServer.AddHostKey(signer)
	log.Printf("serving alush over SSH on %q with host key %q", s.cfg.SSHAddr, gossh.FingerprintSHA256(signer.PublicKey()))

	group, gctx := errgroup.WithContext(ctx)
	closed := make(chan struct{})
	group.Go(func() error {
		select {
		case <-gctx.Done():
			return sshServer.Close()
		case <-closed:
			return nil
		}
	})
	group.Go(func() error {
		defer close(closed)
		if err := sshServer.ListenAndServe(); err != nil && ctx.Err() == nil {
			return alush.WithStack(err)
		}
		return nil
	})
	if s.audit != nil {
		defer s.audit.Close()
	}
	return group.Wait()
}

func (s *Server) handleSession(sess ssh.Session) {
	id := uuid.NewString()
	ev := eval.New(s.cfg.Strategy)
	s.sessions.Set(id, ev, 0)
	defer s.sessions.Delete(id)

	adapter := &tty.SSHTTY{
		Sess:      sess,
		SessionID: id,
		Activity: func() {
			s.sessions.Set(id, ev, 0)
		},
	}
	if err := adapter.Start(); err != nil {
		fmt.Fprintf(sess, "alush requires an interactive pty: %v\n", err)
		return
	}
	defer adapter.Stop()
	defer func() {
		if s.audit == nil {
			return
		}
		in, out := adapter.BytesTransferred()
		if err := s.audit.Record(id, ":session", fmt.Sprintf("bytes_in=%d bytes_out=%d", in, out), nil); err != nil {
			log.Printf("session %s: audit: %v", id, err)
		}
	}()

	t := term.NewTerminal(adapter, "$ ")
	if w, h, err := adapter.WindowSize(); err == nil {
		t.SetSize(w, h)
	}
	adapter.NotifyResize(func() {
		if w, h, err := adapter.WindowSize(); err == nil {
			t.SetSize(w, h)
		}
	})

	ev.SetStdout(t)

	for {
		line, err := t.ReadLine()
		if err == io.EOF {
			return
		}
		if err != nil {
			log.Printf("session %s: %v", id, err)
			return
		}
		if line == "" {
			continue
		}
		if line == ":menu" {
			if s.runMenu(t, &ev, id) {
				return
			}
			continue
		}
		s.runLine(t, ev, id, line)
	}
}

// runMenu offers the ":menu" meta-commands (stats, reset, quit) via
// termio.RunMenu, the same "print the fixed set, read one line, dispatch"
// shape the teacher's termio.go drives its account menus with. *ev is
// replaced in place when the session chooses "reset". Returns true if
// the session should end.
func (s *Server) runMenu(t *term.Terminal, ev **eval.Evaluator, sessionID string) bool {
	quit := false
	commands := map[string]termio.MetaCommand{
		"stats": func(term *term.Terminal) error {
			stats.Print(term, (*ev).Heap())
			return nil
		},
		"reset": func(term *term.Terminal) error {
			choice, err := termio.Confirm(term, "discard the current heap and start fresh?", []string{"yes", "no"})
			if err != nil {
				return err
			}
			if choice == "yes" {
				*ev = eval.New(s.cfg.Strategy)
				(*ev).SetStdout(term)
				s.sessions.Set(sessionID, *ev, 0)
				fmt.Fprintln(term, "heap reset")
			}
			return nil
		},
		"quit": func(term *term.Terminal) error {
			quit = true
			return nil
		},
	}
	if err := termio.RunMenu(t, commands); err != nil {
		log.Printf("session %s: menu: %v", sessionID, err)
		return true
	}
	return quit
}

func (s *Server) runLine(t *term.Terminal, ev *eval.Evaluator, sessionID, line string) {
	if line == ":stats" {
		stats.Print(t, ev.Heap())
		return
	}

	cmd, err := parser.ParseCommand(line)
	if err != nil {
		fmt.Fprintf(t, "parse error: %v\n", err)
		return
	}
	result, evalErr := ev.EvalCommand(cmd)
	var rendered string
	if evalErr == nil {
		rendered = eval.Render(ev, result)
		ev.Heap().Unroot(result)
		fmt.Fprintf(t, "%s\n", rendered)
	} else {
		fmt.Fprintf(t, "error: %v\n", evalErr)
	}

	if s.audit != nil {
		if err := s.audit.Record(sessionID, line, rendered, evalErr); err != nil {
			log.Printf("session %s: audit: %v", sessionID, err)
		}
	}
}
