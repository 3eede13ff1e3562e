// Package tty adapts a gliderlabs/ssh session into the io.ReadWriter
// plus resize-notification shape golang.org/x/term.Terminal expects,
// for the SSH-served alush REPL (server.Serve). The local REPL in
// cmd/alush does not use it; it reads stdin line by line. Grounded in the teacher's tty/tty.go, which solves this same
// session-to-terminal adaptation problem for juicemud's MUD clients;
// adapted here to also track per-session activity and byte counts for
// server.Server's session cache and internal/audit logging.
package tty

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/gliderlabs/ssh"
)

// SSHTTY turns one ssh.Session into a byte-at-a-time io.ReadWriter with
// live window-size tracking, so an *eval.Evaluator REPL loop driven
// over SSH can run on a golang.org/x/term.Terminal.
type SSHTTY struct {
	Sess ssh.Session

	// SessionID identifies this adapter's session to server.Server's
	// expirable-cache and to internal/audit's per-command log rows.
	SessionID string

	// Activity, if set, runs once per byte relayed from the client —
	// server.Server wires this to refresh the session's cache entry so
	// an idle-but-connected client isn't evicted mid-session.
	Activity func()

	// ResizeCallback, if set, runs (in addition to any callback
	// registered via NotifyResize) whenever the client resizes its
	// window — used to redraw an in-progress prompt at the new width.
	ResizeCallback func()

	resizeCallback func()
	done           chan bool
	drain          chan bool
	relay          chan byte
	mu             sync.Mutex
	width          int
	height         int

	bytesIn  uint64
	bytesOut uint64
}

// Read implements io.Reader, delivering one byte read from the
// underlying session at a time so pump's goroutine can observe the
// done signal between bytes.
func (s *SSHTTY) Read(b []byte) (int, error) {
	select {
	case v, ok := <-s.relay:
		if !ok {
			return 0, io.EOF
		}
		b[0] = v
		atomic.AddUint64(&s.bytesIn, 1)
		if s.Activity != nil {
			s.Activity()
		}
		return 1, nil
	case <-s.drain:
		return 0, nil
	}
}

// Write implements io.Writer.
func (s *SSHTTY) Write(b []byte) (int, error) {
	n, err := s.Sess.Write(b)
	atomic.AddUint64(&s.bytesOut, uint64(n))
	return n, err
}

// Close is a no-op; the session's own lifecycle (not this adapter)
// owns the underlying connection.
func (s *SSHTTY) Close() error {
	return nil
}

// BytesTransferred reports the bytes relayed through Read and written
// through Write so far, for a session-end internal/audit record.
func (s *SSHTTY) BytesTransferred() (in, out uint64) {
	return atomic.LoadUint64(&s.bytesIn), atomic.LoadUint64(&s.bytesOut)
}

// Start begins relaying the session's pty window-size events and
// forwarding its byte stream through Read. It errors if the session
// never requested a pty — alush's REPL requires one to render its
// prompt and redraw on resize.
func (s *SSHTTY) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pty, winCh, isPTY := s.Sess.Pty()
	if !isPTY {
		return fmt.Errorf("session is not interactive")
	}

	s.width, s.height = pty.Window.Width, pty.Window.Height

	s.done = make(chan bool)
	go s.watchResize(winCh)

	s.relay = make(chan byte)
	go s.pump()

	s.drain = make(chan bool)

	return nil
}

// watchResize updates the tracked window size on every event from winCh
// and fires the registered resize callbacks, until done closes.
func (s *SSHTTY) watchResize(winCh <-chan ssh.Window) {
	for {
		select {
		case ev := <-winCh:
			cb1, cb2 := func() (func(), func()) {
				s.mu.Lock()
				defer s.mu.Unlock()
				s.width = ev.Width
				s.height = ev.Height
				return s.ResizeCallback, s.resizeCallback
			}()
			if cb2 != nil {
				cb2()
			}
			if cb1 != nil {
				cb1()
			}
		case <-s.done:
			return
		}
	}
}

// pump relays the session's raw byte stream into relay one byte at a
// time, so Read can observe done between bytes.
func (s *SSHTTY) pump() {
	defer close(s.relay)
	buf := []byte{0}
	for nRead, err := s.Sess.Read(buf); err == nil; nRead, err = s.Sess.Read(buf) {
		if nRead == 1 {
			s.relay <- buf[0]
		}
		select {
		case <-s.done:
			return
		default:
		}
	}
}

// Drain stops delivering new input without tearing down the resize
// watcher, letting an in-flight ReadLine return cleanly.
func (s *SSHTTY) Drain() error {
	close(s.drain)
	return nil
}

// Stop tears down both background goroutines started by Start.
func (s *SSHTTY) Stop() error {
	close(s.done)
	return nil
}

// WindowSize implements golang.org/x/term's GetSize contract.
func (s *SSHTTY) WindowSize() (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height, nil
}

// NotifyResize registers cb to run on every window-size change, in
// addition to ResizeCallback.
func (s *SSHTTY) NotifyResize(cb func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resizeCallback = cb
}
