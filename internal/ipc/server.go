package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ptyhost/ptyhost/internal/logging"
	"github.com/ptyhost/ptyhost/internal/shared/id"
)

const (
	// maxLineSize bounds a single request line; large enough for any
	// control payload.
	maxLineSize = 1024 * 1024

	// replyTimeout bounds how long a worker waits for the owner to
	// respond. An owner that never responds would otherwise leak the
	// worker goroutine forever.
	replyTimeout = 30 * time.Second

	// requestQueueSize buffers requests between workers and the owner.
	requestQueueSize = 64
)

// SocketInUseError means another live instance already answers on the socket
// path.
type SocketInUseError struct {
	Path string
}

func (e *SocketInUseError) Error() string {
	return fmt.Sprintf("another instance is already running on socket: %s", e.Path)
}

// PendingRequest pairs a decoded request with its one-shot reply channel.
// The owner must call Respond exactly once; the pairing is then spent.
type PendingRequest struct {
	Request Request
	reply   chan Response
}

// Respond delivers the reply to the waiting worker. Extra calls are dropped.
func (p *PendingRequest) Respond(resp Response) {
	select {
	case p.reply <- resp:
	default:
	}
}

// Server owns the control socket. Start it with Listen; drain requests from
// the owner goroutine with Poll.
type Server struct {
	ln       net.Listener
	path     string
	requests chan *PendingRequest
	wake     func()
	log      *logging.Logger
	closed   atomic.Bool
}

// Listen binds the control socket. An existing socket file is probed first:
// if something answers, a live instance owns it and starting up would be
// wrong; if nothing answers, the file is stale and removed.
func Listen(path string, wake func(), log *logging.Logger) (*Server, error) {
	if _, err := os.Stat(path); err == nil {
		conn, err := net.DialTimeout("unix", path, time.Second)
		if err == nil {
			conn.Close()
			return nil, &SocketInUseError{Path: path}
		}
		if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("remove stale socket %s: %w", path, err)
		}
		log.Info("removed stale socket", zap.String("path", path))
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("bind socket %s: %w", path, err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		ln.Close()
		return nil, fmt.Errorf("chmod socket %s: %w", path, err)
	}

	s := &Server{
		ln:       ln,
		path:     path,
		requests: make(chan *PendingRequest, requestQueueSize),
		wake:     wake,
		log:      log,
	}

	log.Info("control socket listening", zap.String("path", path))
	go s.acceptLoop()
	return s, nil
}

// Poll drains every currently queued request without blocking. The caller is
// responsible for responding to each one exactly once.
func (s *Server) Poll() []*PendingRequest {
	var out []*PendingRequest
	for {
		select {
		case req := <-s.requests:
			out = append(out, req)
		default:
			return out
		}
	}
}

// Path returns the socket path the server is bound to.
func (s *Server) Path() string { return s.path }

// Close shuts the listener down and unlinks the socket file.
func (s *Server) Close() error {
	s.closed.Store(true)
	err := s.ln.Close()
	os.Remove(s.path)
	return err
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if s.closed.Load() {
				return
			}
			// Accept errors are not fatal; keep serving.
			s.log.Error("accept failed", zap.Error(err))
			continue
		}
		go s.handleConn(conn)
	}
}

// handleConn is the per-connection worker. It enforces strict one-in-flight
// request/response ordering for its connection: the reply for request i is
// written before request i+1 is read.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			// Malformed lines get a structured answer rather than
			// silence, so clients are never left hanging.
			if werr := writeResponse(conn, Errorf("malformed request: %v", err)); werr != nil {
				return
			}
			continue
		}

		rid := id.NewRequestID()
		s.log.Debug("request received",
			zap.String("request", rid.String()),
			zap.String("cmd", req.Cmd))

		pending := &PendingRequest{Request: req, reply: make(chan Response, 1)}
		s.requests <- pending
		if s.wake != nil {
			s.wake()
		}

		select {
		case resp := <-pending.reply:
			if err := writeResponse(conn, resp); err != nil {
				return
			}
		case <-time.After(replyTimeout):
			_ = writeResponse(conn, Errorf("request timed out"))
			return
		}
	}
}

func writeResponse(conn net.Conn, resp Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	_, err = conn.Write(append(data, '\n'))
	return err
}
