// Package tcp implements the game's wire surface: a TCP accept loop that
// performs the Diffie-Hellman handshake with every client and then serves the
// encrypted, length-prefixed command protocol over one goroutine per
// connection.
package tcp

import (
	"errors"
	"io"
	"log"
	"net"
	"sync"

	"github.com/beka-birhanu/gridhunt-server/game"
	"github.com/beka-birhanu/gridhunt-server/service/i"
)

const defaultLeaderboardSize int64 = 50

type ServerOption func(*Server)

// Server accepts game client connections and owns their lifecycles. One
// worker goroutine serves each connection until the peer disconnects or the
// stream fails to decrypt.
type Server struct {
	listener    net.Listener
	registry    *game.Registry
	auth        i.Authenticator
	leaderboard i.Leaderboard

	leaderboardSize int64
	logger          *log.Logger

	connsMu sync.Mutex
	conns   map[net.Conn]struct{}

	stop chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// ServerConfig is a struct used to pass the required parameters to
// initialize a new Server.
type ServerConfig struct {
	ListenAddr  string // TCP address to listen on, e.g. ":5050".
	Registry    *game.Registry
	Auth        i.Authenticator
	Leaderboard i.Leaderboard
}

// NewServer binds the listen address and initializes a Server with the given
// configuration and options.
func NewServer(c ServerConfig, options ...ServerOption) (*Server, error) {
	if c.Registry == nil {
		return nil, errors.New("registry is required")
	}
	if c.Auth == nil {
		return nil, errors.New("authenticator is required")
	}
	if c.Leaderboard == nil {
		return nil, errors.New("leaderboard is required")
	}

	listener, err := net.Listen("tcp", c.ListenAddr)
	if err != nil {
		return nil, err
	}

	s := &Server{
		listener:    listener,
		registry:    c.Registry,
		auth:        c.Auth,
		leaderboard: c.Leaderboard,

		leaderboardSize: defaultLeaderboardSize,

		conns: make(map[net.Conn]struct{}),
		stop:  make(chan struct{}),
	}

	// Run optional configurations
	for _, opt := range options {
		opt(s)
	}

	if s.logger == nil {
		// Discard logging if no logger is set
		s.logger = log.New(io.Discard, "", 0)
	}

	return s, nil
}

// Addr returns the bound listen address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve accepts connections until Stop is called, spawning one session
// goroutine per client.
func (s *Server) Serve() {
	s.logger.Printf("server listening on tcp address: %v", s.listener.Addr())
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.stop:
				return
			default:
			}
			s.logger.Printf("error while accepting connection: %s", err)
			continue
		}

		s.trackConn(conn)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrackConn(conn)
			s.serveConn(conn)
		}()
	}
}

// Stop closes the listener and waits for every in-flight session to drain.
func (s *Server) Stop() {
	s.once.Do(func() {
		s.logger.Println("server stoping gracefuly...")
		defer s.logger.Println("server stoped")

		close(s.stop)
		_ = s.listener.Close()

		// Unblock sessions parked in a read.
		s.connsMu.Lock()
		for conn := range s.conns {
			_ = conn.Close()
		}
		s.connsMu.Unlock()

		s.wg.Wait()
	})
}

func (s *Server) trackConn(conn net.Conn) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	s.conns[conn] = struct{}{}
}

func (s *Server) untrackConn(conn net.Conn) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	delete(s.conns, conn)
}

// ServerWithLogger sets the logger.
func ServerWithLogger(l *log.Logger) ServerOption {
	return func(s *Server) {
		s.logger = l
	}
}

// ServerWithLeaderboardSize sets how many entries a LEADERBOARD reply holds.
func ServerWithLeaderboardSize(n int64) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.leaderboardSize = n
		}
	}
}
