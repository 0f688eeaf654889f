// Package server implements the TCP request server: it binds a listener,
// hands each accepted connection to a worker pool, and on that worker
// decodes a pipelined stream of request frames, dispatches each to the
// shared engine, and writes responses back in request order. The shared
// engine is an internal/engine.Engine accessed under its own internal
// mutex discipline — this layer never adds a second lock around it.
package server

import (
	"bufio"
	"errors"
	"net"

	"github.com/dreamerlzl/ignitekv/internal/codec"
	"github.com/dreamerlzl/ignitekv/internal/engine"
	"github.com/dreamerlzl/ignitekv/internal/metrics"
	"github.com/dreamerlzl/ignitekv/internal/pool"
	ignerrors "github.com/dreamerlzl/ignitekv/pkg/errors"
	"github.com/dreamerlzl/ignitekv/pkg/framing"
	"go.uber.org/zap"
)

// Server accepts connections on a TCP listener and dispatches requests from
// each to a shared engine via a worker pool.
type Server struct {
	addr     string
	listener net.Listener
	engine   engine.Engine
	pool     pool.Pool
	metrics  *metrics.Metrics
	log      *zap.SugaredLogger
}

// Config holds the parameters needed to construct a Server. Metrics is
// optional; when nil, request counters are simply not recorded.
type Config struct {
	Addr     string
	Engine   engine.Engine
	PoolSize int
	Metrics  *metrics.Metrics
	Logger   *zap.SugaredLogger
}

// New constructs a Server bound to config.Addr, backed by config.Engine,
// dispatching accepted connections to a SharedQueuePool of config.PoolSize
// workers. It does not start accepting connections; call Serve for that.
func New(config *Config) (*Server, error) {
	if config == nil || config.Engine == nil || config.Logger == nil {
		return nil, ignerrors.NewConfigurationValidationError("config", "server configuration is required")
	}

	listener, err := net.Listen("tcp", config.Addr)
	if err != nil {
		return nil, ignerrors.NewServerConnFailError(err, config.Addr)
	}

	return &Server{
		addr:     config.Addr,
		listener: listener,
		engine:   config.Engine,
		pool:     pool.New(config.PoolSize, config.Logger),
		metrics:  config.Metrics,
		log:      config.Logger,
	}, nil
}

// Addr returns the address the server is actually bound to — useful when
// Config.Addr used an ephemeral port ("127.0.0.1:0") in tests.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Serve accepts connections until the listener is closed, handing each one
// to the worker pool. It returns nil when Close causes Accept to fail with
// a "use of closed network connection" error, and the underlying error
// otherwise.
func (s *Server) Serve() error {
	s.log.Infow("server listening", "addr", s.addr)

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		s.pool.Spawn(func() {
			s.handleConn(conn)
		})
	}
}

// Close stops accepting new connections and shuts down the worker pool. It
// does not wait for in-flight connections to finish.
func (s *Server) Close() error {
	s.pool.Close()
	return s.listener.Close()
}

// handleConn decodes a pipelined stream of request frames off conn and
// writes responses back in the order they were received. It exits cleanly
// on a truncated/closed stream and on any malformed frame, closing the
// connection either way.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)
	writer := bufio.NewWriter(conn)
	decoder := codec.NewRequestDecoder(reader)

	for {
		req, err := decoder.Next()
		if err != nil {
			if !framing.Truncated(err) {
				s.log.Warnw("closing connection after malformed frame", "remote", conn.RemoteAddr(), "error", err)
			}
			return
		}

		resp := s.dispatch(req)

		if err := codec.EncodeResponse(writer, resp); err != nil {
			s.log.Warnw("failed to encode response", "remote", conn.RemoteAddr(), "error", err)
			return
		}
		if err := writer.Flush(); err != nil {
			s.log.Warnw("failed to flush response", "remote", conn.RemoteAddr(), "error", err)
			return
		}
	}
}

// dispatch validates and executes one request against the engine, mapping
// the result to a wire response. Engine errors are never fatal to the
// connection — they're serialized into codec.Err and the loop continues,
// matching spec's "KeyNotFound and friends are normal, client-visible
// outcomes" error policy.
func (s *Server) dispatch(req codec.Request) codec.Response {
	if err := codec.Validate(req); err != nil {
		return codec.Err(err.Error())
	}

	resp, err := s.execute(req)
	if s.metrics != nil {
		s.metrics.ObserveRequest(string(req.Op), err)
	}
	return resp
}

func (s *Server) execute(req codec.Request) (codec.Response, error) {
	switch req.Op {
	case codec.OpSet:
		if err := s.engine.Set(req.Key, req.Value); err != nil {
			return codec.Err(err.Error()), err
		}
		return codec.OK(), nil

	case codec.OpGet:
		value, err := s.engine.Get(req.Key)
		if err != nil {
			if ignerrors.IsKeyNotFoundError(err) {
				return codec.OKMiss(), nil
			}
			return codec.Err(err.Error()), err
		}
		return codec.OKValue(value), nil

	case codec.OpRemove:
		if err := s.engine.Remove(req.Key); err != nil {
			return codec.Err(err.Error()), err
		}
		return codec.OK(), nil

	default:
		err := errors.New("unrecognized operation")
		return codec.Err(err.Error()), err
	}
}
