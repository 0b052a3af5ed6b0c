// Package vellum implements a standalone HTTP/1.1 server core: message
// model, wire codec, routing, connection state machine, and the pooled
// concurrency substrate that drives it. The public surface generalizes
// the teacher's fasthttp.Server/atreugo.Config shapes to this engine's
// own message and pool model.
package vellum

import (
	"crypto/tls"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/pkg/errors"

	"github.com/vellum-http/vellum/internal/conn"
	"github.com/vellum-http/vellum/internal/message"
	"github.com/vellum-http/vellum/internal/pool"
)

// Server is the application builder and listener owner (spec.md §2
// "Server application builder"). Zero value is not usable; build one
// with NewServer.
type Server struct {
	cfg   Config
	pools *pool.Manager

	handlers []RequestHandler
	filters  []ResponseFilter
	hosts    map[string]RequestHandler

	mu       sync.Mutex
	listener net.Listener
	closing  bool
}

// NewServer validates cfg, builds the worker pools, and returns a Server
// ready to Serve (spec.md §2, §5 pool sizing table).
func NewServer(cfg Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	pools, err := pool.NewManager(cfg.PoolSize, cfg.QueueSize, cfg.PoolFactor)
	if err != nil {
		return nil, errors.Wrap(err, "vellum: building worker pools")
	}
	handlers := append([]RequestHandler(nil), cfg.RequestHandlers...)
	s := &Server{
		cfg:      cfg,
		pools:    pools,
		handlers: handlers,
		filters:  append([]ResponseFilter(nil), cfg.ResponseFilters...),
		hosts:    cfg.Hosts,
	}
	return s, nil
}

// Use appends a request handler to the default pipeline, evaluated
// after the Host-specific handler when one matches the request
// (spec.md §4.4 coalescing).
func (s *Server) Use(h RequestHandler) *Server {
	s.handlers = append(s.handlers, h)
	return s
}

// UseFilter appends a response filter to the default chain.
func (s *Server) UseFilter(f ResponseFilter) *Server {
	s.filters = append(s.filters, f)
	return s
}

// Host registers a handler dedicated to requests whose Host header
// equals name (SPEC_FULL.md §6 "Virtual hosts"); it runs ahead of the
// default handler chain for matching requests.
func (s *Server) Host(name string, h RequestHandler) *Server {
	if s.hosts == nil {
		s.hosts = map[string]RequestHandler{}
	}
	s.hosts[name] = h
	return s
}

// ListenAndServe opens a TCP listener on cfg.Addr (optionally TLS, and
// optionally SO_REUSEPORT) and serves it until Shutdown or a fatal
// accept error.
func (s *Server) ListenAndServe() error {
	ln, err := s.listen()
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

func (s *Server) listen() (net.Listener, error) {
	ln, err := socketListen(s.cfg.Addr, s.cfg.BacklogSize, s.cfg.Reuseport)
	if err != nil {
		return nil, errors.Wrap(err, "vellum: listen")
	}
	if s.cfg.TLS != nil && s.cfg.TLS.Config != nil {
		ln = tls.NewListener(ln, s.cfg.TLS.Config)
	}
	return ln, nil
}

// Serve accepts connections off ln and submits each onto the service
// pool (spec.md §4.5, §5). If cfg.GracefulShutdown is set, the
// configured signals trigger Shutdown (SPEC_FULL.md §6).
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	if s.cfg.GracefulShutdown {
		s.installSignalHandler()
	}

	dispatch := s.buildDispatch()
	filter := s.buildFilter()

	for {
		c, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			closing := s.closing
			s.mu.Unlock()
			if closing {
				s.pools.Shutdown()
				s.pools.Wait()
				return nil
			}
			return errors.Wrap(err, "vellum: accept")
		}
		s.submit(c, dispatch, filter)
	}
}

func (s *Server) installSignalHandler() {
	signals := s.cfg.GracefulShutdownSignals
	if len(signals) == 0 {
		signals = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, signals...)
	go func() {
		<-ch
		_ = s.Shutdown()
	}()
}

// Shutdown closes the listener so Serve's accept loop exits; in-flight
// connections are allowed to finish their current pooled task (spec.md
// §6 "Shutdown gracefully").
func (s *Server) Shutdown() error {
	s.mu.Lock()
	s.closing = true
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return nil
	}
	return ln.Close()
}

func (s *Server) submit(c net.Conn, dispatch func(message.HttpRequest) message.HttpResponse, filter func(message.HttpRequest, message.HttpResponse) message.HttpResponse) {
	params := conn.Params{
		BufferSize:  s.cfg.BufferSize,
		HeaderLimit: s.cfg.HeaderLimit,
		ReadTimeout: s.cfg.ReadTimeout,
		KeepAlive: conn.KeepAliveParams{
			Enabled: s.cfg.KeepAlive.Enabled,
			Timeout: s.cfg.KeepAlive.Timeout,
			Max:     s.cfg.KeepAlive.Max,
		},
		Dispatch:  dispatch,
		Filter:    filter,
		ErrorHandler: func(err error, req message.HttpRequest) message.HttpResponse {
			return s.cfg.ErrorHandler(err, req)
		},
		OnUpgrade: s.onUpgrade,
		Logger:    s.cfg.Logger,
		ServerID:  s.cfg.Addr,
		Pools:     s.pools,
	}
	svc := conn.NewService(c, params)
	err := s.pools.Service.Submit(svc.Run)
	if err != nil {
		s.cfg.Logger.Printf("vellum: service pool rejected connection, writing 503")
		s.rejectConnection(c)
	}
}

// rejectConnection implements spec.md §4.5.2: when the service pool's
// queue is full, a best-effort 503 with Retry-After is written directly
// on the accepted socket, which is then closed, without ever
// constructing a Service.
func (s *Server) rejectConnection(c net.Conn) {
	defer c.Close()
	resp := conn.RejectionResponse()
	_, _ = c.Write([]byte(resp.Line.Version.String() + " " + itoaStatus(resp.Line.Status.Code) + " " + resp.Line.Status.Reason + "\r\n"))
	for _, h := range resp.Headers {
		_, _ = c.Write([]byte(h.Name + ": " + h.Value + "\r\n"))
	}
	_, _ = c.Write([]byte("\r\n"))
}

func itoaStatus(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [8]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// onUpgrade hands the raw connection off to the upgrade pool, running the
// closure stashed under AttrConnectionUpgrade by the handler that
// produced resp (spec.md §4.5 step 11, §5 "upgrade pool").
func (s *Server) onUpgrade(resp message.HttpResponse, c net.Conn) {
	fn, ok := resp.Attr(message.AttrConnectionUpgrade)
	if !ok {
		c.Close()
		return
	}
	run, ok := fn.(func(net.Conn))
	if !ok {
		c.Close()
		return
	}
	err := s.pools.Upgrade.Submit(func() { run(c) })
	if err != nil {
		c.Close()
	}
}

// buildDispatch assembles the full request pipeline: Host-specific
// handler first when the request's Host header matches, then the
// default chain, falling back to cfg.NotFound (spec.md §4.4). Panics are
// not recovered here: the connection service recovers them and routes
// them to cfg.ErrorHandler (spec.md §7).
func (s *Server) buildDispatch() func(message.HttpRequest) message.HttpResponse {
	return func(req message.HttpRequest) (resp message.HttpResponse) {
		chain := s.handlers
		if host, ok := req.Header("Host"); ok {
			if h, ok := s.hosts[host]; ok {
				chain = append([]RequestHandler{h}, chain...)
			}
		}
		res := Coalesce(chain, req)
		if res.IsResponse() {
			return res.AsResponse()
		}
		notFound := s.cfg.NotFound
		if notFound == nil {
			notFound = func(r Request) Result { return Respond(DefaultNotFoundHandler(r)) }
		}
		final := notFound(res.AsRequest())
		if final.IsResponse() {
			return final.AsResponse()
		}
		return DefaultNotFoundHandler(res.AsRequest())
	}
}

func (s *Server) buildFilter() func(message.HttpRequest, message.HttpResponse) message.HttpResponse {
	return func(req message.HttpRequest, resp message.HttpResponse) message.HttpResponse {
		return FilterChain(s.filters, req, resp)
	}
}
