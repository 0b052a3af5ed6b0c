package conn

import (
	"bufio"
	"io"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/vellum-http/vellum/internal/headers"
	"github.com/vellum-http/vellum/internal/message"
	"github.com/vellum-http/vellum/internal/pool"
	"github.com/vellum-http/vellum/internal/wire"
)

// Logger is the minimal sink this package writes to; it mirrors the
// root package's Logger contract without importing it, avoiding an
// import cycle (vellum.go imports internal/conn, not the reverse).
type Logger interface {
	Printf(format string, args ...interface{})
}

// Params bundles everything the state machine needs from the server
// that isn't connection-specific.
type Params struct {
	BufferSize  int
	HeaderLimit int
	ReadTimeout time.Duration
	KeepAlive   KeepAliveParams

	// Dispatch runs the coalesced request-handler chain and the not-found
	// fallback; it may panic (spec.md §4.5 step 4 "any other Throwable").
	// A panic with ErrResponseAborted (or a wrapper of it) kills the
	// connection without a response; any other panic is routed through
	// ErrorHandler.
	Dispatch func(message.HttpRequest) message.HttpResponse

	// ErrorHandler maps a handler panic to a response (spec.md §6
	// "errorHandler", §7 "Handler errors ... routed to the error
	// handler"). Required; the caller defaults it to a 500 producer.
	ErrorHandler func(error, message.HttpRequest) message.HttpResponse

	// Filter runs the response filter chain (spec.md §4.5 step 6). Panics
	// and errors inside it are the caller's responsibility to recover
	// into a 500 before returning here, matching spec.md §7 "Filter
	// errors".
	Filter func(message.HttpRequest, message.HttpResponse) message.HttpResponse

	// OnUpgrade is invoked when the final response signals a protocol
	// upgrade; it receives the raw connection and is expected to hand it
	// off (e.g. onto the upgrade pool) and take ownership of it.
	OnUpgrade func(message.HttpResponse, net.Conn)

	Logger   Logger
	ServerID string
	Pools    *pool.Manager
}

// Service runs the per-connection state machine of spec.md §4.5 over
// one accepted socket.
type Service struct {
	netConn      net.Conn
	bufReader    *bufio.Reader
	bufWriter    *bufio.Writer
	reader       *wire.Reader
	writer       *wire.Writer
	params       Params
	connectionID string
	requestCount int
}

// NewService wraps an accepted socket (plain or TLS) with buffered
// reader/writer sizes and request limits taken from params, and gives
// it a fresh connection id.
func NewService(netConn net.Conn, params Params) *Service {
	br := bufio.NewReaderSize(netConn, params.BufferSize)
	bw := bufio.NewWriterSize(netConn, params.BufferSize)
	return &Service{
		netConn:      netConn,
		bufReader:    br,
		bufWriter:    bw,
		reader:       wire.NewReader(br),
		writer:       wire.NewWriter(bw),
		params:       params,
		connectionID: uuid.NewString(),
	}
}

// Run drives the connection to completion: it processes requests until
// the connection closes, is handed off on upgrade, or is rejected.
// Run is expected to be invoked on the service pool; when keep-alive
// continues the loop, the wait for the next request byte is submitted
// onto the keepAlive pool instead, per spec.md §5 "Keep-alive waits
// block on (a); they must not occupy the service pool while waiting."
func (s *Service) Run() {
	s.step1AndOnward(true)
}

func (s *Service) step1AndOnward(firstRequest bool) {
	if !s.waitForByte(firstRequest) {
		return
	}
	s.requestCount++
	s.processOneRequest()
}

// waitForByte implements spec.md §4.5 step 1: sets the read deadline,
// peeks one byte as a liveness probe. Returns false (closing the
// connection) on any I/O error.
func (s *Service) waitForByte(firstRequest bool) bool {
	timeout := s.params.ReadTimeout
	if !firstRequest {
		timeout = s.params.KeepAlive.Timeout
	}
	if timeout > 0 {
		_ = s.netConn.SetReadDeadline(time.Now().Add(timeout))
	}
	if _, err := s.reader.Peek(1); err != nil {
		if err != io.EOF {
			s.params.Logger.Printf("vellum: connection %s read aborted: %v", s.connectionID, err)
		}
		s.close()
		return false
	}
	return true
}

// processOneRequest implements spec.md §4.5 steps 2–12 for a single
// request already known to have at least one byte available.
func (s *Service) processOneRequest() {
	req, err := ReadRequest(s.reader, s.params.BufferSize, s.params.HeaderLimit)
	if err != nil {
		s.writeReadError(err)
		s.close()
		return
	}
	req.Body = ReadBody(s.reader, req.Headers)
	req = s.attachRequestAttributes(req)

	defer closeEntity(req.Body)

	unfiltered, aborted := s.dispatchSafely(req)
	if aborted {
		s.params.Logger.Printf("vellum: connection %s response aborted, closing without a response", s.connectionID)
		s.close()
		return
	}
	defer closeEntity(unfiltered.Body)

	resp := s.attachResponseAttributes(req, unfiltered)
	resp = s.filterSafely(req, resp)
	defer closeEntity(resp.Body)

	upgrade := IsUpgrade(resp)
	skipBody := upgrade || IsBodiless(resp.Status())
	if !skipBody {
		resp = Frame(resp)
	} else {
		resp.Headers = headers.TransferEncodingRemoved(resp.Headers)
		resp.Headers = headers.ContentLengthRemoved(resp.Headers)
	}

	keepAlive := false
	if !upgrade {
		keepAlive = ShouldKeepAlive(s.params.KeepAlive, s.requestCount, req, resp)
		resp = ApplyConnectionManagement(resp, keepAlive, s.params.KeepAlive, s.requestCount)
	}
	resp.Headers = resp.Headers.Set("Date", time.Now().UTC().Format(http1123))

	var writeErr error
	if skipBody {
		writeErr = WriteResponseHeadOnly(s.writer, resp)
	} else {
		writeErr = WriteResponse(s.writer, resp, s.encoderPool())
	}
	if writeErr != nil {
		s.params.Logger.Printf("vellum: write error on connection %s: %v", s.connectionID, writeErr)
		s.close()
		return
	}

	switch {
	case upgrade:
		if s.params.OnUpgrade != nil {
			s.params.OnUpgrade(resp, s.netConn)
		} else {
			s.close()
		}
	case keepAlive:
		s.continueKeepAlive()
	default:
		s.close()
	}
}

const http1123 = "Mon, 02 Jan 2006 15:04:05 GMT"

// continueKeepAlive submits the next wait-for-byte step onto the
// keepAlive pool (spec.md §5), resubmitting onto the service pool once a
// byte has arrived so the read/dispatch work is accounted against the
// service pool's concurrency bound again.
func (s *Service) continueKeepAlive() {
	err := s.params.Pools.KeepAlive.Submit(func() {
		if !s.waitForByte(false) {
			return
		}
		if serr := s.params.Pools.Service.Submit(func() {
			s.requestCount++
			s.processOneRequest()
		}); serr != nil {
			s.params.Logger.Printf("vellum: connection %s closed: rejected keep-alive task", s.connectionID)
			s.close()
		}
	})
	if err != nil {
		s.params.Logger.Printf("vellum: connection %s closed: rejected keep-alive task", s.connectionID)
		s.close()
	}
}

func (s *Service) attachRequestAttributes(req message.HttpRequest) message.HttpRequest {
	req = req.WithAttr(message.AttrSocket, s.netConn)
	req = req.WithAttr(message.AttrRequestCount, s.requestCount)
	req = req.WithAttr(message.AttrCorrelate, s.correlateID())
	req = req.WithAttr(message.AttrServer, s.params.ServerID)
	req = req.WithAttr(message.AttrLogger, s.params.Logger)
	return req
}

func (s *Service) attachResponseAttributes(req message.HttpRequest, resp message.HttpResponse) message.HttpResponse {
	resp = resp.WithAttr(message.AttrResponseRequest, req)
	return resp
}

func (s *Service) correlateID() string {
	return itoa(int(time.Now().UnixMilli())) + "-" + s.params.ServerID + "-" + s.connectionID + "-" + itoa(s.requestCount)
}

// dispatchSafely recovers a panicking handler, matching spec.md §7
// "Handler errors ... routed to the error handler" and "ResponseAborted
// ... propagate to kill the connection without writing a response". The
// second return reports the latter case.
func (s *Service) dispatchSafely(req message.HttpRequest) (resp message.HttpResponse, aborted bool) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if err, ok := r.(error); ok && errors.Is(err, ErrResponseAborted) {
			aborted = true
			return
		}
		err, ok := r.(error)
		if !ok {
			err = errors.Errorf("%v", r)
		}
		s.params.Logger.Printf("vellum: handler panic on connection %s: %v", s.connectionID, err)
		resp = s.params.ErrorHandler(err, req)
	}()
	return s.params.Dispatch(req), false
}

// filterSafely synthesizes a 500 with Connection: close on filter
// error/panic, per spec.md §7 "Filter errors".
func (s *Service) filterSafely(req message.HttpRequest, resp message.HttpResponse) (out message.HttpResponse) {
	defer func() {
		if r := recover(); r != nil {
			s.params.Logger.Printf("vellum: filter panic on connection %s: %v", s.connectionID, r)
			out = message.NewResponse(message.StatusInternalServerError)
			out.Headers = out.Headers.Set("Connection", "close")
		}
	}()
	return s.params.Filter(req, resp)
}

// writeReadError maps a read-phase error to a best-effort response per
// spec.md §7 "Input framing errors": UriTooLong/HeaderFieldsTooLarge/
// BadRequest get a status written back, as does a read timeout (408);
// anything else (EOF, reset) is a silent ReadAborted with no response.
func (s *Service) writeReadError(err error) {
	var status message.ResponseStatus
	switch {
	case errors.Is(err, ErrUriTooLong):
		status = message.StatusURITooLong
	case errors.Is(err, ErrHeaderFieldsTooLarge):
		status = message.StatusHeaderFieldsTooLarge
	case errors.Is(err, ErrBadRequest):
		status = message.StatusBadRequest
	case err == io.EOF:
		return
	default:
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			status = message.StatusRequestTimeout
		} else {
			return
		}
	}
	resp := message.NewResponse(status)
	resp.Headers = resp.Headers.Set("Connection", "close")
	resp.Headers = resp.Headers.Set("Content-Length", "0")
	_ = WriteResponse(s.writer, resp, s.encoderPool())
}

// closeEntity closes a request or response body, guarded so that a panic
// or a prior close's error does not propagate or mask anything else on
// the request path (spec.md §5 "each response body's stream is closed
// at most twice (filtered and unfiltered view), both attempts guarded
// so that a failure to close does not mask a prior error"). The same
// entity can legitimately reach this twice — once as the dispatched,
// unfiltered response and once as the (possibly identical) filtered
// one — so every concrete message.Entity must tolerate a repeat Close.
func closeEntity(e message.Entity) {
	if e == nil {
		return
	}
	defer func() { recover() }()
	_ = e.Close()
}

func (s *Service) encoderPool() *pool.Dynamic {
	if s.params.Pools == nil {
		return nil
	}
	return s.params.Pools.Encoder
}

// close hands the socket off to the closer pool (spec.md §5 "closer ...
// run completion handlers that close sockets"); a connection built
// without a pool manager (e.g. a unit test) closes inline instead.
func (s *Service) close() {
	c := s.netConn
	if s.params.Pools != nil && s.params.Pools.Closer.Submit(func() { c.Close() }) == nil {
		return
	}
	_ = c.Close()
}

// RejectionResponse builds the synthesized 503 spec.md §4.5.2 describes
// for a service-pool rejection: "Retry-After: now + 300s". The listener
// writes this best-effort directly on the accepted socket when the
// service pool's queue is full, without ever constructing a Service.
func RejectionResponse() message.HttpResponse {
	resp := message.NewResponse(message.StatusServiceUnavailable)
	resp.Headers = resp.Headers.Set("Retry-After", time.Now().Add(300*time.Second).UTC().Format(http1123))
	resp.Headers = resp.Headers.Set("Connection", "close")
	resp.Headers = resp.Headers.Set("Content-Length", "0")
	return resp
}
