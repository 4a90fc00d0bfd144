package gemini

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

const (
	tempDirName  = "temp"
	cacheDirName = "cache"

	// fileMapDelTime is how often the temp-file sweeper runs.
	fileMapDelTime = 300 * time.Second

	requestReadTimeout = 30 * time.Second
	maxRequestLineLen  = 1026 // 1024-byte URL plus the trailing \r\n
	requestBufferSize  = 2048 // spec'd read buffer; request is rejected, not accumulated, past this
)

// Server binds the configured listeners, accepts TLS connections, and
// dispatches each one through a Handler built from Tree. One Server
// owns the process-wide temp-file registry and cache refresher; both
// are started by ListenAndServe and stopped by Stop.
type Server struct {
	Tree     *UrlTree
	Identity tls.Certificate
	Logger   *zap.Logger

	tempFiles *tempFileRegistry
	executor  *Executor
	handler   *Handler
	cache     *cacheRefresher
	stop      chan struct{}
}

// NewServer wires the temp-file registry, dynamic executor, cache
// refresher, and request handler around tree, ready for
// ListenAndServe.
func NewServer(tree *UrlTree, identity tls.Certificate, logger *zap.Logger) *Server {
	cacheDir := filepath.Join(tempDirName, cacheDirName)

	tempFiles := newTempFileRegistry(tempDirName)
	executor := newExecutor(tempFiles)

	return &Server{
		Tree:      tree,
		Identity:  identity,
		Logger:    logger,
		tempFiles: tempFiles,
		executor:  executor,
		handler:   newHandler(tree, executor, cacheDir),
		cache:     newCacheRefresher(tree, executor, cacheDir, logger),
		stop:      make(chan struct{}),
	}
}

// ListenAndServe recreates the temp/cache directories, generates each
// domain's doc page, binds every listener settings.IPv4/IPv6 call for,
// starts the background sweeper and cache refresher, and serves
// connections until every listener's Accept fails permanently.
func (s *Server) ListenAndServe() error {
	settings := s.Tree.Settings

	if err := s.tempFiles.reset(); err != nil {
		if !settings.NeverExit {
			return fmt.Errorf("reset temp directory: %w", err)
		}
		s.Logger.Warn("reset temp directory failed, continuing in a diminished state", zap.Error(err))
	}
	if err := os.MkdirAll(filepath.Join(tempDirName, cacheDirName), 0o755); err != nil {
		if !settings.NeverExit {
			return fmt.Errorf("create cache directory: %w", err)
		}
		s.Logger.Warn("create cache directory failed, continuing in a diminished state", zap.Error(err))
	}

	for _, root := range s.Tree.Roots {
		if err := genDocPage(root, settings); err != nil {
			s.Logger.Warn("failed to generate doc page", zap.String("domain", root.Name), zap.Error(err))
		}
	}

	var addrs []string
	if settings.IPv6 {
		addrs = append(addrs, "[::]:1965")
	}
	if settings.IPv4 {
		addrs = append(addrs, "0.0.0.0:1965")
	}
	if len(addrs) == 0 {
		return errors.New("either ipv4 or ipv6 must be enabled in the server settings")
	}

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{s.Identity},
		ClientAuth:   tls.RequestClientCert,
		MinVersion:   tls.VersionTLS12,
	}

	listeners := make([]net.Listener, 0, len(addrs))
	for _, addr := range addrs {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			if !settings.NeverExit {
				for _, l := range listeners {
					l.Close()
				}
				return fmt.Errorf("bind %s: %w", addr, err)
			}
			s.Logger.Warn("bind failed, continuing without this listener", zap.String("addr", addr), zap.Error(err))
			continue
		}
		listeners = append(listeners, tls.NewListener(ln, tlsConfig))
	}
	if len(listeners) == 0 {
		// NeverExit degrades a single failed bind to a warning, but with
		// nothing left to serve there is no diminished state to run in.
		return errors.New("no listener bound successfully")
	}

	go s.tempFiles.runSweeper(fileMapDelTime, s.stop)
	go s.cache.run(time.Duration(settings.CacheTime)*time.Second, s.stop)

	errs := make(chan error, len(listeners))
	for _, ln := range listeners {
		ln := ln
		go func() { errs <- s.Serve(ln) }()
	}
	var err error
	for range listeners {
		err = <-errs
	}
	return err
}

// Stop signals the background sweeper and cache refresher to exit. It
// does not close any listener handed to Serve.
func (s *Server) Stop() {
	close(s.stop)
}

// Serve accepts connections on l until Accept returns a non-temporary
// error, retrying temporary errors with an exponential backoff capped
// at one second.
func (s *Server) Serve(l net.Listener) error {
	var tempDelay time.Duration
	for {
		conn, err := l.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Temporary() {
				if tempDelay == 0 {
					tempDelay = 5 * time.Millisecond
				} else {
					tempDelay *= 2
				}
				if tempDelay > time.Second {
					tempDelay = time.Second
				}
				s.Logger.Warn("accept error, retrying", zap.Error(err), zap.Duration("delay", tempDelay))
				time.Sleep(tempDelay)
				continue
			}
			return err
		}
		tempDelay = 0
		go s.respond(conn)
	}
}

// respond reads one request line, dispatches it to the handler, and
// writes back exactly one response before closing the connection. A
// failed handshake or read closes the connection with no response.
// Gemini is not a keep-alive protocol: one request per connection.
func (s *Server) respond(conn net.Conn) {
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(requestReadTimeout))

	var buf [requestBufferSize]byte
	numBytes, err := conn.Read(buf[:])
	if err != nil {
		// Handshake or read failure: close without writing anything.
		return
	}

	w := newResponseWriter(conn)
	defer w.Flush()

	if numBytes > maxRequestLineLen {
		w.WriteHeader(StatusBadRequest, "Url size was larger than 1024")
		return
	}

	req, parseErr := ParseRequest(buf[:numBytes])
	if parseErr != nil {
		s.writeError(w, parseErr.(*Error))
		return
	}

	if tlsConn, ok := conn.(*tls.Conn); ok {
		if state := tlsConn.ConnectionState(); len(state.PeerCertificates) > 0 {
			req.Certificate = state.PeerCertificates[0]
		}
	}

	resp, handlerErr := s.handler.Handle(req)
	if handlerErr != nil && s.Tree.Settings.Log && !handlerErr.Meta {
		s.Logger.Warn(handlerErr.Message)
	}

	w.WriteHeader(resp.Status, resp.Meta)
	w.Write(resp.Body)
}

func (s *Server) writeError(w *responseWriter, err *Error) {
	if s.Tree.Settings.Log && !err.Meta {
		s.Logger.Warn(err.Message)
	}
	if s.Tree.Settings.ServeErrors || err.Meta {
		w.WriteHeader(err.Status, err.Message)
		return
	}
	w.WriteHeader(err.Status, "")
}
