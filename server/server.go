package server

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"vireo/config"
	"vireo/engine"
	"vireo/websocket"
)

// zero time clears a previously set deadline
var noDeadline time.Time

// AppState is the process-wide state shared by reference across all
// connection workers: the immutable config, the cache, the logger and the
// plugin registry. Interior mutability lives behind the locks of the
// individual resources, never around the state itself.
type AppState struct {
	Config    *config.Config
	Cache     *Cache
	Log       *logrus.Logger
	Plugins   *PluginRegistry
	Mime      *MimeTable
	Blacklist *Blacklist

	routes []*routeEntry
}

// routeEntry is one dispatchable entry of the route table, in config order.
type routeEntry struct {
	matches   string
	kind      config.RouteKind
	file      string
	directory string
	target    string
	balancer  *LoadBalancer
}

// New builds the application state from a parsed configuration.
func New(cfg *config.Config) (*AppState, error) {
	log, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	blacklist, err := LoadBlacklist(cfg.Blacklist.File, cfg.Blacklist.Mode)
	if err != nil {
		return nil, err
	}

	mime := NewMimeTable()
	if cfg.MimeFile != "" {
		if err := mime.LoadFile(cfg.MimeFile); err != nil {
			return nil, fmt.Errorf("mime: %w", err)
		}
	}

	state := &AppState{
		Config:    cfg,
		Cache:     NewCache(cfg.CacheLimit),
		Log:       log,
		Plugins:   &PluginRegistry{},
		Mime:      mime,
		Blacklist: blacklist,
	}

	for i := range cfg.Routes {
		route := &cfg.Routes[i]
		entry := &routeEntry{
			matches:   route.Matches,
			kind:      route.Kind,
			file:      route.File,
			directory: route.Directory,
			target:    route.Target,
		}
		if route.Kind == config.RouteProxy {
			entry.balancer = NewLoadBalancer(route.Proxy, route.LoadBalancer)
		}
		state.routes = append(state.routes, entry)
	}

	// A bare `directory` option serves the whole tree, as the static
	// server does.
	if cfg.Directory != "" {
		state.routes = append(state.routes, &routeEntry{
			matches:   "/*",
			kind:      config.RouteDirectory,
			directory: cfg.Directory,
		})
	}

	if err := state.loadPlugins(); err != nil {
		return nil, err
	}

	return state, nil
}

// loadPlugins initialises every configured plugin. An unregistered library
// is skipped with a warning; a fatal load result aborts startup.
func (s *AppState) loadPlugins() error {
	for _, pc := range s.Config.Plugins {
		factory, exists := lookupPluginFactory(pc.Library)
		if !exists {
			s.Log.Warnf("no plugin registered for library %s, ignoring plugin %s", pc.Library, pc.Name)
			continue
		}
		if err := s.Plugins.Load(factory(), pc.Config, s); err != nil {
			return err
		}
	}
	if len(s.Config.Plugins) > 0 {
		s.Log.Infof("loaded %d plugins", s.Plugins.Count())
	}
	return nil
}

// Run starts the server and blocks until the listener fails or is shut down.
func (s *AppState) Run() error {
	app := engine.New(&engine.Settings{
		Threads:             s.Config.Threads,
		ConnectionCondition: s.verifyConnection,
		WebsocketHandler:    s.websocketHandler,
	})
	app.WithRoute("/*", s.handleRequest)

	addr := fmt.Sprintf("%s:%d", s.Config.Address, s.Config.Port)
	s.Log.Info("starting server")
	s.Log.Infof("running at %s", addr)
	s.Log.Debugf("configuration: %+v", s.Config)

	return app.Run(addr)
}

// verifyConnection is the admission hook: in block mode, blacklisted peers
// are dropped before any bytes are read.
func (s *AppState) verifyConnection(conn net.Conn) bool {
	addr := conn.RemoteAddr()
	if addr == nil {
		s.Log.Warn("corrupted stream attempted to connect")
		return false
	}
	if s.Blacklist.Mode == BlacklistBlock && s.Blacklist.Contains(peerIP(addr)) {
		s.Log.Warnf("%s: blacklisted IP attempted to connect", addr)
		return false
	}
	return true
}

// handleRequest dispatches a request through the plugin hooks and the route
// table. Handlers never propagate errors; every failure becomes a status
// code.
func (s *AppState) handleRequest(req *engine.Request) *engine.Response {
	if s.Blacklist.Mode == BlacklistForbidden && s.Blacklist.Contains(peerIP(req.Peer)) {
		s.Log.Warnf("%s: blacklisted IP attempted to request %s", req.Peer, req.URI)
		return s.errorResponse(req, engine.StatusForbidden)
	}

	res := s.Plugins.OnRequest(req, s)
	if res == nil {
		res = s.dispatch(req)
	}
	s.Plugins.OnResponse(res, s)

	return res
}

// dispatch scans the route table in order and invokes the first entry whose
// pattern matches the request URI.
func (s *AppState) dispatch(req *engine.Request) *engine.Response {
	for _, route := range s.routes {
		if !engine.Match(route.matches, req.URI) {
			continue
		}
		switch route.kind {
		case config.RouteFile:
			return s.fileHandler(req, route.file)
		case config.RouteDirectory:
			return s.directoryHandler(req, route.directory)
		case config.RouteProxy:
			return s.proxyHandler(req, route.balancer)
		case config.RouteRedirect:
			return s.redirectHandler(req, route.target)
		}
	}

	s.Log.Warnf("%s: 404 Not Found %s", req.Peer, req.URI)
	return s.notFound(req)
}

// websocketHandler tunnels a WebSocket connection to the configured backend
// as an opaque byte stream. The session ends when either direction ends;
// both sides get a best-effort close frame and are then closed.
func (s *AppState) websocketHandler(req *engine.Request, source net.Conn) {
	peer := req.Peer
	client := websocket.NewStream(source)

	if s.Config.WebsocketProxy == "" {
		s.Log.Warnf("%s: websocket connection attempted but no handler provided", peer)
		client.Release()
		source.Close()
		return
	}

	destination, err := net.DialTimeout("tcp", s.Config.WebsocketProxy, dialTimeout)
	if err != nil {
		s.Log.Errorf("%s: could not connect to websocket backend: %v", peer, err)
		client.Release()
		source.Close()
		return
	}
	backend := websocket.NewStream(destination)

	if _, err := backend.Write(req.Bytes()); err != nil {
		s.Log.Errorf("%s: could not forward websocket upgrade: %v", peer, err)
		client.Release()
		backend.Release()
		source.Close()
		destination.Close()
		return
	}

	// The idle deadline set while reading the upgrade request must not
	// apply to the tunnel.
	source.SetReadDeadline(noDeadline)

	s.Log.Infof("%s: websocket connected, proxying data", peer)

	done := make(chan error, 2)
	go func() { done <- pipe(backend, client) }()
	go func() { done <- pipe(client, backend) }()

	if err := <-done; err != nil {
		s.Log.Errorf("%s: error proxying websocket, connection closed: %v", peer, err)
	}
	client.Release()
	backend.Release()
	source.Close()
	destination.Close()
	<-done

	s.Log.Infof("%s: websocket session complete, connection closed", peer)
}

func (s *AppState) errorResponse(req *engine.Request, status int) *engine.Response {
	body := fmt.Sprintf("<html><body><h1>%d %s</h1></body></html>", status, engine.StatusText(status))
	return engine.NewResponse(status).
		WithBytes([]byte(body)).
		WithRequestCompatibility(req).
		WithGeneratedHeaders()
}

func newLogger(cfg *config.Config) (*logrus.Logger, error) {
	log := logrus.New()

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log: %w", err)
	}
	log.SetLevel(level)

	if cfg.LogFile != "" {
		file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("log: %w", err)
		}
		log.SetOutput(file)
	}

	return log, nil
}
