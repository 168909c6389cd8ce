package engine

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/netutil"
)

// Version of current package
const Version = "0.4.1"

// Settings is a struct holding the server settings.
type Settings struct {
	// ErrorHandler produces error responses (404 for unmatched routes, 400
	// for malformed requests, ...). The request argument is nil when the
	// request could not be parsed.
	// Default: a minimal HTML page showing the status code.
	ErrorHandler ErrorHandler `json:"-"`

	// ConnectionCondition is the admission hook, invoked on every accepted
	// connection before any bytes are read. Returning false drops the
	// connection immediately.
	// Default: nil (accept everything)
	ConnectionCondition func(net.Conn) bool `json:"-"`

	// WebsocketHandler takes over a connection as soon as a request on it
	// carries a WebSocket upgrade. The handler owns the connection from then on.
	// Default: nil (upgrade requests are routed like any other request)
	WebsocketHandler func(*Request, net.Conn) `json:"-"`

	// Enables the "Server: value" HTTP header.
	// Default: "vireo"
	ServerHeader string `json:"server_header"`

	// Maximum number of concurrently served connections.
	// Default: 32
	Threads int `json:"threads"`

	// The maximum amount of time to wait for the next request on a
	// keep-alive connection.
	// Default: 10s
	IdleTimeout time.Duration `json:"idle_timeout"`

	// When set to true, it will not print the startup banner.
	// Default: false
	DisableStartupMessage bool `json:"disable_startup_message"`
}

// default settings
const (
	defaultThreads     = 32
	defaultIdleTimeout = 10 * time.Second
)

var defaultErrorHandler = func(req *Request, status int) *Response {
	body := fmt.Sprintf("<html><body><h1>%d %s</h1></body></html>", status, StatusText(status))
	return NewResponse(status).
		WithBytes([]byte(body)).
		WithRequestCompatibility(req).
		WithGeneratedHeaders()
}

// App is an embeddable HTTP/1.1 server. Register handlers with WithRoute,
// then call Run or Listener.
type App struct {
	Router

	// App settings
	Settings *Settings `json:"settings"`

	mutex sync.Mutex
	ln    net.Listener
}

// New creates a new App instance.
//  app := engine.New()
// You can pass optional settings by passing a *Settings struct:
//  app := engine.New(&engine.Settings{
//      Threads: 64,
//      ServerHeader: "vireo",
//  })
func New(settings ...*Settings) *App {
	app := &App{
		Settings: &Settings{},
	}

	// Overwrite settings if provided
	if len(settings) > 0 {
		app.Settings = settings[0]
	}

	if app.Settings.Threads <= 0 {
		app.Settings.Threads = defaultThreads
	}
	if app.Settings.IdleTimeout <= 0 {
		app.Settings.IdleTimeout = defaultIdleTimeout
	}
	if app.Settings.ErrorHandler == nil {
		app.Settings.ErrorHandler = defaultErrorHandler
	}
	if app.Settings.ServerHeader == "" {
		app.Settings.ServerHeader = "vireo"
	}

	return app
}

// Run serves HTTP requests from the given address.
//
//  app.Run(":8080")
//  app.Run("127.0.0.1:8080")
func (app *App) Run(addr string) error {
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return app.Listener(ln)
}

// Listener serves HTTP requests from a custom listener.
func (app *App) Listener(ln net.Listener) error {
	// Bound concurrent connections to the configured thread count.
	ln = netutil.LimitListener(ln, app.Settings.Threads)

	app.mutex.Lock()
	app.ln = ln
	app.mutex.Unlock()

	if !app.Settings.DisableStartupMessage {
		app.startupMessage(ln.Addr().String())
	}

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return err
		}
		if cond := app.Settings.ConnectionCondition; cond != nil && !cond(conn) {
			conn.Close()
			continue
		}
		go app.serve(conn)
	}
}

// Shutdown closes the listener, stopping the accept loop. In-flight
// connections finish on their own.
func (app *App) Shutdown() error {
	app.mutex.Lock()
	defer app.mutex.Unlock()
	if app.ln == nil {
		return fmt.Errorf("shutdown: server is not running")
	}
	return app.ln.Close()
}

// serve is the per-connection worker. Requests on one connection are strictly
// serialized: a request fully completes before the next is read.
func (app *App) serve(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)

	for {
		conn.SetReadDeadline(time.Now().Add(app.Settings.IdleTimeout))

		req, err := ParseRequest(reader, conn.RemoteAddr())

		var res *Response
		switch {
		case err == nil:
			if app.Settings.WebsocketHandler != nil && isWebsocketUpgrade(req) {
				app.Settings.WebsocketHandler(req, conn)
				return
			}
			if handler := app.Lookup(req.URI); handler != nil {
				res = handler(req)
			} else {
				res = app.Settings.ErrorHandler(req, StatusNotFound)
			}
		default:
			reqErr, ok := err.(*RequestError)
			if !ok || reqErr.Kind == ErrStream {
				return
			}
			if reqErr.Kind == ErrTimeout {
				res = app.Settings.ErrorHandler(nil, StatusRequestTimeout)
			} else {
				res = app.Settings.ErrorHandler(nil, StatusBadRequest)
			}
		}

		res.Headers.Set(HeaderServer, app.Settings.ServerHeader)

		if _, werr := conn.Write(res.Bytes()); werr != nil {
			return
		}

		if err != nil || !req.KeepAlive() {
			return
		}
	}
}

func isWebsocketUpgrade(req *Request) bool {
	return strings.EqualFold(req.Headers.Get(HeaderUpgrade), "websocket") &&
		strings.Contains(strings.ToLower(req.Headers.Get(HeaderConnection)), "upgrade")
}
