package server

import (
	"bufio"
	"io"
	"math/rand"
	"net"
	"sync"
	"time"

	"vireo/engine"
)

// Load balancing policies, matching the `load_balancer` config key.
const (
	PolicyRoundRobin = "round-robin"
	PolicyRandom     = "random"
)

const (
	dialTimeout        = 5 * time.Second
	backendReadTimeout = 10 * time.Second
)

// LoadBalancer selects one backend per invocation. Targets are immutable
// after startup; the round-robin cursor is the only mutable state and sits
// behind its own lock so concurrent dispatches observe distinct cursors.
type LoadBalancer struct {
	mu      sync.Mutex
	targets []string
	cursor  int
	policy  string
}

// NewLoadBalancer creates a load balancer over targets.
func NewLoadBalancer(targets []string, policy string) *LoadBalancer {
	return &LoadBalancer{targets: targets, policy: policy}
}

// Select returns the next backend. Round-robin advances the cursor modulo the
// target count; random picks uniformly with no shared mutation.
func (lb *LoadBalancer) Select() string {
	if len(lb.targets) == 0 {
		return ""
	}
	if lb.policy == PolicyRandom {
		return lb.targets[rand.Intn(len(lb.targets))]
	}

	lb.mu.Lock()
	target := lb.targets[lb.cursor]
	lb.cursor = (lb.cursor + 1) % len(lb.targets)
	lb.mu.Unlock()
	return target
}

// Targets returns the configured backends.
func (lb *LoadBalancer) Targets() []string {
	return lb.targets
}

// proxyHandler forwards the request to a backend chosen by the load balancer
// and relays its response. The original request bytes are written verbatim,
// with Host rewritten to the target. A failed dial or read yields 502; the
// request is not retried against alternate backends.
func (s *AppState) proxyHandler(req *engine.Request, lb *LoadBalancer) *engine.Response {
	target := lb.Select()

	conn, err := net.DialTimeout("tcp", target, dialTimeout)
	if err != nil {
		s.Log.Warnf("%s: could not connect to backend %s: %v", req.Peer, target, err)
		return s.errorResponse(req, engine.StatusBadGateway)
	}
	defer conn.Close()

	forward := req.Clone()
	forward.Headers.Set(engine.HeaderHost, target)

	if _, err := conn.Write(forward.Bytes()); err != nil {
		s.Log.Warnf("%s: could not write to backend %s: %v", req.Peer, target, err)
		return s.errorResponse(req, engine.StatusBadGateway)
	}

	conn.SetReadDeadline(time.Now().Add(backendReadTimeout))
	res, err := engine.ParseResponse(bufio.NewReader(conn))
	if err != nil {
		s.Log.Warnf("%s: could not read from backend %s: %v", req.Peer, target, err)
		return s.errorResponse(req, engine.StatusBadGateway)
	}

	s.Log.Debugf("%s: proxied %s to %s", req.Peer, req.URI, target)
	return res.WithRequestCompatibility(req).WithGeneratedHeaders()
}

// pipe copies bytes from src to dst until EOF or error. Used in pairs for
// WebSocket tunneling.
func pipe(dst io.Writer, src io.Reader) error {
	_, err := io.Copy(dst, src)
	return err
}
