package server

import (
	"fmt"
	"sync"

	"vireo/engine"
)

// LoadResult reports how loading a plugin went.
type LoadResult int

const (
	// LoadOk means the plugin initialised and is active.
	LoadOk LoadResult = iota
	// LoadNonFatal means the plugin failed but the server can continue
	// without it.
	LoadNonFatal
	// LoadFatal means startup must be aborted.
	LoadFatal
)

// Plugin observes and optionally overrides request handling. The ABI beyond
// this interface is opaque to the server.
type Plugin interface {
	Name() string

	// Load initialises the plugin from its config section.
	Load(conf map[string]string, state *AppState) (LoadResult, error)

	// OnRequest runs before dispatch. A non-nil response overrides the
	// route table entirely.
	OnRequest(req *engine.Request, state *AppState) *engine.Response

	// OnResponse runs on every response before it is written.
	OnResponse(res *engine.Response, state *AppState)
}

// PluginRegistry holds loaded plugins. Loading happens once at startup under
// the write lock; per-request hooks run under the read lock.
type PluginRegistry struct {
	mu      sync.RWMutex
	plugins []Plugin
}

// pluginFactories maps the `library` value of a plugins section to a
// constructor. Go has no portable dynamic loading, so embedders register
// their plugins here before the server starts.
var pluginFactories = struct {
	mu sync.RWMutex
	m  map[string]func() Plugin
}{m: make(map[string]func() Plugin)}

// RegisterPluginFactory makes a plugin constructor available to the startup
// loader under its library name.
func RegisterPluginFactory(library string, factory func() Plugin) {
	pluginFactories.mu.Lock()
	pluginFactories.m[library] = factory
	pluginFactories.mu.Unlock()
}

func lookupPluginFactory(library string) (func() Plugin, bool) {
	pluginFactories.mu.RLock()
	defer pluginFactories.mu.RUnlock()
	factory, exists := pluginFactories.m[library]
	return factory, exists
}

// Load initialises p and registers it. A LoadNonFatal result skips the
// plugin with a warning; LoadFatal returns an error that must abort startup.
func (r *PluginRegistry) Load(p Plugin, conf map[string]string, state *AppState) error {
	result, err := p.Load(conf, state)
	switch result {
	case LoadOk:
		r.mu.Lock()
		r.plugins = append(r.plugins, p)
		r.mu.Unlock()
		state.Log.Infof("initialised plugin %s", p.Name())
		return nil
	case LoadNonFatal:
		state.Log.Warnf("non-fatal plugin error in %s: %v, ignoring this plugin", p.Name(), err)
		return nil
	default:
		return fmt.Errorf("could not initialise plugin %s: %w", p.Name(), err)
	}
}

// Count returns the number of active plugins.
func (r *PluginRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// OnRequest offers the request to every plugin in order. The first non-nil
// response wins.
func (r *PluginRegistry) OnRequest(req *engine.Request, state *AppState) *engine.Response {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.plugins {
		if res := p.OnRequest(req, state); res != nil {
			return res
		}
	}
	return nil
}

// OnResponse passes the response to every plugin in order.
func (r *PluginRegistry) OnResponse(res *engine.Response, state *AppState) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.plugins {
		p.OnResponse(res, state)
	}
}
