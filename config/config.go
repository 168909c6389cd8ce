package config

import (
	"os"

	"github.com/spf13/cast"
	validator "gopkg.in/go-playground/validator.v8"
)

// RouteKind selects the handler for a configured route.
type RouteKind int

const (
	RouteFile RouteKind = iota
	RouteDirectory
	RouteProxy
	RouteRedirect
)

// RouteConfig is one entry of the route table, in declaration order.
type RouteConfig struct {
	Matches      string
	Kind         RouteKind
	File         string
	Directory    string
	Target       string
	Proxy        []string
	LoadBalancer string `validate:"eq=round-robin|eq=random"`
}

// BlacklistConfig controls connection admission.
type BlacklistConfig struct {
	File string
	Mode string `validate:"eq=block|eq=forbidden"`
}

// PluginConfig names a plugin library and its key/value options.
type PluginConfig struct {
	Name    string
	Library string
	Config  map[string]string
}

// Config is the typed server configuration projected from the parsed tree.
type Config struct {
	Address        string `validate:"required"`
	Port           int    `validate:"min=1,max=65535"`
	Threads        int    `validate:"min=1"`
	Directory      string
	WebsocketProxy string
	CacheLimit     int64  `validate:"min=0"`
	CacheTime      int64  `validate:"min=0"`
	LogLevel       string `validate:"eq=error|eq=warn|eq=info|eq=debug"`
	LogFile        string
	MimeFile       string
	Blacklist      BlacklistConfig
	Routes         []RouteConfig
	Plugins        []PluginConfig
}

var validate = validator.New(&validator.Config{TagName: "validate"})

// Load reads, parses and binds the configuration file at path.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, newError("Could not read configuration file", path, 0)
	}
	tree, err := Parse(string(content), path)
	if err != nil {
		return nil, err
	}
	return FromTree(tree, path)
}

// FromTree projects the parsed tree into a typed Config, applying defaults,
// type coercion and validation.
func FromTree(root *Node, filename string) (*Config, error) {
	values := flattenChildren(root.Children)

	cfg := &Config{
		Address:    getString(values, "address", "0.0.0.0"),
		Port:       getInt(values, "port", 80),
		Threads:    getInt(values, "threads", 32),
		Directory:  getString(values, "directory", ""),
		CacheLimit: getInt64(values, "cache.limit", 0),
		CacheTime:  getInt64(values, "cache.time", 0),
		LogLevel:   getString(values, "log.level", "warn"),
		LogFile:    getString(values, "log.file", ""),
		MimeFile:   getString(values, "mime.file", ""),
		Blacklist: BlacklistConfig{
			File: getString(values, "blacklist.file", ""),
			Mode: getString(values, "blacklist.mode", "block"),
		},
		WebsocketProxy: getString(values, "websocket.proxy", ""),
	}

	for _, route := range root.GetRoutes() {
		routeCfg, err := bindRoute(route, filename)
		if err != nil {
			return nil, err
		}
		cfg.Routes = append(cfg.Routes, *routeCfg)
	}

	for _, plugin := range root.GetPlugins() {
		pluginCfg := PluginConfig{
			Name:    plugin.Name,
			Library: getString(plugin.Values, "library", ""),
			Config:  make(map[string]string),
		}
		for key, node := range plugin.Values {
			pluginCfg.Config[key] = node.Value
		}
		cfg.Plugins = append(cfg.Plugins, pluginCfg)
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, newError("Invalid configuration: "+err.Error(), filename, 0)
	}
	for _, route := range cfg.Routes {
		if err := validate.Struct(route); err != nil {
			return nil, newError("Invalid route "+route.Matches+": "+err.Error(), filename, 0)
		}
	}

	return cfg, nil
}

func bindRoute(route RouteNodes, filename string) (*RouteConfig, error) {
	cfg := &RouteConfig{
		Matches:      route.Pattern,
		LoadBalancer: getString(route.Values, "load_balancer", "round-robin"),
	}

	switch {
	case hasKey(route.Values, "file"):
		cfg.Kind = RouteFile
		cfg.File = getString(route.Values, "file", "")
	case hasKey(route.Values, "directory"):
		cfg.Kind = RouteDirectory
		cfg.Directory = getString(route.Values, "directory", "")
	case hasKey(route.Values, "proxy"):
		cfg.Kind = RouteProxy
		for _, node := range route.Nodes {
			if node.IsLeaf() && node.Key == "proxy" {
				cfg.Proxy = append(cfg.Proxy, node.Value)
			}
		}
	case hasKey(route.Values, "target"):
		cfg.Kind = RouteRedirect
		cfg.Target = getString(route.Values, "target", "")
	default:
		return nil, newError("Route "+route.Pattern+" requires one of `file`, `directory`, `proxy` or `target`", filename, 0)
	}

	return cfg, nil
}

func hasKey(values map[string]*Node, key string) bool {
	_, exists := values[key]
	return exists
}

func getString(values map[string]*Node, key, fallback string) string {
	if node, exists := values[key]; exists {
		return node.Value
	}
	return fallback
}

func getInt(values map[string]*Node, key string, fallback int) int {
	if node, exists := values[key]; exists {
		return cast.ToInt(node.Value)
	}
	return fallback
}

func getInt64(values map[string]*Node, key string, fallback int64) int64 {
	if node, exists := values[key]; exists {
		return cast.ToInt64(node.Value)
	}
	return fallback
}
