package config

// NodeKind tags a configuration tree node.
type NodeKind int

const (
	NodeNumber NodeKind = iota
	NodeBoolean
	NodeString
	NodeSection
	NodeRoute
)

// Node is a node in the configuration syntax tree. Leaves (Number, Boolean,
// String) use Key and Value; Section and Route use Key for the section name
// or route pattern and carry Children. The root of a parsed configuration is
// always a Section named "server".
type Node struct {
	Kind     NodeKind
	Key      string
	Value    string
	Children []*Node
}

// IsLeaf reports whether the node holds a value.
func (n *Node) IsLeaf() bool {
	switch n.Kind {
	case NodeNumber, NodeBoolean, NodeString:
		return true
	}
	return false
}

// Flatten walks the tree and inserts every leaf into m under its dotted path,
// prefixed by level. Sections named "plugins" are skipped; they have a
// dedicated extractor in GetPlugins.
func (n *Node) Flatten(m map[string]*Node, level []string) {
	switch n.Kind {
	case NodeSection:
		if n.Key == "plugins" {
			return
		}
		childLevel := append(append([]string(nil), level...), n.Key)
		for _, child := range n.Children {
			child.Flatten(m, childLevel)
		}
	case NodeNumber, NodeBoolean, NodeString:
		path := n.Key
		for i := len(level) - 1; i >= 0; i-- {
			path = level[i] + "." + path
		}
		m[path] = n
	}
}

// flattenChildren flattens a node's children with no prefix.
func flattenChildren(children []*Node) map[string]*Node {
	m := make(map[string]*Node)
	for _, child := range children {
		child.Flatten(m, nil)
	}
	return m
}

// RouteNodes is one route section: its wildcard pattern, flattened values
// and the raw child nodes. The raw nodes preserve repeated keys (several
// `proxy` lines form the backend list), which the flat map cannot.
type RouteNodes struct {
	Pattern string
	Values  map[string]*Node
	Nodes   []*Node
}

// GetRoutes returns, for each Route child of the node, its pattern and
// flattened children, in declaration order.
func (n *Node) GetRoutes() []RouteNodes {
	var routes []RouteNodes
	if n.Kind != NodeSection {
		return routes
	}
	for _, child := range n.Children {
		if child.Kind == NodeRoute {
			routes = append(routes, RouteNodes{
				Pattern: child.Key,
				Values:  flattenChildren(child.Children),
				Nodes:   child.Children,
			})
		}
	}
	return routes
}

// PluginNodes is one plugin section: its name and flattened values.
type PluginNodes struct {
	Name   string
	Values map[string]*Node
}

// GetPlugins returns, for each Section under the node's "plugins" section,
// its name and flattened children.
func (n *Node) GetPlugins() []PluginNodes {
	var plugins []PluginNodes
	if n.Kind != NodeSection {
		return plugins
	}
	for _, child := range n.Children {
		if child.Kind != NodeSection || child.Key != "plugins" {
			continue
		}
		for _, plugin := range child.Children {
			if plugin.Kind == NodeSection {
				plugins = append(plugins, PluginNodes{
					Name:   plugin.Key,
					Values: flattenChildren(plugin.Children),
				})
			}
		}
	}
	return plugins
}
