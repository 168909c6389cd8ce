package engine

import "net/textproto"

// Common header names used by the framework.
const (
	HeaderHost                = "Host"
	HeaderConnection          = "Connection"
	HeaderContentLength       = "Content-Length"
	HeaderContentType         = "Content-Type"
	HeaderDate                = "Date"
	HeaderServer              = "Server"
	HeaderLocation            = "Location"
	HeaderUpgrade             = "Upgrade"
	HeaderUserAgent           = "User-Agent"
	HeaderCacheControl        = "Cache-Control"
	HeaderSecWebSocketKey     = "Sec-WebSocket-Key"
	HeaderSecWebSocketVersion = "Sec-WebSocket-Version"
)

// Headers is a header map with case-insensitive lookup and stable insertion
// order for serialization. Setting an existing name overwrites its value and
// keeps its original position, so duplicates on the wire are last-wins.
type Headers struct {
	keys   []string
	values map[string]string
}

// Set stores a header value under the canonical form of name.
func (h *Headers) Set(name, value string) {
	if h.values == nil {
		h.values = make(map[string]string)
	}
	key := textproto.CanonicalMIMEHeaderKey(name)
	if _, exists := h.values[key]; !exists {
		h.keys = append(h.keys, key)
	}
	h.values[key] = value
}

// Get returns the value for name, or an empty string if it is not set.
func (h *Headers) Get(name string) string {
	return h.values[textproto.CanonicalMIMEHeaderKey(name)]
}

// Has reports whether name is set.
func (h *Headers) Has(name string) bool {
	_, exists := h.values[textproto.CanonicalMIMEHeaderKey(name)]
	return exists
}

// Del removes name from the map.
func (h *Headers) Del(name string) {
	key := textproto.CanonicalMIMEHeaderKey(name)
	if _, exists := h.values[key]; !exists {
		return
	}
	delete(h.values, key)
	for i, k := range h.keys {
		if k == key {
			h.keys = append(h.keys[:i], h.keys[i+1:]...)
			break
		}
	}
}

// Len returns the number of headers.
func (h *Headers) Len() int {
	return len(h.keys)
}

// Each calls fn for every header in insertion order.
func (h *Headers) Each(fn func(name, value string)) {
	for _, k := range h.keys {
		fn(k, h.values[k])
	}
}

// Clone returns a deep copy.
func (h *Headers) Clone() Headers {
	clone := Headers{}
	h.Each(func(name, value string) {
		clone.Set(name, value)
	})
	return clone
}
