package server

import (
	"os"
	"path"
	"strings"

	"vireo/engine"
)

// index candidates tried, in order, when a directory is requested
var indexFiles = []string{"index.html", "index.htm"}

// fileHandler serves a single configured file for every matching URI.
func (s *AppState) fileHandler(req *engine.Request, file string) *engine.Response {
	if cached, exists := s.Cache.Get(file); exists {
		s.Log.Infof("%s: 200 OK (cached) %s", req.Peer, req.URI)
		return s.serveBytes(req, cached.Data, cached.MimeType)
	}

	data, err := os.ReadFile(file)
	if err != nil {
		s.Log.Warnf("%s: 404 Not Found %s", req.Peer, req.URI)
		return s.notFound(req)
	}

	mimeType := s.Mime.FromPath(file)
	s.cacheFile(file, data, mimeType, req)
	s.Log.Infof("%s: 200 OK %s", req.Peer, req.URI)
	return s.serveBytes(req, data, mimeType)
}

// directoryHandler resolves the request URI against a base directory:
// a file is served directly; a directory redirects to its slash-terminated
// URI or serves its first existing index candidate; anything else is 404.
// URIs escaping the base after normalization are rejected.
func (s *AppState) directoryHandler(req *engine.Request, base string) *engine.Response {
	uri := req.URI
	if i := strings.IndexByte(uri, '?'); i >= 0 {
		uri = uri[:i]
	}

	// The cleaned path is rooted, so `..` components cannot climb above the
	// base directory.
	cleaned := cleanPath(uri)
	full := base + strings.TrimSuffix(cleaned, "/")

	if cached, exists := s.Cache.Get(full); exists {
		s.Log.Infof("%s: 200 OK (cached) %s", req.Peer, req.URI)
		return s.serveBytes(req, cached.Data, cached.MimeType)
	}

	info, err := os.Stat(full)
	if err != nil {
		s.Log.Warnf("%s: 404 Not Found %s", req.Peer, req.URI)
		return s.notFound(req)
	}

	if info.IsDir() {
		if !strings.HasSuffix(cleaned, "/") {
			location := uri + "/"
			s.Log.Infof("%s: 301 Moved Permanently %s", req.Peer, req.URI)
			return engine.NewResponse(engine.StatusMovedPermanently).
				WithHeader(engine.HeaderLocation, location).
				WithRequestCompatibility(req).
				WithGeneratedHeaders()
		}
		for _, index := range indexFiles {
			candidate := full + "/" + index
			if data, err := os.ReadFile(candidate); err == nil {
				mimeType := s.Mime.FromPath(candidate)
				s.cacheFile(candidate, data, mimeType, req)
				s.Log.Infof("%s: 200 OK %s", req.Peer, req.URI)
				return s.serveBytes(req, data, mimeType)
			}
		}
		s.Log.Warnf("%s: 404 Not Found %s", req.Peer, req.URI)
		return s.notFound(req)
	}

	data, err := os.ReadFile(full)
	if err != nil {
		s.Log.Warnf("%s: 404 Not Found %s", req.Peer, req.URI)
		return s.notFound(req)
	}
	mimeType := s.Mime.FromPath(full)
	s.cacheFile(full, data, mimeType, req)
	s.Log.Infof("%s: 200 OK %s", req.Peer, req.URI)
	return s.serveBytes(req, data, mimeType)
}

// redirectHandler answers with a 302 to the configured target.
func (s *AppState) redirectHandler(req *engine.Request, target string) *engine.Response {
	s.Log.Infof("%s: 302 Found %s", req.Peer, req.URI)
	return engine.NewResponse(engine.StatusFound).
		WithHeader(engine.HeaderLocation, target).
		WithRequestCompatibility(req).
		WithGeneratedHeaders()
}

func (s *AppState) serveBytes(req *engine.Request, data []byte, mimeType string) *engine.Response {
	return engine.NewResponse(engine.StatusOK).
		WithHeader(engine.HeaderContentType, mimeType).
		WithBytes(data).
		WithRequestCompatibility(req).
		WithGeneratedHeaders()
}

func (s *AppState) cacheFile(path string, data []byte, mimeType string, req *engine.Request) {
	if s.Config.CacheLimit <= 0 {
		return
	}
	if int64(len(data)) > s.Config.CacheLimit {
		s.Log.Warnf("%s: couldn't cache, cache too small %s", req.Peer, req.URI)
		return
	}
	s.Cache.Set(path, data, mimeType)
	s.Log.Debugf("%s: cached %s", req.Peer, req.URI)
}

func (s *AppState) notFound(req *engine.Request) *engine.Response {
	return engine.NewResponse(engine.StatusNotFound).
		WithHeader(engine.HeaderContentType, "text/html").
		WithBytes([]byte("<h1>404 Not Found</h1>")).
		WithRequestCompatibility(req).
		WithGeneratedHeaders()
}

// cleanPath returns the canonical path for p, eliminating . and .. elements.
func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if p[0] != '/' {
		p = "/" + p
	}
	np := path.Clean(p)
	// path.Clean removes trailing slash except for root;
	// put the trailing slash back if necessary.
	if p[len(p)-1] == '/' && np != "/" {
		np += "/"
	}
	return np
}
