package server

import (
	"os"
	"strings"

	yaml "gopkg.in/yaml.v2"
)

// builtinMimeTypes maps file extensions to MIME types.
var builtinMimeTypes = map[string]string{
	"html":  "text/html",
	"htm":   "text/html",
	"css":   "text/css",
	"js":    "text/javascript",
	"json":  "application/json",
	"xml":   "application/xml",
	"txt":   "text/plain",
	"png":   "image/png",
	"jpg":   "image/jpeg",
	"jpeg":  "image/jpeg",
	"gif":   "image/gif",
	"svg":   "image/svg+xml",
	"ico":   "image/x-icon",
	"pdf":   "application/pdf",
	"wasm":  "application/wasm",
	"mp4":   "video/mp4",
	"webm":  "video/webm",
	"woff":  "font/woff",
	"woff2": "font/woff2",
	"zip":   "application/zip",
}

const defaultMimeType = "application/octet-stream"

// MimeTable resolves file extensions to MIME types. A table starts from the
// built-in mapping and can be extended from a YAML file.
type MimeTable struct {
	types map[string]string
}

// NewMimeTable returns a table with the built-in types.
func NewMimeTable() *MimeTable {
	types := make(map[string]string, len(builtinMimeTypes))
	for ext, mime := range builtinMimeTypes {
		types[ext] = mime
	}
	return &MimeTable{types: types}
}

// LoadFile merges extension mappings from a YAML file of the form
// `ext: type/subtype`, overriding built-ins on conflict.
func (t *MimeTable) LoadFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	overrides := make(map[string]string)
	if err := yaml.Unmarshal(content, &overrides); err != nil {
		return err
	}
	for ext, mime := range overrides {
		t.types[strings.ToLower(strings.TrimPrefix(ext, "."))] = mime
	}
	return nil
}

// FromExtension returns the MIME type for ext (with or without a leading
// dot), defaulting to application/octet-stream.
func (t *MimeTable) FromExtension(ext string) string {
	if mime, exists := t.types[strings.ToLower(strings.TrimPrefix(ext, "."))]; exists {
		return mime
	}
	return defaultMimeType
}

// FromPath returns the MIME type for a file path by its extension.
func (t *MimeTable) FromPath(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return t.FromExtension(path[i+1:])
	}
	return defaultMimeType
}
