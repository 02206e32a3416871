package static

import (
	"mime"
	"path"
	"strings"
)

// MIMEOctetStream is served when an extension is unknown.
const MIMEOctetStream = "application/octet-stream"

// knownTypes is consulted before the system MIME database so common web
// assets get the same type on every platform.
var knownTypes = map[string]string{
	".css":   "text/css",
	".js":    "application/javascript",
	".mjs":   "application/javascript",
	".json":  "application/json",
	".html":  "text/html",
	".htm":   "text/html",
	".txt":   "text/plain",
	".xml":   "application/xml",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".png":   "image/png",
	".gif":   "image/gif",
	".svg":   "image/svg+xml",
	".webp":  "image/webp",
	".ico":   "image/x-icon",
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".pdf":   "application/pdf",
	".wasm":  "application/wasm",
	".map":   "application/json",
}

// MIMEType returns the content type for a file name based on its extension.
func MIMEType(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if ext == "" {
		return MIMEOctetStream
	}
	if t, ok := knownTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return MIMEOctetStream
}
