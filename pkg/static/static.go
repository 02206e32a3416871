package static

import (
	"context"
	"path"
	"strings"
)

// Resolver looks up a file by request path and returns its content and
// MIME type. A missing file yields an error wrapping ErrNotFound.
type Resolver interface {
	Resolve(ctx context.Context, urlPath string) ([]byte, string, error)
}

// cleanPath turns a request path into a slash-separated relative name.
// It rejects paths that climb above the root and paths naming a directory.
func cleanPath(urlPath string) (string, error) {
	if urlPath == "" || strings.ContainsRune(urlPath, 0) {
		return "", ErrInvalidPath
	}
	if strings.HasSuffix(urlPath, "/") {
		return "", ErrNotFound
	}
	for seg := range strings.SplitSeq(urlPath, "/") {
		if seg == ".." {
			return "", ErrInvalidPath
		}
	}
	name := strings.TrimPrefix(path.Clean("/"+urlPath), "/")
	if name == "" || name == "." {
		return "", ErrNotFound
	}
	return name, nil
}
