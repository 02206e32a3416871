package static

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

const defaultMaxSize = 32 << 20

// Dir serves files from a local directory. Lookups go through os.Root, so
// symlinks and relative paths cannot escape the directory.
type Dir struct {
	root    *os.Root
	maxSize int64
}

// DirOption configures a Dir resolver.
type DirOption func(*Dir)

// WithMaxSize caps the size of a served file. Default: 32 MiB.
func WithMaxSize(n int64) DirOption {
	return func(d *Dir) {
		if n > 0 {
			d.maxSize = n
		}
	}
}

// NewDir opens dir as a static root.
func NewDir(dir string, opts ...DirOption) (*Dir, error) {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}
	d := &Dir{root: root, maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Resolve reads the file named by urlPath. Directories are not served.
func (d *Dir) Resolve(_ context.Context, urlPath string) ([]byte, string, error) {
	name, err := cleanPath(urlPath)
	if err != nil {
		return nil, "", err
	}

	f, err := d.root.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", fmt.Errorf("%w: %s", ErrNotFound, urlPath)
		}
		return nil, "", errors.Join(ErrInvalidPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, "", err
	}
	if info.IsDir() {
		return nil, "", fmt.Errorf("%w: %s", ErrNotFound, urlPath)
	}
	if info.Size() > d.maxSize {
		return nil, "", fmt.Errorf("%w: %s", ErrTooLarge, urlPath)
	}

	data, err := io.ReadAll(io.LimitReader(f, d.maxSize))
	if err != nil {
		return nil, "", err
	}
	return data, MIMEType(name), nil
}

// Close releases the directory handle.
func (d *Dir) Close() error {
	return d.root.Close()
}

var _ Resolver = (*Dir)(nil)
