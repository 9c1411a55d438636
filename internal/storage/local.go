package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Local stores bundle blobs on the filesystem under
// <root>/<version>/<platform>.bundle and serves them via the static route.
type Local struct {
	root          string
	publicBaseURL string
}

func NewLocal(root, publicBaseURL string) *Local {
	return &Local{root: root, publicBaseURL: publicBaseURL}
}

func (l *Local) filePath(platform, version string) string {
	return filepath.Join(l.root, version, platform+".bundle")
}

func (l *Local) Put(ctx context.Context, platform, version string, r io.Reader) (string, error) {
	dir := filepath.Join(l.root, version)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create version dir: %w", err)
	}
	dst, err := os.Create(l.filePath(platform, version))
	if err != nil {
		return "", fmt.Errorf("create bundle file: %w", err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, r); err != nil {
		return "", fmt.Errorf("write bundle file: %w", err)
	}
	return fmt.Sprintf("%s/static/bundles/%s/%s.bundle", l.publicBaseURL, version, platform), nil
}

func (l *Local) Delete(ctx context.Context, platform, version string) error {
	path := l.filePath(platform, version)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return ErrBlobNotFound
		}
		return fmt.Errorf("remove bundle file: %w", err)
	}
	// drop the version dir once the last bundle in it is gone
	dir := filepath.Dir(path)
	if entries, err := os.ReadDir(dir); err == nil && len(entries) == 0 {
		_ = os.Remove(dir)
	}
	return nil
}
