package attachment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Local writes attachments under a root directory.
type Local struct {
	root     string
	maxBytes int64
}

// NewLocal returns a disk-backed store.
func NewLocal(root string, maxBytes int64) *Local {
	return &Local{root: root, maxBytes: maxBytes}
}

// Store implements Store. The reference is the path relative to the root.
func (l *Local) Store(ctx context.Context, name string, body io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(l.root, 0o755); err != nil {
		return "", fmt.Errorf("create attachment root: %w", err)
	}

	key := objectKey(name)
	dst := filepath.Join(l.root, key)
	f, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create attachment: %w", err)
	}

	_, copyErr := io.Copy(f, limit(body, l.maxBytes))
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(dst)
		if errors.Is(copyErr, ErrTooLarge) {
			return "", ErrTooLarge
		}
		return "", fmt.Errorf("write attachment: %w", err)
	}
	return key, nil
}
