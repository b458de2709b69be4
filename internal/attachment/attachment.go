// Package attachment stores uploaded files and hands back opaque references.
package attachment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/procura/internal/config"
)

// ErrTooLarge is returned when an upload exceeds the configured limit.
var ErrTooLarge = errors.New("attachment exceeds size limit")

// Store persists a file and returns a reference to it.
type Store interface {
	Store(ctx context.Context, name string, body io.Reader) (string, error)
}

// Module provides the configured attachment store.
var Module = fx.Provide(New)

// New selects the store named by ATTACHMENTS_DRIVER.
func New(cfg config.Config, logger *zap.Logger) (Store, error) {
	switch cfg.Attachments.Driver {
	case "local":
		logger.Info("attachments stored on local disk", zap.String("root", cfg.Attachments.Root))
		return NewLocal(cfg.Attachments.Root, cfg.Attachments.MaxBytes), nil
	case "s3":
		logger.Info("attachments stored in s3", zap.String("bucket", cfg.Attachments.S3.Bucket))
		return NewS3(context.Background(), cfg.Attachments.S3, cfg.Attachments.MaxBytes)
	default:
		return nil, fmt.Errorf("unsupported attachments driver: %s", cfg.Attachments.Driver)
	}
}

// objectKey derives a collision-free key that keeps the original extension.
func objectKey(name string) string {
	ext := strings.ToLower(filepath.Ext(path.Base(filepath.ToSlash(name))))
	return uuid.NewString() + ext
}

// limit wraps body so reads past max fail with ErrTooLarge.
func limit(body io.Reader, max int64) io.Reader {
	if max <= 0 {
		return body
	}
	return &limitedReader{r: io.LimitReader(body, max+1), remaining: max}
}

type limitedReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, ErrTooLarge
	}
	return n, err
}
