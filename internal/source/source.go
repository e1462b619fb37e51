// Package source turns an input location into a local workbook path. Plain
// paths are used as is; http(s) and ftp URLs are downloaded first.
package source

import (
	"context"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// MaxWorkbookBytes caps a downloaded workbook.
const MaxWorkbookBytes = 50 << 20

// defaultName is used when a URL has no file name.
const defaultName = "catalogue.xlsx"

// ErrTooLarge is returned when a download exceeds MaxWorkbookBytes.
var ErrTooLarge = eris.New("source: workbook too large")

// Downloader retrieves a remote file.
type Downloader interface {
	// Download returns the remote body. The caller closes it.
	Download(ctx context.Context, rawURL string) (io.ReadCloser, error)
}

// Resolver maps input locations onto local files.
type Resolver struct {
	byScheme map[string]Downloader
}

// NewResolver creates a Resolver with HTTP and FTP downloaders using timeout.
func NewResolver(timeout time.Duration) *Resolver {
	h := NewHTTPDownloader(timeout)
	return &Resolver{byScheme: map[string]Downloader{
		"http":  h,
		"https": h,
		"ftp":   NewFTPDownloader(FTPOptions{Timeout: timeout}),
	}}
}

// IsRemote reports whether location is a URL this package downloads.
func IsRemote(location string) bool {
	u, err := url.Parse(location)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "ftp":
		return true
	}
	return false
}

// BaseName returns the file name of location, for both paths and URLs.
func BaseName(location string) string {
	if !IsRemote(location) {
		return filepath.Base(location)
	}
	u, _ := url.Parse(location)
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return defaultName
	}
	return name
}

// Fetch returns a local path for location. Remote files are written into dir,
// which the caller owns.
func (r *Resolver) Fetch(ctx context.Context, location, dir string) (string, error) {
	if !IsRemote(location) {
		return location, nil
	}
	u, _ := url.Parse(location)
	d, ok := r.byScheme[strings.ToLower(u.Scheme)]
	if !ok {
		return "", eris.Errorf("source: unsupported scheme %q", u.Scheme)
	}

	start := time.Now()
	rc, err := d.Download(ctx, location)
	if err != nil {
		return "", eris.Wrapf(err, "source: download %s", redact(u))
	}
	defer rc.Close() //nolint:errcheck

	dest := filepath.Join(dir, BaseName(location))
	n, err := writeCapped(dest, rc, MaxWorkbookBytes)
	if err != nil {
		return "", err
	}

	zap.L().Info("source: workbook downloaded",
		zap.String("url", redact(u)),
		zap.String("path", dest),
		zap.Int64("bytes", n),
		zap.Duration("elapsed", time.Since(start)),
	)
	return dest, nil
}

func writeCapped(dest string, r io.Reader, limit int64) (int64, error) {
	f, err := os.Create(dest)
	if err != nil {
		return 0, eris.Wrap(err, "source: create file")
	}
	defer f.Close() //nolint:errcheck

	n, err := io.Copy(f, io.LimitReader(r, limit+1))
	if err != nil {
		return n, eris.Wrap(err, "source: write file")
	}
	if n > limit {
		return n, eris.Wrapf(ErrTooLarge, "more than %d bytes", limit)
	}
	return n, nil
}

// Redact returns location with any URL user info removed, for storing and
// display. Local paths and unparsable locations are returned unchanged.
func Redact(location string) string {
	if !IsRemote(location) {
		return location
	}
	u, err := url.Parse(location)
	if err != nil {
		return location
	}
	return redact(u)
}

// redact drops credentials from u for logging.
func redact(u *url.URL) string {
	c := *u
	c.User = nil
	return c.String()
}
