// Package fetcher opens the incident dataset from a local path or a remote
// http(s) or ftp URL.
package fetcher

import (
	"context"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Fetcher downloads a remote resource.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}

// Options configures Open.
type Options struct {
	Timeout    time.Duration
	MaxRetries int
	UserAgent  string
}

// Opener resolves a dataset source to a reader.
type Opener struct {
	http Fetcher
	ftp  Fetcher
}

// NewOpener creates an Opener with HTTP and FTP fetchers built from opts.
func NewOpener(opts Options) *Opener {
	return &Opener{
		http: NewHTTPFetcher(HTTPOptions{
			Timeout:    opts.Timeout,
			MaxRetries: opts.MaxRetries,
			UserAgent:  opts.UserAgent,
		}),
		ftp: NewFTPFetcher(FTPOptions{Timeout: opts.Timeout}),
	}
}

// Open returns a reader for source. Sources with an http, https or ftp
// scheme are downloaded; anything else is treated as a file path.
// The caller must close the returned reader.
func (o *Opener) Open(ctx context.Context, source string) (io.ReadCloser, error) {
	if source == "" {
		return nil, eris.New("fetcher: empty source")
	}

	switch scheme(source) {
	case "http", "https":
		zap.L().Info("fetcher: downloading dataset", zap.String("url", source))
		return o.http.Download(ctx, source)
	case "ftp":
		zap.L().Info("fetcher: downloading dataset over ftp", zap.String("url", source))
		return o.ftp.Download(ctx, source)
	}

	f, err := os.Open(strings.TrimPrefix(source, "file://"))
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: open %s", source)
	}
	return f, nil
}

func scheme(source string) string {
	u, err := url.Parse(source)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Scheme)
}
