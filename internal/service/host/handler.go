package host

import (
	"context"
	"net/http"
	"path"
	"strings"

	"github.com/oshokin/extension-host/internal/logger"
)

const (
	// ArchiveContentType is the MIME type browsers expect for CRX downloads.
	ArchiveContentType = "application/x-chrome-extension"
	// FeedContentType is served for the update feed.
	FeedContentType = "text/xml; charset=utf-8"
)

// newHandler returns a file server for dir that sets extension-specific
// content types and hides dot files such as the publish marker.
func newHandler(ctx context.Context, dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)

			return
		}

		name := path.Clean("/" + r.URL.Path)
		if hasDotSegment(name) {
			http.NotFound(w, r)
			return
		}

		switch path.Ext(name) {
		case ".crx":
			w.Header().Set("Content-Type", ArchiveContentType)
		case ".xml":
			w.Header().Set("Content-Type", FeedContentType)
			// Browsers must see a new version as soon as it is published.
			w.Header().Set("Cache-Control", "no-cache")
		}

		logger.DebugKV(ctx, "Serving request", "method", r.Method, "path", name, "remote", r.RemoteAddr)

		files.ServeHTTP(w, r)
	})
}

// hasDotSegment reports whether any path element starts with a dot.
func hasDotSegment(name string) bool {
	for _, segment := range strings.Split(name, "/") {
		if strings.HasPrefix(segment, ".") {
			return true
		}
	}

	return false
}
