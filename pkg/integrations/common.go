package integrations

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/matzehuels/goenrichr/pkg/buildinfo"
)

const (
	// DefaultTimeout bounds ordinary API calls.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the request rate allowed against a single service.
	DefaultRateLimit = 4.0
)

var (
	// UserAgent identifies this client to remote services.
	UserAgent = buildinfo.UserAgent()

	// ErrNotFound is returned when a resource doesn't exist on the server.
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for HTTP failures (timeouts, connection errors, non-2xx responses).
	ErrNetwork = errors.New("network error")
)

// NewHTTPClient creates an HTTP client for service requests. It carries no
// client-wide timeout: every request is bounded by its own context deadline
// so long downloads can be given more time than ordinary calls.
func NewHTTPClient() *http.Client {
	return &http.Client{}
}

// JoinURL appends path to base and encodes query. A trailing slash on base
// and a leading slash on path are collapsed.
func JoinURL(base, path string, query url.Values) string {
	u := strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}
