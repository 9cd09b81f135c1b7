// Package integrations provides the shared HTTP client used by remote
// service clients.
//
// # Overview
//
// Service-specific clients live in subpackages and embed [Client]:
//
//   - [enrichr]: the Enrichr gene-set enrichment API
//
// # Shared Infrastructure
//
// [Client] handles:
//   - Token-bucket rate limiting ([golang.org/x/time/rate])
//   - Per-request timeouts, overridable for slow downloads
//   - Status mapping: 404 becomes [ErrNotFound]; 429 and 5xx become
//     [httputil.RetryableError] wrapping [ErrNetwork]; other non-2xx
//     responses become a plain [ErrNetwork]
//   - HTTP events reported through [observability.HTTP]
//
// The client never retries on its own. Callers decide which operations are
// worth repeating by running them under an [httputil.Policy].
//
// [enrichr]: github.com/matzehuels/goenrichr/pkg/integrations/enrichr
// [httputil.RetryableError]: github.com/matzehuels/goenrichr/pkg/httputil.RetryableError
// [httputil.Policy]: github.com/matzehuels/goenrichr/pkg/httputil.Policy
// [observability.HTTP]: github.com/matzehuels/goenrichr/pkg/observability.HTTP
package integrations
