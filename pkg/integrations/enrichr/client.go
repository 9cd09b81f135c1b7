package enrichr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/matzehuels/goenrichr/pkg/integrations"
)

const (
	// DefaultBaseURL is the public Enrichr deployment.
	DefaultBaseURL = "https://maayanlab.cloud/Enrichr"

	// DefaultExportTimeout bounds a single export download. Large libraries
	// can take minutes to render server-side.
	DefaultExportTimeout = 5 * time.Minute
)

// Options configures [NewClient]. Zero values select defaults.
type Options struct {
	BaseURL       string        // defaults to DefaultBaseURL
	ExportTimeout time.Duration // defaults to DefaultExportTimeout
	Timeout       time.Duration // per-call timeout for everything except Export
	RateLimit     float64       // requests per second; 0 selects the default, negative disables
	HTTPClient    *http.Client  // optional replacement transport
}

// Client provides access to the Enrichr API.
//
// The client performs exactly one HTTP exchange per method call and never
// retries. Callers wrap [Client.Export] in an [httputil.Policy] when they
// want repeated attempts.
//
// All methods are safe for concurrent use by multiple goroutines.
//
// [httputil.Policy]: github.com/matzehuels/goenrichr/pkg/httputil.Policy
type Client struct {
	*integrations.Client
	baseURL       string
	exportTimeout time.Duration
}

// NewClient creates an Enrichr client.
func NewClient(o Options) *Client {
	if o.BaseURL == "" {
		o.BaseURL = DefaultBaseURL
	}
	if o.ExportTimeout <= 0 {
		o.ExportTimeout = DefaultExportTimeout
	}
	opts := []integrations.Option{integrations.WithHTTPClient(o.HTTPClient), integrations.WithTimeout(o.Timeout)}
	switch {
	case o.RateLimit > 0:
		opts = append(opts, integrations.WithRateLimit(o.RateLimit, 1))
	case o.RateLimit < 0:
		opts = append(opts, integrations.WithRateLimit(0, 0))
	}
	return &Client{
		Client:        integrations.NewClient(map[string]string{"User-Agent": integrations.UserAgent}, opts...),
		baseURL:       strings.TrimRight(o.BaseURL, "/"),
		exportTimeout: o.ExportTimeout,
	}
}

// BaseURL returns the server root this client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// AddList uploads a newline-separated gene list and returns the identifiers
// the server assigned to it.
func (c *Client) AddList(ctx context.Context, list, description string) (*AddListResponse, error) {
	var resp AddListResponse
	fields := map[string]string{"list": list, "description": description}
	if err := c.PostMultipart(ctx, c.url("addList", nil), fields, &resp); err != nil {
		return nil, err
	}
	if resp.UserListID == 0 {
		return nil, fmt.Errorf("addList: response carries no userListId")
	}
	return &resp, nil
}

// View returns the gene symbols the server recognized in a submitted list.
func (c *Client) View(ctx context.Context, userListID int64) ([]string, error) {
	var resp ViewResponse
	q := url.Values{"userListId": {strconv.FormatInt(userListID, 10)}}
	if err := c.Get(ctx, c.url("view", q), &resp); err != nil {
		return nil, err
	}
	return resp.Genes, nil
}

// Enrich asks the server to compute enrichment of a submitted list against
// library. The response body is only checked for well-formed JSON.
func (c *Client) Enrich(ctx context.Context, userListID int64, library string) error {
	var ack json.RawMessage
	q := url.Values{
		"userListId":     {strconv.FormatInt(userListID, 10)},
		"backgroundType": {library},
	}
	return c.Get(ctx, c.url("enrich", q), &ack)
}

// Export downloads the tab-separated enrichment report for a submitted list
// against library. filename only names the server-side attachment.
func (c *Client) Export(ctx context.Context, userListID int64, filename, library string) (string, error) {
	q := url.Values{
		"userListId":     {strconv.FormatInt(userListID, 10)},
		"filename":       {filename},
		"backgroundType": {library},
	}
	return c.GetText(ctx, c.url("export", q), c.exportTimeout)
}

// Libraries returns the names of every gene-set library the server offers,
// in server order.
func (c *Client) Libraries(ctx context.Context) ([]string, error) {
	var raw json.RawMessage
	if err := c.Get(ctx, c.url("datasetStatistics", nil), &raw); err != nil {
		return nil, err
	}
	return parseCatalog(raw)
}

func (c *Client) url(endpoint string, q url.Values) string {
	return integrations.JoinURL(c.baseURL, endpoint, q)
}

// parseCatalog accepts both the statistics envelope and a bare array of names.
func parseCatalog(raw json.RawMessage) ([]string, error) {
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '{' {
		var stats CatalogResponse
		if err := json.Unmarshal(trimmed, &stats); err != nil {
			return nil, fmt.Errorf("datasetStatistics: %w", err)
		}
		names := make([]string, 0, len(stats.Statistics))
		for _, s := range stats.Statistics {
			if s.LibraryName != "" {
				names = append(names, s.LibraryName)
			}
		}
		return names, nil
	}

	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return nil, fmt.Errorf("datasetStatistics: unrecognized catalog format")
	}
	return names, nil
}
