// Package enrichrtest provides an in-process fake Enrichr server.
//
// The server implements the five endpoints used by goenrichr, records every
// request in arrival order, and can be told to fail an endpoint a given
// number of times. It is safe for concurrent use.
package enrichrtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Endpoint names as recorded in [Request.Endpoint].
const (
	EndpointAddList = "addList"
	EndpointView    = "view"
	EndpointEnrich  = "enrich"
	EndpointExport  = "export"
	EndpointCatalog = "datasetStatistics"
)

// DefaultResult is the report returned by export for libraries without a
// configured result: two enriched terms.
const DefaultResult = "Term\tOverlap\tP-value\tAdjusted P-value\tOld P-value\tOld Adjusted P-value\tOdds Ratio\tCombined Score\tGenes\n" +
	"p53 signaling pathway\t2/72\t1.2e-05\t0.0004\t0\t0\t181.5\t2054.3\tTP53;EGFR\n" +
	"Pathways in cancer\t3/531\t3.4e-04\t0.0051\t0\t0\t48.2\t384.7\tTP53;BRCA1;EGFR\n"

// DefaultCatalog is the library catalog served until [Server.SetCatalog] is called.
var DefaultCatalog = []string{
	"KEGG_2021_Human",
	"GO_Biological_Process_2023",
	"GO_Molecular_Function_2023",
	"Reactome_2022",
	"WikiPathway_2023_Human",
}

// Request is one recorded call.
type Request struct {
	Endpoint   string
	UserListID int64
	Library    string
}

type failure struct {
	remaining int // negative means forever
	status    int
}

type userList struct {
	genes       []string
	description string
}

// Server is a fake Enrichr deployment backed by httptest.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	catalog  []string
	bareList bool
	results  map[string]string
	unknown  map[string]bool
	failures map[string]*failure
	requests []Request
	lists    map[int64]userList
	nextID   int64
}

// NewServer starts a fake server. Call Close when done.
func NewServer() *Server {
	s := &Server{
		catalog:  append([]string(nil), DefaultCatalog...),
		results:  make(map[string]string),
		unknown:  make(map[string]bool),
		failures: make(map[string]*failure),
		lists:    make(map[int64]userList),
		nextID:   363320,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post("/addList", s.handleAddList)
	r.Get("/view", s.handleView)
	r.Get("/enrich", s.handleEnrich)
	r.Get("/export", s.handleExport)
	r.Get("/datasetStatistics", s.handleCatalog)

	s.Server = httptest.NewServer(r)
	return s
}

// SetCatalog replaces the served library catalog.
func (s *Server) SetCatalog(names ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog = append([]string(nil), names...)
}

// ServeBareCatalog makes the catalog endpoint return a plain JSON array of
// names instead of the statistics envelope.
func (s *Server) ServeBareCatalog(bare bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bareList = bare
}

// SetResult sets the export body returned for library.
func (s *Server) SetResult(library, tsv string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[library] = tsv
}

// SetUnknown marks genes the view endpoint will not report as recognized.
func (s *Server) SetUnknown(genes ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range genes {
		s.unknown[g] = true
	}
}

// FailNext makes the next n calls to endpoint respond with status.
// A negative n fails every call.
func (s *Server) FailNext(endpoint string, n, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[endpoint] = &failure{remaining: n, status: status}
}

// Requests returns every recorded call in arrival order.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Calls returns how many times endpoint was called.
func (s *Server) Calls(endpoint string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.Endpoint == endpoint {
			n++
		}
	}
	return n
}

// record logs the request and reports the injected failure status, if any.
func (s *Server) record(endpoint string, id int64, library string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, Request{Endpoint: endpoint, UserListID: id, Library: library})
	f, ok := s.failures[endpoint]
	if !ok || f.remaining == 0 {
		return 0
	}
	if f.remaining > 0 {
		f.remaining--
	}
	return f.status
}

func (s *Server) handleAddList(w http.ResponseWriter, r *http.Request) {
	if status := s.record(EndpointAddList, 0, ""); status != 0 {
		http.Error(w, "injected failure", status)
		return
	}
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "bad multipart body", http.StatusBadRequest)
		return
	}
	list := r.FormValue("list")
	if strings.TrimSpace(list) == "" {
		http.Error(w, "empty list", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.lists[id] = userList{genes: firstFields(list), description: r.FormValue("description")}
	s.mu.Unlock()

	writeJSON(w, map[string]any{"userListId": id, "shortId": fmt.Sprintf("%x", id)})
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	id, ok := s.lookupID(w, r, EndpointView)
	if !ok {
		return
	}
	s.mu.Lock()
	list := s.lists[id]
	genes := make([]string, 0, len(list.genes))
	for _, g := range list.genes {
		if !s.unknown[g] {
			genes = append(genes, g)
		}
	}
	s.mu.Unlock()
	writeJSON(w, map[string]any{"genes": genes, "description": list.description})
}

func (s *Server) handleEnrich(w http.ResponseWriter, r *http.Request) {
	id, ok := s.lookupID(w, r, EndpointEnrich)
	if !ok {
		return
	}
	library := r.URL.Query().Get("backgroundType")
	writeJSON(w, map[string]any{library: []any{}, "userListId": id})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.lookupID(w, r, EndpointExport); !ok {
		return
	}
	library := r.URL.Query().Get("backgroundType")
	s.mu.Lock()
	body, ok := s.results[library]
	s.mu.Unlock()
	if !ok {
		body = DefaultResult
	}
	w.Header().Set("Content-Type", "text/tab-separated-values")
	w.Header().Set("Content-Disposition", "attachment; filename="+r.URL.Query().Get("filename")+".txt")
	fmt.Fprint(w, body)
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	if status := s.record(EndpointCatalog, 0, ""); status != 0 {
		http.Error(w, "injected failure", status)
		return
	}
	s.mu.Lock()
	names := append([]string(nil), s.catalog...)
	bare := s.bareList
	s.mu.Unlock()

	if bare {
		writeJSON(w, names)
		return
	}
	stats := make([]map[string]any, len(names))
	for i, n := range names {
		stats[i] = map[string]any{"libraryName": n, "numTerms": 100 + i}
	}
	writeJSON(w, map[string]any{"statistics": stats})
}

// lookupID records the call, applies injected failures, and resolves the
// userListId query parameter. It writes the error response itself.
func (s *Server) lookupID(w http.ResponseWriter, r *http.Request, endpoint string) (int64, bool) {
	id, _ := strconv.ParseInt(r.URL.Query().Get("userListId"), 10, 64)
	if status := s.record(endpoint, id, r.URL.Query().Get("backgroundType")); status != 0 {
		http.Error(w, "injected failure", status)
		return 0, false
	}
	s.mu.Lock()
	_, known := s.lists[id]
	s.mu.Unlock()
	if !known {
		http.Error(w, "unknown userListId", http.StatusNotFound)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func firstFields(list string) []string {
	var genes []string
	for _, line := range strings.Split(list, "\n") {
		f := strings.FieldsFunc(line, func(r rune) bool { return r == '\t' || r == ',' })
		if len(f) > 0 && strings.TrimSpace(f[0]) != "" {
			genes = append(genes, strings.TrimSpace(f[0]))
		}
	}
	return genes
}
