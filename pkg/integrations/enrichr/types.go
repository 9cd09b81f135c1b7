package enrichr

// AddListResponse identifies a gene list stored on the server.
type AddListResponse struct {
	UserListID int64  `json:"userListId"`
	ShortID    string `json:"shortId"`
}

// ViewResponse is the server's view of a stored gene list.
type ViewResponse struct {
	Genes       []string `json:"genes"`
	Description string   `json:"description,omitempty"`
}

// CatalogResponse is the body of the datasetStatistics endpoint.
type CatalogResponse struct {
	Statistics []LibraryStats `json:"statistics"`
}

// LibraryStats describes one gene-set library. Only the name is used.
type LibraryStats struct {
	LibraryName  string `json:"libraryName"`
	NumTerms     int    `json:"numTerms,omitempty"`
	GeneCoverage int    `json:"geneCoverage,omitempty"`
	Link         string `json:"link,omitempty"`
}
