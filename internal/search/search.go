package search

// Result is a single checklist search hit returned to the caller.
type Result struct {
	ChecklistID  string `json:"checklistId"`
	AsignacionID int    `json:"asignacionId"`
	NoUnidad     string `json:"noUnidad"`
	TipoUnidad   string `json:"tipoUnidad"`
	Operador     string `json:"operador"`
	Snippet      string `json:"snippet"`
}

// Query describes a checklist search request.
type Query struct {
	Text       string
	TipoUnidad string // empty = all unit types
	Limit      int
	Offset     int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search over submitted checklists.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// ChecklistRecord is the data indexed per submitted checklist: the answer
// text flattened into a searchable blob plus the assignment context used for
// filtering and display.
type ChecklistRecord struct {
	ID           string `json:"id"`
	AsignacionID int    `json:"asignacionId"`
	NoUnidad     string `json:"noUnidad"`
	Placas       string `json:"placas"`
	TipoUnidad   string `json:"tipoUnidad"`
	Operador     string `json:"operador"`
	Respuestas   string `json:"respuestas"`
	CreatedAt    int64  `json:"createdAt"`
}
