package model

import "time"

// Result document versions. The two streams are independent semver
// strings: adding optional fields is a MINOR bump, removing or renaming
// required fields or changing semantics is MAJOR.
const (
	SearchResultVersion = "1.2.0"
	FollowResultVersion = "1.0.0"
)

// SearchMatch is one text-mode line hit. Snippet holds the matched line
// and is nil when the caller asked for no snippet text (max_lines 0).
type SearchMatch struct {
	Path    string  `json:"path"`
	Line    int     `json:"line"`
	Column  int     `json:"column"`
	Snippet *string `json:"snippet"`
}

// SearchSummary totals a result document. TotalMatches counts matches and
// symbols together; Truncated is set when a limit cut the result short.
type SearchSummary struct {
	TotalMatches int  `json:"total_matches"`
	Truncated    bool `json:"truncated"`
}

// SearchResult is the versioned top-level search payload.
type SearchResult struct {
	Version  string        `json:"version"`
	Query    string        `json:"query"`
	Matches  []SearchMatch `json:"matches"`
	Symbols  []Symbol      `json:"symbols"`
	Contexts []ContextInfo `json:"contexts"`
	Summary  SearchSummary `json:"summary"`
}

// NewSearchResult returns an empty result document for the given query,
// with the current payload version and non-nil slices so JSON renders
// empty arrays rather than nulls.
func NewSearchResult(query string) *SearchResult {
	return &SearchResult{
		Version:  SearchResultVersion,
		Query:    query,
		Matches:  []SearchMatch{},
		Symbols:  []Symbol{},
		Contexts: []ContextInfo{},
	}
}

// FollowDirection selects which side of the call graph a follow expands.
type FollowDirection string

const (
	FollowCallers FollowDirection = "callers"
	FollowCallees FollowDirection = "callees"
	FollowBoth    FollowDirection = "both"
)

// FollowSymbolRef identifies the far end of a follow edge.
type FollowSymbolRef struct {
	Name string     `json:"name"`
	Kind SymbolKind `json:"kind,omitempty"`
	File string     `json:"file"`
}

// CallSite is a single observed call location.
type CallSite struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column,omitempty"`
}

// FollowEdge groups every call site between a target and one neighbor.
type FollowEdge struct {
	Symbol    FollowSymbolRef `json:"symbol"`
	CallSites []CallSite      `json:"call_sites"`
}

// FollowTarget is one matched symbol with its caller/callee neighborhood.
type FollowTarget struct {
	Symbol  Symbol       `json:"symbol"`
	Callers []FollowEdge `json:"callers,omitempty"`
	Callees []FollowEdge `json:"callees,omitempty"`
}

// FollowResult is the versioned top-level follow payload.
type FollowResult struct {
	Version   string          `json:"version"`
	Direction FollowDirection `json:"direction"`
	Query     string          `json:"query"`
	Targets   []FollowTarget  `json:"targets"`
}

// IndexSummary reports the outcome of an index run.
type IndexSummary struct {
	Backend        string     `json:"backend"`
	IndexPath      string     `json:"index_path"`
	FilesIndexed   int        `json:"files_indexed"`
	SymbolsIndexed int        `json:"symbols_indexed"`
	RootPath       string     `json:"root_path,omitempty"`
	SchemaVersion  string     `json:"schema_version,omitempty"`
	ToolVersion    string     `json:"tool_version,omitempty"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}
