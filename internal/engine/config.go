package engine

import (
	"fmt"
	"strings"

	"github.com/kcosr/symgrep/internal/model"
)

// Mode selects how a pattern is evaluated.
type Mode string

const (
	ModeText   Mode = "text"
	ModeSymbol Mode = "symbol"
	ModeAuto   Mode = "auto"
)

// View selects what is materialized per symbol. Views compose; when
// several region views are requested, def wins over decl over parent.
type View string

const (
	ViewMeta    View = "meta"
	ViewDecl    View = "decl"
	ViewDef     View = "def"
	ViewParent  View = "parent"
	ViewComment View = "comment"
	ViewMatches View = "matches"
)

// ParseViews validates a comma-or-list view selection.
func ParseViews(names []string) ([]View, error) {
	var views []View
	for _, raw := range names {
		for _, name := range strings.Split(raw, ",") {
			name = strings.TrimSpace(strings.ToLower(name))
			if name == "" {
				continue
			}
			switch v := View(name); v {
			case ViewMeta, ViewDecl, ViewDef, ViewParent, ViewComment, ViewMatches:
				views = append(views, v)
			default:
				return nil, fmt.Errorf("unknown view %q", name)
			}
		}
	}
	return views, nil
}

// SearchConfig is the full input of a search operation.
type SearchConfig struct {
	Pattern      string
	Paths        []string
	Globs        []string
	ExcludeGlobs []string
	Language     string
	Mode         Mode
	Views        []View

	// Literal promotes substring matching on name and content to
	// whole-identifier matching.
	Literal bool

	// Limit caps the total number of matches plus symbols; nil means
	// unlimited. A zero limit yields empty results and reports
	// truncation iff anything was discoverable.
	Limit *int

	// MaxLines is presentation-only. Zero nulls text-mode snippets;
	// symbol-mode JSON snippets are never truncated.
	MaxLines *int

	// IndexPath points at an explicit index; UseIndex enables index
	// discovery under the first path. ReindexOnSearch refreshes the
	// index before querying it.
	IndexPath       string
	UseIndex        bool
	ReindexOnSearch bool

	// ContextLines is consumed by text renderers only; it never alters
	// the JSON document.
	ContextLines int

	// Hidden and NoIgnore relax the traversal conventions.
	Hidden   bool
	NoIgnore bool

	// forceCalls populates call edges even without call-graph filters;
	// set by the follow subsystem, which needs full neighborhoods.
	forceCalls bool
}

func (c *SearchConfig) hasView(v View) bool {
	for _, have := range c.Views {
		if have == v {
			return true
		}
	}
	return false
}

// regionView returns the winning region view, or "" when none was
// requested.
func (c *SearchConfig) regionView() View {
	switch {
	case c.hasView(ViewDef):
		return ViewDef
	case c.hasView(ViewDecl):
		return ViewDecl
	case c.hasView(ViewParent):
		return ViewParent
	}
	return ""
}

// contextKindOf maps a region view onto the context vocabulary.
func contextKindOf(v View) model.ContextKind {
	switch v {
	case ViewDecl:
		return model.ContextDecl
	case ViewParent:
		return model.ContextParent
	default:
		return model.ContextDef
	}
}

// IndexConfig is the full input of an index operation.
type IndexConfig struct {
	Paths        []string
	Globs        []string
	ExcludeGlobs []string
	Language     string
	// Backend selects "file" or "sqlite"; empty defaults to sqlite.
	Backend string
	// IndexPath overrides the default location under the first path.
	IndexPath string
}

// AttributesRequest updates the external annotations of exactly one
// indexed symbol.
type AttributesRequest struct {
	// IndexPath locates the index; empty discovers one under Root.
	IndexPath string
	Root      string
	Selector  AttributeSelector
	Keywords  []string
	// Description replaces the stored description.
	Description string
}

// AttributeSelector pins down the symbol to annotate.
type AttributeSelector struct {
	File      string
	Language  string
	Kind      string
	Name      string
	StartLine int
	EndLine   int
}
