package lang

import (
	"path/filepath"
	"sort"
	"strings"
)

// Registry maps language identifiers and file extensions to backends.
type Registry struct {
	byID  map[string]Backend
	byExt map[string]Backend
}

// NewRegistry creates a registry with every supported language backend.
func NewRegistry() *Registry {
	r := &Registry{
		byID:  make(map[string]Backend),
		byExt: make(map[string]Backend),
	}
	for _, b := range []Backend{
		NewGo(),
		NewPython(),
		NewJavaScript(),
		NewTypeScript(),
		NewRust(),
		NewC(),
		NewCpp(),
		NewJava(),
	} {
		r.register(b)
	}
	return r
}

func (r *Registry) register(b Backend) {
	r.byID[b.ID()] = b
	for _, ext := range b.Extensions() {
		r.byExt[strings.ToLower(ext)] = b
	}
}

// ForID returns the backend for a language identifier.
func (r *Registry) ForID(id string) (Backend, bool) {
	b, ok := r.byID[strings.ToLower(id)]
	return b, ok
}

// ForPath returns the backend claiming the file's extension.
func (r *Registry) ForPath(path string) (Backend, bool) {
	b, ok := r.byExt[strings.ToLower(filepath.Ext(path))]
	return b, ok
}

// Languages returns the supported language identifiers, sorted.
func (r *Registry) Languages() []string {
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Extensions returns the extension set for one language, or every known
// extension when language is empty.
func (r *Registry) Extensions(language string) []string {
	var exts []string
	if language == "" {
		for ext := range r.byExt {
			exts = append(exts, ext)
		}
	} else if b, ok := r.ForID(language); ok {
		exts = append(exts, b.Extensions()...)
	}
	sort.Strings(exts)
	return exts
}
