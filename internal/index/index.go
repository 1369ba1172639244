// Package index implements the persistent symbol index: a logical store
// interface with two interchangeable backends (a directory of JSONL
// files and a single-file sqlite database), incremental building with
// change detection, and identity-based attribute preservation across
// reindex passes.
package index

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/kcosr/symgrep/internal/model"
)

// SchemaVersion is the on-disk schema generation this build reads and
// writes. Indexes with a newer schema_version must be rebuilt.
const SchemaVersion = "1"

// ToolVersion is stamped into index metadata; overridden at build time.
var ToolVersion = "dev"

// Default index locations under a search root.
const (
	DefaultDir        = ".symgrep"
	DefaultSQLiteName = "index.sqlite"
)

// Backend names as they appear in IndexSummary.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

var (
	// ErrVersionMismatch is returned when an index was written by a
	// newer schema; the caller must rebuild.
	ErrVersionMismatch = errors.New("index schema version is newer than supported")
	// ErrSelectorNoMatch is returned when a symbol selector resolves to
	// no record.
	ErrSelectorNoMatch = errors.New("symbol selector matched no symbol")
	// ErrSelectorAmbiguous is returned when a symbol selector resolves
	// to more than one record.
	ErrSelectorAmbiguous = errors.New("symbol selector matched multiple symbols")
	// ErrCorrupt marks unreadable index state.
	ErrCorrupt = errors.New("index is corrupt")
)

// IndexMeta describes an index instance.
type IndexMeta struct {
	SchemaVersion string    `json:"schema_version"`
	ToolVersion   string    `json:"tool_version"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	RootPath      string    `json:"root_path,omitempty"`
}

// FileRecord tracks one indexed source file.
type FileRecord struct {
	ID       int64  `json:"id"`
	Path     string `json:"path"`
	Language string `json:"language"`
	Hash     string `json:"hash"`
	Mtime    int64  `json:"mtime"`
	Size     int64  `json:"size,omitempty"`
}

// SymbolRecord is the stored form of a symbol. Extra carries the
// structured attributes; it is serialized to JSON only at the storage
// boundary.
type SymbolRecord struct {
	ID        int64                    `json:"id"`
	FileID    int64                    `json:"file_id"`
	Name      string                   `json:"name"`
	Kind      model.SymbolKind         `json:"kind"`
	Language  string                   `json:"language"`
	Range     model.TextRange          `json:"range"`
	Signature string                   `json:"signature,omitempty"`
	Extra     *model.SymbolAttributes  `json:"extra,omitempty"`

	// Path is the owning file's path, resolved on read; it is not part
	// of the stored record.
	Path string `json:"-"`
}

// ToSymbol converts a stored record back into the domain entity.
func (r *SymbolRecord) ToSymbol() model.Symbol {
	return model.Symbol{
		Name:       r.Name,
		Kind:       r.Kind,
		Language:   r.Language,
		File:       r.Path,
		Range:      r.Range,
		Signature:  r.Signature,
		Attributes: r.Extra,
	}
}

// RecordOf converts a freshly extracted symbol into its stored form.
func RecordOf(sym *model.Symbol, fileID int64) SymbolRecord {
	return SymbolRecord{
		FileID:    fileID,
		Name:      sym.Name,
		Kind:      sym.Kind,
		Language:  sym.Language,
		Range:     sym.Range,
		Signature: sym.Signature,
		Extra:     sym.Attributes,
		Path:      sym.File,
	}
}

// identity returns the record's reindex identity key.
func (r *SymbolRecord) identity() model.IdentityKey {
	return model.IdentityKey{
		Kind:      r.Kind,
		Name:      r.Name,
		StartLine: r.Range.StartLine,
		EndLine:   r.Range.EndLine,
		Signature: r.Signature,
	}
}

// SymbolQuery is the coarse pre-filter a store can evaluate natively.
// The engine always re-applies the full query expression to whatever a
// store returns, so a backend may over-match but never under-match.
type SymbolQuery struct {
	// Name is a substring constraint; NameExact upgrades it to
	// equality.
	Name      string
	NameExact bool
	// Kind and Language are exact constraints when non-empty.
	Kind     string
	Language string
	// PathContains is a substring constraint on the owning file path.
	PathContains string
}

// SymbolSelector pins down exactly one stored symbol for attribute
// updates. Zero-valued fields are wildcards.
type SymbolSelector struct {
	File      string
	Language  string
	Kind      model.SymbolKind
	Name      string
	StartLine int
	EndLine   int
}

// Matches reports whether a record satisfies every set selector field.
func (s SymbolSelector) Matches(r *SymbolRecord) bool {
	if s.File != "" && r.Path != s.File {
		return false
	}
	if s.Language != "" && r.Language != s.Language {
		return false
	}
	if s.Kind != "" && r.Kind != s.Kind {
		return false
	}
	if s.Name != "" && r.Name != s.Name {
		return false
	}
	if s.StartLine != 0 && r.Range.StartLine != s.StartLine {
		return false
	}
	if s.EndLine != 0 && r.Range.EndLine != s.EndLine {
		return false
	}
	return true
}

// Store is the logical index interface both backends implement.
type Store interface {
	// Backend returns the backend name ("file" or "sqlite").
	Backend() string
	// Path returns the index location on disk.
	Path() string
	// Initialize creates the on-disk layout and writes initial
	// metadata. Safe to call on an existing index.
	Initialize(meta IndexMeta) error
	// LoadMeta reads index metadata, checking schema compatibility.
	LoadMeta() (IndexMeta, error)
	// SaveMeta persists index metadata.
	SaveMeta(meta IndexMeta) error
	// UpsertFile inserts or updates a file record and returns its id.
	UpsertFile(f FileRecord) (int64, error)
	// ListFiles returns every tracked file.
	ListFiles() ([]FileRecord, error)
	// GetFileByPath returns the record for a path, or nil.
	GetFileByPath(path string) (*FileRecord, error)
	// ReplaceSymbols atomically replaces every symbol of a file.
	ReplaceSymbols(fileID int64, symbols []SymbolRecord) error
	// QuerySymbols returns records satisfying the coarse query, with
	// Path resolved.
	QuerySymbols(q SymbolQuery) ([]SymbolRecord, error)
	// UpdateSymbolAttributes replaces keywords and description on the
	// single record the selector resolves to; the extracted comment is
	// never touched.
	UpdateSymbolAttributes(sel SymbolSelector, attrs model.SymbolAttributes) error
	// DeleteFile removes a file and its symbols.
	DeleteFile(path string) error
	// CountSymbols returns the number of stored symbols.
	CountSymbols() (int, error)
	// Close releases backend resources.
	Close() error
}

// mergeAttributes carries external annotations forward across a reindex.
// For every fresh symbol whose identity key exists in the old records,
// keywords and description are preserved; the comment always comes from
// the fresh extraction.
func mergeAttributes(old []SymbolRecord, fresh []SymbolRecord) []SymbolRecord {
	keyed := make(map[model.IdentityKey]*SymbolRecord, len(old))
	for i := range old {
		keyed[old[i].identity()] = &old[i]
	}
	for i := range fresh {
		prev, ok := keyed[fresh[i].identity()]
		if !ok || prev.Extra == nil {
			continue
		}
		if len(prev.Extra.Keywords) == 0 && prev.Extra.Description == "" {
			continue
		}
		if fresh[i].Extra == nil {
			fresh[i].Extra = &model.SymbolAttributes{}
		}
		fresh[i].Extra.Keywords = prev.Extra.Keywords
		fresh[i].Extra.Description = prev.Extra.Description
	}
	return fresh
}

// checkSchema validates a stored schema version against this build.
func checkSchema(stored string) error {
	if stored == "" {
		return fmt.Errorf("%w: missing schema_version", ErrCorrupt)
	}
	have, err1 := strconv.Atoi(stored)
	want, err2 := strconv.Atoi(SchemaVersion)
	if err1 != nil || err2 != nil {
		if stored != SchemaVersion {
			return fmt.Errorf("%w: have %s, support %s", ErrVersionMismatch, stored, SchemaVersion)
		}
		return nil
	}
	if have > want {
		return fmt.Errorf("%w: have %d, support %d", ErrVersionMismatch, have, want)
	}
	return nil
}

// NewMeta returns fresh metadata for a new index rooted at rootPath.
func NewMeta(rootPath string) IndexMeta {
	now := time.Now().UTC()
	return IndexMeta{
		SchemaVersion: SchemaVersion,
		ToolVersion:   ToolVersion,
		CreatedAt:     now,
		UpdatedAt:     now,
		RootPath:      rootPath,
	}
}

// Open opens a store of the named backend at path, creating nothing.
func Open(backend, path string) (Store, error) {
	switch backend {
	case BackendSQLite:
		return OpenSQLite(path)
	case BackendFile:
		return OpenFile(path)
	default:
		return nil, fmt.Errorf("unknown index backend %q", backend)
	}
}

// Discover applies the default selection policy for a search root:
// prefer an existing sqlite index, then a file index, else report that no
// index exists.
func Discover(root string) (Store, error) {
	dir := filepath.Join(root, DefaultDir)
	sqlitePath := filepath.Join(dir, DefaultSQLiteName)
	if _, err := os.Stat(sqlitePath); err == nil {
		return OpenSQLite(sqlitePath)
	}
	if _, err := os.Stat(filepath.Join(dir, "meta.json")); err == nil {
		return OpenFile(dir)
	}
	return nil, os.ErrNotExist
}
