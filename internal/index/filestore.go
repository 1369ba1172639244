package index

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/kcosr/symgrep/internal/model"
)

// File backend layout inside the index directory.
const (
	metaFileName    = "meta.json"
	filesFileName   = "files.jsonl"
	symbolsFileName = "symbols.jsonl"
)

// FileStore is the directory-of-JSONL index backend: meta.json plus one
// record per line in files.jsonl and symbols.jsonl. All queries are
// streaming scans filtered in memory; every rewrite goes through a
// sibling temp file, fsync, and rename.
type FileStore struct {
	dir string

	mu      sync.RWMutex
	files   []FileRecord
	symbols []SymbolRecord
	nextFileID   int64
	nextSymbolID int64
	loaded  bool
}

// OpenFile opens (or prepares) a file-backend index at dir.
func OpenFile(dir string) (*FileStore, error) {
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) Backend() string { return BackendFile }
func (s *FileStore) Path() string    { return s.dir }

func (s *FileStore) Initialize(meta IndexMeta) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	if _, err := os.Stat(filepath.Join(s.dir, metaFileName)); err == nil {
		return nil
	}
	if err := s.SaveMeta(meta); err != nil {
		return err
	}
	if err := writeAtomic(filepath.Join(s.dir, filesFileName), nil); err != nil {
		return err
	}
	return writeAtomic(filepath.Join(s.dir, symbolsFileName), nil)
}

func (s *FileStore) LoadMeta() (IndexMeta, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, metaFileName))
	if err != nil {
		return IndexMeta{}, fmt.Errorf("read meta.json: %w", err)
	}
	var meta IndexMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return IndexMeta{}, fmt.Errorf("%w: meta.json: %v", ErrCorrupt, err)
	}
	if err := checkSchema(meta.SchemaVersion); err != nil {
		return IndexMeta{}, err
	}
	return meta, nil
}

func (s *FileStore) SaveMeta(meta IndexMeta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomic(filepath.Join(s.dir, metaFileName), append(data, '\n'))
}

func (s *FileStore) UpsertFile(f FileRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return 0, err
	}
	for i := range s.files {
		if s.files[i].Path == f.Path {
			f.ID = s.files[i].ID
			s.files[i] = f
			return f.ID, s.flushFiles()
		}
	}
	s.nextFileID++
	f.ID = s.nextFileID
	s.files = append(s.files, f)
	return f.ID, s.flushFiles()
}

func (s *FileStore) ListFiles() ([]FileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return nil, err
	}
	out := make([]FileRecord, len(s.files))
	copy(out, s.files)
	return out, nil
}

func (s *FileStore) GetFileByPath(path string) (*FileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return nil, err
	}
	for i := range s.files {
		if s.files[i].Path == path {
			f := s.files[i]
			return &f, nil
		}
	}
	return nil, nil
}

func (s *FileStore) ReplaceSymbols(fileID int64, symbols []SymbolRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return err
	}
	kept := s.symbols[:0]
	for _, rec := range s.symbols {
		if rec.FileID != fileID {
			kept = append(kept, rec)
		}
	}
	s.symbols = kept
	for _, rec := range symbols {
		s.nextSymbolID++
		rec.ID = s.nextSymbolID
		rec.FileID = fileID
		s.symbols = append(s.symbols, rec)
	}
	return s.flushSymbols()
}

func (s *FileStore) QuerySymbols(q SymbolQuery) ([]SymbolRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return nil, err
	}
	paths := s.pathsByFileID()
	var out []SymbolRecord
	for _, rec := range s.symbols {
		rec.Path = paths[rec.FileID]
		if !matchesQuery(&rec, q) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *FileStore) UpdateSymbolAttributes(sel SymbolSelector, attrs model.SymbolAttributes) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return err
	}
	paths := s.pathsByFileID()
	matched := -1
	for i := range s.symbols {
		s.symbols[i].Path = paths[s.symbols[i].FileID]
		if !sel.Matches(&s.symbols[i]) {
			continue
		}
		if matched >= 0 {
			return ErrSelectorAmbiguous
		}
		matched = i
	}
	if matched < 0 {
		return ErrSelectorNoMatch
	}
	rec := &s.symbols[matched]
	if rec.Extra == nil {
		rec.Extra = &model.SymbolAttributes{}
	}
	rec.Extra.Keywords = attrs.Keywords
	rec.Extra.Description = attrs.Description
	return s.flushSymbols()
}

func (s *FileStore) DeleteFile(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return err
	}
	var fileID int64 = -1
	kept := s.files[:0]
	for _, f := range s.files {
		if f.Path == path {
			fileID = f.ID
			continue
		}
		kept = append(kept, f)
	}
	s.files = kept
	if fileID < 0 {
		return nil
	}
	keptSyms := s.symbols[:0]
	for _, rec := range s.symbols {
		if rec.FileID != fileID {
			keptSyms = append(keptSyms, rec)
		}
	}
	s.symbols = keptSyms
	if err := s.flushFiles(); err != nil {
		return err
	}
	return s.flushSymbols()
}

func (s *FileStore) CountSymbols() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return 0, err
	}
	return len(s.symbols), nil
}

func (s *FileStore) Close() error { return nil }

// load reads the JSONL files once per store instance.
func (s *FileStore) load() error {
	if s.loaded {
		return nil
	}
	files, err := readJSONL[FileRecord](filepath.Join(s.dir, filesFileName))
	if err != nil {
		return err
	}
	symbols, err := readJSONL[SymbolRecord](filepath.Join(s.dir, symbolsFileName))
	if err != nil {
		return err
	}
	s.files = files
	s.symbols = symbols
	for _, f := range s.files {
		if f.ID > s.nextFileID {
			s.nextFileID = f.ID
		}
	}
	for _, rec := range s.symbols {
		if rec.ID > s.nextSymbolID {
			s.nextSymbolID = rec.ID
		}
	}
	s.loaded = true
	return nil
}

func (s *FileStore) pathsByFileID() map[int64]string {
	paths := make(map[int64]string, len(s.files))
	for _, f := range s.files {
		paths[f.ID] = f.Path
	}
	return paths
}

func (s *FileStore) flushFiles() error {
	sort.Slice(s.files, func(i, j int) bool { return s.files[i].ID < s.files[j].ID })
	return writeJSONL(filepath.Join(s.dir, filesFileName), s.files)
}

func (s *FileStore) flushSymbols() error {
	sort.Slice(s.symbols, func(i, j int) bool { return s.symbols[i].ID < s.symbols[j].ID })
	return writeJSONL(filepath.Join(s.dir, symbolsFileName), s.symbols)
}

// matchesQuery applies the coarse store-level filter to one record.
func matchesQuery(rec *SymbolRecord, q SymbolQuery) bool {
	if q.Name != "" {
		if q.NameExact {
			if rec.Name != q.Name {
				return false
			}
		} else if !strings.Contains(rec.Name, q.Name) {
			return false
		}
	}
	if q.Kind != "" && string(rec.Kind) != q.Kind {
		return false
	}
	if q.Language != "" && rec.Language != q.Language {
		return false
	}
	if q.PathContains != "" && !strings.Contains(rec.Path, q.PathContains) {
		return false
	}
	return true
}

func readJSONL[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var out []T
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var rec T
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, fmt.Errorf("%w: %s line %d: %v", ErrCorrupt, filepath.Base(path), line, err)
		}
		out = append(out, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func writeJSONL[T any](path string, records []T) error {
	var b strings.Builder
	enc := json.NewEncoder(&b)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return writeAtomic(path, []byte(b.String()))
}

// writeAtomic writes to a sibling temp file, fsyncs, and renames over the
// target so readers never observe a partial rewrite.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
