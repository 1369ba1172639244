package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kcosr/symgrep/internal/model"
)

// fileRow is the gorm model for the files table.
type fileRow struct {
	ID       int64  `gorm:"primaryKey;autoIncrement"`
	Path     string `gorm:"uniqueIndex;not null"`
	Language string `gorm:"type:varchar(50)"`
	Hash     string `gorm:"type:varchar(64)"`
	Mtime    int64
	Size     int64
}

func (fileRow) TableName() string { return "files" }

// symbolRow is the gorm model for the symbols table. Extra is the JSON
// serialization of model.SymbolAttributes.
type symbolRow struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	FileID    int64  `gorm:"index;not null"`
	Name      string `gorm:"index;not null"`
	Kind      string `gorm:"index;type:varchar(30)"`
	Language  string `gorm:"index;type:varchar(50)"`
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
	Signature string         `gorm:"type:text"`
	Extra     datatypes.JSON `gorm:"type:text"`
}

func (symbolRow) TableName() string { return "symbols" }

// metaRow is one key/value pair of index metadata.
type metaRow struct {
	Key   string `gorm:"primaryKey;type:varchar(40)"`
	Value string `gorm:"type:text"`
}

func (metaRow) TableName() string { return "meta" }

// SQLStore is the single-file sqlite index backend. Queries run as plain
// statements outside any transaction, so a search holds no read-only
// snapshot across its statements. ReplaceSymbols, DeleteFile, and SaveMeta
// each run in one writer transaction; UpsertFile is a single statement
// outside them.
type SQLStore struct {
	path string
	db   *gorm.DB
}

// OpenSQLite opens (or creates) a sqlite index at path and migrates the
// schema.
func OpenSQLite(path string) (*SQLStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite index %s: %w", path, err)
	}
	if err := db.AutoMigrate(&metaRow{}, &fileRow{}, &symbolRow{}); err != nil {
		return nil, fmt.Errorf("migrate index schema: %w", err)
	}
	return &SQLStore{path: path, db: db}, nil
}

func (s *SQLStore) Backend() string { return BackendSQLite }
func (s *SQLStore) Path() string    { return s.path }

func (s *SQLStore) Initialize(meta IndexMeta) error {
	existing, err := s.metaValue("schema_version")
	if err == nil && existing != "" {
		return nil
	}
	return s.SaveMeta(meta)
}

func (s *SQLStore) LoadMeta() (IndexMeta, error) {
	var rows []metaRow
	if err := s.db.Find(&rows).Error; err != nil {
		return IndexMeta{}, fmt.Errorf("load meta: %w", err)
	}
	meta := IndexMeta{}
	for _, row := range rows {
		switch row.Key {
		case "schema_version":
			meta.SchemaVersion = row.Value
		case "tool_version":
			meta.ToolVersion = row.Value
		case "created_at":
			meta.CreatedAt, _ = time.Parse(time.RFC3339, row.Value)
		case "updated_at":
			meta.UpdatedAt, _ = time.Parse(time.RFC3339, row.Value)
		case "root_path":
			meta.RootPath = row.Value
		}
	}
	if err := checkSchema(meta.SchemaVersion); err != nil {
		return IndexMeta{}, err
	}
	return meta, nil
}

func (s *SQLStore) SaveMeta(meta IndexMeta) error {
	pairs := map[string]string{
		"schema_version": meta.SchemaVersion,
		"tool_version":   meta.ToolVersion,
		"created_at":     meta.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at":     meta.UpdatedAt.UTC().Format(time.RFC3339),
		"root_path":      meta.RootPath,
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		for key, value := range pairs {
			row := metaRow{Key: key, Value: value}
			if err := tx.Save(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLStore) metaValue(key string) (string, error) {
	var row metaRow
	err := s.db.First(&row, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return row.Value, nil
}

func (s *SQLStore) UpsertFile(f FileRecord) (int64, error) {
	var row fileRow
	err := s.db.First(&row, "path = ?", f.Path).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		row = fileRow{
			Path:     f.Path,
			Language: f.Language,
			Hash:     f.Hash,
			Mtime:    f.Mtime,
			Size:     f.Size,
		}
		if err := s.db.Create(&row).Error; err != nil {
			return 0, fmt.Errorf("insert file %s: %w", f.Path, err)
		}
		return row.ID, nil
	case err != nil:
		return 0, err
	}
	row.Language = f.Language
	row.Hash = f.Hash
	row.Mtime = f.Mtime
	row.Size = f.Size
	if err := s.db.Save(&row).Error; err != nil {
		return 0, fmt.Errorf("update file %s: %w", f.Path, err)
	}
	return row.ID, nil
}

func (s *SQLStore) ListFiles() ([]FileRecord, error) {
	var rows []fileRow
	if err := s.db.Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]FileRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, FileRecord(row))
	}
	return out, nil
}

func (s *SQLStore) GetFileByPath(path string) (*FileRecord, error) {
	var row fileRow
	err := s.db.First(&row, "path = ?", path).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec := FileRecord(row)
	return &rec, nil
}

func (s *SQLStore) ReplaceSymbols(fileID int64, symbols []SymbolRecord) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("file_id = ?", fileID).Delete(&symbolRow{}).Error; err != nil {
			return err
		}
		for i := range symbols {
			row, err := toSymbolRow(&symbols[i], fileID)
			if err != nil {
				return err
			}
			if err := tx.Create(row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLStore) QuerySymbols(q SymbolQuery) ([]SymbolRecord, error) {
	tx := s.db.Model(&symbolRow{}).
		Select("symbols.*").
		Joins("JOIN files ON files.id = symbols.file_id")
	if q.Name != "" {
		if q.NameExact {
			tx = tx.Where("symbols.name = ?", q.Name)
		} else {
			tx = tx.Where("symbols.name LIKE ? ESCAPE '\\'", "%"+escapeLike(q.Name)+"%")
		}
	}
	if q.Kind != "" {
		tx = tx.Where("symbols.kind = ?", q.Kind)
	}
	if q.Language != "" {
		tx = tx.Where("symbols.language = ?", q.Language)
	}
	if q.PathContains != "" {
		tx = tx.Where("files.path LIKE ? ESCAPE '\\'", "%"+escapeLike(q.PathContains)+"%")
	}

	var rows []symbolRow
	if err := tx.Order("symbols.id").Find(&rows).Error; err != nil {
		return nil, err
	}

	paths, err := s.pathsByFileID()
	if err != nil {
		return nil, err
	}
	out := make([]SymbolRecord, 0, len(rows))
	for i := range rows {
		rec, err := fromSymbolRow(&rows[i])
		if err != nil {
			return nil, err
		}
		rec.Path = paths[rec.FileID]
		out = append(out, rec)
	}
	return out, nil
}

func (s *SQLStore) pathsByFileID() (map[int64]string, error) {
	var files []fileRow
	if err := s.db.Find(&files).Error; err != nil {
		return nil, err
	}
	paths := make(map[int64]string, len(files))
	for _, f := range files {
		paths[f.ID] = f.Path
	}
	return paths, nil
}

func (s *SQLStore) UpdateSymbolAttributes(sel SymbolSelector, attrs model.SymbolAttributes) error {
	// The selector mixes file-path and symbol constraints; resolve via
	// the full record set the same way the file backend does.
	records, err := s.QuerySymbols(SymbolQuery{})
	if err != nil {
		return err
	}
	matched := -1
	for i := range records {
		if !sel.Matches(&records[i]) {
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
	rec := records[matched]
	extra := rec.Extra
	if extra == nil {
		extra = &model.SymbolAttributes{}
	}
	extra.Keywords = attrs.Keywords
	extra.Description = attrs.Description
	raw, err := json.Marshal(extra)
	if err != nil {
		return err
	}
	return s.db.Model(&symbolRow{}).
		Where("id = ?", rec.ID).
		Update("extra", datatypes.JSON(raw)).Error
}

func (s *SQLStore) DeleteFile(path string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var row fileRow
		err := tx.First(&row, "path = ?", path).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := tx.Where("file_id = ?", row.ID).Delete(&symbolRow{}).Error; err != nil {
			return err
		}
		return tx.Delete(&row).Error
	})
}

func (s *SQLStore) CountSymbols() (int, error) {
	var count int64
	if err := s.db.Model(&symbolRow{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

func (s *SQLStore) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

func toSymbolRow(rec *SymbolRecord, fileID int64) (*symbolRow, error) {
	row := &symbolRow{
		FileID:    fileID,
		Name:      rec.Name,
		Kind:      string(rec.Kind),
		Language:  rec.Language,
		StartLine: rec.Range.StartLine,
		StartCol:  rec.Range.StartCol,
		EndLine:   rec.Range.EndLine,
		EndCol:    rec.Range.EndCol,
		Signature: rec.Signature,
	}
	if rec.Extra != nil {
		raw, err := json.Marshal(rec.Extra)
		if err != nil {
			return nil, err
		}
		row.Extra = datatypes.JSON(raw)
	}
	return row, nil
}

func fromSymbolRow(row *symbolRow) (SymbolRecord, error) {
	rec := SymbolRecord{
		ID:       row.ID,
		FileID:   row.FileID,
		Name:     row.Name,
		Kind:     model.SymbolKind(row.Kind),
		Language: row.Language,
		Range: model.TextRange{
			StartLine: row.StartLine,
			StartCol:  row.StartCol,
			EndLine:   row.EndLine,
			EndCol:    row.EndCol,
		},
		Signature: row.Signature,
	}
	if len(row.Extra) > 0 {
		var attrs model.SymbolAttributes
		if err := json.Unmarshal(row.Extra, &attrs); err != nil {
			return SymbolRecord{}, fmt.Errorf("%w: symbol %d extra: %v", ErrCorrupt, row.ID, err)
		}
		if !attrs.Empty() {
			rec.Extra = &attrs
		}
	}
	return rec, nil
}

func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
