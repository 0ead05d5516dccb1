// Package store SQLite-хранилище справочников, портов и журнала загрузок
package store

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaFS embed.FS

var (
	// ErrAlreadyExists запись с таким именем уже есть
	ErrAlreadyExists = errors.New("уже существует")
	// ErrNotFound запись не найдена
	ErrNotFound = errors.New("не найдено")
	// ErrEmptyName пустое название
	ErrEmptyName = errors.New("пустое название")
)

// DefaultBasePort первый порт, выдаваемый распределителем
const DefaultBasePort = 10000

// Store SQLite хранилище
type Store struct {
	db       *sql.DB
	basePort int
}

// New открывает (или создает) базу по пути
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// SQLite: одно соединение, запись сериализуется
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db, basePort: DefaultBasePort}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema.sql: %w", err)
	}
	if _, err := s.db.Exec(string(schemaSQL)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

// SetBasePort задает нижнюю границу выдаваемых портов
func (s *Store) SetBasePort(port int) {
	if port > 0 {
		s.basePort = port
	}
}

// Close закрывает соединение
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintForeignKey
}
