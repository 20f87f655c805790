package testutil

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/lherron/advimport/internal/db"
	"github.com/lherron/advimport/internal/store"
)

// TempDB creates a migrated temporary SQLite database for testing
func TempDB(t *testing.T) (*db.DB, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")

	database, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	if err := database.Migrate(); err != nil {
		database.Close()
		t.Fatalf("Failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		database.Close()
	})

	return database, dbPath
}

// TempStore returns a store over a fresh temporary database
func TempStore(t *testing.T) *store.Store {
	t.Helper()
	database, _ := TempDB(t)
	return store.New(database)
}

// WriteExport writes folders.json and adv.json for target beneath root.
// An empty string skips that file.
func WriteExport(t *testing.T, root, target, folders, journals string) {
	t.Helper()
	dir := filepath.Join(root, target)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create export dir %s: %v", dir, err)
	}
	if folders != "" {
		WriteFile(t, dir, "folders.json", folders)
	}
	if journals != "" {
		WriteFile(t, dir, "adv.json", journals)
	}
}

// WriteFile writes content to a file in a directory
func WriteFile(t *testing.T, dir, filename, content string) string {
	t.Helper()
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
	return path
}

// Progress is one recorded progress call
type Progress struct {
	Label    string
	Fraction float64
}

// Recorder captures everything sent to an importer reporter
type Recorder struct {
	mu      sync.Mutex
	Steps   []Progress
	Notices []string
	Errors  []string
	DoneN   int
}

func (r *Recorder) Progress(label string, fraction float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Steps = append(r.Steps, Progress{Label: label, Fraction: fraction})
}

func (r *Recorder) Done() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.DoneN++
}

func (r *Recorder) Notify(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Notices = append(r.Notices, msg)
}

func (r *Recorder) Error(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Errors = append(r.Errors, msg)
}
