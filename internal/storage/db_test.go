package storage

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig("test.db")

	if config.Path != "test.db" {
		t.Errorf("expected path 'test.db', got '%s'", config.Path)
	}

	if config.MaxOpenConns != 25 {
		t.Errorf("expected MaxOpenConns 25, got %d", config.MaxOpenConns)
	}

	if config.MaxIdleConns != 5 {
		t.Errorf("expected MaxIdleConns 5, got %d", config.MaxIdleConns)
	}

	if config.ConnMaxLifetime != 5*time.Minute {
		t.Errorf("expected ConnMaxLifetime 5m, got %v", config.ConnMaxLifetime)
	}

	if config.BusyTimeout != 5*time.Second {
		t.Errorf("expected BusyTimeout 5s, got %v", config.BusyTimeout)
	}

	if config.JournalMode != "WAL" {
		t.Errorf("expected JournalMode 'WAL', got '%s'", config.JournalMode)
	}

	if config.Synchronous != "NORMAL" {
		t.Errorf("expected Synchronous 'NORMAL', got '%s'", config.Synchronous)
	}

	if config.AutoMigrate {
		t.Error("expected AutoMigrate to be off by default")
	}
}

func TestDefaultConfigInMemory(t *testing.T) {
	config := DefaultConfig(":memory:")

	if config.MaxOpenConns != 1 {
		t.Errorf("expected a single connection for in-memory databases, got %d", config.MaxOpenConns)
	}
	if config.JournalMode != "MEMORY" {
		t.Errorf("expected JournalMode 'MEMORY', got '%s'", config.JournalMode)
	}
}

func TestConfigDSN(t *testing.T) {
	dsn := DefaultConfig("data/archetypes.db").DSN()

	if !strings.HasPrefix(dsn, "file:data/archetypes.db?") {
		t.Errorf("unexpected DSN prefix: %s", dsn)
	}
	for _, pragma := range []string{
		"_pragma=busy_timeout(5000)",
		"_pragma=foreign_keys(1)",
		"_pragma=journal_mode(WAL)",
		"_pragma=synchronous(NORMAL)",
	} {
		if !strings.Contains(dsn, pragma) {
			t.Errorf("DSN %q is missing %s", dsn, pragma)
		}
	}

	memory := DefaultConfig(":memory:").DSN()
	if !strings.HasPrefix(memory, ":memory:?") {
		t.Errorf("unexpected in-memory DSN: %s", memory)
	}
}

func TestOpen(t *testing.T) {
	config := DefaultConfig(":memory:")
	db, err := Open(config)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		t.Errorf("failed to ping database: %v", err)
	}

	if db.Conn() == nil {
		t.Error("expected non-nil connection")
	}
}

func TestOpenWithNilConfig(t *testing.T) {
	_, err := Open(nil)
	if err == nil {
		t.Error("expected error when opening with nil config")
	}
}

func TestOpenAutoMigrate(t *testing.T) {
	config := DefaultConfig(":memory:")
	config.AutoMigrate = true

	db, err := Open(config)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	for _, table := range []string{"classifications", "definition_refreshes"} {
		var name string
		err := db.Conn().QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Errorf("expected table %s to exist: %v", table, err)
		}
	}
}

func TestOpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "archetypes.db")

	config := DefaultConfig(path)
	config.AutoMigrate = true

	db, err := Open(config)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Errorf("failed to close database: %v", err)
	}

	// Opening again must not re-run applied migrations.
	db, err = Open(config)
	if err != nil {
		t.Fatalf("failed to reopen database: %v", err)
	}
	defer db.Close()
}

func TestClose(t *testing.T) {
	config := DefaultConfig(":memory:")
	db, err := Open(config)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	if err := db.Close(); err != nil {
		t.Errorf("failed to close database: %v", err)
	}

	if err := db.Ping(); err == nil {
		t.Error("expected error when pinging closed database")
	}
}
