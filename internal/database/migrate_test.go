package database

import (
	"strings"
	"testing"
)

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		t.Fatalf("failed to read embedded migrations: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("no embedded migration files found")
	}

	ups, downs := 0, 0
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".up.sql"):
			ups++
		case strings.HasSuffix(e.Name(), ".down.sql"):
			downs++
		default:
			t.Errorf("unexpected migration file name: %s", e.Name())
		}
	}
	if ups != downs {
		t.Errorf("unbalanced migrations: %d up, %d down", ups, downs)
	}
}

func TestNewMigrator_InvalidURL(t *testing.T) {
	if _, err := NewMigrator("not-a-url"); err == nil {
		t.Error("expected error for invalid database URL")
	}
}
