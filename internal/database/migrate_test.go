// Package database provides connection setup for MariaDB and Redis.
// This file validates migration SQL files to catch schema mismatches early.
package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"testing"

	"github.com/go-sql-driver/mysql"
)

// validAccountTypes must match the ENUM on users.account_type and the role
// constants in internal/session.
var validAccountTypes = map[string]bool{
	"admin": true,
	"user":  true,
}

// validFileStatuses must match the ENUM on histories.file_status.
var validFileStatuses = map[string]bool{
	"download": true,
	"upload":   true,
}

// migrationsDir returns the absolute path to db/migrations/ from the project root.
func migrationsDir(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine test file path")
	}
	// thisFile is internal/database/migrate_test.go, project root is two dirs up.
	projectRoot := filepath.Join(filepath.Dir(thisFile), "..", "..")
	dir := filepath.Join(projectRoot, "db", "migrations")
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("migrations directory not found at %s: %v", dir, err)
	}
	return dir
}

// enumValues extracts the quoted members of `column ENUM(...)` from DDL.
func enumValues(ddl, column string) []string {
	re := regexp.MustCompile(column + `\s+ENUM\(([^)]*)\)`)
	m := re.FindStringSubmatch(ddl)
	if m == nil {
		return nil
	}
	var out []string
	for _, v := range regexp.MustCompile(`'([^']+)'`).FindAllStringSubmatch(m[1], -1) {
		out = append(out, v[1])
	}
	return out
}

// TestMigrations_EnumsMatchCode ensures the ENUM definitions in the schema
// agree with the values the Go code writes. A mismatch surfaces in MariaDB
// as "Data truncated for column" (Error 1265) at runtime.
func TestMigrations_EnumsMatchCode(t *testing.T) {
	dir := migrationsDir(t)
	files, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	if err != nil {
		t.Fatalf("globbing migration files: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("no migration files found")
	}

	checks := []struct {
		column string
		valid  map[string]bool
	}{
		{"account_type", validAccountTypes},
		{"file_status", validFileStatuses},
	}

	found := map[string]bool{}
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("reading %s: %v", f, err)
		}
		for _, c := range checks {
			values := enumValues(string(data), c.column)
			if values == nil {
				continue
			}
			found[c.column] = true
			if len(values) != len(c.valid) {
				t.Errorf("%s: %s has %d members, code expects %d", filepath.Base(f), c.column, len(values), len(c.valid))
			}
			for _, v := range values {
				if !c.valid[v] {
					t.Errorf("%s: %s member %q unknown to code", filepath.Base(f), c.column, v)
				}
			}
		}
	}

	for _, c := range checks {
		if !found[c.column] {
			t.Errorf("no ENUM definition found for %s", c.column)
		}
	}
}

// TestMigrations_UpDownPairs ensures every .up.sql has a matching .down.sql.
func TestMigrations_UpDownPairs(t *testing.T) {
	dir := migrationsDir(t)
	upFiles, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	if err != nil {
		t.Fatalf("globbing up files: %v", err)
	}

	for _, up := range upFiles {
		down := strings.Replace(up, ".up.sql", ".down.sql", 1)
		if _, err := os.Stat(down); err != nil {
			t.Errorf("missing down migration for %s", filepath.Base(up))
		}
	}
}

// TestMigrations_SingleStatement guards against multi-statement files. The
// DSN does not enable multiStatements, so a second statement would fail.
func TestMigrations_SingleStatement(t *testing.T) {
	dir := migrationsDir(t)
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		t.Fatalf("globbing migration files: %v", err)
	}

	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("reading %s: %v", f, err)
		}
		if n := strings.Count(string(data), ";"); n != 1 {
			t.Errorf("%s: expected exactly one statement, found %d semicolons", filepath.Base(f), n)
		}
	}
}

// TestMigrations_SequentialVersions ensures versions are contiguous from 1.
func TestMigrations_SequentialVersions(t *testing.T) {
	dir := migrationsDir(t)
	upFiles, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	if err != nil {
		t.Fatalf("globbing up files: %v", err)
	}

	for i, f := range upFiles {
		want := fmt.Sprintf("%06d_", i+1)
		if !strings.HasPrefix(filepath.Base(f), want) {
			t.Errorf("expected %s to start with %s", filepath.Base(f), want)
		}
	}
}

func TestIsDuplicateKey(t *testing.T) {
	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'a@b.com' for key 'uq_users_email'"}
	if !IsDuplicateKey(fmt.Errorf("inserting user: %w", dup)) {
		t.Error("expected wrapped 1062 to be detected")
	}
	if IsDuplicateKey(&mysql.MySQLError{Number: 1452}) {
		t.Error("foreign key error is not a duplicate")
	}
	if IsDuplicateKey(errors.New("duplicate")) {
		t.Error("plain error is not a duplicate")
	}
}
