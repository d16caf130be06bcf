package main

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
)

// executeCommand runs a cobra command with the given args and captures stdout.
func executeCommand(root *cobra.Command, args ...string) (string, error) {
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRoutesCommand(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("CLOUDINARY_URL", "")

	out, err := executeCommand(newRootCmd(), "routes")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{
		"GET     /",
		"POST    /api/v1/auth/signup",
		"POST    /api/v1/auth/login",
		"GET     /api/v1/auth/forgot-password",
		"POST    /api/v1/auth/reset-password",
		"POST    /api/v1/files",
		"GET     /api/v1/files/download/:id",
		"PATCH   /api/v1/files/unsafe",
		"GET     /api/v1/histories",
		"GET     /metrics",
	} {
		if !strings.Contains(out, want+"\n") {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, echo.RouteNotFound) {
		t.Error("internal not-found routes must be hidden")
	}
}

func TestMigrateCommand_RejectsArgs(t *testing.T) {
	if _, err := executeCommand(newRootCmd(), "migrate", "extra"); err == nil {
		t.Error("expected an error for unexpected arguments")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		" warn ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
