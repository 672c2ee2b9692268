package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	return path
}

func TestRun_Usage(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no flags", nil, exitUsage},
		{"missing out", []string{"-dataset", "x"}, exitUsage},
		{"missing dataset", []string{"-out", "x.json"}, exitUsage},
		{"unknown flag", []string{"-bogus"}, exitUsage},
		{"bad int", []string{"-dataset", "x", "-out", "y", "-preview", "many"}, exitUsage},
		{"positional", []string{"-dataset", "x", "-out", "y", "extra"}, exitUsage},
		{"help", []string{"-h"}, exitOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer

			if got := run(context.Background(), tt.args, &stdout, &stderr); got != tt.want {
				t.Errorf("exit = %d, want %d; stderr:\n%s", got, tt.want, stderr.String())
			}

			if !strings.Contains(stderr.String(), "Usage: etl") {
				t.Errorf("stderr missing usage:\n%s", stderr.String())
			}
		})
	}
}

func TestRun_Success(t *testing.T) {
	in := writeFixture(t, "rows.json", `[
		{"Name":"Ibn Sina","birth_hijri":"370H"},
		{"fullname":"Al-Ghazali","death_date":"1111"}
	]`)
	out := filepath.Join(t.TempDir(), "nested", "ulama.json")

	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"-dataset", in, "-out", out, "-preview", "1"}, &stdout, &stderr)
	if code != exitOK {
		t.Fatalf("exit = %d; stderr:\n%s", code, stderr.String())
	}

	if _, err := os.Stat(out); err != nil {
		t.Fatalf("output not written: %v", err)
	}

	got := stdout.String()
	if !strings.Contains(got, "| id  | name") || !strings.Contains(got, "Ibn Sina") {
		t.Errorf("preview missing from stdout:\n%s", got)
	}

	if strings.Contains(got, "Al-Ghazali") {
		t.Errorf("preview should be limited to 1 row:\n%s", got)
	}

	if !strings.Contains(got, "Saved 2 records") {
		t.Errorf("summary missing:\n%s", got)
	}

	if !strings.Contains(stderr.String(), "run=") {
		t.Errorf("log lines should carry the run id:\n%s", stderr.String())
	}
}

func TestRun_LoadFailureLeavesNoOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"The dataset does not exist on the Hub."}`))
	}))
	defer srv.Close()

	cfg := writeFixture(t, "etl.yaml", "hub:\n  endpoint: "+srv.URL+"\n")
	out := filepath.Join(t.TempDir(), "ulama.json")

	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"-dataset", "nobody/nothing", "-out", out, "-config", cfg}, &stdout, &stderr)
	if code != exitFailure {
		t.Fatalf("exit = %d, want %d", code, exitFailure)
	}

	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("output file should not exist: %v", err)
	}

	if !strings.Contains(stderr.String(), "does not exist on the Hub") {
		t.Errorf("stderr should carry the hub diagnostic:\n%s", stderr.String())
	}

	if !strings.Contains(stderr.String(), "hub.token") {
		t.Errorf("stderr should carry the not-found hint:\n%s", stderr.String())
	}
}

func TestRun_BadConfig(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing file", []string{"-config", filepath.Join(t.TempDir(), "nope.yaml")}},
		{"invalid value", []string{"-config", writeFixture(t, "etl.yaml", "hub:\n  page_size: 500\n")}},
		{"bad log level", []string{"-log-level", "loud"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "ulama.json")
			args := append([]string{"-dataset", "x", "-out", out}, tt.args...)

			var stdout, stderr bytes.Buffer
			if code := run(context.Background(), args, &stdout, &stderr); code != exitFailure {
				t.Errorf("exit = %d, want %d", code, exitFailure)
			}

			if _, err := os.Stat(out); !os.IsNotExist(err) {
				t.Errorf("output file should not exist: %v", err)
			}
		})
	}
}
