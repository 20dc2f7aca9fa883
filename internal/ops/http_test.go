package ops

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestHTTPGetFetchesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("pong"))
	}))
	defer srv.Close()

	env := newFSEnv(t)
	out, err := run(t, HTTPGetOperation(), env, map[string]string{"url": srv.URL})
	if err != nil {
		t.Fatalf("http_get: %v", err)
	}
	if out != "pong" {
		t.Fatalf("got %q, want %q", out, "pong")
	}
}

func TestHTTPGetRejectsDisallowedScheme(t *testing.T) {
	env := newFSEnv(t)
	_, err := run(t, HTTPGetOperation(), env, map[string]string{"url": "ftp://example.com/file"})
	if !errors.Is(err, ErrPermissionScope) {
		t.Fatalf("expected ErrPermissionScope, got %v", err)
	}
}

func TestHTTPGetNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	env := newFSEnv(t)
	_, err := run(t, HTTPGetOperation(), env, map[string]string{"url": srv.URL})
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

func TestHTTPGetTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer srv.Close()

	env := newFSEnv(t)
	env.HTTP.Timeout = 100 * time.Millisecond

	start := time.Now()
	_, err := run(t, HTTPGetOperation(), env, map[string]string{"url": srv.URL})
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("timeout not honored, took %s", elapsed)
	}
}

func TestDownloadFileWritesIntoScope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	env := newFSEnv(t)
	_, err := run(t, DownloadFileOperation(), env, map[string]string{
		"url": srv.URL, "path": "downloads/data.bin",
	})
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(env.Agent.WorkspaceRoot, "downloads", "data.bin"))
	if err != nil {
		t.Fatalf("read downloaded file: %v", err)
	}
	if string(data) != "payload" {
		t.Fatalf("downloaded %q, want %q", data, "payload")
	}

	// Same target again without overwrite conflicts.
	_, err = run(t, DownloadFileOperation(), env, map[string]string{
		"url": srv.URL, "path": "downloads/data.bin",
	})
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestDownloadFileRejectsEscape(t *testing.T) {
	env := newFSEnv(t)
	_, err := run(t, DownloadFileOperation(), env, map[string]string{
		"url": "http://example.com/x", "path": "../outside.bin",
	})
	if !errors.Is(err, ErrPermissionScope) {
		t.Fatalf("expected ErrPermissionScope, got %v", err)
	}
}
