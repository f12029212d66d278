package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

const testNames = "emma\nolivia\nava\nisabella\nsophia\nmia\n"

// writeTestConfig writes a config that keeps every file inside dir and
// returns its path.
func writeTestConfig(t *testing.T, dir string, edit func(*Config)) string {
	t.Helper()
	wordsPath := filepath.Join(dir, "names.txt")
	if err := os.WriteFile(wordsPath, []byte(testNames), 0o644); err != nil {
		t.Fatalf("failed to write word list: %v", err)
	}

	cfg := DefaultConfig()
	cfg.Server.DataDir = dir
	cfg.Server.DatabasePath = filepath.Join(dir, "test.db")
	cfg.Model.WordsPath = wordsPath
	if edit != nil {
		edit(cfg)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "config.json")
	if err = os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

type testEnv struct {
	cm         *ConfigManager
	app        *App
	server     *Server
	actionChan chan string
	configPath string
}

// setupTestServer builds an App seeded with testNames and the API server in
// front of it.
func setupTestServer(t *testing.T, edit func(*Config)) *testEnv {
	t.Helper()
	dir := t.TempDir()
	path := writeTestConfig(t, dir, edit)

	cm, err := NewConfigManager(path)
	if err != nil {
		t.Fatalf("NewConfigManager() failed: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cm.SetLogger(logger)

	app, err := NewApp(context.Background(), cm, logger)
	if err != nil {
		t.Fatalf("NewApp() failed: %v", err)
	}
	t.Cleanup(app.Close)

	actionChan := make(chan string, 1)
	return &testEnv{
		cm:         cm,
		app:        app,
		server:     NewServer(cm, app, logger, actionChan),
		actionChan: actionChan,
		configPath: path,
	}
}

// do sends one request through the server and returns the recorder.
func (e *testEnv) do(t *testing.T, method, target string, body []byte, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	for k, v := range header {
		req.Header[k] = v
	}
	rr := httptest.NewRecorder()
	e.server.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
}
