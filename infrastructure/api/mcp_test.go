package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/helixml/scholar"
	"github.com/helixml/scholar/application/service"
	"github.com/helixml/scholar/infrastructure/api"
	"github.com/helixml/scholar/infrastructure/provider"
)

// stubProvider serves fixed two-dimensional vectors keyed by exact
// input text.
type stubProvider struct {
	vectors map[string][]float64
}

func (p stubProvider) Embed(_ context.Context, req provider.EmbeddingRequest) (provider.EmbeddingResponse, error) {
	texts := req.Texts()
	out := make([][]float64, len(texts))
	for i, text := range texts {
		vec, ok := p.vectors[text]
		if !ok {
			vec = []float64{0, 0}
		}
		out[i] = vec
	}
	return provider.NewEmbeddingResponse(out, provider.NewUsage(0, 0)), nil
}

func (p stubProvider) ModelName() string { return "stub-embedder" }
func (p stubProvider) Runtime() string   { return "test" }
func (p stubProvider) Available() bool   { return true }
func (p stubProvider) Capacity() int     { return 16 }
func (p stubProvider) Close() error      { return nil }

func newAPITestClient(t *testing.T) *scholar.Client {
	t.Helper()
	tmpDir := t.TempDir()
	client, err := scholar.New(
		scholar.WithSQLite(filepath.Join(tmpDir, "test.db")),
		scholar.WithDataDir(tmpDir),
		scholar.WithEmbeddingProvider(stubProvider{vectors: map[string][]float64{
			"Graph Attention. dense":  {1, 0},
			"Topic Models. dense":     {0, 1},
			"Sparse Attention. dense": {0.9, 0.1},
			"attention":               {1, 0},
		}}),
		scholar.WithVectorDimension(2),
		scholar.WithShowScores(true),
	)
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func seedCorpus(t *testing.T, client *scholar.Client) {
	t.Helper()
	rows := []service.ImportRow{
		{
			ID: 1, Title: "Graph Attention", Body: "dense",
			Authors:    []service.AuthorRef{{ID: 10, Name: "Ada"}},
			Categories: []service.CategoryRef{{Title: "ML"}},
		},
		{
			ID: 2, Title: "Topic Models", Body: "dense",
			Authors: []service.AuthorRef{{ID: 20, Name: "Bob"}},
		},
		{
			ID: 3, Title: "Sparse Attention", Body: "dense",
			Authors: []service.AuthorRef{{ID: 10, Name: "Ada"}},
		},
	}
	if _, err := client.Importer.Import(context.Background(), rows); err != nil {
		t.Fatalf("seed corpus: %v", err)
	}
}

func mcpRequest(t *testing.T, method string, id int, params map[string]any) []byte {
	t.Helper()
	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  method,
	}
	if params != nil {
		msg["params"] = params
	}
	b, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	return b
}

func postMCP(t *testing.T, handler http.Handler, body []byte, sessionID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set("Mcp-Session-Id", sessionID)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

// initMCPSession sends an initialize request and returns the session ID.
func initMCPSession(t *testing.T, handler http.Handler) string {
	t.Helper()
	body := mcpRequest(t, "initialize", 1, map[string]any{
		"protocolVersion": "2025-06-18",
		"capabilities":    map[string]any{},
		"clientInfo":      map[string]any{"name": "test", "version": "0.0.1"},
	})
	w := postMCP(t, handler, body, "")
	if w.Code != http.StatusOK {
		t.Fatalf("initialize: status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}
	sessionID := w.Header().Get("Mcp-Session-Id")
	if sessionID == "" {
		t.Fatal("initialize did not return a session ID")
	}
	return sessionID
}

// toolResultText decodes the JSON-RPC response from a tools/call and returns
// the text content and whether the tool reported an error.
func toolResultText(t *testing.T, w *httptest.ResponseRecorder) (string, bool) {
	t.Helper()
	var resp struct {
		Result struct {
			Content []struct {
				Text string `json:"text"`
			} `json:"content"`
			IsError bool `json:"isError"`
		} `json:"result"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode tool result: %v", err)
	}
	if len(resp.Result.Content) == 0 {
		return "", resp.Result.IsError
	}
	return resp.Result.Content[0].Text, resp.Result.IsError
}

func TestMCPEndpoint_Initialize(t *testing.T) {
	client := newAPITestClient(t)
	apiServer := api.NewAPIServer(client, nil)
	handler := apiServer.Handler()

	body := mcpRequest(t, "initialize", 1, map[string]any{
		"protocolVersion": "2025-06-18",
		"capabilities":    map[string]any{},
		"clientInfo":      map[string]any{"name": "test", "version": "0.0.1"},
	})

	w := postMCP(t, handler, body, "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp struct {
		Result struct {
			ServerInfo struct {
				Name    string `json:"name"`
				Version string `json:"version"`
			} `json:"serverInfo"`
			Capabilities struct {
				Tools json.RawMessage `json:"tools"`
			} `json:"capabilities"`
		} `json:"result"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if resp.Result.ServerInfo.Name != "scholar" {
		t.Errorf("server name = %q, want scholar", resp.Result.ServerInfo.Name)
	}
	if resp.Result.ServerInfo.Version != "1.0.0" {
		t.Errorf("server version = %q, want 1.0.0", resp.Result.ServerInfo.Version)
	}
	if resp.Result.Capabilities.Tools == nil {
		t.Error("expected tools capability to be present")
	}
}

func TestMCPEndpoint_ListTools(t *testing.T) {
	client := newAPITestClient(t)
	apiServer := api.NewAPIServer(client, nil)
	handler := apiServer.Handler()

	sessionID := initMCPSession(t, handler)

	body := mcpRequest(t, "tools/list", 2, nil)
	w := postMCP(t, handler, body, sessionID)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	names := map[string]bool{}
	for _, tool := range resp.Result.Tools {
		names[tool.Name] = true
	}
	for _, name := range []string{"search_abstracts", "get_version"} {
		if !names[name] {
			t.Errorf("missing %s tool", name)
		}
	}
	if len(resp.Result.Tools) != 2 {
		t.Errorf("expected 2 tools, got %d", len(resp.Result.Tools))
	}
}

func TestMCPEndpoint_RejectsInvalidContentType(t *testing.T) {
	client := newAPITestClient(t)
	apiServer := api.NewAPIServer(client, nil)
	handler := apiServer.Handler()

	req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewReader([]byte("{}")))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestMCPEndpoint_SearchAbstracts(t *testing.T) {
	client := newAPITestClient(t)
	seedCorpus(t, client)
	apiServer := api.NewAPIServer(client, nil)
	handler := apiServer.Handler()

	sessionID := initMCPSession(t, handler)

	body := mcpRequest(t, "tools/call", 2, map[string]any{
		"name":      "search_abstracts",
		"arguments": map[string]any{"keyword": "attention"},
	})
	w := postMCP(t, handler, body, sessionID)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	text, isError := toolResultText(t, w)
	if isError {
		t.Fatalf("search_abstracts returned error: %s", text)
	}
	if !strings.Contains(text, "Graph Attention") {
		t.Errorf("expected the top hit in the result text, got: %s", text)
	}
	if !strings.Contains(text, `3 abstracts for "attention"`) {
		t.Errorf("expected a result count header, got: %s", text)
	}
}

// TestMCPEndpoint_ServerMiddlewareStack verifies that MCP works through
// the full server middleware stack as built by ListenAndServe. chi's
// Timeout middleware would wrap the StreamableHTTPServer's ResponseWriter
// and break its session headers, so the MCP mount stays outside the
// timeout group.
func TestMCPEndpoint_ServerMiddlewareStack(t *testing.T) {
	client := newAPITestClient(t)
	apiServer := api.NewAPIServer(client, nil)
	apiServer.MountRoutes()

	srv := api.NewServer("", nil, nil)
	srv.Router().Mount("/", apiServer.Router())
	handler := srv.Router()

	sessionID := initMCPSession(t, handler)

	body := mcpRequest(t, "tools/list", 2, nil)
	w := postMCP(t, handler, body, sessionID)
	if w.Code != http.StatusOK {
		t.Fatalf("tools/list: status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	callBody := mcpRequest(t, "tools/call", 3, map[string]any{
		"name":      "get_version",
		"arguments": map[string]any{},
	})
	w = postMCP(t, handler, callBody, sessionID)
	if w.Code != http.StatusOK {
		t.Fatalf("tools/call: status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	text, isError := toolResultText(t, w)
	if isError {
		t.Fatalf("get_version returned error: %s", text)
	}
	if text != "1.0.0" {
		t.Errorf("expected version 1.0.0, got %s", text)
	}
}
