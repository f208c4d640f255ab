package v1_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	v1 "github.com/helixml/scholar/infrastructure/api/v1"
	"github.com/helixml/scholar/infrastructure/api/v1/dto"
)

func TestAuthorsRouter_List_Plain(t *testing.T) {
	client := newSeededClient(t)
	routes := v1.NewAuthorsRouter(client).Routes()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	routes.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status code = %v, want %v", w.Code, http.StatusOK)
	}

	var response dto.AuthorListResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(response.Results) != 2 {
		t.Fatalf("len(results) = %v, want 2", len(response.Results))
	}
	// Plain listings sort by name.
	if response.Results[0].Name != "Ada" || response.Results[0].AbstractCount != 2 {
		t.Errorf("results[0] = %+v, want Ada with 2 abstracts", response.Results[0])
	}
	if response.Results[1].Name != "Bob" || response.Results[1].AbstractCount != 1 {
		t.Errorf("results[1] = %+v, want Bob with 1 abstract", response.Results[1])
	}
	if response.Results[0].Score != nil {
		t.Errorf("expected nil score, got %v", *response.Results[0].Score)
	}
}

func TestAuthorsRouter_List_Keyword(t *testing.T) {
	client := newSeededClient(t)
	routes := v1.NewAuthorsRouter(client).Routes()

	req := httptest.NewRequest(http.MethodGet, "/?keyword=attention", nil)
	w := httptest.NewRecorder()
	routes.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status code = %v, want %v", w.Code, http.StatusOK)
	}

	var response dto.AuthorListResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if response.Query != "attention" {
		t.Errorf("query = %q, want attention", response.Query)
	}
	if len(response.Results) != 2 {
		t.Fatalf("len(results) = %v, want 2", len(response.Results))
	}
	// Ada's aggregate vector sits closest to the query.
	if response.Results[0].ID != 10 {
		t.Errorf("results[0].id = %v, want 10", response.Results[0].ID)
	}
	if response.Results[0].Score == nil {
		t.Error("expected a score on ranked results")
	}
}

func TestAuthorsRouter_Get(t *testing.T) {
	client := newSeededClient(t)
	routes := v1.NewAuthorsRouter(client).Routes()

	req := httptest.NewRequest(http.MethodGet, "/10", nil)
	w := httptest.NewRecorder()
	routes.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status code = %v, want %v", w.Code, http.StatusOK)
	}

	var response dto.AuthorDetailResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if response.Name != "Ada" {
		t.Errorf("name = %q, want Ada", response.Name)
	}
	if response.AbstractCount != 2 {
		t.Errorf("abstract_count = %v, want 2", response.AbstractCount)
	}
	if len(response.Abstracts) != 2 {
		t.Fatalf("len(abstracts) = %v, want 2", len(response.Abstracts))
	}
	// Newest id first among undated rows.
	if response.Abstracts[0].ID != 3 || response.Abstracts[1].ID != 1 {
		t.Errorf("abstract order = [%v %v], want [3 1]",
			response.Abstracts[0].ID, response.Abstracts[1].ID)
	}
	if len(response.Abstracts[1].Categories) != 1 || response.Abstracts[1].Categories[0].Title != "ML" {
		t.Errorf("abstract 1 categories = %+v, want [ML]", response.Abstracts[1].Categories)
	}
}

func TestAuthorsRouter_Get_NotFound(t *testing.T) {
	client := newSeededClient(t)
	routes := v1.NewAuthorsRouter(client).Routes()

	req := httptest.NewRequest(http.MethodGet, "/999", nil)
	w := httptest.NewRecorder()
	routes.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status code = %v, want %v", w.Code, http.StatusNotFound)
	}
	if detail := decodeError(t, w); detail != "author_not_found" {
		t.Errorf("detail = %q, want author_not_found", detail)
	}
}

func TestAuthorsRouter_Similar(t *testing.T) {
	client := newSeededClient(t)
	routes := v1.NewAuthorsRouter(client).Routes()

	req := httptest.NewRequest(http.MethodGet, "/10/similar", nil)
	w := httptest.NewRecorder()
	routes.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status code = %v, want %v", w.Code, http.StatusOK)
	}

	var response dto.SimilarAuthorsResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if response.ID != 10 {
		t.Errorf("id = %v, want 10", response.ID)
	}
	// The queried author never appears in their own neighbors.
	if len(response.Results) != 1 || response.Results[0].ID != 20 {
		t.Fatalf("results = %+v, want [Bob]", response.Results)
	}
	if response.Results[0].Name != "Bob" {
		t.Errorf("results[0].name = %q, want Bob", response.Results[0].Name)
	}
}

func TestAuthorsRouter_Update(t *testing.T) {
	client := newSeededClient(t)
	routes := v1.NewAuthorsRouter(client).Routes()

	req := httptest.NewRequest(http.MethodPatch, "/10", bytes.NewBufferString(`{"name":"  Grace  "}`))
	w := httptest.NewRecorder()
	routes.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status code = %v, want %v: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var response dto.AuthorPatchResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if response.Status != "ok" || response.ID != 10 {
		t.Errorf("unexpected response: %+v", response)
	}
	if response.Recomputed {
		t.Error("rename alone should not recompute")
	}

	// The stored name is trimmed.
	req = httptest.NewRequest(http.MethodGet, "/10", nil)
	w = httptest.NewRecorder()
	routes.ServeHTTP(w, req)
	var detail dto.AuthorDetailResponse
	if err := json.NewDecoder(w.Body).Decode(&detail); err != nil {
		t.Fatalf("decode detail: %v", err)
	}
	if detail.Name != "Grace" {
		t.Errorf("name = %q, want Grace", detail.Name)
	}
}

func TestAuthorsRouter_Update_BlankName(t *testing.T) {
	client := newSeededClient(t)
	routes := v1.NewAuthorsRouter(client).Routes()

	req := httptest.NewRequest(http.MethodPatch, "/10", bytes.NewBufferString(`{"name":"   "}`))
	w := httptest.NewRecorder()
	routes.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status code = %v, want %v", w.Code, http.StatusBadRequest)
	}
	if detail := decodeError(t, w); detail != "validation_error" {
		t.Errorf("detail = %q, want validation_error", detail)
	}
}

func TestAuthorsRouter_Delete(t *testing.T) {
	client := newSeededClient(t)
	routes := v1.NewAuthorsRouter(client).Routes()

	req := httptest.NewRequest(http.MethodDelete, "/20", nil)
	w := httptest.NewRecorder()
	routes.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status code = %v, want %v: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var response dto.AuthorDeleteResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if response.Status != "ok" || response.Deleted != 20 {
		t.Errorf("unexpected response: %+v", response)
	}

	req = httptest.NewRequest(http.MethodGet, "/20", nil)
	w = httptest.NewRecorder()
	routes.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("status code after delete = %v, want %v", w.Code, http.StatusNotFound)
	}
}
