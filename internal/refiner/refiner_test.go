package refiner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

type generateRequest struct {
	Model  string `json:"model"`
	System string `json:"system"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

func ollamaServer(t *testing.T, handler func(req generateRequest) (int, string)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		json.NewDecoder(r.Body).Decode(&req)
		code, response := handler(req)
		if code != http.StatusOK {
			w.WriteHeader(code)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"response": response})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestOllamaRefiner_Refine_Success(t *testing.T) {
	server := ollamaServer(t, func(req generateRequest) (int, string) {
		if req.Model != "llama3.2" {
			t.Errorf("expected model 'llama3.2', got %q", req.Model)
		}
		if req.Stream {
			t.Error("expected stream=false")
		}
		if req.System != "fix heading spacing" {
			t.Errorf("expected instructions as system prompt, got %q", req.System)
		}
		if req.Prompt != "#Title" {
			t.Errorf("expected draft as prompt, got %q", req.Prompt)
		}
		return http.StatusOK, "# Title"
	})

	refiner := NewOllama("llama3.2", server.URL)

	result, err := refiner.Refine(context.Background(), Request{Instructions: "fix heading spacing", Draft: "#Title"})
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if result != "# Title" {
		t.Errorf("expected '# Title', got %q", result)
	}
}

func TestOllamaRefiner_Refine_ReturnsEmpty(t *testing.T) {
	server := ollamaServer(t, func(generateRequest) (int, string) { return http.StatusOK, "" })

	result, err := NewOllama("llama3.2", server.URL).Refine(context.Background(), Request{Instructions: "fix", Draft: "Draft text"})
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if result != "Draft text" {
		t.Errorf("expected original draft when response empty, got %q", result)
	}
}

func TestOllamaRefiner_Refine_APIError(t *testing.T) {
	server := ollamaServer(t, func(generateRequest) (int, string) { return http.StatusBadGateway, "" })

	if _, err := NewOllama("llama3.2", server.URL).Refine(context.Background(), Request{Instructions: "fix", Draft: "x"}); err == nil {
		t.Error("expected error for non-OK status")
	}
}

func TestOllamaRefiner_Refine_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	}))
	defer server.Close()

	if _, err := NewOllama("llama3.2", server.URL).Refine(context.Background(), Request{Instructions: "fix", Draft: "x"}); err == nil {
		t.Error("expected decode error")
	}
}

func TestServiceRefiner_EmptyInstructions(t *testing.T) {
	if _, err := NewOllama("llama3.2", "http://localhost:19999").Refine(context.Background(), Request{Draft: "x"}); err == nil {
		t.Error("expected error without instructions")
	}
}

func TestRefinerInterface(t *testing.T) {
	var _ Refiner = (*ServiceRefiner)(nil)
}
