package llm_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"podscribe/internal/services"
	"podscribe/internal/services/llm"
)

func chatServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = io.WriteString(w, `{"error":{"message":"upstream said no","type":"test"}}`)
			return
		}
		payload := map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "demo-model",
			"choices": []any{
				map[string]any{
					"index":         0,
					"finish_reason": "stop",
					"message":       map[string]any{"role": "assistant", "content": content},
				},
			},
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func newClient(serverURL string) *llm.Client {
	return llm.NewClient(llm.Config{APIKey: "test", BaseURL: serverURL + "/v1/", Model: "demo-model"})
}

func TestCompleteJSONReturnsContent(t *testing.T) {
	server := chatServer(t, http.StatusOK, `{"ok":true}`)
	client := newClient(server.URL)

	content, err := client.CompleteJSON(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if content != `{"ok":true}` {
		t.Fatalf("unexpected content %q", content)
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}

func TestCompleteJSONClassifiesHTTPErrors(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusTooManyRequests, services.ErrTransient},
		{http.StatusBadGateway, services.ErrTransient},
		{http.StatusUnauthorized, services.ErrConfiguration},
		{http.StatusBadRequest, services.ErrValidation},
	}
	for _, tc := range cases {
		server := chatServer(t, tc.status, "")
		client := newClient(server.URL)
		_, err := client.CompleteJSON(context.Background(), "system", "user")
		if !errors.Is(err, tc.want) {
			t.Fatalf("status %d: expected %v, got %v", tc.status, tc.want, err)
		}
	}
}

func TestCompleteJSONEmptyContentIsMalformed(t *testing.T) {
	server := chatServer(t, http.StatusOK, "")
	_, err := newClient(server.URL).CompleteJSON(context.Background(), "system", "user")
	if !errors.Is(err, services.ErrMalformedResponse) {
		t.Fatalf("expected malformed response, got %v", err)
	}
}

func TestCompleteJSONRequiresKey(t *testing.T) {
	client := llm.NewClient(llm.Config{})
	_, err := client.CompleteJSON(context.Background(), "system", "user")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestTranscribeReadsVerboseFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/audio/transcriptions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if got := r.FormValue("model"); got != "whisper-1" {
			t.Errorf("unexpected model %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"text":" hello world ","language":"english","duration":12.5,"segments":[]}`)
	}))
	defer server.Close()

	out, err := newClient(server.URL).Transcribe(context.Background(), "whisper-1", strings.NewReader("fake audio"))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if out.Text != "hello world" || out.Language != "english" || out.Duration != 12.5 {
		t.Fatalf("unexpected transcription %+v", out)
	}
}

func TestSpeechReturnsAudioStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/audio/speech") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = io.WriteString(w, "ID3-mp3-bytes")
	}))
	defer server.Close()

	body, err := newClient(server.URL).Speech(context.Background(), "tts-1", "alloy", "Hello")
	if err != nil {
		t.Fatalf("Speech: %v", err)
	}
	defer body.Close()
	data, _ := io.ReadAll(body)
	if string(data) != "ID3-mp3-bytes" {
		t.Fatalf("unexpected audio %q", data)
	}
}

func TestDecodeJSONHandlesFences(t *testing.T) {
	var parsed struct {
		OK bool `json:"ok"`
	}
	if err := llm.DecodeJSON("```json\n{\"ok\":true}\n```", &parsed); err != nil || !parsed.OK {
		t.Fatalf("fenced payload: %+v %v", parsed, err)
	}
	parsed.OK = false
	if err := llm.DecodeJSON("Sure! {\"ok\":true} hope this helps", &parsed); err != nil || !parsed.OK {
		t.Fatalf("prose payload: %+v %v", parsed, err)
	}
	if err := llm.DecodeJSON("not json at all", &parsed); err == nil {
		t.Fatal("expected error for non-json payload")
	}
}
