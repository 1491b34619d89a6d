package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"qwenmt-translator/internal/translator"
	"qwenmt-translator/pkg/logging/logging"
)

type mockProvider struct {
	partials   [][]string
	completion translator.Completion
	validation translator.Validation

	translateCalls int
	lastQuery      translator.Query
	lastOptions    translator.Options
}

func (m *mockProvider) Translate(ctx context.Context, opts translator.Options, q translator.Query) {
	m.translateCalls++
	m.lastQuery = q
	m.lastOptions = opts
	for _, p := range m.partials {
		if q.OnStream != nil {
			q.OnStream(translator.StreamEvent{Result: translator.Result{From: q.DetectFrom, To: q.DetectTo, ToParagraphs: p}})
		}
	}
	q.OnCompletion(m.completion)
}

func (m *mockProvider) Validate(ctx context.Context, opts translator.Options) translator.Validation {
	m.lastOptions = opts
	return m.validation
}

func postTranslate(t *testing.T, h *TranslateHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/translate", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.Translate(rr, req)
	return rr
}

func TestTranslateHandlerNonStream(t *testing.T) {
	provider := &mockProvider{
		completion: translator.Completion{Result: &translator.Result{From: "en", To: "ja", ToParagraphs: []string{"こんにちは"}}},
	}
	h := NewTranslateHandler(provider, translator.Options{APIKey: "k", Stream: "disable"})

	rr := postTranslate(t, h, `{"text":"hello","from":"en","to":"ja"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var got translator.Completion
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Result == nil || got.Result.ToParagraphs[0] != "こんにちは" {
		t.Fatalf("unexpected response: %s", rr.Body.String())
	}
	if provider.translateCalls != 1 || provider.lastQuery.Text != "hello" || provider.lastQuery.DetectTo != "ja" {
		t.Fatalf("unexpected provider call: %#v", provider.lastQuery)
	}
	if provider.lastOptions.APIKey != "k" {
		t.Fatalf("options not forwarded: %#v", provider.lastOptions)
	}
}

func TestTranslateHandlerErrorStatus(t *testing.T) {
	tests := []struct {
		errType translator.ErrorType
		status  int
	}{
		{translator.ErrorTypeParam, http.StatusBadRequest},
		{translator.ErrorTypeAPI, http.StatusBadGateway},
	}

	for _, tt := range tests {
		provider := &mockProvider{
			completion: translator.Completion{Error: &translator.ServiceError{Type: tt.errType, Message: "nope"}},
		}
		h := NewTranslateHandler(provider, translator.Options{})

		rr := postTranslate(t, h, `{"text":"hello","from":"en","to":"ja"}`)
		if rr.Code != tt.status {
			t.Fatalf("%s: expected status %d, got %d", tt.errType, tt.status, rr.Code)
		}
		if !strings.Contains(rr.Body.String(), `"message":"nope"`) {
			t.Fatalf("%s: error not in body: %s", tt.errType, rr.Body.String())
		}
	}
}

func TestTranslateHandlerInvalidJSON(t *testing.T) {
	provider := &mockProvider{}
	h := NewTranslateHandler(provider, translator.Options{})

	rr := postTranslate(t, h, `{"text":`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
	if provider.translateCalls != 0 {
		t.Fatalf("provider must not be called for invalid JSON")
	}
}

func TestTranslateHandlerStream(t *testing.T) {
	provider := &mockProvider{
		partials:   [][]string{{"hel"}, {"hello"}},
		completion: translator.Completion{Result: &translator.Result{From: "en", To: "fr", ToParagraphs: []string{"hello"}}},
	}
	h := NewTranslateHandler(provider, translator.Options{APIKey: "k", Stream: translator.StreamEnable})

	rr := postTranslate(t, h, `{"text":"hello","from":"en","to":"fr"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type: %s", ct)
	}

	body := rr.Body.String()
	if strings.Count(body, "event: stream\n") != 2 {
		t.Fatalf("expected two stream events: %s", body)
	}
	if !strings.Contains(body, `"toParagraphs":["hel"]`) {
		t.Fatalf("expected first partial in body: %s", body)
	}
	completionAt := strings.Index(body, "event: completion\n")
	if completionAt < 0 || completionAt < strings.LastIndex(body, "event: stream\n") {
		t.Fatalf("completion must be the last event: %s", body)
	}
}

func TestValidateHandler(t *testing.T) {
	provider := &mockProvider{
		validation: translator.Validation{Error: &translator.ServiceError{Type: translator.ErrorTypeAPI, Message: "No valid model found"}},
	}
	h := NewTranslateHandler(provider, translator.Options{APIKey: "k"})

	rr := httptest.NewRecorder()
	h.Validate(rr, httptest.NewRequest(http.MethodPost, "/v1/validate", nil))

	var got translator.Validation
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Result || got.Error == nil || got.Error.Message != "No valid model found" {
		t.Fatalf("unexpected validation: %s", rr.Body.String())
	}
}

func TestLanguagesHandler(t *testing.T) {
	h := NewTranslateHandler(&mockProvider{}, translator.Options{})

	rr := httptest.NewRecorder()
	h.Languages(rr, httptest.NewRequest(http.MethodGet, "/v1/languages", nil))

	var got map[string][]string
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got["languages"]) == 0 || got["languages"][0] != "auto" {
		t.Fatalf("unexpected languages: %v", got)
	}
}

func TestTranslateHandlerEndToEndStream(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, content := range []string{"Bon", "Bonjour"} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", content)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer upstream.Close()

	tr := translator.New(upstream.Client(), zaptest.NewLogger(t), nil)
	h := NewTranslateHandler(tr, translator.Options{
		APIKey: "k",
		APIURL: upstream.URL,
		Stream: translator.StreamEnable,
	})

	rr := postTranslate(t, h, `{"text":"hello","from":"en","to":"fr"}`)

	body := rr.Body.String()
	if strings.Count(body, "event: stream\n") != 2 {
		t.Fatalf("expected two stream events: %s", body)
	}
	if !strings.Contains(body, "event: completion\ndata: {\"result\":{\"from\":\"en\",\"to\":\"fr\",\"toParagraphs\":[\"Bonjour\"]}}") {
		t.Fatalf("unexpected completion: %s", body)
	}
}

func TestTranslateHandlerLogsLanguagePair(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	provider := &mockProvider{
		completion: translator.Completion{Error: &translator.ServiceError{Type: translator.ErrorTypeAPI, Message: "service call error"}},
	}
	h := NewTranslateHandler(provider, translator.Options{APIKey: "k"})

	req := httptest.NewRequest(http.MethodPost, "/v1/translate", strings.NewReader(`{"text":"hello","from":"en","to":"ko"}`))
	req = req.WithContext(logging.WithLogger(req.Context(), zap.New(core)))
	h.Translate(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("translate_completed").All()
	if len(entries) != 1 {
		t.Fatalf("expected one translate_completed entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["from"] != "en" || fields["to"] != "ko" || fields["stream"] != false {
		t.Fatalf("language pair missing from request logger: %v", fields)
	}
	if fields["error_message"] != "service call error" {
		t.Fatalf("missing error fields: %v", fields)
	}
}
