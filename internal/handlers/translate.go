package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"qwenmt-translator/internal/translator"
	"qwenmt-translator/pkg/logging/logging"
)

// Provider is the translation provider served over HTTP.
type Provider interface {
	Translate(ctx context.Context, opts translator.Options, q translator.Query)
	Validate(ctx context.Context, opts translator.Options) translator.Validation
}

// TranslateHandler holds dependencies for the /v1 endpoints.
type TranslateHandler struct {
	Provider Provider
	Options  translator.Options
}

func NewTranslateHandler(p Provider, opts translator.Options) *TranslateHandler {
	return &TranslateHandler{
		Provider: p,
		Options:  opts,
	}
}

// TranslateRequest is the body of POST /v1/translate.
type TranslateRequest struct {
	Text string `json:"text"`
	From string `json:"from"`
	To   string `json:"to"`
}

// Translate handles POST /v1/translate. With streaming enabled the response is
// an event stream of "stream" events followed by one "completion" event;
// otherwise it is a single JSON completion.
func (h *TranslateHandler) Translate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	var req TranslateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logging.L(ctx).Warn("invalid request", zap.Error(err))
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	stream := h.Options.StreamEnabled()
	ctx = logging.WithFields(ctx,
		zap.String("from", req.From),
		zap.String("to", req.To),
		zap.Bool("stream", stream),
	)
	logger := logging.L(ctx)

	query := translator.Query{
		ID:         chimw.GetReqID(ctx),
		Text:       req.Text,
		DetectFrom: req.From,
		DetectTo:   req.To,
	}

	logger.Info("translate_request", zap.Int("text_bytes", len(req.Text)))

	var completion translator.Completion
	if stream {
		completion = h.translateStream(ctx, w, logger, query)
	} else {
		query.OnCompletion = func(c translator.Completion) {
			completion = c
			h.writeJSON(w, statusFor(c), c)
		}
		h.Provider.Translate(ctx, h.Options, query)
	}

	fields := []zap.Field{
		zap.Duration("total_latency_ms", time.Since(start)),
	}
	if completion.Error != nil {
		fields = append(fields,
			zap.String("error_type", string(completion.Error.Type)),
			zap.String("error_message", completion.Error.Message),
		)
	}
	logger.Info("translate_completed", fields...)
}

func (h *TranslateHandler) translateStream(
	ctx context.Context,
	w http.ResponseWriter,
	logger *zap.Logger,
	query translator.Query,
) translator.Completion {
	sse := newEventWriter(w)

	var completion translator.Completion
	query.OnStream = func(ev translator.StreamEvent) {
		if err := sse.send("stream", ev); err != nil {
			logger.Debug("write stream event failed", zap.Error(err))
		}
	}
	query.OnCompletion = func(c translator.Completion) {
		completion = c
		if err := sse.send("completion", c); err != nil {
			logger.Debug("write completion event failed", zap.Error(err))
		}
	}

	h.Provider.Translate(ctx, h.Options, query)
	return completion
}

// Validate handles POST /v1/validate.
func (h *TranslateHandler) Validate(w http.ResponseWriter, r *http.Request) {
	logger := logging.L(r.Context())

	v := h.Provider.Validate(r.Context(), h.Options)

	fields := []zap.Field{zap.Bool("result", v.Result)}
	if v.Error != nil {
		fields = append(fields, zap.String("error_message", v.Error.Message))
	}
	logger.Info("validate_completed", fields...)

	h.writeJSON(w, http.StatusOK, v)
}

// Languages handles GET /v1/languages.
func (h *TranslateHandler) Languages(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string][]string{
		"languages": translator.SupportLanguages(),
	})
}

// statusFor maps a completion to the HTTP status of a non-streaming reply.
func statusFor(c translator.Completion) int {
	if c.Error == nil {
		return http.StatusOK
	}
	if c.Error.Type == translator.ErrorTypeParam {
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}

// writeJSON is a small helper to send JSON responses consistently.
func (h *TranslateHandler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// eventWriter writes server-sent events, sending headers on first use.
type eventWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

func newEventWriter(w http.ResponseWriter) *eventWriter {
	flusher, _ := w.(http.Flusher)
	return &eventWriter{w: w, flusher: flusher}
}

func (e *eventWriter) send(event string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event, err)
	}

	if !e.started {
		e.started = true
		h := e.w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		e.w.WriteHeader(http.StatusOK)
	}

	if _, err := fmt.Fprintf(e.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	if e.flusher != nil {
		e.flusher.Flush()
	}
	return nil
}
