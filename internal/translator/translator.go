// Package translator implements the host-facing translation provider:
// it validates options, dispatches each query to DashScope over the
// streaming or non-streaming path and reports exactly one terminal outcome.
package translator

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"qwenmt-translator/internal/dashscope"
	"qwenmt-translator/internal/lang"
)

const (
	modeStream    = "stream"
	modeNonStream = "non_stream"

	outcomeSuccess = "success"
	outcomeError   = "error"
)

// Result is a (partial or final) translation.
type Result struct {
	From         string   `json:"from"`
	To           string   `json:"to"`
	ToParagraphs []string `json:"toParagraphs"`
}

// StreamEvent is delivered for every usable streamed delta.
type StreamEvent struct {
	Result Result `json:"result"`
}

// Completion is the terminal outcome of a query: exactly one of Result and
// Error is set.
type Completion struct {
	Result *Result       `json:"result,omitempty"`
	Error  *ServiceError `json:"error,omitempty"`
}

// Query is one translation request from the host. Cancellation is carried by
// the context passed to Translate.
type Query struct {
	ID           string
	Text         string
	DetectFrom   string
	DetectTo     string
	OnStream     func(StreamEvent)
	OnCompletion func(Completion)
}

// Recorder receives translation metrics.
type Recorder interface {
	ObserveTranslation(mode, outcome string, d time.Duration)
	ObserveError(errType string)
	ObserveDelta()
	ObserveValidation(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveTranslation(string, string, time.Duration) {}
func (nopRecorder) ObserveError(string)                              {}
func (nopRecorder) ObserveDelta()                                    {}
func (nopRecorder) ObserveValidation(string)                         {}

// Translator serves translation and validation requests. It holds no
// per-request state and is safe for concurrent use.
type Translator struct {
	httpClient dashscope.Doer
	logger     *zap.Logger
	recorder   Recorder
}

// New creates a Translator. A nil httpClient uses dashscope's default client,
// a nil logger discards logs and a nil recorder discards metrics.
func New(httpClient dashscope.Doer, logger *zap.Logger, recorder Recorder) *Translator {
	if httpClient == nil {
		httpClient = dashscope.DefaultHTTPClient()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Translator{
		httpClient: httpClient,
		logger:     logger.Named("translator"),
		recorder:   recorder,
	}
}

// SupportLanguages returns the host language codes the provider accepts.
func SupportLanguages() []string {
	return lang.Supported()
}

// session is the per-query state. It is only touched from the goroutine
// running Translate.
type session struct {
	query    Query
	logger   *zap.Logger
	recorder Recorder

	paragraphs []string
	terminated bool
}

func (s *session) partial(paragraphs []string) {
	if s.terminated || s.query.OnStream == nil {
		return
	}
	s.query.OnStream(StreamEvent{Result: s.result(paragraphs)})
}

func (s *session) complete(c Completion) {
	if s.terminated {
		return
	}
	s.terminated = true
	if c.Error != nil {
		s.recorder.ObserveError(string(c.Error.Type))
	}
	if s.query.OnCompletion != nil {
		s.query.OnCompletion(c)
	}
}

func (s *session) fail(err *ServiceError) {
	s.logger.Warn("translation failed",
		zap.String("error_type", string(err.Type)),
		zap.String("error_message", err.Message),
	)
	s.complete(Completion{Error: err})
}

func (s *session) result(paragraphs []string) Result {
	return Result{
		From:         s.query.DetectFrom,
		To:           s.query.DetectTo,
		ToParagraphs: paragraphs,
	}
}

// Translate runs one query to completion. It returns after the query's
// terminal callback has fired.
func (t *Translator) Translate(ctx context.Context, opts Options, q Query) {
	start := time.Now()
	if q.ID == "" {
		q.ID = uuid.NewString()
	}

	mode := modeNonStream
	if opts.StreamEnabled() {
		mode = modeStream
	}

	s := &session{
		query: q,
		logger: t.logger.With(
			zap.String("translation_id", q.ID),
			zap.String("mode", mode),
			zap.String("from", q.DetectFrom),
			zap.String("to", q.DetectTo),
		),
		recorder:   t.recorder,
		paragraphs: []string{},
	}

	outcome := outcomeError
	defer func() {
		t.recorder.ObserveTranslation(mode, outcome, time.Since(start))
		s.logger.Debug("translation finished",
			zap.String("outcome", outcome),
			zap.Duration("duration", time.Since(start)),
		)
	}()

	client, svcErr := t.clientFor(opts, dashscope.ChatCompletionsURL(opts.APIURL))
	if svcErr != nil {
		s.fail(svcErr)
		return
	}
	s.logger = s.logger.With(zap.String("base_url", client.BaseURL()))

	body := dashscope.NewTranslationBody(
		opts.model(),
		q.Text,
		lang.Map(q.DetectFrom),
		lang.Map(q.DetectTo),
		mode == modeStream,
	)

	var ok bool
	if mode == modeStream {
		ok = t.translateStream(ctx, client, body, s)
	} else {
		ok = t.translateOnce(ctx, client, body, s)
	}
	if ok {
		outcome = outcomeSuccess
	}
}

// clientFor checks the options that must be valid before any network call and
// builds a client for them.
func (t *Translator) clientFor(opts Options, endpoint string) (*dashscope.Client, *ServiceError) {
	if opts.APIKey == "" {
		return nil, paramError(msgAPIKeyRequired)
	}
	if !dashscope.IsValidURL(endpoint) {
		return nil, paramError(msgInvalidURL)
	}

	client, err := dashscope.NewClient(dashscope.Config{
		BaseURL:    opts.APIURL,
		APIKey:     opts.APIKey,
		HTTPClient: t.httpClient,
	}, t.logger)
	if err != nil {
		return nil, paramError(msgInvalidURL)
	}
	return client, nil
}

func (t *Translator) translateOnce(ctx context.Context, client *dashscope.Client, body *dashscope.ChatCompletionBody, s *session) bool {
	resp, err := client.ChatCompletion(ctx, body)
	if err != nil {
		s.fail(Classify(err))
		return false
	}

	msg := resp.FirstMessage()
	if msg == nil {
		s.fail(&ServiceError{
			Type:     ErrorTypeAPI,
			Message:  msgNoResult,
			Addition: string(resp.Raw),
		})
		return false
	}

	s.complete(Completion{Result: ptr(s.result([]string{msg.Content}))})
	return true
}

func (t *Translator) translateStream(ctx context.Context, client *dashscope.Client, body *dashscope.ChatCompletionBody, s *session) bool {
	stream, err := client.ChatCompletionStream(ctx, body)
	if err != nil {
		s.fail(Classify(err))
		return false
	}

	var (
		streamErr error
		embedded  *dashscope.APIError
	)
	for res := range stream {
		if res.Err != nil {
			streamErr = res.Err
			continue
		}
		if apiErr := s.handleBuffer(res.Text); apiErr != nil && embedded == nil {
			embedded = apiErr
		}
	}

	switch {
	case streamErr != nil:
		s.fail(Classify(streamErr))
		return false
	case embedded != nil:
		s.fail(Classify(embedded))
		return false
	}

	s.complete(Completion{Result: ptr(s.result(s.paragraphs))})
	return true
}

// handleBuffer processes one received text buffer. Each usable delta replaces
// the accumulated paragraphs. Panics are logged and swallowed so a bad buffer
// never aborts the stream. It returns an error object carried in the stream,
// if any.
func (s *session) handleBuffer(text string) (embedded *dashscope.APIError) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("stream data parse error", zap.Any("panic", r))
		}
	}()

	for _, line := range strings.Split(text, "\n") {
		chunk, ok := dashscope.ParseStreamLine(line)
		if !ok {
			continue
		}
		if chunk.Error != nil {
			s.logger.Warn("stream carried an error object",
				zap.String("error_message", chunk.Error.Message),
			)
			if embedded == nil {
				embedded = chunk.Error
			}
			continue
		}

		content, usable := chunk.Content()
		if !usable {
			continue
		}

		s.paragraphs = []string{content}
		s.recorder.ObserveDelta()
		s.partial([]string{content})
	}
	return embedded
}

func ptr[T any](v T) *T {
	return &v
}
