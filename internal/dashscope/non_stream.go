package dashscope

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// maxResponseSize bounds how much of a non-streaming body is read.
const maxResponseSize = 8 * 1024 * 1024

// newRequest builds an authenticated request against the client's base URL.
func (c *Client) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("dashscope: build HTTP request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	return httpReq, nil
}

// roundTrip sends req and reads the whole response body.
func (c *Client) roundTrip(req *http.Request) (int, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, &TransportError{Method: req.Method, URL: req.URL.String(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return resp.StatusCode, nil, &TransportError{
			Method:     req.Method,
			URL:        req.URL.String(),
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("read body: %w", err),
		}
	}
	return resp.StatusCode, body, nil
}

// ChatCompletion sends body with stream=false and decodes the response.
// A received body that is not a chat completion decodes to a response with
// no choices; Raw always holds the body as received.
func (c *Client) ChatCompletion(ctx context.Context, body *ChatCompletionBody) (*ChatCompletionResponse, error) {
	start := time.Now()

	if body == nil {
		return nil, fmt.Errorf("dashscope: request is nil")
	}
	if err := body.Validate(); err != nil {
		return nil, fmt.Errorf("dashscope: invalid request: %w", err)
	}

	pReq := *body
	pReq.Stream = false

	bodyBytes, err := json.Marshal(pReq)
	if err != nil {
		return nil, fmt.Errorf("dashscope: marshal request: %w", err)
	}

	c.logger.Debug("chat completion starting",
		zap.String("model", pReq.Model),
		zap.String("source_lang", pReq.TranslationOptions.SourceLang),
		zap.String("target_lang", pReq.TranslationOptions.TargetLang),
	)

	httpReq, err := c.newRequest(ctx, http.MethodPost, chatCompletionsPath, bodyBytes)
	if err != nil {
		return nil, err
	}

	status, respBody, err := c.roundTrip(httpReq)
	if err != nil {
		c.logger.Error("chat completion failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)),
		)
		return nil, err
	}

	if apiErr := embeddedError(status, respBody); apiErr != nil {
		c.logger.Error("chat completion rejected",
			zap.Int("status", status),
			zap.Error(apiErr),
		)
		return nil, apiErr
	}

	var out ChatCompletionResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		c.logger.Warn("chat completion response not decodable",
			zap.Int("status", status),
			zap.Error(err),
		)
		out = ChatCompletionResponse{}
	} else if !isSuccess(status) {
		c.logger.Warn("chat completion returned non-2xx status", zap.Int("status", status))
	}
	out.Raw = respBody

	fields := []zap.Field{
		zap.String("model", out.Model),
		zap.Int("choices", len(out.Choices)),
		zap.Duration("duration", time.Since(start)),
	}
	if out.Usage != nil {
		fields = append(fields,
			zap.Int("prompt_tokens", out.Usage.PromptTokens),
			zap.Int("completion_tokens", out.Usage.CompletionTokens),
		)
	}
	c.logger.Info("chat completion completed", fields...)

	return &out, nil
}
