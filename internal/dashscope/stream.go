package dashscope

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

const (
	dataPrefix = "data: "

	// DoneLine is the sentinel line ending a stream.
	DoneLine = "data: [DONE]"
)

// ParseStreamLine decodes one line of a chat completion stream.
// It reports false for blank lines, the [DONE] sentinel, lines without a
// "data: " payload and payloads that are not valid chunk JSON.
func ParseStreamLine(line string) (*StreamChunk, bool) {
	line = strings.TrimSuffix(line, "\r")
	if strings.TrimSpace(line) == "" || line == DoneLine {
		return nil, false
	}

	payload, ok := strings.CutPrefix(line, dataPrefix)
	if !ok || payload == "" {
		return nil, false
	}

	var chunk StreamChunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		return nil, false
	}
	return &chunk, true
}

// ChatCompletionStream sends body with stream=true and returns the response
// body line by line. The channel carries at most one Err, always last, and is
// closed when the stream ends.
func (c *Client) ChatCompletionStream(ctx context.Context, body *ChatCompletionBody) (<-chan StreamResult, error) {
	if body == nil {
		return nil, fmt.Errorf("dashscope: request is nil")
	}
	if err := body.Validate(); err != nil {
		return nil, fmt.Errorf("dashscope: invalid request: %w", err)
	}

	pReq := *body
	pReq.Stream = true

	bodyBytes, err := json.Marshal(pReq)
	if err != nil {
		return nil, fmt.Errorf("dashscope: marshal stream request: %w", err)
	}

	httpReq, err := c.newRequest(ctx, http.MethodPost, chatCompletionsPath, bodyBytes)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	c.logger.Debug("chat completion stream starting",
		zap.String("model", pReq.Model),
		zap.String("source_lang", pReq.TranslationOptions.SourceLang),
		zap.String("target_lang", pReq.TranslationOptions.TargetLang),
	)

	results := make(chan StreamResult, 16)

	go func() {
		defer close(results)

		fail := func(err error) {
			// The consumer drains until close, so this send cannot block forever.
			results <- StreamResult{Err: err}
		}

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			c.logger.Error("chat completion stream connect failed", zap.Error(err))
			fail(&TransportError{Method: httpReq.Method, URL: httpReq.URL.String(), Err: err})
			return
		}
		defer resp.Body.Close()

		if !isSuccess(resp.StatusCode) || isJSON(resp.Header.Get("Content-Type")) {
			respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
			if err != nil {
				fail(&TransportError{
					Method:     httpReq.Method,
					URL:        httpReq.URL.String(),
					StatusCode: resp.StatusCode,
					Err:        fmt.Errorf("read body: %w", err),
				})
				return
			}
			if apiErr := embeddedError(resp.StatusCode, respBody); apiErr != nil {
				c.logger.Error("chat completion stream rejected",
					zap.Int("status", resp.StatusCode),
					zap.Error(apiErr),
				)
				fail(apiErr)
				return
			}
			if !isSuccess(resp.StatusCode) {
				c.logger.Error("chat completion stream returned non-2xx status",
					zap.Int("status", resp.StatusCode),
				)
				fail(&ResponseError{StatusCode: resp.StatusCode, Body: truncate(string(respBody), 2048)})
				return
			}
			// A JSON body without an error object is handed over as-is.
			results <- StreamResult{Text: string(respBody)}
			return
		}

		c.readLines(ctx, httpReq, resp.Body, results, fail)
	}()

	return results, nil
}

func (c *Client) readLines(
	ctx context.Context,
	httpReq *http.Request,
	body io.Reader,
	results chan<- StreamResult,
	fail func(error),
) {
	reader := bufio.NewReader(body)
	lines := 0

	cancelled := func() {
		c.logger.Info("chat completion stream cancelled",
			zap.Int("lines", lines),
			zap.Error(ctx.Err()),
		)
		fail(&TransportError{Method: httpReq.Method, URL: httpReq.URL.String(), Err: ctx.Err()})
	}

	for {
		if ctx.Err() != nil {
			cancelled()
			return
		}

		line, readErr := reader.ReadString('\n')
		line = strings.TrimSuffix(line, "\n")

		if strings.TrimSpace(line) != "" {
			lines++
			select {
			case <-ctx.Done():
				cancelled()
				return
			case results <- StreamResult{Text: line}:
			}
			if strings.TrimSuffix(line, "\r") == DoneLine {
				c.logger.Debug("chat completion stream received [DONE]", zap.Int("lines", lines))
				return
			}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				c.logger.Debug("chat completion stream completed (EOF)", zap.Int("lines", lines))
				return
			}
			if ctx.Err() != nil {
				cancelled()
				return
			}
			fail(&TransportError{
				Method: httpReq.Method,
				URL:    httpReq.URL.String(),
				Err:    fmt.Errorf("read stream line: %w", readErr),
			})
			return
		}
	}
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/json"
}
