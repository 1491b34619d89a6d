package dashscope

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

type modelList struct {
	Data json.RawMessage `json:"data"`
}

// ListModels fetches the models visible to the API key. A response without a
// decodable data array yields an empty list.
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	httpReq, err := c.newRequest(ctx, http.MethodGet, modelsPath, nil)
	if err != nil {
		return nil, err
	}

	status, body, err := c.roundTrip(httpReq)
	if err != nil {
		c.logger.Error("list models failed", zap.Error(err))
		return nil, err
	}
	if apiErr := embeddedError(status, body); apiErr != nil {
		c.logger.Error("list models rejected", zap.Int("status", status), zap.Error(apiErr))
		return nil, apiErr
	}

	var models []Model
	var list modelList
	if err := json.Unmarshal(body, &list); err != nil {
		c.logger.Warn("list models response not decodable", zap.Int("status", status), zap.Error(err))
	} else if err := json.Unmarshal(list.Data, &models); err != nil {
		models = nil
	}

	c.logger.Debug("list models completed", zap.Int("models", len(models)))
	return models, nil
}
