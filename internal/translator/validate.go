package translator

import (
	"context"

	"go.uber.org/zap"

	"qwenmt-translator/internal/dashscope"
)

// Validation is the outcome of a credential check.
type Validation struct {
	Result bool          `json:"result"`
	Error  *ServiceError `json:"error,omitempty"`
}

// Validate checks the API key by listing the models it can see. A panic
// anywhere in the check is reported as a plain failure without detail.
func (t *Translator) Validate(ctx context.Context, opts Options) (v Validation) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("validation panicked", zap.Any("panic", r))
			v = Validation{Result: false}
		}
		outcome := outcomeError
		if v.Result {
			outcome = outcomeSuccess
		}
		t.recorder.ObserveValidation(outcome)
	}()

	client, svcErr := t.clientFor(opts, dashscope.ModelsURL(opts.APIURL))
	if svcErr != nil {
		return Validation{Error: svcErr}
	}

	models, err := client.ListModels(ctx)
	if err != nil {
		svcErr := Classify(err)
		t.logger.Warn("validation failed",
			zap.String("error_type", string(svcErr.Type)),
			zap.String("error_message", svcErr.Message),
		)
		return Validation{Error: svcErr}
	}

	if len(models) == 0 {
		return Validation{Error: &ServiceError{Type: ErrorTypeAPI, Message: msgNoModel}}
	}

	t.logger.Info("validation succeeded",
		zap.String("base_url", client.BaseURL()),
		zap.Int("models", len(models)),
	)
	return Validation{Result: true}
}
