package translator

const (
	// DefaultModel is used when Options.Model is empty.
	DefaultModel = "qwen-mt-turbo"

	// StreamEnable is the Options.Stream value that selects streaming.
	StreamEnable = "enable"
)

// Options is the provider's option bag as configured in the host.
type Options struct {
	APIKey string `yaml:"api_key" json:"apiKey"`
	APIURL string `yaml:"api_url" json:"apiUrl,omitempty"`
	Model  string `yaml:"model" json:"model,omitempty"`
	Stream string `yaml:"stream" json:"stream,omitempty"`
}

// StreamEnabled reports whether translations should use the streaming path.
func (o Options) StreamEnabled() bool {
	return o.Stream == StreamEnable
}

func (o Options) model() string {
	if o.Model == "" {
		return DefaultModel
	}
	return o.Model
}
