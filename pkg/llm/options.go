package llm

// Default sampling values applied when the caller leaves a field unset.
const (
	DefaultTemperature = 0.7
	DefaultTopP        = 0.9
	DefaultNumPredict  = 2048
)

// Options contains model inference parameters. Fields are pointers so that
// an unset field can be told apart from an explicit zero and filled from the
// backend defaults field-by-field.
type Options struct {
	// Sampling parameters
	Temperature *float64 `json:"temperature,omitempty"` // Creativity (0.0-2.0)
	TopP        *float64 `json:"top_p,omitempty"`       // Nucleus sampling threshold
	TopK        *int     `json:"top_k,omitempty"`       // Top-k sampling
	Seed        *int     `json:"seed,omitempty"`        // Random seed for reproducibility

	// Length parameters
	NumPredict *int `json:"num_predict,omitempty"` // Max tokens to generate

	// Stop sequences
	Stop []string `json:"stop,omitempty"` // Stop generation at these sequences

	// Model selects a model other than the provider's configured default.
	Model string `json:"-"`
}

// WithDefaults returns a copy of the options with every unset sampling field
// filled from the defaults. Caller-supplied fields always win; the merge is
// per-field, never wholesale.
func (o *Options) WithDefaults() Options {
	var merged Options
	if o != nil {
		merged = *o
	}
	if merged.Temperature == nil {
		t := DefaultTemperature
		merged.Temperature = &t
	}
	if merged.TopP == nil {
		p := DefaultTopP
		merged.TopP = &p
	}
	if merged.NumPredict == nil {
		n := DefaultNumPredict
		merged.NumPredict = &n
	}
	return merged
}
