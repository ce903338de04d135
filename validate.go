package dave

import (
	"fmt"
	"strings"
)

// Validate checks universal constraints on Config.
// Provider-specific requirements are checked once the provider is resolved.
func (c Config) Validate() error {
	switch c.Provider {
	case "", ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("unknown provider %q: %w", c.Provider, ErrValidation)
	}
	if c.Provider == ProviderOpenAI && c.AssistantID == "" {
		return fmt.Errorf("openai provider requires an assistant id: %w", ErrValidation)
	}
	if c.Temperature != nil {
		if *c.Temperature < 0 || *c.Temperature > 2 {
			return fmt.Errorf("temperature must be in [0, 2], got %g: %w", *c.Temperature, ErrValidation)
		}
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative, got %s: %w", c.Timeout, ErrValidation)
	}
	for _, ext := range c.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("extension %q must start with a dot: %w", ext, ErrValidation)
		}
	}
	return nil
}
