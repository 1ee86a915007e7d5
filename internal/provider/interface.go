// Package provider selects and constructs the chat model used for
// paraphrase suggestions. Supported backends: Ollama, OpenAI, Azure OpenAI,
// Volcengine Ark and Google Gemini.
package provider

import (
	"fmt"
)

// Backend enumerates the supported chat model providers.
type Backend string

const (
	// BackendOllama selects a locally running Ollama instance.
	BackendOllama Backend = "ollama"
	// BackendOpenAI selects the OpenAI API.
	BackendOpenAI Backend = "openai"
	// BackendAzure selects Azure OpenAI Service.
	BackendAzure Backend = "azure"
	// BackendArk selects Volcengine Ark.
	BackendArk Backend = "ark"
	// BackendGemini selects Google Gemini via AI Studio.
	BackendGemini Backend = "gemini"
)

// ProviderOllama holds Ollama settings.
type ProviderOllama struct {
	Host  string
	Model string
}

// ProviderOpenAI holds OpenAI settings. BaseURL is optional.
type ProviderOpenAI struct {
	APIKey  string
	Model   string
	BaseURL string
}

// ProviderAzureOpenAI holds Azure OpenAI settings.
type ProviderAzureOpenAI struct {
	APIKey     string
	Endpoint   string
	Deployment string
	APIVersion string
}

// ProviderArk holds Volcengine Ark settings. Model is the endpoint id.
type ProviderArk struct {
	APIKey  string
	Model   string
	BaseURL string
}

// ProviderGemini holds Google AI Studio settings.
type ProviderGemini struct {
	APIKey string
	Model  string
}

// SharedTuning applies to every backend that supports it.
type SharedTuning struct {
	// MaxTokens caps the tokens generated per response.
	MaxTokens int
	// Temperature controls response randomness (0.0-1.0).
	Temperature float32
}

// Config selects a backend and carries the settings for all of them; only
// the selected backend's block is read.
type Config struct {
	Backend     Backend
	Ollama      ProviderOllama
	OpenAI      ProviderOpenAI
	AzureOpenAI ProviderAzureOpenAI
	Ark         ProviderArk
	Gemini      ProviderGemini
	Tuning      SharedTuning
}

// Validate reports the first missing setting for the selected backend,
// naming the environment variable that supplies it.
func (c *Config) Validate() error {
	var missing string
	switch c.Backend {
	case BackendOllama:
		switch {
		case c.Ollama.Host == "":
			missing = "OLLAMA_HOST"
		case c.Ollama.Model == "":
			missing = "OLLAMA_MODEL"
		}
	case BackendOpenAI:
		switch {
		case c.OpenAI.APIKey == "":
			missing = "OPENAI_API_KEY"
		case c.OpenAI.Model == "":
			missing = "OPENAI_MODEL"
		}
	case BackendAzure:
		switch {
		case c.AzureOpenAI.APIKey == "":
			missing = "AZURE_OPENAI_API_KEY"
		case c.AzureOpenAI.Endpoint == "":
			missing = "AZURE_OPENAI_ENDPOINT"
		case c.AzureOpenAI.Deployment == "":
			missing = "AZURE_OPENAI_DEPLOYMENT"
		}
	case BackendArk:
		switch {
		case c.Ark.APIKey == "":
			missing = "ARK_API_KEY"
		case c.Ark.Model == "":
			missing = "ARK_MODEL"
		}
	case BackendGemini:
		switch {
		case c.Gemini.APIKey == "":
			missing = "GOOGLE_API_KEY"
		case c.Gemini.Model == "":
			missing = "GEMINI_MODEL"
		}
	default:
		return fmt.Errorf("provider: unknown backend %q, valid values: ollama, openai, azure, ark, gemini", c.Backend)
	}
	if missing != "" {
		return fmt.Errorf("provider: %s is required for %s backend", missing, c.Backend)
	}
	return nil
}
