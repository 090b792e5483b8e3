package llm

// Provider constants
const (
	// DefaultProvider is the default LLM provider
	DefaultProvider = ProviderOpenAI

	// ProviderOpenAI represents the OpenAI provider
	ProviderOpenAI = "openai"

	// ProviderOllama represents the Ollama provider
	ProviderOllama = "ollama"

	// ProviderAnthropic represents the Anthropic provider
	ProviderAnthropic = "anthropic"

	// ProviderGemini represents the Google Gemini provider
	ProviderGemini = "gemini"
)

// DefaultOllamaURL is the default URL for Ollama server
const DefaultOllamaURL = "http://localhost:11434"

// DefaultMaxTokens caps Anthropic replies, which require an explicit limit.
const DefaultMaxTokens = 4096

var defaultModels = map[string]string{
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderAnthropic: "claude-3-5-haiku-latest",
	ProviderGemini:    "gemini-2.0-flash",
	ProviderOllama:    "llama3.2",
}

// DefaultModelForProvider returns the default model ID for a given provider,
// or "" for an unknown provider.
func DefaultModelForProvider(provider string) string {
	return defaultModels[provider]
}

// InferProviderFromModel attempts to determine the provider from a model name.
func InferProviderFromModel(model string) (string, bool) {
	switch {
	case hasPrefix(model, "gpt-"), hasPrefix(model, "o1"), hasPrefix(model, "o3"), hasPrefix(model, "o4"):
		return ProviderOpenAI, true
	case hasPrefix(model, "claude-"):
		return ProviderAnthropic, true
	case hasPrefix(model, "gemini-"):
		return ProviderGemini, true
	case hasPrefix(model, "llama"), hasPrefix(model, "mistral"), hasPrefix(model, "qwen"), hasPrefix(model, "phi"):
		return ProviderOllama, true
	}
	return "", false
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
