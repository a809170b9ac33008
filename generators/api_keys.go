package generators

import (
	"os"

	"github.com/reusee/taiplan/configs"
)

type (
	GoogleAPIKey     string
	OpenAIAPIKey     string
	DeepseekAPIKey   string
	OpenRouterAPIKey string
)

var (
	_ configs.Configurable = GoogleAPIKey("")
	_ configs.Configurable = OpenAIAPIKey("")
	_ configs.Configurable = DeepseekAPIKey("")
	_ configs.Configurable = OpenRouterAPIKey("")
)

func (GoogleAPIKey) ConfigKey() string     { return "google_api_key" }
func (OpenAIAPIKey) ConfigKey() string     { return "openai_api_key" }
func (DeepseekAPIKey) ConfigKey() string   { return "deepseek_api_key" }
func (OpenRouterAPIKey) ConfigKey() string { return "open_router_api_key" }

// apiKey resolves a key from its cue key, then extra cue keys, then environment variables.
// Variables loaded from .env are seen here too.
func apiKey[K interface {
	~string
	configs.Configurable
}](loader configs.Loader, cueKeys []string, envs ...string) K {
	if key, _ := configs.Lookup[K](loader); key != "" {
		return key
	}
	for _, path := range cueKeys {
		if key := configs.First[K](loader, path); key != "" {
			return key
		}
	}
	for _, env := range envs {
		if key := os.Getenv(env); key != "" {
			return K(key)
		}
	}
	return ""
}

func (Module) GoogleAPIKey(loader configs.Loader) GoogleAPIKey {
	return apiKey[GoogleAPIKey](loader, nil, "GOOGLE_API_KEY", "GEMINI_API_KEY")
}

func (Module) OpenAIAPIKey(loader configs.Loader) OpenAIAPIKey {
	return apiKey[OpenAIAPIKey](loader, nil, "OPENAI_API_KEY")
}

func (Module) DeepseekAPIKey(loader configs.Loader) DeepseekAPIKey {
	return apiKey[DeepseekAPIKey](loader, nil, "DEEPSEEK_API_KEY")
}

func (Module) OpenRouterAPIKey(loader configs.Loader) OpenRouterAPIKey {
	return apiKey[OpenRouterAPIKey](loader, []string{"openrouter_api_key"}, "OPEN_ROUTER_API_KEY", "OPENROUTER_API_KEY")
}
