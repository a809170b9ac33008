package generators

import (
	"github.com/reusee/taiplan/configs"
	"github.com/reusee/taiplan/vars"
)

// compatible points args at an OpenAI-compatible endpoint. A key in args wins over the provider key.
func compatible(newOpenAI NewOpenAI, args GeneratorArgs, baseURL string, key string) *OpenAI {
	args.BaseURL = baseURL
	return newOpenAI(args, vars.FirstNonZero(args.APIKey, key))
}

type NewOpenRouter func(args GeneratorArgs) *OpenAI

func (Module) NewOpenRouter(
	newOpenAI NewOpenAI,
	apiKey OpenRouterAPIKey,
	loader configs.Loader,
) NewOpenRouter {
	endpoint := vars.FirstNonZero(
		configs.First[string](loader, "openrouter_endpoint"),
		"https://openrouter.ai/api/v1",
	)
	return func(args GeneratorArgs) *OpenAI {
		args.IsOpenRouter = true
		return compatible(newOpenAI, args, endpoint, string(apiKey))
	}
}

type NewDeepseek func(args GeneratorArgs) *OpenAI

func (Module) NewDeepseek(
	newOpenAI NewOpenAI,
	apiKey DeepseekAPIKey,
) NewDeepseek {
	return func(args GeneratorArgs) *OpenAI {
		return compatible(newOpenAI, args, "https://api.deepseek.com/", string(apiKey))
	}
}
