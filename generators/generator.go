package generators

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/reusee/taiplan/configs"
	"github.com/reusee/taiplan/vars"
)

type Generator interface {
	Args() GeneratorArgs
	// WithArgs returns a generator of the same backend using args.
	WithArgs(args GeneratorArgs) Generator
	CountTokens(string) (int, error)
	Generate(ctx context.Context, state State) (State, error)
}

const (
	// K is a thousand tokens.
	K = 1 << 10
	M = 1 << 20
)

type GetGenerator func(name string) (Generator, error)

func (Module) GetGenerator(
	newGemini NewGemini,
	newDeepseek NewDeepseek,
	newOpenRouter NewOpenRouter,
	newOpenAI NewOpenAI,
	openAIKey OpenAIAPIKey,
	getSpecs GetGeneratorSpecs,
) GetGenerator {
	return func(name string) (Generator, error) {

		// configured first
		specs, err := getSpecs()
		if err != nil {
			return nil, err
		}
		if spec, ok := specs[name]; ok {
			switch spec.Type {
			case "openrouter":
				return newOpenRouter(spec.GeneratorArgs), nil
			case "deepseek":
				return newDeepseek(spec.GeneratorArgs), nil
			case "openai":
				return newOpenAI(spec.GeneratorArgs, vars.FirstNonZero(spec.APIKey, string(openAIKey))), nil
			case "gemini":
				return newGemini(spec.GeneratorArgs), nil
			case "ollama":
				spec.GeneratorArgs.BaseURL = ollamaURL
				return newOpenAI(spec.GeneratorArgs, ""), nil
			default:
				return nil, fmt.Errorf("unknown generator type: %q", spec.Type)
			}
		}

		// ollama
		provider, modelName, ok := strings.Cut(name, ":")
		if ok && provider == "ollama" {
			return newOpenAI(GeneratorArgs{
				BaseURL:       ollamaURL,
				Model:         modelName,
				ContextTokens: 32 * K,
			}, ""), nil
		}

		// built-ins
		switch name {

		case "flash", "gemini-flash":
			return newGemini(GeneratorArgs{
				Model:             "models/gemini-flash-latest",
				ContextTokens:     192 * K,
				MaxGenerateTokens: vars.PtrTo(32 * K),
			}), nil

		case "pro", "gemini-pro":
			return newGemini(GeneratorArgs{
				Model:             "models/gemini-pro-latest",
				ContextTokens:     192 * K,
				MaxGenerateTokens: vars.PtrTo(32 * K),
			}), nil

		case "gpt", "openai":
			return newOpenAI(GeneratorArgs{
				BaseURL:       "https://api.openai.com/v1",
				Model:         "gpt-4.1",
				ContextTokens: 192 * K,
			}, string(openAIKey)), nil

		}

		return nil, fmt.Errorf("invalid model: %s", name)
	}
}

const ollamaURL = "http://127.0.0.1:11434/v1"

// GeneratorSpec is one entry of the "generators" list of the config files.
type GeneratorSpec struct {
	Name string `json:"name"`
	// openrouter, deepseek, openai, gemini or ollama
	Type string `json:"type"`
	GeneratorArgs
}

var specTypes = map[string]string{
	"openrouter":  "openrouter",
	"open-router": "openrouter",
	"open_router": "openrouter",
	"deepseek":    "deepseek",
	"openai":      "openai",
	"open-ai":     "openai",
	"open_ai":     "openai",
	"gemini":      "gemini",
	"ollama":      "ollama",
}

// GetGeneratorSpecs returns the configured generators by name.
// A name defined in several files resolves to the file searched first.
type GetGeneratorSpecs func() (map[string]GeneratorSpec, error)

func (Module) GetGeneratorSpecs(
	loader configs.Loader,
) GetGeneratorSpecs {
	return sync.OnceValues(func() (map[string]GeneratorSpec, error) {
		ret := make(map[string]GeneratorSpec)
		for value, err := range loader.IterCueValues("generators") {
			if err != nil {
				return nil, err
			}
			var specs []GeneratorSpec
			if err := value.Decode(&specs); err != nil {
				return nil, err
			}
			for _, spec := range specs {
				if spec.Name == "" {
					return nil, fmt.Errorf("generator without name: %+v", spec.GeneratorArgs)
				}
				typ, ok := specTypes[strings.ToLower(spec.Type)]
				if !ok {
					return nil, fmt.Errorf("generator %s: unknown type: %q", spec.Name, spec.Type)
				}
				spec.Type = typ
				if _, ok := ret[spec.Name]; ok {
					continue
				}
				ret[spec.Name] = spec
			}
		}
		return ret, nil
	})
}
