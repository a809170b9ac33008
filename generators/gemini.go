package generators

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/reusee/dscope"
	"github.com/reusee/e5"
	"github.com/reusee/taiplan/logs"
	"github.com/reusee/taiplan/nets"
	"github.com/reusee/taiplan/vars"
	"google.golang.org/genai"
)

type Gemini struct {
	args      GeneratorArgs
	GetClient dscope.Inject[GetGeminiClient]
	Counter   dscope.Inject[GeminiTokenCounter]
	Logger    dscope.Inject[logs.Logger]
}

var _ Generator = Gemini{}

var wrap = e5.Wrap.With(e5.WrapStacktrace)

func (g Gemini) Args() GeneratorArgs {
	return g.args
}

func (g Gemini) WithArgs(args GeneratorArgs) Generator {
	g.args = args
	return g
}

func (g Gemini) CountTokens(text string) (int, error) {
	return g.Counter()(g.args.Model)(text)
}

var geminiSafetySettings = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdOff,
	},
	{
		Category:  genai.HarmCategorySexuallyExplicit,
		Threshold: genai.HarmBlockThresholdOff,
	},
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdOff,
	},
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdOff,
	},
}

func (g Gemini) config(systemPrompt string) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		Temperature:    g.args.Temperature,
		SafetySettings: geminiSafetySettings,
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: true,
		},
	}
	if g.args.MaxGenerateTokens != nil {
		config.MaxOutputTokens = int32(*g.args.MaxGenerateTokens)
		config.ThinkingConfig.ThinkingBudget = vars.PtrTo(int32(*g.args.MaxGenerateTokens) / 4)
	}
	if systemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}
	if g.args.JSONOutput {
		config.ResponseMIMEType = "application/json"
	}
	return config
}

func toGeminiContents(contents []*Content) []*genai.Content {
	var ret []*genai.Content
	for _, content := range contents {
		var role genai.Role
		switch content.Role {
		case RoleUser:
			role = genai.RoleUser
		case RoleModel, RoleAssistant:
			role = genai.RoleModel
		default:
			// logs and system contents are not sent
			continue
		}
		c := &genai.Content{
			Role: string(role),
		}
		for _, part := range content.Parts {
			switch part := part.(type) {
			case Text:
				c.Parts = append(c.Parts, &genai.Part{Text: string(part)})
			case Thought:
				c.Parts = append(c.Parts, &genai.Part{Text: string(part), Thought: true})
			}
		}
		if len(c.Parts) > 0 {
			ret = append(ret, c)
		}
	}
	return ret
}

func (g Gemini) Generate(ctx context.Context, state State) (ret State, err error) {
	client, err := g.GetClient()(ctx, g.args.APIKey)
	if err != nil {
		return state, err
	}

	ret = state
	contents := toGeminiContents(ret.Contents())
	config := g.config(ret.SystemPrompt())

	ret, err = doWithRetry(ctx, g.Logger(), func() (State, error) {

		g.Logger().InfoContext(ctx, "generating",
			"model", g.args.Model,
		)

		newState := ret
		hasContent := false

		for resp, err := range client.Models.GenerateContentStream(ctx, g.args.Model, contents, config) {
			if err != nil {
				return ret, wrap(err)
			}

			if *debugGenerate {
				g.Logger().InfoContext(ctx, "gemini response",
					"details", resp,
				)
			}

			if metadata := resp.UsageMetadata; metadata != nil {
				var usage Usage
				usage.Prompt.TokenCount = int(metadata.PromptTokenCount)
				usage.Prompt.TokenCountCached = int(metadata.CachedContentTokenCount)
				usage.Candidates.TokenCount = int(metadata.CandidatesTokenCount)
				usage.Thoughts.TokenCount = int(metadata.ThoughtsTokenCount)
				newState, err = newState.AppendContent(&Content{
					Role:  RoleLog,
					Parts: []Part{usage},
				})
				if err != nil {
					return ret, err
				}
			}

			if len(resp.Candidates) == 0 {
				continue
			}
			candidate := resp.Candidates[0]

			if candidate.Content != nil {
				newContent := &Content{
					Role: RoleModel,
				}
				for _, part := range candidate.Content.Parts {
					if part.Text == "" {
						continue
					}
					if part.Thought {
						newContent.Parts = append(newContent.Parts, Thought(part.Text))
					} else {
						hasContent = true
						newContent.Parts = append(newContent.Parts, Text(part.Text))
					}
				}
				if len(newContent.Parts) > 0 {
					if newState, err = newState.AppendContent(newContent); err != nil {
						return ret, err
					}
				}
			}

			if reason := candidate.FinishReason; reason != "" {
				if newState, err = newState.AppendContent(&Content{
					Role: RoleLog,
					Parts: []Part{
						FinishReason(reason),
					},
				}); err != nil {
					return ret, err
				}
			}
		}

		if !hasContent {
			return ret, errors.Join(fmt.Errorf("no output"), ErrRetryable)
		}

		return newState, nil
	})
	if err != nil {
		return ret, err
	}

	if ret, err = ret.Flush(); err != nil {
		return ret, err
	}

	return ret, nil
}

type GetGeminiClient = func(ctx context.Context, key string) (*genai.Client, error)

func (Module) GetGeminiClient(
	httpClient nets.HTTPClient,
	apiKey GoogleAPIKey,
) GetGeminiClient {
	var clients sync.Map // key -> *genai.Client
	return func(ctx context.Context, key string) (*genai.Client, error) {
		key = vars.FirstNonZero(
			key,
			string(apiKey),
		)
		if key == "" {
			return nil, fmt.Errorf("no google api key")
		}

		if v, ok := clients.Load(key); ok {
			return v.(*genai.Client), nil
		}

		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:     key,
			Backend:    genai.BackendGeminiAPI,
			HTTPClient: httpClient,
		})
		if err != nil {
			return nil, err
		}

		v, _ := clients.LoadOrStore(key, client)
		return v.(*genai.Client), nil
	}
}

type NewGemini func(args GeneratorArgs) Gemini

func (Module) NewGemini(
	inject dscope.InjectStruct,
) NewGemini {
	return func(args GeneratorArgs) Gemini {
		ret := Gemini{
			args: args,
		}
		inject(&ret)
		return ret
	}
}
