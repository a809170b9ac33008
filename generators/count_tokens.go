package generators

import (
	"sync"

	"github.com/tiktoken-go/tokenizer"
	"google.golang.org/genai"
	googletokenizer "google.golang.org/genai/tokenizer"
)

// TokenCounter estimates the tokens of text. Counts are used to fit the dialog into the context window.
type TokenCounter = func(text string) (int, error)

// BPETokenCounter counts for OpenAI-compatible backends. Their vocabularies differ; o200k is close enough for budgeting.
type BPETokenCounter TokenCounter

func (Module) BPETokenCounter() BPETokenCounter {
	getCodec := sync.OnceValues(func() (tokenizer.Codec, error) {
		return tokenizer.Get(tokenizer.O200kBase)
	})
	return func(text string) (int, error) {
		codec, err := getCodec()
		if err != nil {
			return 0, err
		}
		return codec.Count(text)
	}
}

// GeminiTokenCounter returns the counter of a Gemini model.
type GeminiTokenCounter func(model string) TokenCounter

// the local tokenizer only ships this vocabulary; newer models are counted with it too
const localTokenizerModel = "gemini-1.5-pro"

func (Module) GeminiTokenCounter() GeminiTokenCounter {
	getTokenizer := sync.OnceValues(func() (*googletokenizer.LocalTokenizer, error) {
		return googletokenizer.NewLocalTokenizer(localTokenizerModel)
	})
	counter := func(text string) (int, error) {
		local, err := getTokenizer()
		if err != nil {
			return 0, err
		}
		resp, err := local.CountTokens([]*genai.Content{
			genai.NewContentFromText(text, "user"),
		}, nil)
		if err != nil {
			return 0, err
		}
		return int(resp.TotalTokens), nil
	}
	return func(string) TokenCounter {
		return counter
	}
}
