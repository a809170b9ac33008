package generators

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/reusee/dscope"
	"github.com/reusee/taiplan/logs"
	"github.com/reusee/taiplan/nets"
	"github.com/reusee/taiplan/vars"
)

type OpenAI struct {
	args   GeneratorArgs
	apiKey string
	client nets.HTTPClient

	Count  dscope.Inject[BPETokenCounter]
	Logger dscope.Inject[logs.Logger]
}

var _ Generator = new(OpenAI)

func (o *OpenAI) Args() GeneratorArgs {
	return o.args
}

func (o *OpenAI) WithArgs(args GeneratorArgs) Generator {
	ret := *o
	ret.args = args
	return &ret
}

func (o *OpenAI) CountTokens(text string) (int, error) {
	return o.Count()(text)
}

func (o *OpenAI) request(state State) ChatCompletionRequest {
	req := ChatCompletionRequest{
		Model:               o.args.Model,
		Messages:            stateToOpenAIMessages(state),
		Stream:              true,
		MaxCompletionTokens: vars.DerefOrZero(o.args.MaxGenerateTokens),
		Temperature:         o.args.Temperature,
	}
	if o.args.JSONOutput {
		req.ResponseFormat = &ResponseFormat{
			Type: "json_object",
		}
	}
	if o.args.IsOpenRouter {
		req.Reasoning = &Reasoning{
			Effort: "high",
		}
	}
	return req
}

func (o *OpenAI) Generate(ctx context.Context, state State) (ret State, err error) {
	req := o.request(state)

	bodyBytes, err := json.Marshal(req)
	if err != nil {
		return state, err
	}

	ret, err = doWithRetry(ctx, o.Logger(), func() (State, error) {
		return o.stream(ctx, state, bodyBytes)
	})
	if err != nil {
		return ret, err
	}

	if ret, err = ret.Flush(); err != nil {
		return ret, err
	}

	return ret, nil
}

func (o *OpenAI) stream(ctx context.Context, state State, body []byte) (ret State, err error) {
	ret = state

	o.Logger().InfoContext(ctx, "generating",
		"model", o.args.Model,
	)

	httpReq, err := http.NewRequestWithContext(ctx, "POST", strings.TrimSuffix(o.args.BaseURL, "/")+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return state, err
	}
	if o.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return state, errors.Join(err, ErrRetryable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return state, statusError(resp)
	}

	parser := new(OpenAIParser)
	appendContents := func(contents []*Content) error {
		for _, content := range contents {
			if ret, err = ret.AppendContent(content); err != nil {
				return err
			}
		}
		return nil
	}

	hasContent := false
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*K), 4*M)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data: [DONE]") {
			break
		}
		data, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}

		var streamResp ChatCompletionStreamResponse
		if err := json.Unmarshal([]byte(data), &streamResp); err != nil {
			return state, fmt.Errorf("error unmarshalling stream response: %w", err)
		}

		if *debugGenerate {
			o.Logger().InfoContext(ctx, "openai response",
				"details", streamResp,
			)
		}

		if streamResp.Usage != nil {
			var usage Usage
			usage.Prompt.TokenCount = streamResp.Usage.PromptTokens
			usage.Candidates.TokenCount = streamResp.Usage.CompletionTokens
			if err := appendContents([]*Content{{Role: RoleLog, Parts: []Part{usage}}}); err != nil {
				return state, err
			}
		}

		if len(streamResp.Choices) == 0 {
			continue
		}
		choice := streamResp.Choices[0]
		if choice.Delta.Content != "" {
			hasContent = true
		}

		if err := appendContents(parser.Input(choice.Delta)); err != nil {
			return state, err
		}

		if reason := choice.FinishReason; reason != "" {
			if err := appendContents(parser.End()); err != nil {
				return state, err
			}
			if err := appendContents([]*Content{{Role: RoleLog, Parts: []Part{FinishReason(reason)}}}); err != nil {
				return state, err
			}
			if reason == "error" {
				return state, errors.Join(errors.New(reason), ErrRetryable)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return state, errors.Join(fmt.Errorf("error reading stream: %w", err), ErrRetryable)
	}

	if err := appendContents(parser.End()); err != nil {
		return state, err
	}
	if !hasContent {
		return state, errors.Join(fmt.Errorf("no output"), ErrRetryable)
	}

	return ret, nil
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	var err error
	var errResp ErrorResponse
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != nil {
		errResp.Error.HTTPStatusCode = resp.StatusCode
		err = errResp.Error
	} else {
		err = fmt.Errorf("bad status: %d, body: %s", resp.StatusCode, string(body))
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return errors.Join(err, ErrRetryable)
	}
	return err
}

func stateToOpenAIMessages(state State) (messages []ChatCompletionMessage) {
	if state.SystemPrompt() != "" {
		messages = append(messages, ChatCompletionMessage{
			Role:    string(RoleSystem),
			Content: state.SystemPrompt(),
		})
	}

	for _, content := range state.Contents() {
		var role string
		switch content.Role {
		case RoleUser:
			role = string(RoleUser)
		case RoleModel, RoleAssistant:
			role = string(RoleAssistant)
		default:
			continue
		}
		var text string
		for _, part := range content.Parts {
			if t, ok := part.(Text); ok {
				text += string(t)
			}
		}
		if text == "" {
			continue
		}
		// merge consecutive messages of the same role, possibly separated by log contents
		if n := len(messages); n > 0 && messages[n-1].Role == role {
			messages[n-1].Content += text
			continue
		}
		messages = append(messages, ChatCompletionMessage{
			Role:    role,
			Content: text,
		})
	}

	return
}

type NewOpenAI func(args GeneratorArgs, apiKey string) *OpenAI

func (Module) NewOpenAI(
	inject dscope.InjectStruct,
	client nets.HTTPClient,
) NewOpenAI {
	return func(args GeneratorArgs, apiKey string) *OpenAI {
		ret := &OpenAI{
			args:   args,
			client: client,
			apiKey: apiKey,
		}
		inject(&ret)
		return ret
	}
}

type ChatCompletionRequest struct {
	Model               string                  `json:"model"`
	Messages            []ChatCompletionMessage `json:"messages"`
	Stream              bool                    `json:"stream"`
	Reasoning           *Reasoning              `json:"reasoning,omitempty"`
	MaxCompletionTokens int                     `json:"max_completion_tokens,omitempty"`
	Temperature         *float32                `json:"temperature,omitempty"`
	ResponseFormat      *ResponseFormat         `json:"response_format,omitempty"`
}

type Reasoning struct {
	Effort string `json:"effort,omitempty"`
}

type ResponseFormat struct {
	Type string `json:"type"`
}

type ChatCompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatCompletionStreamResponse struct {
	Choices []ChatCompletionStreamChoice `json:"choices"`
	Usage   *CompletionUsage             `json:"usage,omitempty"`
}

type CompletionUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

type ChatCompletionStreamChoice struct {
	Delta        ChatCompletionStreamChoiceDelta `json:"delta"`
	FinishReason string                          `json:"finish_reason"`
}

type ChatCompletionStreamChoiceDelta struct {
	Content          string `json:"content,omitempty"`
	Role             string `json:"role,omitempty"`
	ReasoningContent string `json:"reasoning_content,omitempty"`
}

type ErrorResponse struct {
	Error *APIError `json:"error,omitempty"`
}

type APIError struct {
	Code           any    `json:"code,omitempty"`
	Message        string `json:"message,omitempty"`
	Type           string `json:"type,omitempty"`
	HTTPStatusCode int    `json:"-"`
}

func (e *APIError) Error() string {
	return e.Message
}
