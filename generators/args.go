package generators

type GeneratorArgs struct {
	BaseURL           string   `json:"base_url"`
	APIKey            string   `json:"api_key"`
	Model             string   `json:"model"`
	ContextTokens     int      `json:"context_tokens"`
	MaxGenerateTokens *int     `json:"max_generate_tokens"`
	Temperature       *float32 `json:"temperature"`
	// JSONOutput asks the backend to constrain output to a json document.
	JSONOutput   bool `json:"json_output"`
	IsOpenRouter bool `json:"is_open_router"`
}
