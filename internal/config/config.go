package config

// Config is the top-level application configuration.
type Config struct {
	Agent        AgentConfig      `json:"agent"`
	LLM          LLMConfig        `json:"llm"`
	FallbackLLM  *LLMConfig       `json:"fallback_llm,omitempty"`
	Channels     ChannelsConfig   `json:"channels"`
	Tools        ToolsConfig      `json:"tools"`
	ToolServers  []ProviderConfig `json:"tool_servers,omitempty"`
	Storage      StorageConfig    `json:"storage"`
	Security     SecurityConfig   `json:"security"`
}

// AgentConfig controls the agent engine and the orchestrator loops.
type AgentConfig struct {
	SystemPrompt        string  `json:"system_prompt"`
	MaxTokens           int     `json:"max_tokens"`
	Temperature         float64 `json:"temperature"`
	MaxIterations       int     `json:"max_iterations"`        // per sub-agent run
	RouterMaxIterations int     `json:"router_max_iterations"` // orchestrator delegation loop
	FastPathRouting     bool    `json:"fast_path_routing"`
	HistoryLimit        int     `json:"history_limit"`
}

type LLMConfig struct {
	Provider    string `json:"provider"`
	Model       string `json:"model"`
	APIKey      string `json:"api_key,omitempty"`
	BaseURL     string `json:"base_url,omitempty"`
	MaxRetries  int    `json:"max_retries"`
	TimeoutSecs int    `json:"timeout_secs"`
}

type ChannelsConfig struct {
	Telegram *TelegramConfig `json:"telegram,omitempty"`
}

type TelegramConfig struct {
	Token      string  `json:"token"`
	AllowedIDs []int64 `json:"allowed_ids,omitempty"`
}

// ToolsConfig configures the built-in tool catalog.
type ToolsConfig struct {
	WorkspaceDir string        `json:"workspace_dir,omitempty"`
	Tracker      ServiceConfig `json:"tracker"`
	Wiki         ServiceConfig `json:"wiki"`
	CodeHost     ServiceConfig `json:"code_host"`
	Browser      BrowserConfig `json:"browser"`
}

// ServiceConfig is one authenticated SaaS endpoint (issue tracker, wiki,
// code host). TokenSecret names the keystore entry holding the API token.
type ServiceConfig struct {
	Enabled     bool   `json:"enabled"`
	BaseURL     string `json:"base_url,omitempty"`
	Username    string `json:"username,omitempty"`
	TokenSecret string `json:"token_secret,omitempty"`
	TimeoutSecs int    `json:"timeout_secs,omitempty"`
}

type BrowserConfig struct {
	Enabled       bool `json:"enabled"`
	Headless      bool `json:"headless"`
	TimeoutSecs   int  `json:"timeout_secs"`
	MaxPageSizeKB int  `json:"max_page_size_kb"`
}

// ProviderConfig is one external tool provider onboarded by the RPC client.
type ProviderConfig struct {
	Name      string            `json:"name"`
	Transport string            `json:"transport"` // "stdio" or "sse"
	Command   string            `json:"command,omitempty"`
	Args      []string          `json:"args,omitempty"`
	Env       map[string]string `json:"env,omitempty"`
	URL       string            `json:"url,omitempty"`
}

type StorageConfig struct {
	HistoryDBPath string `json:"history_db_path,omitempty"`
	SkillsDBPath  string `json:"skills_db_path,omitempty"`
}

// SecurityConfig gates who may talk to the assistant. An empty
// AllowedSenders list admits everyone (single-user default).
type SecurityConfig struct {
	AllowedSenders []string `json:"allowed_senders,omitempty"`
}
