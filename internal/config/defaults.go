package config

// Defaults returns a Config with sensible default values.
func Defaults() *Config {
	return &Config{
		Agent: AgentConfig{
			SystemPrompt:        "You are Taskforge, an engineering assistant. Use the available tools to complete the user's request.",
			MaxTokens:           4096,
			Temperature:         0.7,
			MaxIterations:       25,
			RouterMaxIterations: 10,
			FastPathRouting:     true,
			HistoryLimit:        50,
		},
		LLM: LLMConfig{
			Provider:    "anthropic",
			Model:       "",
			MaxRetries:  3,
			TimeoutSecs: 120,
		},
		Channels: ChannelsConfig{},
		Tools: ToolsConfig{
			Tracker:  ServiceConfig{TokenSecret: "tracker_token", TimeoutSecs: 30},
			Wiki:     ServiceConfig{TokenSecret: "wiki_token", TimeoutSecs: 30},
			CodeHost: ServiceConfig{TokenSecret: "code_host_token", TimeoutSecs: 30},
			Browser: BrowserConfig{
				Enabled:       false,
				Headless:      true,
				TimeoutSecs:   30,
				MaxPageSizeKB: 2048,
			},
		},
		Storage:  StorageConfig{},
		Security: SecurityConfig{},
	}
}
