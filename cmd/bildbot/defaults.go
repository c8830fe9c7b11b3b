package main

import (
	"time"

	"github.com/spf13/viper"
)

func initViperDefaults() {
	// Telegram
	viper.SetDefault("telegram.base_url", "https://api.telegram.org")
	viper.SetDefault("telegram.bot_token", "")
	viper.SetDefault("telegram.allowed_user_ids", []string{})
	viper.SetDefault("telegram.allowed_group_ids", []string{})
	viper.SetDefault("telegram.group_mention_required", true)
	viper.SetDefault("telegram.download_timeout", 30*time.Second)
	viper.SetDefault("telegram.download_max_bytes", int64(20*1024*1024))

	// LLM
	viper.SetDefault("llm.endpoint", "https://api.openai.com")
	viper.SetDefault("llm.api_key", "")
	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("llm.system_prompt", "Du bist ein hilfreicher KI-Assistent.")
	viper.SetDefault("llm.max_tokens", 500)
	viper.SetDefault("llm.temperature", 0.7)
	viper.SetDefault("llm.request_timeout", 90*time.Second)

	// Images
	viper.SetDefault("image.model", "dall-e-3")
	viper.SetDefault("image.edit_model", "dall-e-2")
	viper.SetDefault("image.size", "1024x1024")
	viper.SetDefault("image.quality", "standard")

	// Admission
	viper.SetDefault("limits.text.max_requests", 10)
	viper.SetDefault("limits.text.window", 60*time.Second)
	viper.SetDefault("limits.image.max_requests", 5)
	viper.SetDefault("limits.image.window", 300*time.Second)
	viper.SetDefault("limits.max_message_chars", 2000)

	// Daemon server
	viper.SetDefault("server.bind", "127.0.0.1")
	viper.SetDefault("server.port", 8080)
}
