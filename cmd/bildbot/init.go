package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type configTemplate struct {
	Telegram struct {
		BotToken             string   `yaml:"bot_token"`
		AllowedUserIDs       []string `yaml:"allowed_user_ids"`
		AllowedGroupIDs      []string `yaml:"allowed_group_ids"`
		GroupMentionRequired bool     `yaml:"group_mention_required"`
	} `yaml:"telegram"`
	LLM struct {
		Endpoint       string  `yaml:"endpoint"`
		APIKey         string  `yaml:"api_key"`
		Model          string  `yaml:"model"`
		SystemPrompt   string  `yaml:"system_prompt"`
		MaxTokens      int     `yaml:"max_tokens"`
		Temperature    float64 `yaml:"temperature"`
		// Durations are written in Go notation ("90s") so viper parses
		// them back as durations.
		RequestTimeout string `yaml:"request_timeout"`
	} `yaml:"llm"`
	Image struct {
		Model     string `yaml:"model"`
		EditModel string `yaml:"edit_model"`
		Size      string `yaml:"size"`
		Quality   string `yaml:"quality"`
	} `yaml:"image"`
	Limits struct {
		Text struct {
			MaxRequests int    `yaml:"max_requests"`
			Window      string `yaml:"window"`
		} `yaml:"text"`
		Image struct {
			MaxRequests int    `yaml:"max_requests"`
			Window      string `yaml:"window"`
		} `yaml:"image"`
		MaxMessageChars int `yaml:"max_message_chars"`
	} `yaml:"limits"`
	Server struct {
		Bind string `yaml:"bind"`
		Port int    `yaml:"port"`
	} `yaml:"server"`
}

// newInitCmd writes a starter config with every supported key and its
// default, so operators edit a file instead of hunting for key names.
func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("out")
			force, _ := cmd.Flags().GetBool("force")

			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", path)
				}
			}

			var tpl configTemplate
			tpl.Telegram.BotToken = "123456:replace-me"
			tpl.Telegram.AllowedUserIDs = []string{"123456789"}
			tpl.Telegram.AllowedGroupIDs = []string{}
			tpl.Telegram.GroupMentionRequired = true
			tpl.LLM.Endpoint = "https://api.openai.com"
			tpl.LLM.APIKey = "sk-replace-me"
			tpl.LLM.Model = "gpt-4o-mini"
			tpl.LLM.SystemPrompt = "Du bist ein hilfreicher KI-Assistent."
			tpl.LLM.MaxTokens = 500
			tpl.LLM.Temperature = 0.7
			tpl.LLM.RequestTimeout = "90s"
			tpl.Image.Model = "dall-e-3"
			tpl.Image.EditModel = "dall-e-2"
			tpl.Image.Size = "1024x1024"
			tpl.Image.Quality = "standard"
			tpl.Limits.Text.MaxRequests = 10
			tpl.Limits.Text.Window = "60s"
			tpl.Limits.Image.MaxRequests = 5
			tpl.Limits.Image.Window = "300s"
			tpl.Limits.MaxMessageChars = 2000
			tpl.Server.Bind = "127.0.0.1"
			tpl.Server.Port = 8080

			raw, err := yaml.Marshal(&tpl)
			if err != nil {
				return err
			}
			if err := os.WriteFile(path, raw, 0o600); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().String("out", "config.yaml", "Output path for the config file.")
	cmd.Flags().Bool("force", false, "Overwrite an existing file.")
	return cmd
}
