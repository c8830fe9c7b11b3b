package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/quailyquaily/bildbot/internal/admission"
	"github.com/quailyquaily/bildbot/internal/configutil"
	"github.com/quailyquaily/bildbot/internal/logutil"
	"github.com/quailyquaily/bildbot/internal/telegram"
	"github.com/quailyquaily/bildbot/internal/webhook"
	"github.com/quailyquaily/bildbot/providers/openai"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}
			slog.SetDefault(logger)
			webhook.Version = strings.TrimSpace(version)

			token := strings.TrimSpace(viper.GetString("telegram.bot_token"))
			if token == "" {
				return fmt.Errorf("missing telegram.bot_token (set via config or %s_TELEGRAM_BOT_TOKEN)", envPrefix)
			}
			apiKey := strings.TrimSpace(viper.GetString("llm.api_key"))
			if apiKey == "" {
				return fmt.Errorf("missing llm.api_key (set via config or %s_LLM_API_KEY)", envPrefix)
			}

			allowedUsers, err := allowMap(configutil.FlagOrViperStringArray(cmd, "allowed-user-id", "telegram.allowed_user_ids"))
			if err != nil {
				return fmt.Errorf("telegram.allowed_user_ids: %w", err)
			}
			allowedGroups, err := allowMap(configutil.FlagOrViperStringArray(cmd, "allowed-group-id", "telegram.allowed_group_ids"))
			if err != nil {
				return fmt.Errorf("telegram.allowed_group_ids: %w", err)
			}
			if len(allowedUsers) == 0 {
				logger.Warn("allow_list_empty", "hint", "no user is whitelisted, all traffic will be rejected")
			}

			api := telegram.NewAPI(nil, viper.GetString("telegram.base_url"), token, logger)

			meCtx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			me, err := api.GetMe(meCtx)
			cancel()
			if err != nil {
				return fmt.Errorf("getMe: %w", err)
			}
			logger.Info("bot_identified", "username", me.Username, "id", me.ID)

			cfg := webhook.Config{
				BotUsername:          me.Username,
				BotID:                me.ID,
				AllowedUsers:         allowedUsers,
				AllowedGroups:        allowedGroups,
				GroupMentionRequired: viper.GetBool("telegram.group_mention_required"),
				MaxMessageChars:      viper.GetInt("limits.max_message_chars"),

				ChatModel:    viper.GetString("llm.model"),
				SystemPrompt: viper.GetString("llm.system_prompt"),
				MaxTokens:    viper.GetInt("llm.max_tokens"),
				Temperature:  viper.GetFloat64("llm.temperature"),

				ImageModel:     viper.GetString("image.model"),
				ImageEditModel: viper.GetString("image.edit_model"),
				ImageSize:      viper.GetString("image.size"),
				ImageQuality:   viper.GetString("image.quality"),

				RequestTimeout:   viper.GetDuration("llm.request_timeout"),
				DownloadTimeout:  viper.GetDuration("telegram.download_timeout"),
				DownloadMaxBytes: viper.GetInt64("telegram.download_max_bytes"),
			}

			textLimiter := admission.New(
				viper.GetInt("limits.text.max_requests"),
				viper.GetDuration("limits.text.window"),
			)
			imageLimiter := admission.New(
				viper.GetInt("limits.image.max_requests"),
				viper.GetDuration("limits.image.window"),
			)

			client := openai.New(viper.GetString("llm.endpoint"), apiKey)
			handler := webhook.NewHandler(cfg, api, client, client, textLimiter, imageLimiter, logger)

			mux := http.NewServeMux()
			handler.Register(mux)

			bind := strings.TrimSpace(configutil.FlagOrViperString(cmd, "server-bind", "server.bind"))
			if bind == "" {
				bind = "127.0.0.1"
			}
			port := configutil.FlagOrViperInt(cmd, "server-port", "server.port")
			if port <= 0 {
				port = 8080
			}

			addr := bind + ":" + strconv.Itoa(port)
			srv := &http.Server{
				Addr:              addr,
				Handler:           mux,
				ReadHeaderTimeout: 5 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.ListenAndServe()
			}()
			logger.Info("server_start", "addr", addr,
				"text_limit", textLimiter.Limit(), "text_window", textLimiter.Window().String(),
				"image_limit", imageLimiter.Limit(), "image_window", imageLimiter.Window().String())

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			logger.Info("server_shutdown")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().String("server-bind", "127.0.0.1", "Bind address (default: 127.0.0.1).")
	cmd.Flags().Int("server-port", 8080, "HTTP port to listen on.")
	cmd.Flags().StringArray("allowed-user-id", nil, "Whitelisted Telegram user ID (repeatable).")
	cmd.Flags().StringArray("allowed-group-id", nil, "Whitelisted Telegram group ID (repeatable).")

	return cmd
}

func allowMap(entries []string) (map[int64]bool, error) {
	ids, err := configutil.ParseIDList(entries)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}
