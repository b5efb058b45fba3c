package slackcmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	slackapi "github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	slackruntime "github.com/hazuki-io/threadrelay/internal/channelruntime/slack"
	"github.com/hazuki-io/threadrelay/internal/configutil"
	"github.com/hazuki-io/threadrelay/internal/healthcheck"
	"github.com/hazuki-io/threadrelay/internal/llminspect"
	"github.com/hazuki-io/threadrelay/internal/logutil"
	"github.com/hazuki-io/threadrelay/internal/promptprofile"
	"github.com/hazuki-io/threadrelay/llm"
	"github.com/hazuki-io/threadrelay/providers/openai"
)

// NewCommand returns the slack subcommand.
func NewCommand() *cobra.Command {
	return newSlackCmd()
}

func newSlackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slack",
		Short: "Run the relay bot with Socket Mode",
		RunE: func(cmd *cobra.Command, args []string) error {
			botToken := strings.TrimSpace(configutil.FlagOrViperString(cmd, "slack-bot-token", "slack.bot_token"))
			if botToken == "" {
				return fmt.Errorf("missing slack.bot_token (set via --slack-bot-token or SLACK_BOT_TOKEN)")
			}
			if !strings.HasPrefix(botToken, "xoxb-") {
				return fmt.Errorf("invalid slack.bot_token format, expected xoxb-*")
			}
			appToken := strings.TrimSpace(configutil.FlagOrViperString(cmd, "slack-app-token", "slack.app_token"))
			if appToken == "" {
				return fmt.Errorf("missing slack.app_token (set via --slack-app-token or SLACK_APP_TOKEN)")
			}
			if !strings.HasPrefix(appToken, "xapp-") {
				return fmt.Errorf("invalid slack.app_token format, expected xapp-*")
			}
			apiKey := strings.TrimSpace(configutil.FlagOrViperString(cmd, "llm-api-key", "llm.api_key"))
			if apiKey == "" {
				return fmt.Errorf("missing llm.api_key (set via --llm-api-key or OPENAI_API_KEY)")
			}

			logger, err := logutil.FromViper()
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			systemPrompt := strings.TrimSpace(viper.GetString("relay.system_prompt"))
			if systemPrompt == "" {
				systemPrompt = promptprofile.DefaultSystemPrompt
			}
			placeholder := strings.TrimSpace(viper.GetString("relay.placeholder_text"))
			if placeholder == "" {
				placeholder = promptprofile.DefaultPlaceholder
			}
			model := strings.TrimSpace(configutil.FlagOrViperString(cmd, "llm-model", "llm.model"))
			if model == "" {
				model = "gpt-3.5-turbo"
			}
			if profilePath := strings.TrimSpace(configutil.FlagOrViperString(cmd, "relay-profile", "relay.profile")); profilePath != "" {
				profile, err := promptprofile.Load(profilePath)
				if err != nil {
					return err
				}
				systemPrompt, placeholder, model = profile.Apply(systemPrompt, placeholder, model)
			}

			requestTimeout := configutil.FlagOrViperDuration(cmd, "llm-request-timeout", "llm.request_timeout")
			if requestTimeout <= 0 {
				requestTimeout = 120 * time.Second
			}
			var client llm.Client
			client, err = openai.New(openai.Options{
				APIKey:         apiKey,
				BaseURL:        strings.TrimSpace(configutil.FlagOrViperString(cmd, "llm-base-url", "llm.base_url")),
				RequestTimeout: requestTimeout,
			})
			if err != nil {
				return err
			}
			if configutil.FlagOrViperBool(cmd, "inspect-prompt", "") {
				inspector, err := llminspect.NewPromptInspector(llminspect.Options{
					Mode:            "slack",
					TimestampFormat: "20060102_150405",
				})
				if err != nil {
					return err
				}
				defer func() { _ = inspector.Close() }()
				client = &llminspect.PromptClient{Base: client, Inspector: inspector}
			}

			healthListen := healthcheck.NormalizeListen(configutil.FlagOrViperString(cmd, "health-listen", "health.listen"))
			if healthListen != "" {
				healthServer, err := healthcheck.StartServer(cmd.Context(), logger, healthListen, "slack")
				if err != nil {
					logger.Warn("slack_health_server_start_error", "addr", healthListen, "error", err.Error())
				} else {
					defer func() {
						shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
						_ = healthServer.Shutdown(shutdownCtx)
						cancel()
					}()
				}
			}

			api := slackapi.New(
				botToken,
				slackapi.OptionAppLevelToken(appToken),
				slackapi.OptionHTTPClient(&http.Client{Timeout: 30 * time.Second}),
			)
			socketClient := socketmode.New(api)

			runtime, err := slackruntime.New(slackruntime.Options{
				Logger:         logger,
				Gateway:        slackruntime.NewWebGateway(api),
				LLM:            client,
				Model:          model,
				SystemPrompt:   systemPrompt,
				Placeholder:    placeholder,
				BotUserID:      strings.TrimSpace(configutil.FlagOrViperString(cmd, "slack-bot-user-id", "slack.bot_user_id")),
				MaxConcurrency: configutil.FlagOrViperInt(cmd, "relay-max-concurrency", "relay.max_concurrency"),
			})
			if err != nil {
				return err
			}
			return runtime.Run(cmd.Context(), socketClient)
		},
	}

	cmd.Flags().String("slack-bot-token", "", "Slack bot token (xoxb-...).")
	cmd.Flags().String("slack-app-token", "", "Slack app-level token for Socket Mode (xapp-...).")
	cmd.Flags().String("slack-bot-user-id", "", "Bot user id used for mention checks. Resolved via auth.test when empty.")
	cmd.Flags().String("llm-api-key", "", "API key for the chat completion endpoint.")
	cmd.Flags().String("llm-base-url", "", "Override the chat completion base URL.")
	cmd.Flags().String("llm-model", "", "Chat completion model.")
	cmd.Flags().Duration("llm-request-timeout", 0, "Per-request completion timeout (0 uses llm.request_timeout).")
	cmd.Flags().Int("relay-max-concurrency", 3, "Max number of relay runs processed concurrently.")
	cmd.Flags().String("relay-profile", "", "Path to a YAML profile overriding system prompt, placeholder and model.")
	cmd.Flags().String("health-listen", "", "Expose /healthz and /metrics on this address (e.g. :8080).")
	cmd.Flags().Bool("inspect-prompt", false, "Dump prompts (messages) to ./dump/prompt_slack_YYYYMMDD_HHmmss.md.")

	return cmd
}
