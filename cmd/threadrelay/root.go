package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hazuki-io/threadrelay/cmd/threadrelay/slackcmd"
	"github.com/hazuki-io/threadrelay/internal/promptprofile"
)

var version = "dev"

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "threadrelay",
		Short:   "Relay Slack threads to a chat completion endpoint",
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default is $HOME/.threadrelay.yaml).")
	cmd.AddCommand(slackcmd.NewCommand())
	return cmd
}

func initConfig() error {
	viper.SetDefault("llm.model", "gpt-3.5-turbo")
	viper.SetDefault("llm.request_timeout", "120s")
	viper.SetDefault("relay.system_prompt", promptprofile.DefaultSystemPrompt)
	viper.SetDefault("relay.placeholder_text", promptprofile.DefaultPlaceholder)
	viper.SetDefault("relay.max_concurrency", 3)
	viper.SetDefault("log.format", "console")
	viper.SetDefault("log.level", "info")

	viper.SetEnvPrefix("THREADRELAY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	// The bare names are the ones the Slack and OpenAI docs hand out, so both
	// spellings work.
	_ = viper.BindEnv("slack.bot_token", "THREADRELAY_SLACK_BOT_TOKEN", "SLACK_BOT_TOKEN")
	_ = viper.BindEnv("slack.app_token", "THREADRELAY_SLACK_APP_TOKEN", "SLACK_APP_TOKEN")
	_ = viper.BindEnv("slack.bot_user_id", "THREADRELAY_SLACK_BOT_USER_ID", "BOT_NAME")
	_ = viper.BindEnv("llm.api_key", "THREADRELAY_LLM_API_KEY", "OPENAI_API_KEY")

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".threadrelay")
		viper.SetConfigType("yaml")
	}
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && cfgFile == "" {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}
