package slackcmd

import (
	"io"
	"strings"
	"testing"
)

func TestSlackCmdRejectsIncompleteConfig(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{
			name:    "missing bot token",
			wantErr: "slack.bot_token",
		},
		{
			name:    "invalid bot token prefix",
			args:    []string{"--slack-bot-token", "token"},
			wantErr: "expected xoxb-*",
		},
		{
			name:    "missing app token",
			args:    []string{"--slack-bot-token", "xoxb-test"},
			wantErr: "slack.app_token",
		},
		{
			name:    "invalid app token prefix",
			args:    []string{"--slack-bot-token", "xoxb-test", "--slack-app-token", "bad"},
			wantErr: "expected xapp-*",
		},
		{
			name:    "missing api key",
			args:    []string{"--slack-bot-token", "xoxb-test", "--slack-app-token", "xapp-test"},
			wantErr: "llm.api_key",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cmd := NewCommand()
			cmd.SetArgs(tc.args)
			cmd.SetOut(io.Discard)
			cmd.SetErr(io.Discard)
			err := cmd.Execute()
			if err == nil {
				t.Fatalf("Execute() error = nil, want %q", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("Execute() error = %v, want it to mention %q", err, tc.wantErr)
			}
		})
	}
}
