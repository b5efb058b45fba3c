package slack

import (
	"context"
	"fmt"
	"strings"

	slackapi "github.com/slack-go/slack"
	slackutil "github.com/takara2314/slack-go-util"

	"github.com/hazuki-io/threadrelay/internal/chathistory"
)

// Identity is the bot's own identity as reported by auth.test.
type Identity struct {
	UserID string
	BotID  string
	TeamID string
	Team   string
	User   string
}

type PostOptions struct {
	ThreadTS string
	Markdown bool
}

// Gateway is the Slack Web API surface the relay needs. The production
// implementation is WebGateway; tests substitute fakes.
type Gateway interface {
	AuthIdentity(ctx context.Context) (Identity, error)
	ThreadReplies(ctx context.Context, channelID, threadTS string) ([]chathistory.ThreadMessage, error)
	PostMessage(ctx context.Context, channelID, text string, opts PostOptions) (string, error)
	DeleteMessage(ctx context.Context, channelID, ts string) error
	UpdateMessage(ctx context.Context, channelID, ts, text string) error
}

const repliesPageLimit = 200

type WebGateway struct {
	api *slackapi.Client
}

func NewWebGateway(api *slackapi.Client) *WebGateway {
	return &WebGateway{api: api}
}

func (g *WebGateway) AuthIdentity(ctx context.Context) (Identity, error) {
	if g == nil || g.api == nil {
		return Identity{}, fmt.Errorf("slack gateway is not initialized")
	}
	auth, err := g.api.AuthTestContext(ctx)
	if err != nil {
		return Identity{}, fmt.Errorf("slack auth.test: %w", err)
	}
	return Identity{
		UserID: strings.TrimSpace(auth.UserID),
		BotID:  strings.TrimSpace(auth.BotID),
		TeamID: strings.TrimSpace(auth.TeamID),
		Team:   strings.TrimSpace(auth.Team),
		User:   strings.TrimSpace(auth.User),
	}, nil
}

// ThreadReplies fetches the whole thread rooted at threadTS in thread order,
// following pagination cursors to the end.
func (g *WebGateway) ThreadReplies(ctx context.Context, channelID, threadTS string) ([]chathistory.ThreadMessage, error) {
	if g == nil || g.api == nil {
		return nil, fmt.Errorf("slack gateway is not initialized")
	}
	channelID = strings.TrimSpace(channelID)
	if channelID == "" {
		return nil, fmt.Errorf("channel_id is required")
	}
	threadTS = strings.TrimSpace(threadTS)
	if threadTS == "" {
		return nil, fmt.Errorf("thread_ts is required")
	}
	params := &slackapi.GetConversationRepliesParameters{
		ChannelID: channelID,
		Timestamp: threadTS,
		Limit:     repliesPageLimit,
	}
	var out []chathistory.ThreadMessage
	for {
		msgs, hasMore, nextCursor, err := g.api.GetConversationRepliesContext(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("slack conversations.replies: %w", err)
		}
		for _, msg := range msgs {
			out = append(out, chathistory.ThreadMessage{
				UserID: strings.TrimSpace(msg.User),
				BotID:  strings.TrimSpace(msg.BotID),
				Text:   msg.Text,
				TS:     strings.TrimSpace(msg.Timestamp),
			})
		}
		if !hasMore || strings.TrimSpace(nextCursor) == "" {
			return out, nil
		}
		params.Cursor = nextCursor
	}
}

// PostMessage posts text into channelID and returns the new message's ts.
// With Markdown set the text is rendered as mrkdwn blocks, falling back to
// plain text when the conversion fails.
func (g *WebGateway) PostMessage(ctx context.Context, channelID, text string, opts PostOptions) (string, error) {
	if g == nil || g.api == nil {
		return "", fmt.Errorf("slack gateway is not initialized")
	}
	channelID = strings.TrimSpace(channelID)
	if channelID == "" {
		return "", fmt.Errorf("channel_id is required")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("text is required")
	}
	var msgOpts []slackapi.MsgOption
	if opts.Markdown {
		blocks, err := slackutil.ConvertMarkdownTextToBlocks(text)
		if err != nil || len(blocks) == 0 {
			msgOpts = append(msgOpts, slackapi.MsgOptionText(text, false))
		} else {
			msgOpts = append(msgOpts, slackapi.MsgOptionBlocks(blocks...))
		}
	} else {
		msgOpts = append(msgOpts, slackapi.MsgOptionText(text, false))
	}
	if threadTS := strings.TrimSpace(opts.ThreadTS); threadTS != "" {
		msgOpts = append(msgOpts, slackapi.MsgOptionTS(threadTS))
	}
	_, ts, err := g.api.PostMessageContext(ctx, channelID, msgOpts...)
	if err != nil {
		return "", fmt.Errorf("slack chat.postMessage: %w", err)
	}
	return ts, nil
}

func (g *WebGateway) DeleteMessage(ctx context.Context, channelID, ts string) error {
	if g == nil || g.api == nil {
		return fmt.Errorf("slack gateway is not initialized")
	}
	channelID = strings.TrimSpace(channelID)
	ts = strings.TrimSpace(ts)
	if channelID == "" || ts == "" {
		return fmt.Errorf("channel_id and ts are required")
	}
	if _, _, err := g.api.DeleteMessageContext(ctx, channelID, ts); err != nil {
		return fmt.Errorf("slack chat.delete: %w", err)
	}
	return nil
}

func (g *WebGateway) UpdateMessage(ctx context.Context, channelID, ts, text string) error {
	if g == nil || g.api == nil {
		return fmt.Errorf("slack gateway is not initialized")
	}
	channelID = strings.TrimSpace(channelID)
	ts = strings.TrimSpace(ts)
	text = strings.TrimSpace(text)
	if channelID == "" || ts == "" {
		return fmt.Errorf("channel_id and ts are required")
	}
	if text == "" {
		return fmt.Errorf("text is required")
	}
	if _, _, _, err := g.api.UpdateMessageContext(ctx, channelID, ts, slackapi.MsgOptionText(text, false)); err != nil {
		return fmt.Errorf("slack chat.update: %w", err)
	}
	return nil
}
