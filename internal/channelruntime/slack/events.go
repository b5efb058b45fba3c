package slack

import (
	"fmt"
	"strings"

	"github.com/slack-go/slack/slackevents"
)

const subtypeMessageChanged = "message_changed"

// MessageEvent is one inbound Slack message event, reduced to the fields the
// relay decides on.
type MessageEvent struct {
	ChannelID   string
	ChannelType string
	UserID      string
	BotID       string
	Text        string
	TS          string
	ThreadTS    string
	Subtype     string
}

func messageEventFromCallback(ev *slackevents.MessageEvent) (MessageEvent, error) {
	if ev == nil {
		return MessageEvent{}, fmt.Errorf("message event is nil")
	}
	channelID := strings.TrimSpace(ev.Channel)
	if channelID == "" {
		return MessageEvent{}, fmt.Errorf("missing channel in message event")
	}
	ts := strings.TrimSpace(ev.TimeStamp)
	if ts == "" {
		return MessageEvent{}, fmt.Errorf("missing ts in message event")
	}
	return MessageEvent{
		ChannelID:   channelID,
		ChannelType: strings.TrimSpace(ev.ChannelType),
		UserID:      strings.TrimSpace(ev.User),
		BotID:       strings.TrimSpace(ev.BotID),
		Text:        ev.Text,
		TS:          ts,
		ThreadTS:    strings.TrimSpace(ev.ThreadTimeStamp),
		Subtype:     strings.TrimSpace(ev.SubType),
	}, nil
}

// ThreadRootTS is the thread the event belongs to: its parent thread ts, or
// the event's own ts for a channel-level message.
func (ev MessageEvent) ThreadRootTS() string {
	if ts := strings.TrimSpace(ev.ThreadTS); ts != "" {
		return ts
	}
	return strings.TrimSpace(ev.TS)
}

// ConversationKey identifies the thread for worker routing.
func (ev MessageEvent) ConversationKey() string {
	return ev.ChannelID + ":" + ev.ThreadRootTS()
}
