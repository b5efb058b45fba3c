package slack

import (
	"context"
	"strings"

	"github.com/hazuki-io/threadrelay/internal/chathistory"
)

// shouldRunCompletion applies the trigger rules to one inbound message event.
// Message edits never trigger. Otherwise the thread containing the event is
// fetched fresh and a completion runs iff the first thread message mentions
// the bot and the bot is not the last speaker. A channel-level message counts
// as a one-message thread rooted at itself.
func (r *Runtime) shouldRunCompletion(ctx context.Context, ev MessageEvent) (bool, error) {
	if ev.Subtype == subtypeMessageChanged {
		return false, nil
	}
	thread, err := r.gateway.ThreadReplies(ctx, ev.ChannelID, ev.ThreadRootTS())
	if err != nil {
		return false, err
	}
	if len(thread) == 0 {
		return false, nil
	}
	first := thread[0]
	last := thread[len(thread)-1]
	if !strings.Contains(first.Text, chathistory.MentionToken(r.botUserID)) {
		return false, nil
	}
	if chathistory.IsBotAuthored(last, r.botUserID, r.botID) {
		return false, nil
	}
	return true, nil
}
