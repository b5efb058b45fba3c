package slack

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hazuki-io/threadrelay/internal/chathistory"
	"github.com/hazuki-io/threadrelay/internal/llminspect"
	"github.com/hazuki-io/threadrelay/internal/metrics"
	"github.com/hazuki-io/threadrelay/llm"
)

// failureNotice overwrites the placeholder when a run fails after the
// placeholder was posted, so the thread never shows a stale "generating"
// message.
const failureNotice = "Something went wrong while generating a reply. Please try again."

// runRelay performs one triggered relay run: fetch the thread, post the
// placeholder, request the completion, delete the placeholder, post the
// answer. Any error aborts the remaining steps.
func (r *Runtime) runRelay(ctx context.Context, logger *slog.Logger, ev MessageEvent) error {
	metrics.CompletionsStarted.Inc()

	thread, err := r.gateway.ThreadReplies(ctx, ev.ChannelID, ev.ThreadRootTS())
	if err != nil {
		return fmt.Errorf("fetch thread: %w", err)
	}
	if len(thread) == 0 {
		return fmt.Errorf("thread %s has no messages", ev.ThreadRootTS())
	}
	rootTS := strings.TrimSpace(thread[0].TS)
	if rootTS == "" {
		rootTS = ev.ThreadRootTS()
	}

	placeholderTS, err := r.gateway.PostMessage(ctx, ev.ChannelID, r.placeholder, PostOptions{ThreadTS: rootTS})
	if err != nil {
		return fmt.Errorf("post placeholder: %w", err)
	}
	logger.Debug("relay_placeholder_posted", "placeholder_ts", placeholderTS)

	messages := chathistory.BuildMessages(r.systemPrompt, r.botUserID, r.botID, thread)
	res, err := r.llm.Chat(llminspect.WithModelScene(ctx, "slack.thread_relay"), llm.Request{
		Model:    r.model,
		Messages: messages,
	})
	if err != nil {
		r.markPlaceholderFailed(ctx, logger, ev.ChannelID, placeholderTS)
		return fmt.Errorf("chat completion: %w", err)
	}
	answer := strings.TrimSpace(res.Text)
	if answer == "" {
		r.markPlaceholderFailed(ctx, logger, ev.ChannelID, placeholderTS)
		return fmt.Errorf("chat completion returned empty text")
	}

	if err := r.gateway.DeleteMessage(ctx, ev.ChannelID, placeholderTS); err != nil {
		r.markPlaceholderFailed(ctx, logger, ev.ChannelID, placeholderTS)
		return fmt.Errorf("delete placeholder: %w", err)
	}
	if _, err := r.gateway.PostMessage(ctx, ev.ChannelID, answer, PostOptions{ThreadTS: rootTS, Markdown: true}); err != nil {
		return fmt.Errorf("post answer: %w", err)
	}
	logger.Info("relay_answer_posted", "root_ts", rootTS, "prompt_messages", len(messages), "answer_chars", len(answer))
	return nil
}

// markPlaceholderFailed rewrites the placeholder to the failure notice, best
// effort. When the rewrite itself fails the placeholder is left as posted and
// the error is logged.
func (r *Runtime) markPlaceholderFailed(ctx context.Context, logger *slog.Logger, channelID, placeholderTS string) {
	if strings.TrimSpace(placeholderTS) == "" {
		return
	}
	if err := r.gateway.UpdateMessage(ctx, channelID, placeholderTS, failureNotice); err != nil {
		logger.Warn("relay_placeholder_update_error", "placeholder_ts", placeholderTS, "error", err.Error())
	}
}
