// Package slack runs the Slack channel runtime: it consumes the Socket Mode
// event stream, decides per message event whether a completion should run,
// and relays triggered threads to the completion client.
package slack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/hazuki-io/threadrelay/internal/idempotency"
	"github.com/hazuki-io/threadrelay/internal/metrics"
	"github.com/hazuki-io/threadrelay/llm"
)

const (
	defaultMaxConcurrency = 3
	workerQueueDepth      = 16
	dedupSweepInterval    = 5 * time.Minute
)

type Options struct {
	Logger       *slog.Logger
	Gateway      Gateway
	LLM          llm.Client
	Model        string
	SystemPrompt string
	Placeholder  string

	// BotUserID is the bot's own user id. When empty the runtime resolves it
	// with auth.test at startup.
	BotUserID string

	// MaxConcurrency bounds relay runs in flight across all threads.
	MaxConcurrency int

	// DedupMaxAge is how long delivered event keys are remembered. Zero means
	// one hour.
	DedupMaxAge time.Duration
}

// relayWorker owns one conversation thread. Jobs for the same thread drain
// through its channel in order, so at most one relay run is in flight per
// thread.
type relayWorker struct {
	jobs chan MessageEvent
}

type Runtime struct {
	logger       *slog.Logger
	gateway      Gateway
	llm          llm.Client
	model        string
	systemPrompt string
	placeholder  string
	botUserID    string
	botID        string

	seen *idempotency.SeenSet
	sem  chan struct{}

	mu      sync.Mutex
	workers map[string]*relayWorker
}

func New(opts Options) (*Runtime, error) {
	if opts.Gateway == nil {
		return nil, fmt.Errorf("gateway is required")
	}
	if opts.LLM == nil {
		return nil, fmt.Errorf("llm client is required")
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}
	systemPrompt := strings.TrimSpace(opts.SystemPrompt)
	if systemPrompt == "" {
		return nil, fmt.Errorf("system prompt is required")
	}
	placeholder := strings.TrimSpace(opts.Placeholder)
	if placeholder == "" {
		return nil, fmt.Errorf("placeholder text is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxConc := opts.MaxConcurrency
	if maxConc <= 0 {
		maxConc = defaultMaxConcurrency
	}
	return &Runtime{
		logger:       logger,
		gateway:      opts.Gateway,
		llm:          opts.LLM,
		model:        model,
		systemPrompt: systemPrompt,
		placeholder:  placeholder,
		botUserID:    strings.TrimSpace(opts.BotUserID),
		seen:         idempotency.NewSeenSet(idempotency.SeenSetOptions{MaxAge: opts.DedupMaxAge}),
		sem:          make(chan struct{}, maxConc),
		workers:      make(map[string]*relayWorker),
	}, nil
}

// Run resolves the bot identity, then consumes the Socket Mode event stream
// until ctx is canceled. The socketmode client reconnects on its own; Run
// returns when the stream is done or fails terminally.
func (r *Runtime) Run(ctx context.Context, client *socketmode.Client) error {
	if client == nil {
		return fmt.Errorf("socketmode client is required")
	}
	if err := r.resolveIdentity(ctx); err != nil {
		return err
	}
	r.logger.Info("slack_start",
		"bot_user_id", r.botUserID,
		"bot_id", r.botID,
		"model", r.model,
		"max_concurrency", cap(r.sem),
	)

	go r.seen.Run(ctx, dedupSweepInterval)
	go r.consumeEvents(ctx, client)

	err := client.RunContext(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("slack socket run: %w", err)
	}
	r.logger.Info("slack_stop", "reason", "context_canceled")
	return nil
}

func (r *Runtime) resolveIdentity(ctx context.Context) error {
	if r.botUserID != "" {
		return nil
	}
	identity, err := r.gateway.AuthIdentity(ctx)
	if err != nil {
		return err
	}
	if identity.UserID == "" {
		return fmt.Errorf("slack auth.test returned empty user_id")
	}
	r.botUserID = identity.UserID
	r.botID = identity.BotID
	r.logger.Info("slack_identity_resolved",
		"bot_user_id", identity.UserID,
		"bot_id", identity.BotID,
		"team", identity.Team,
		"user", identity.User,
	)
	return nil
}

func (r *Runtime) consumeEvents(ctx context.Context, client *socketmode.Client) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-client.Events:
			if !ok {
				return
			}
			switch evt.Type {
			case socketmode.EventTypeConnecting:
				r.logger.Info("slack_socket_connecting")
			case socketmode.EventTypeConnected:
				r.logger.Info("slack_socket_connected")
			case socketmode.EventTypeConnectionError:
				r.logger.Warn("slack_socket_connect_error", "error", fmt.Sprint(evt.Data))
			case socketmode.EventTypeHello:
				// Connection confirmed, nothing to do.
			case socketmode.EventTypeEventsAPI:
				e, ok := evt.Data.(slackevents.EventsAPIEvent)
				if !ok {
					continue
				}
				envelopeID := ""
				if evt.Request != nil {
					envelopeID = strings.TrimSpace(evt.Request.EnvelopeID)
					client.Ack(*evt.Request)
				}
				r.handleEventsAPI(ctx, envelopeID, e)
			default:
				r.logger.Debug("slack_socket_event_ignored", "event_type", string(evt.Type))
			}
		}
	}
}

// handleEventsAPI acks are done by the caller; this deduplicates the event
// and routes message events to their thread worker. Socket Mode redelivers
// envelopes on slow acks, so a key already observed is dropped.
func (r *Runtime) handleEventsAPI(ctx context.Context, envelopeID string, e slackevents.EventsAPIEvent) {
	metrics.EventsReceived.Inc()
	if e.Type != slackevents.CallbackEvent {
		return
	}

	eventID := ""
	var rawEvent []byte
	if cb, ok := e.Data.(*slackevents.EventsAPICallbackEvent); ok && cb != nil {
		eventID = strings.TrimSpace(cb.EventID)
		if cb.InnerEvent != nil {
			rawEvent = *cb.InnerEvent
		}
	}
	key, err := idempotency.EventKey(envelopeID, eventID, rawEvent)
	if err != nil {
		r.logger.Debug("slack_event_key_error", "error", err.Error())
	} else if !r.seen.Observe(key) {
		metrics.EventsDeduped.Inc()
		r.logger.Debug("slack_event_deduped", "event_key", key)
		return
	}

	switch ev := e.InnerEvent.Data.(type) {
	case *slackevents.MessageEvent:
		msg, err := messageEventFromCallback(ev)
		if err != nil {
			r.logger.Debug("slack_message_event_invalid", "error", err.Error())
			return
		}
		r.enqueue(ctx, msg)
	case *slackevents.AppMentionEvent:
		// Mentions reach the relay through the plain message event above;
		// consuming the app_mention callback keeps the subscription quiet.
	}
}

func (r *Runtime) enqueue(ctx context.Context, ev MessageEvent) {
	r.mu.Lock()
	w := r.getOrStartWorkerLocked(ctx, ev.ConversationKey())
	r.mu.Unlock()
	select {
	case <-ctx.Done():
	case w.jobs <- ev:
	}
}

func (r *Runtime) getOrStartWorkerLocked(ctx context.Context, conversationKey string) *relayWorker {
	if w, ok := r.workers[conversationKey]; ok && w != nil {
		return w
	}
	w := &relayWorker{jobs: make(chan MessageEvent, workerQueueDepth)}
	r.workers[conversationKey] = w
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-w.jobs:
				r.sem <- struct{}{}
				r.processMessage(ctx, ev)
				<-r.sem
			}
		}
	}()
	return w
}

// processMessage runs the trigger filter and, when it passes, one relay run.
// Trigger fetch errors and relay errors are logged and end the run; nothing
// is retried.
func (r *Runtime) processMessage(ctx context.Context, ev MessageEvent) {
	logger := r.logger.With(
		"run_id", uuid.NewString(),
		"channel_id", ev.ChannelID,
		"message_ts", ev.TS,
	)
	run, err := r.shouldRunCompletion(ctx, ev)
	if err != nil {
		logger.Warn("relay_trigger_error", "error", err.Error())
		return
	}
	if !run {
		logger.Debug("relay_trigger_skipped", "subtype", ev.Subtype)
		return
	}
	metrics.TriggersAccepted.Inc()
	logger.Info("relay_triggered", "thread_ts", ev.ThreadRootTS(), "user_id", ev.UserID)
	if err := r.runRelay(ctx, logger, ev); err != nil {
		metrics.CompletionsFailed.Inc()
		logger.Error("relay_run_error", "error", err.Error())
		return
	}
	metrics.CompletionsSucceeded.Inc()
}
