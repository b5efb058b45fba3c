package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "threadrelay_events_received_total",
		Help: "Socket Mode events_api envelopes received.",
	})
	EventsDeduped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "threadrelay_events_deduped_total",
		Help: "Inbound events dropped as re-deliveries.",
	})
	TriggersAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "threadrelay_triggers_accepted_total",
		Help: "Message events that passed the trigger filter.",
	})
	CompletionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "threadrelay_completions_started_total",
		Help: "Relay runs started.",
	})
	CompletionsSucceeded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "threadrelay_completions_succeeded_total",
		Help: "Relay runs that posted an answer.",
	})
	CompletionsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "threadrelay_completions_failed_total",
		Help: "Relay runs aborted by an error.",
	})
)
