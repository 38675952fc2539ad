// Package notify fans matched keyword events out to the configured
// notification sinks.
package notify

import (
	"context"
	"fmt"

	"github.com/researchaccelerator-hub/telegram-informer/model"
	"github.com/rs/zerolog/log"
)

// Notifier is a single notification sink.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, event model.MatchedEvent) error
}

// SinkOutcome reports how one sink handled an event. Err is nil on success.
type SinkOutcome struct {
	Sink string
	Err  error
}

// Dispatcher delivers each event to every sink. A failing sink never
// prevents delivery to the others.
type Dispatcher struct {
	sinks []Notifier
}

// NewDispatcher creates a dispatcher over sinks, in delivery order.
func NewDispatcher(sinks ...Notifier) *Dispatcher {
	return &Dispatcher{sinks: sinks}
}

// Dispatch calls every sink in order and returns one outcome per sink.
func (d *Dispatcher) Dispatch(ctx context.Context, event model.MatchedEvent) []SinkOutcome {
	outcomes := make([]SinkOutcome, 0, len(d.sinks))
	for _, sink := range d.sinks {
		err := notifySafely(ctx, sink, event)
		if err != nil {
			log.Error().Err(err).
				Str("sink", sink.Name()).
				Int64("conversation_id", event.Message.ConversationID).
				Int64("keyword_id", event.Keyword.ID).
				Msg("Notification sink failed")
		}
		outcomes = append(outcomes, SinkOutcome{Sink: sink.Name(), Err: err})
	}
	return outcomes
}

// Names returns the sink names in delivery order.
func (d *Dispatcher) Names() []string {
	names := make([]string, 0, len(d.sinks))
	for _, sink := range d.sinks {
		names = append(names, sink.Name())
	}
	return names
}

func notifySafely(ctx context.Context, sink Notifier, event model.MatchedEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink %s panicked: %v", sink.Name(), r)
		}
	}()
	return sink.Notify(ctx, event)
}

// Failed counts the outcomes that carry an error.
func Failed(outcomes []SinkOutcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}
