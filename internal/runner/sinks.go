package runner

import (
	"context"
	"log/slog"
	"sync"

	"github.com/stylegate/stylegate/internal/eventbus"
	"github.com/stylegate/stylegate/internal/store"
)

// Sinks drain the event bus into the store and the diagnostic log.
// Decoupling persistence from evaluation keeps the engine pure: a
// slow sink can only drop records, never change a decision.
type Sinks struct {
	wg     sync.WaitGroup
	unsubs []func()
}

// StartSinks subscribes the persistence and logging sinks to the bus.
// Stop must be called after the producer is done publishing.
func StartSinks(bus *eventbus.EventBus, st store.Store, logger *slog.Logger) *Sinks {
	s := &Sinks{}

	ch, unsub := bus.Subscribe("store")
	s.unsubs = append(s.unsubs, unsub)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for record := range ch {
			st.LogEvaluation(context.Background(), record)
		}
	}()

	logCh, logUnsub := bus.Subscribe("log")
	s.unsubs = append(s.unsubs, logUnsub)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for record := range logCh {
			logger.Debug("evaluation recorded",
				"id", record.ID,
				"item", record.ItemID,
				"decision", record.Decision,
				"stage", record.Stage,
			)
		}
	}()

	return s
}

// Stop unsubscribes the sinks and waits for them to drain.
func (s *Sinks) Stop() {
	for _, unsub := range s.unsubs {
		unsub()
	}
	s.wg.Wait()
}
