package engine

import (
	"log/slog"
	"time"

	"github.com/roach88/pipesim/internal/fsm"
)

// NotificationType names an engine notification channel.
type NotificationType string

// Notification channels.
const (
	NotifyStateChange           NotificationType = "stateChange"
	NotifyEventProcessed        NotificationType = "eventProcessed"
	NotifyError                 NotificationType = "error"
	NotifySimulationStarted     NotificationType = "simulationStarted"
	NotifySimulationStopped     NotificationType = "simulationStopped"
	NotifySimulationReset       NotificationType = "simulationReset"
	NotifyScenarioLoaded        NotificationType = "scenarioLoaded"
	NotifySpeedChanged          NotificationType = "speedChanged"
	NotifyComponentRegistered   NotificationType = "componentRegistered"
	NotifyComponentUnregistered NotificationType = "componentUnregistered"
	NotifyEventScheduled        NotificationType = "eventScheduled"
	NotifyEventCancelled        NotificationType = "eventCancelled"

	// NotifyAll subscribes a handler to every channel.
	NotifyAll NotificationType = "*"
)

// Notification is delivered to subscribers. Data holds one of the typed
// payloads below, depending on Type.
type Notification struct {
	Type NotificationType
	At   time.Duration
	Data any
}

// StateChange is the payload of NotifyStateChange.
type StateChange struct {
	ComponentID string
	Family      string
	From        fsm.State
	To          fsm.State
	Action      fsm.Action
	Payload     fsm.Payload
	Animating   bool
}

// EventProcessed is the payload of NotifyEventProcessed.
type EventProcessed struct {
	Event ScheduledEvent
	From  fsm.State
	To    fsm.State
}

// ErrorNotice is the payload of NotifyError. Event is nil for errors not tied
// to a specific scheduled event.
type ErrorNotice struct {
	Err   error
	Event *ScheduledEvent
}

// ScenarioLoaded is the payload of NotifyScenarioLoaded.
type ScenarioLoaded struct {
	Name     string
	EventIDs []string
}

// SpeedChanged is the payload of NotifySpeedChanged.
type SpeedChanged struct {
	Old       float64
	New       float64
	Requested float64
}

// ComponentNotice is the payload of NotifyComponentRegistered and
// NotifyComponentUnregistered.
type ComponentNotice struct {
	ComponentID string
	Family      string
}

// EventNotice is the payload of NotifyEventScheduled and NotifyEventCancelled.
type EventNotice struct {
	Event ScheduledEvent
}

// Handler receives notifications.
type Handler func(Notification)

type handlerEntry struct {
	id uint64
	fn Handler
}

// emitter delivers notifications synchronously, in subscription order.
// Handlers subscribed to NotifyAll run after the type-specific handlers.
type emitter struct {
	handlers map[NotificationType][]handlerEntry
	next     uint64
	logger   *slog.Logger
}

func newEmitter(logger *slog.Logger) *emitter {
	return &emitter{
		handlers: make(map[NotificationType][]handlerEntry),
		logger:   logger,
	}
}

func (em *emitter) on(t NotificationType, h Handler) func() {
	em.next++
	id := em.next
	em.handlers[t] = append(em.handlers[t], handlerEntry{id: id, fn: h})

	return func() {
		entries := em.handlers[t]
		for i, e := range entries {
			if e.id == id {
				em.handlers[t] = append(entries[:i:i], entries[i+1:]...)
				return
			}
		}
	}
}

func (em *emitter) emit(n Notification) {
	specific := em.handlers[n.Type]
	all := em.handlers[NotifyAll]
	if len(specific) == 0 && len(all) == 0 {
		return
	}

	snapshot := make([]handlerEntry, 0, len(specific)+len(all))
	snapshot = append(snapshot, specific...)
	snapshot = append(snapshot, all...)

	for _, e := range snapshot {
		em.invoke(e.fn, n)
	}
}

func (em *emitter) invoke(fn Handler, n Notification) {
	defer func() {
		if r := recover(); r != nil {
			err := &fsm.ListenerError{Source: "engine", Topic: string(n.Type), Recovered: r}
			em.logger.Error("notification handler failed",
				"type", n.Type,
				"error", err,
			)
		}
	}()
	fn(n)
}

func (em *emitter) count(t NotificationType) int {
	return len(em.handlers[t])
}
