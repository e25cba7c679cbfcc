package core

import (
	evbus "github.com/asaskevich/EventBus"
)

// EventCode names a topic on the engine event bus.
type EventCode string

const (
	// A resource finished loading. Handler: func(ResourceEvent)
	EventResourceLoaded EventCode = "resource:loaded"
	// A resource failed to load. Handler: func(ResourceEvent)
	EventResourceFailed EventCode = "resource:failed"
	// A resource was inserted into the cache without a file read. Handler: func(ResourceEvent)
	EventResourceAdded EventCode = "resource:added"
	// A cached resource was dropped because its file changed or vanished. Handler: func(ResourceEvent)
	EventResourceEvicted EventCode = "resource:evicted"
	// The cache was emptied. Handler: func(ResourceEvent), only Count is set.
	EventResourceCleared EventCode = "resource:cleared"
)

// ResourceEvent is the payload of every resource topic.
type ResourceEvent struct {
	ID    uint64
	Type  string
	Path  string
	Err   error
	Count int
}

// EventBus is the engine event system. Handlers run synchronously on the
// publishing goroutine unless registered with SubscribeAsync.
type EventBus struct {
	bus evbus.Bus
}

func NewEventBus() *EventBus {
	return &EventBus{bus: evbus.New()}
}

func (eb *EventBus) Subscribe(code EventCode, handler interface{}) error {
	return eb.bus.Subscribe(string(code), handler)
}

func (eb *EventBus) SubscribeAsync(code EventCode, handler interface{}) error {
	return eb.bus.SubscribeAsync(string(code), handler, false)
}

func (eb *EventBus) Unsubscribe(code EventCode, handler interface{}) error {
	return eb.bus.Unsubscribe(string(code), handler)
}

func (eb *EventBus) Publish(code EventCode, ev ResourceEvent) {
	if eb == nil {
		return
	}
	eb.bus.Publish(string(code), ev)
}

// WaitAsync blocks until every asynchronous handler returned.
func (eb *EventBus) WaitAsync() {
	eb.bus.WaitAsync()
}
