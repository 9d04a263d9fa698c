package notification

import (
	"context"

	"github.com/akfbtn1-netizen/docflow/modules/docs/services"
	"github.com/akfbtn1-netizen/docflow/pkg/eventbus"
)

// EventBusNotifier fans notifications out on the in-process event bus.
// Delivery channels (chat, mail) subscribe to services.Notification; the
// publish itself never fails the caller.
type EventBusNotifier struct {
	bus eventbus.EventBus
}

func NewEventBusNotifier(bus eventbus.EventBus) *EventBusNotifier {
	return &EventBusNotifier{bus: bus}
}

func (n *EventBusNotifier) Notify(_ context.Context, note services.Notification) error {
	n.bus.Publish(note)
	return nil
}
