package eventbus

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type testEvent struct {
	data string
}

type otherEvent struct {
	data string
}

func newTestBus(buf *bytes.Buffer) EventBusWithError {
	log := logrus.New()
	log.SetOutput(buf)
	log.SetLevel(logrus.WarnLevel)
	return NewEventPublisher(log)
}

func TestPublish_NoMatchingSubscriberLogs(t *testing.T) {
	var buf bytes.Buffer
	bus := newTestBus(&buf)
	bus.Subscribe(func(e *testEvent) {
		t.Error("should not be called")
	})

	bus.Publish(&otherEvent{data: "x"})

	require.Contains(t, buf.String(), "no matching subscribers")
}

func TestPublish_DeliversToMatchingSubscriber(t *testing.T) {
	var buf bytes.Buffer
	bus := newTestBus(&buf)

	var got string
	bus.Subscribe(func(e *testEvent) { got = e.data })

	bus.Publish(&testEvent{data: "hello"})
	require.Equal(t, "hello", got)
}

func TestPublish_RecoversFromHandlerPanic(t *testing.T) {
	var buf bytes.Buffer
	bus := newTestBus(&buf)
	bus.Subscribe(func(e *testEvent) { panic("boom") })

	bus.Publish(&testEvent{data: "x"})

	require.Contains(t, buf.String(), "panicked")
}

func TestPublishE_SurfacesHandlerError(t *testing.T) {
	var buf bytes.Buffer
	bus := newTestBus(&buf)

	wantErr := errors.New("delivery failed")
	bus.Subscribe(func(e *testEvent) error { return wantErr })

	err := bus.PublishE(&testEvent{data: "x"})
	require.ErrorIs(t, err, wantErr)
}

func TestPublishE_NoSubscribers(t *testing.T) {
	var buf bytes.Buffer
	bus := newTestBus(&buf)

	err := bus.PublishE(&testEvent{data: "x"})
	require.ErrorIs(t, err, ErrNoSubscribers)
}

func TestPublishE_InvalidReturnSignature(t *testing.T) {
	var buf bytes.Buffer
	bus := newTestBus(&buf)
	bus.Subscribe(func(e *testEvent) string { return "nope" })

	err := bus.PublishE(&testEvent{data: "x"})
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "EVENTBUS_INVALID_HANDLER_RETURN"))
}

func TestUnsubscribe(t *testing.T) {
	var buf bytes.Buffer
	bus := newTestBus(&buf)

	handler := func(e *testEvent) {}
	bus.Subscribe(handler)
	require.Equal(t, 1, bus.SubscribersCount())

	bus.Unsubscribe(handler)
	require.Equal(t, 0, bus.SubscribersCount())
}
