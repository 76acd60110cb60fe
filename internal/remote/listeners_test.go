package remote

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListenersEmitInRegistrationOrder(t *testing.T) {
	var l Listeners[int]
	var got []string

	l.Add(func(v int) { got = append(got, "a") })
	l.Add(func(v int) { got = append(got, "b") })
	l.Add(func(v int) { got = append(got, "c") })

	l.Emit(1)
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestListenersUnsubscribe(t *testing.T) {
	var l Listeners[string]
	calls := 0

	sub := l.Add(func(string) { calls++ })
	assert.Equal(t, 1, l.Len())

	sub.Unsubscribe()
	sub.Unsubscribe()
	assert.Equal(t, 0, l.Len())

	l.Emit("ignored")
	assert.Equal(t, 0, calls)
}

func TestListenersSelfUnsubscribeDuringEmit(t *testing.T) {
	var l Listeners[int]
	calls := 0

	var sub Subscription
	sub = l.Add(func(int) {
		calls++
		sub.Unsubscribe()
	})

	l.Emit(1)
	l.Emit(2)
	assert.Equal(t, 1, calls)
}
