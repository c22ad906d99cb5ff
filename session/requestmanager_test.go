package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gate4ai/mcpclient/protocol"
	"github.com/gate4ai/mcpclient/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRM() *RequestManager {
	return NewRequestManager(zap.NewNop())
}

// TestPendingCallInvariant exercises §8 property 2: under concurrent
// issuance of N requests the table never exceeds N entries, and empties
// once every call has resolved.
func TestPendingCallInvariant(t *testing.T) {
	rm := newTestRM()
	const n = 50

	var wg sync.WaitGroup
	ids := make([]schema.RequestID, n)
	for i := 0; i < n; i++ {
		id := schema.RequestIDFromUInt64(uint64(i + 1))
		ids[i] = id
		rm.RegisterRequest(&id, "tools/call", true, 0, func(*protocol.Message) {})
	}
	require.LessOrEqual(t, rm.Len(), n)

	for _, id := range ids {
		wg.Add(1)
		go func(id schema.RequestID) {
			defer wg.Done()
			rm.ProcessResponse(&protocol.Message{ID: &id})
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 0, rm.Len())
}

// TestTimeoutFiresCancelNotificationOnce covers §8 property 3: a request
// whose response never arrives surfaces a timeout error to its callback and
// the cancel notifier fires exactly once.
func TestTimeoutFiresCancelNotificationOnce(t *testing.T) {
	rm := newTestRM()
	var notifyCount int
	var mu sync.Mutex
	rm.SetCancelNotifier(func(id schema.RequestID, reason string) {
		mu.Lock()
		defer mu.Unlock()
		notifyCount++
		assert.Equal(t, "timeout", reason)
	})

	done := make(chan *protocol.Message, 1)
	id := schema.RequestIDFromUInt64(1)
	rm.RegisterRequest(&id, "tools/call", true, 10*time.Millisecond, func(msg *protocol.Message) {
		done <- msg
	})

	select {
	case msg := <-done:
		require.NotNil(t, msg.Error)
	case <-time.After(time.Second):
		t.Fatal("timeout callback never fired")
	}

	mu.Lock()
	assert.Equal(t, 1, notifyCount)
	mu.Unlock()
	assert.Equal(t, 0, rm.Len())
}

// TestShutdownSentinelNeverClosedQueue covers §8 property 4: Abandon
// delivers a terminal error to every still-pending call rather than closing
// anything the caller might read from again, and empties the table.
func TestShutdownSentinelNeverClosedQueue(t *testing.T) {
	rm := newTestRM()
	const k = 5
	results := make([]chan *protocol.Message, k)
	for i := 0; i < k; i++ {
		ch := make(chan *protocol.Message, 1)
		results[i] = ch
		id := schema.RequestIDFromUInt64(uint64(i + 1))
		rm.RegisterRequest(&id, "tools/call", true, 0, func(msg *protocol.Message) {
			ch <- msg
		})
	}

	rm.Abandon(errors.New("transport closed"))

	for _, ch := range results {
		select {
		case msg := <-ch:
			require.NotNil(t, msg.Error)
		default:
			t.Fatal("pending call never received a shutdown sentinel")
		}
	}
	assert.Equal(t, 0, rm.Len())
}

// TestCancelInFlightOutcomes covers §8 property 5: CancelInFlight returns
// exactly one of the five documented outcomes, and only a terminal outcome
// frees the id from the table.
func TestCancelInFlightOutcomes(t *testing.T) {
	rm := newTestRM()

	assert.Equal(t, CancelOutcomeNotFound, rm.CancelInFlight(schema.RequestIDFromUInt64(999), "gone"))

	id := schema.RequestIDFromUInt64(1)
	rm.RegisterRequest(&id, "tools/call", true, 0, func(*protocol.Message) {})
	assert.Equal(t, CancelOutcomeCancelled, rm.CancelInFlight(id, "user cancelled"))
	assert.Equal(t, 0, rm.Len())
	assert.Equal(t, CancelOutcomeNotFound, rm.CancelInFlight(id, "again"))

	id2 := schema.RequestIDFromUInt64(2)
	rm.RegisterRequest(&id2, "tools/call", false, 0, func(*protocol.Message) {})
	assert.Equal(t, CancelOutcomeNotCancellable, rm.CancelInFlight(id2, "user cancelled"))

	id3 := schema.RequestIDFromUInt64(3)
	received := make(chan struct{})
	rm.RegisterRequest(&id3, "tools/call", true, 0, func(*protocol.Message) { close(received) })
	rm.ProcessResponse(&protocol.Message{ID: &id3})
	<-received
	assert.Equal(t, CancelOutcomeNotFound, rm.CancelInFlight(id3, "too late"))
}
