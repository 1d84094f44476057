package ws

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domainchat "rentline/internal/domain/chat"
)

// Broadcast snapshots the room before delivering, so a client can leave while
// a delivery to it is still in flight. That interleaving must never panic the
// hub.
func TestHub_BroadcastRacesWithLeaving(t *testing.T) {
	hub := NewHub(nil)
	room := domainchat.ConversationID(7)

	for round := 0; round < 3; round++ {
		clients := make([]*client, 256)
		for i := range clients {
			clients[i] = newClient(hub, room, 1, nil, nil)
			hub.join(room, clients[i])
		}

		stop := make(chan struct{})
		var wg sync.WaitGroup
		for g := 0; g < 4; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					select {
					case <-stop:
						return
					default:
						hub.Broadcast(room, map[string]string{"type": "text", "content": "ping"})
					}
				}
			}()
		}

		for _, c := range clients {
			c.close()
		}
		close(stop)
		wg.Wait()
	}

	// Departures settle even when Broadcast kicked off extra closes.
	deadline := time.Now().Add(2 * time.Second)
	for hub.RoomSize(room) != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.Zero(t, hub.RoomSize(room))
}

func TestHub_SlowConsumerIsDisconnected(t *testing.T) {
	req := require.New(t)
	hub := NewHub(nil)
	room := domainchat.ConversationID(9)

	// No write pump draining send, so the buffer fills and the hub drops the
	// connection instead of blocking the room.
	c := newClient(hub, room, 1, nil, nil)
	hub.join(room, c)
	for i := 0; i < cap(c.send)+8; i++ {
		hub.Broadcast(room, map[string]int{"seq": i})
	}

	deadline := time.Now().Add(2 * time.Second)
	for hub.RoomSize(room) != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	req.Zero(hub.RoomSize(room))
	select {
	case <-c.done:
	default:
		t.Fatal("slow consumer was never closed")
	}
}
