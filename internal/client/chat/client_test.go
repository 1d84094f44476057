package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"rentline/internal/app/dto"
	"rentline/internal/client/api"
	"rentline/internal/client/session"
)

// chatBackend is a miniature conversation server: REST bootstrap plus a
// websocket that echoes every frame back as a stored message.
type chatBackend struct {
	upgrader websocket.Upgrader

	mu         sync.Mutex
	nextMsgID  int64
	history    []dto.Message
	startCalls atomic.Int64
	dialToken  atomic.Value
}

func newChatBackend(history ...dto.Message) *chatBackend {
	b := &chatBackend{history: history, nextMsgID: int64(len(history)) + 1}
	return b
}

func (b *chatBackend) server(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/chat/start/", func(w http.ResponseWriter, r *http.Request) {
		b.startCalls.Add(1)
		json.NewEncoder(w).Encode(dto.Conversation{ID: 7, PropertyID: 42, InitiatorID: 1, OwnerID: 2})
	})
	mux.HandleFunc("/chat/7/messages", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		items := append([]dto.Message(nil), b.history...)
		b.mu.Unlock()
		json.NewEncoder(w).Encode(dto.MessageList{Items: items})
	})
	mux.HandleFunc("/ws/chat/7", func(w http.ResponseWriter, r *http.Request) {
		b.dialToken.Store(r.URL.Query().Get("token"))
		conn, err := b.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var frame dto.OutboundFrame
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}
			b.mu.Lock()
			msg := dto.Message{
				ID:             b.nextMsgID,
				ConversationID: 7,
				SenderID:       1,
				Type:           frame.Type,
				Content:        frame.Content,
				CreatedAt:      time.Now().UTC(),
			}
			b.nextMsgID++
			b.history = append(b.history, msg)
			b.mu.Unlock()
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newOpenClient(t *testing.T, backend *chatBackend, opts ...Option) *Client {
	server := backend.server(t)
	store := session.NewStore()
	store.SetToken("live-token")
	client := New(api.New(server.URL, store), opts...)
	require.NoError(t, client.Open(context.Background(), 42))
	t.Cleanup(func() { client.Close() })
	return client
}

func TestClient_OpenLoadsHistoryAndDialsWithToken(t *testing.T) {
	req := require.New(t)
	backend := newChatBackend(
		dto.Message{ID: 1, ConversationID: 7, SenderID: 2, Type: "text", Content: "hello"},
		dto.Message{ID: 2, ConversationID: 7, SenderID: 1, Type: "text", Content: "hi"},
	)
	client := newOpenClient(t, backend)

	conv := client.Conversation()
	req.NotNil(conv)
	req.EqualValues(7, conv.ID)

	msgs := client.Messages()
	req.Len(msgs, 2)
	req.Equal("hello", msgs[0].Content)
	req.Equal("hi", msgs[1].Content)

	req.Equal("live-token", backend.dialToken.Load())
	req.EqualValues(1, backend.startCalls.Load())
}

func TestClient_OpenTwiceFails(t *testing.T) {
	req := require.New(t)
	client := newOpenClient(t, newChatBackend())
	req.ErrorIs(client.Open(context.Background(), 42), ErrAlreadyOpen)
}

func TestClient_OpenWithoutCredential(t *testing.T) {
	req := require.New(t)
	server := newChatBackend().server(t)
	client := New(api.New(server.URL, session.NewStore()))
	req.ErrorIs(client.Open(context.Background(), 42), ErrNotAuthorized)
}

func TestClient_SendIsEchoedNotLocallyAppended(t *testing.T) {
	req := require.New(t)
	echoed := make(chan dto.Message, 1)
	client := newOpenClient(t, newChatBackend(), OnMessage(func(msg dto.Message) {
		echoed <- msg
	}))

	req.NoError(client.Send("see you at the viewing"))
	// Nothing appears until the server's copy comes back.
	select {
	case msg := <-echoed:
		req.Equal("see you at the viewing", msg.Content)
		req.NotZero(msg.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("echo never arrived")
	}

	msgs := client.Messages()
	req.Len(msgs, 1)
	req.Equal("see you at the viewing", msgs[0].Content)
}

func TestClient_SendWhitespaceIsNoOp(t *testing.T) {
	req := require.New(t)
	backend := newChatBackend()
	client := newOpenClient(t, backend)

	req.NoError(client.Send("   "))
	req.NoError(client.Send("\n\t"))

	// No frame reached the server, so no echo and no cache growth.
	time.Sleep(100 * time.Millisecond)
	req.Empty(client.Messages())
}

func TestClient_MessagesArriveInOrder(t *testing.T) {
	req := require.New(t)
	var mu sync.Mutex
	var seen []string
	done := make(chan struct{})
	client := newOpenClient(t, newChatBackend(), OnMessage(func(msg dto.Message) {
		mu.Lock()
		seen = append(seen, msg.Content)
		if len(seen) == 3 {
			close(done)
		}
		mu.Unlock()
	}))

	req.NoError(client.Send("one"))
	req.NoError(client.Send("two"))
	req.NoError(client.Send("three"))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("messages never arrived")
	}
	mu.Lock()
	defer mu.Unlock()
	req.Equal([]string{"one", "two", "three"}, seen)
}

func TestClient_CloseTearsDown(t *testing.T) {
	req := require.New(t)
	client := newOpenClient(t, newChatBackend())

	req.NoError(client.Close())
	req.NoError(client.Close())

	select {
	case <-client.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("read loop did not stop")
	}

	req.ErrorIs(client.Send("too late"), ErrNotOpen)
	req.Empty(client.Messages())
	req.NoError(client.Err())
}

func TestClient_SendBeforeOpen(t *testing.T) {
	req := require.New(t)
	server := newChatBackend().server(t)
	store := session.NewStore()
	store.SetToken("live-token")
	client := New(api.New(server.URL, store))
	req.ErrorIs(client.Send("hello"), ErrNotOpen)
}

func TestLiveChannelURL(t *testing.T) {
	req := require.New(t)

	u, err := liveChannelURL("http://example.com", 9, "abc")
	req.NoError(err)
	req.Equal("ws://example.com/ws/chat/9?token=abc", u)

	u, err = liveChannelURL("https://example.com/api", 9, "abc")
	req.NoError(err)
	req.Equal("wss://example.com/api/ws/chat/9?token=abc", u)
}

func TestClient_CloseFromHandler(t *testing.T) {
	req := require.New(t)
	closed := make(chan error, 1)
	var live *Client
	live = newOpenClient(t, newChatBackend(), OnMessage(func(dto.Message) {
		closed <- live.Close()
	}))

	req.NoError(live.Send("last word"))
	select {
	case err := <-closed:
		req.NoError(err)
	case <-time.After(2 * time.Second):
		t.Fatal("Close never returned inside the handler")
	}

	select {
	case <-live.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("read loop never exited")
	}
	req.ErrorIs(live.Send("after close"), ErrNotOpen)
}
