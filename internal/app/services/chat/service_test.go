package chat

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domainchat "rentline/internal/domain/chat"
	domainlisting "rentline/internal/domain/listing"
	domainuser "rentline/internal/domain/user"
	"rentline/internal/infra/storage/memory"
)

type capturedEvent struct {
	topic   string
	payload []byte
}

type captureBus struct {
	mu     sync.Mutex
	events []capturedEvent
}

func (b *captureBus) Publish(ctx context.Context, topic, key string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, capturedEvent{topic: topic, payload: payload})
	return nil
}

func (b *captureBus) all() []capturedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]capturedEvent(nil), b.events...)
}

type fixture struct {
	svc      *Service
	bus      *captureBus
	tenant   *domainuser.User
	landlord *domainuser.User
	listing  *domainlisting.Listing
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	req := require.New(t)
	ctx := context.Background()

	users := memory.NewUserRepository()
	listings := memory.NewListingRepository()

	tenant, err := domainuser.NewUser(domainuser.CreateParams{
		Email: "tenant@example.com", Name: "Taras", PasswordHash: "x", Role: domainuser.RoleTenant,
	})
	req.NoError(err)
	req.NoError(users.Create(ctx, tenant))

	landlord, err := domainuser.NewUser(domainuser.CreateParams{
		Email: "owner@example.com", Name: "Olha", PasswordHash: "x", Role: domainuser.RoleLandlord,
	})
	req.NoError(err)
	req.NoError(users.Create(ctx, landlord))

	l, err := domainlisting.NewListing(domainlisting.CreateParams{
		OwnerID: landlord.ID, Title: "Studio near the river", Address: "12 Naberezhna St", Price: 450, City: "Kyiv",
	})
	req.NoError(err)
	req.NoError(listings.Create(ctx, l))

	bus := &captureBus{}
	svc := &Service{
		Conversations: memory.NewChatRepository(),
		Listings:      listings,
		Users:         users,
		Events:        bus,
		TopicPrefix:   "test.",
	}
	return fixture{svc: svc, bus: bus, tenant: tenant, landlord: landlord, listing: l}
}

func TestService_StartIsIdempotent(t *testing.T) {
	req := require.New(t)
	fx := newFixture(t)
	ctx := context.Background()

	first, err := fx.svc.Start(ctx, fx.tenant.ID, fx.listing.ID)
	req.NoError(err)
	req.Equal(fx.tenant.ID, first.InitiatorID)
	req.Equal(fx.landlord.ID, first.OwnerID)
	req.False(first.CreatedAt.IsZero())

	second, err := fx.svc.Start(ctx, fx.tenant.ID, fx.listing.ID)
	req.NoError(err)
	req.Equal(first.ID, second.ID)
}

func TestService_StartRejectsOwnListing(t *testing.T) {
	req := require.New(t)
	fx := newFixture(t)

	_, err := fx.svc.Start(context.Background(), fx.landlord.ID, fx.listing.ID)
	req.ErrorIs(err, domainchat.ErrSelfConversation)
}

func TestService_StartUnknownListing(t *testing.T) {
	req := require.New(t)
	fx := newFixture(t)

	_, err := fx.svc.Start(context.Background(), fx.tenant.ID, domainlisting.ID(9999))
	req.ErrorIs(err, domainlisting.ErrNotFound)
}

func TestService_AppendAndReadBack(t *testing.T) {
	req := require.New(t)
	fx := newFixture(t)
	ctx := context.Background()

	conv, err := fx.svc.Start(ctx, fx.tenant.ID, fx.listing.ID)
	req.NoError(err)

	first, err := fx.svc.Append(ctx, fx.tenant.ID, conv.ID, "text", "is it still available?")
	req.NoError(err)
	req.NotZero(first.ID)

	second, err := fx.svc.Append(ctx, fx.landlord.ID, conv.ID, "text", "yes, come by tomorrow")
	req.NoError(err)
	req.Greater(int64(second.ID), int64(first.ID))

	msgs, err := fx.svc.Messages(ctx, fx.tenant.ID, conv.ID)
	req.NoError(err)
	req.Len(msgs, 2)
	req.Equal("is it still available?", msgs[0].Content)
	req.Equal("yes, come by tomorrow", msgs[1].Content)
}

func TestService_AppendValidation(t *testing.T) {
	req := require.New(t)
	fx := newFixture(t)
	ctx := context.Background()

	conv, err := fx.svc.Start(ctx, fx.tenant.ID, fx.listing.ID)
	req.NoError(err)

	_, err = fx.svc.Append(ctx, fx.tenant.ID, conv.ID, "text", "   ")
	req.ErrorIs(err, domainchat.ErrEmptyContent)

	stranger := domainuser.ID(777)
	_, err = fx.svc.Append(ctx, stranger, conv.ID, "text", "let me in")
	req.ErrorIs(err, domainchat.ErrNotParticipant)

	_, err = fx.svc.Messages(ctx, stranger, conv.ID)
	req.ErrorIs(err, domainchat.ErrNotParticipant)

	_, err = fx.svc.Append(ctx, fx.tenant.ID, domainchat.ConversationID(404), "text", "hello?")
	req.ErrorIs(err, domainchat.ErrConversationNotFound)
}

func TestService_AppendPublishesEvent(t *testing.T) {
	req := require.New(t)
	fx := newFixture(t)
	ctx := context.Background()

	conv, err := fx.svc.Start(ctx, fx.tenant.ID, fx.listing.ID)
	req.NoError(err)

	msg, err := fx.svc.Append(ctx, fx.tenant.ID, conv.ID, "text", "ping")
	req.NoError(err)

	events := fx.bus.all()
	req.Len(events, 1)
	req.Equal("test.chat.message.sent", events[0].topic)

	var event messageSentEvent
	req.NoError(json.Unmarshal(events[0].payload, &event))
	req.Equal(int64(conv.ID), event.ConversationID)
	req.Equal(int64(msg.ID), event.MessageID)
	req.Equal(int64(fx.tenant.ID), event.SenderID)
	req.NotEmpty(event.EventID)
	req.WithinDuration(time.Now(), event.CreatedAt, time.Minute)
}

func TestService_Inbox(t *testing.T) {
	req := require.New(t)
	fx := newFixture(t)
	ctx := context.Background()

	conv, err := fx.svc.Start(ctx, fx.tenant.ID, fx.listing.ID)
	req.NoError(err)
	_, err = fx.svc.Append(ctx, fx.tenant.ID, conv.ID, "text", "first")
	req.NoError(err)
	last, err := fx.svc.Append(ctx, fx.tenant.ID, conv.ID, "text", "second")
	req.NoError(err)

	rows, err := fx.svc.Inbox(ctx, fx.landlord.ID)
	req.NoError(err)
	req.Len(rows, 1)

	row := rows[0]
	req.Equal(conv.ID, row.Conversation.ID)
	req.Equal("Studio near the river", row.ListingTitle)
	req.InDelta(450, row.ListingPrice, 0.001)
	req.Equal("Taras", row.InitiatorName)
	req.Equal(last.ID, row.LastMessage.ID)
	req.EqualValues(2, row.UnreadCount)
}
