package ginserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rentline/internal/app/dto"
	authsvc "rentline/internal/app/services/auth"
	chatsvc "rentline/internal/app/services/chat"
	listingssvc "rentline/internal/app/services/listings"
	planssvc "rentline/internal/app/services/plans"
	"rentline/internal/infra/config"
	"rentline/internal/infra/obs"
	"rentline/internal/infra/security"
	"rentline/internal/infra/storage/memory"
	"rentline/internal/infra/storage/s3"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	users := memory.NewUserRepository()
	listings := memory.NewListingRepository()
	plans := memory.NewPlanRepository()

	authService := &authsvc.Service{
		Users:           users,
		Passwords:       security.BcryptHasher{Cost: 4},
		Access:          security.AccessTokenSigner{Secret: []byte("test-secret"), TTL: time.Minute},
		Refresh:         security.RandomTokenGenerator{},
		RefreshStore:    memory.NewRefreshTokenStore(),
		RefreshTokenTTL: time.Hour,
	}
	chatService := &chatsvc.Service{
		Conversations: memory.NewChatRepository(),
		Listings:      listings,
		Users:         users,
	}
	listingService := &listingssvc.Service{Listings: listings, Plans: plans}
	planService := &planssvc.Service{Plans: plans, Listings: listings}

	authMW := AuthMiddleware{Service: authService}
	handlers := Handlers{
		Auth:           AuthHandler{Service: authService, RefreshTTL: time.Hour},
		Listing:        ListingHandler{Service: listingService, Uploads: s3.NoopUploader{}},
		Chat:           ChatHandler{Service: chatService},
		Plan:           PlanHandler{Service: planService},
		Stats:          StatsHandler{Users: users, Listings: listings},
		AuthMiddleware: authMW.Handle,
	}

	httpServer := NewServer(config.Config{Env: "test", HTTPAddr: ":0"}, obs.Middleware{}, obs.HealthHandlers{}, handlers)
	server := httptest.NewServer(httpServer.Handler)
	t.Cleanup(server.Close)
	return server
}

type testAccount struct {
	token   string
	refresh *http.Cookie
	user    dto.User
}

func registerAccount(t *testing.T, server *httptest.Server, email string) testAccount {
	t.Helper()
	req := require.New(t)

	resp := postJSON(t, server, "/auth/register", "", map[string]string{
		"email":     email,
		"password":  "secret123",
		"firstName": "Test",
		"lastName":  "User",
	})
	defer resp.Body.Close()
	req.Equal(http.StatusCreated, resp.StatusCode)

	var body dto.AuthResponse
	req.NoError(json.NewDecoder(resp.Body).Decode(&body))
	req.NotEmpty(body.AccessToken)

	var refresh *http.Cookie
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "refresh_token" {
			refresh = cookie
		}
	}
	req.NotNil(refresh)
	req.True(refresh.HttpOnly)

	return testAccount{token: body.AccessToken, refresh: refresh, user: body.User}
}

func postJSON(t *testing.T, server *httptest.Server, path, token string, body any) *http.Response {
	t.Helper()
	encoded, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, server.URL+path, bytes.NewReader(encoded))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func getJSON(t *testing.T, server *httptest.Server, path, token string, out any) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, server.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestServer_RegisterLoginMe(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)

	account := registerAccount(t, server, "me@example.com")

	var me dto.User
	status := getJSON(t, server, "/auth/me", account.token, &me)
	req.Equal(http.StatusOK, status)
	req.Equal("me@example.com", me.Email)

	status = getJSON(t, server, "/auth/me", "", nil)
	req.Equal(http.StatusUnauthorized, status)

	resp := postJSON(t, server, "/auth/login", "", map[string]string{
		"email":    "me@example.com",
		"password": "wrong",
	})
	resp.Body.Close()
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func TestServer_RefreshRotatesCookie(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)
	account := registerAccount(t, server, "rotate@example.com")

	request, err := http.NewRequest(http.MethodPost, server.URL+"/auth/refresh", nil)
	req.NoError(err)
	request.AddCookie(account.refresh)
	resp, err := http.DefaultClient.Do(request)
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusOK, resp.StatusCode)

	var body dto.RefreshResponse
	req.NoError(json.NewDecoder(resp.Body).Decode(&body))
	req.NotEmpty(body.AccessToken)

	var rotated *http.Cookie
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "refresh_token" {
			rotated = cookie
		}
	}
	req.NotNil(rotated)
	req.NotEqual(account.refresh.Value, rotated.Value)

	// The spent cookie no longer refreshes.
	replay, err := http.NewRequest(http.MethodPost, server.URL+"/auth/refresh", nil)
	req.NoError(err)
	replay.AddCookie(account.refresh)
	resp2, err := http.DefaultClient.Do(replay)
	req.NoError(err)
	resp2.Body.Close()
	req.Equal(http.StatusUnauthorized, resp2.StatusCode)
}

func TestServer_RefreshWithoutCookie(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)

	resp, err := http.Post(server.URL+"/auth/refresh", "application/json", nil)
	req.NoError(err)
	resp.Body.Close()
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func TestServer_PropertyLifecycle(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)
	owner := registerAccount(t, server, "owner@example.com")

	resp := postJSON(t, server, "/properties", owner.token, map[string]any{
		"title":   "Bright one-bedroom",
		"address": "5 Soborna St",
		"city":    "Dnipro",
		"price":   600,
	})
	defer resp.Body.Close()
	req.Equal(http.StatusCreated, resp.StatusCode)

	var created dto.Listing
	req.NoError(json.NewDecoder(resp.Body).Decode(&created))
	req.NotZero(created.ID)

	var catalog []dto.Listing
	status := getJSON(t, server, "/properties?city=Dnipro", "", &catalog)
	req.Equal(http.StatusOK, status)
	req.Len(catalog, 1)

	var fetched dto.Listing
	status = getJSON(t, server, fmt.Sprintf("/properties/%d", created.ID), "", &fetched)
	req.Equal(http.StatusOK, status)
	req.Equal("Bright one-bedroom", fetched.Title)

	status = getJSON(t, server, "/properties/99999", "", nil)
	req.Equal(http.StatusNotFound, status)

	// Anonymous creation is rejected.
	anon := postJSON(t, server, "/properties", "", map[string]any{
		"title": "x", "address": "y", "price": 1,
	})
	anon.Body.Close()
	req.Equal(http.StatusUnauthorized, anon.StatusCode)
}

func TestServer_ChatFlow(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)
	owner := registerAccount(t, server, "landlord@example.com")
	tenant := registerAccount(t, server, "tenant@example.com")

	resp := postJSON(t, server, "/properties", owner.token, map[string]any{
		"title": "Loft", "address": "1 Port St", "price": 900, "city": "Odesa",
	})
	var listing dto.Listing
	req.NoError(json.NewDecoder(resp.Body).Decode(&listing))
	resp.Body.Close()

	start := postJSON(t, server, fmt.Sprintf("/chat/start/%d", listing.ID), tenant.token, nil)
	req.Equal(http.StatusOK, start.StatusCode)
	var conv dto.Conversation
	req.NoError(json.NewDecoder(start.Body).Decode(&conv))
	start.Body.Close()
	req.EqualValues(listing.ID, conv.PropertyID)

	// Idempotent: same thread on repeat.
	again := postJSON(t, server, fmt.Sprintf("/chat/start/%d", listing.ID), tenant.token, nil)
	var conv2 dto.Conversation
	req.NoError(json.NewDecoder(again.Body).Decode(&conv2))
	again.Body.Close()
	req.Equal(conv.ID, conv2.ID)

	// The owner cannot open a thread on their own listing.
	self := postJSON(t, server, fmt.Sprintf("/chat/start/%d", listing.ID), owner.token, nil)
	self.Body.Close()
	req.Equal(http.StatusBadRequest, self.StatusCode)

	var history dto.MessageList
	status := getJSON(t, server, fmt.Sprintf("/chat/%d/messages", conv.ID), tenant.token, &history)
	req.Equal(http.StatusOK, status)
	req.Empty(history.Items)

	// A third party cannot read the thread.
	stranger := registerAccount(t, server, "stranger@example.com")
	status = getJSON(t, server, fmt.Sprintf("/chat/%d/messages", conv.ID), stranger.token, nil)
	req.Equal(http.StatusForbidden, status)

	var inbox dto.ConversationList
	status = getJSON(t, server, "/chat/conversations", owner.token, &inbox)
	req.Equal(http.StatusOK, status)
	req.Len(inbox.Conversations, 1)
	req.Equal("Loft", inbox.Conversations[0].PropertyTitle)
}

func TestServer_PlansAndStats(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)
	account := registerAccount(t, server, "plans@example.com")

	var status dto.PlanStatus
	code := getJSON(t, server, "/plans/me", account.token, &status)
	req.Equal(http.StatusOK, code)
	req.Equal("free", status.Plan.PlanType)
	req.True(status.CanCreateMore)

	resp := postJSON(t, server, "/plans/upgrade", account.token, map[string]string{"planType": "premium"})
	defer resp.Body.Close()
	req.Equal(http.StatusOK, resp.StatusCode)
	var upgraded dto.Plan
	req.NoError(json.NewDecoder(resp.Body).Decode(&upgraded))
	req.Equal("premium", upgraded.PlanType)
	req.Equal(10, upgraded.MaxListings)

	var stats dto.Stats
	code = getJSON(t, server, "/stats", "", &stats)
	req.Equal(http.StatusOK, code)
	req.EqualValues(1, stats.Users)
}

func TestServer_PromoteProperty(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)
	owner := registerAccount(t, server, "owner@example.com")
	other := registerAccount(t, server, "other@example.com")

	resp := postJSON(t, server, "/properties", owner.token, map[string]any{
		"title":   "Studio near the river",
		"address": "12 Naberezhna St",
		"price":   450,
	})
	defer resp.Body.Close()
	req.Equal(http.StatusCreated, resp.StatusCode)
	var created dto.Listing
	req.NoError(json.NewDecoder(resp.Body).Decode(&created))
	req.False(created.IsPromoted)

	promotePath := fmt.Sprintf("/properties/%d/promote", created.ID)

	promoted := postJSON(t, server, promotePath, owner.token, nil)
	defer promoted.Body.Close()
	req.Equal(http.StatusOK, promoted.StatusCode)
	var result dto.PromotionResult
	req.NoError(json.NewDecoder(promoted.Body).Decode(&result))
	req.WithinDuration(time.Now().Add(7*24*time.Hour), result.ExpiresAt, time.Minute)

	var fetched dto.Listing
	status := getJSON(t, server, fmt.Sprintf("/properties/%d", created.ID), "", &fetched)
	req.Equal(http.StatusOK, status)
	req.True(fetched.IsPromoted)
	req.NotNil(fetched.PromotionExpiresAt)

	// A second promotion while one is active conflicts.
	again := postJSON(t, server, promotePath, owner.token, nil)
	again.Body.Close()
	req.Equal(http.StatusConflict, again.StatusCode)

	// Someone else's listing looks like it does not exist.
	stranger := postJSON(t, server, promotePath, other.token, nil)
	stranger.Body.Close()
	req.Equal(http.StatusNotFound, stranger.StatusCode)

	anon := postJSON(t, server, promotePath, "", nil)
	anon.Body.Close()
	req.Equal(http.StatusUnauthorized, anon.StatusCode)
}
