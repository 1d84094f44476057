package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"rentline/internal/app/dto"
)

type RegisterParams struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone,omitempty"`
}

type LoginParams struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates an account. On success the session store receives the new
// credential.
func (c *Client) Register(ctx context.Context, params RegisterParams) (*dto.AuthResponse, error) {
	var resp dto.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", params, &resp); err != nil {
		return nil, err
	}
	c.session.SetToken(resp.AccessToken)
	return &resp, nil
}

func (c *Client) Login(ctx context.Context, params LoginParams) (*dto.AuthResponse, error) {
	var resp dto.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", params, &resp); err != nil {
		return nil, err
	}
	c.session.SetToken(resp.AccessToken)
	return &resp, nil
}

// Logout invalidates the server session and drops the local credential even
// when the network call fails.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
	c.session.Clear()
	return err
}

func (c *Client) Me(ctx context.Context) (*dto.User, error) {
	var resp dto.User
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) UpdateRole(ctx context.Context, role string) (*dto.User, error) {
	var resp dto.User
	body := map[string]string{"role": role}
	if err := c.do(ctx, http.MethodPut, "/auth/role", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

type CreatePropertyParams struct {
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	Price        float64  `json:"price"`
	PriceType    string   `json:"priceType"`
	City         string   `json:"city"`
	Address      string   `json:"address"`
	Lat          float64  `json:"latitude"`
	Lng          float64  `json:"longitude"`
	Rooms        int      `json:"rooms"`
	Area         int      `json:"area"`
	Amenities    []string `json:"amenities"`
	PropertyType string   `json:"propertyType"`
	Phone        string   `json:"phone"`
	Email        string   `json:"email,omitempty"`
	IsUrgent     bool     `json:"isUrgent"`
	Visibility   string   `json:"visibility"`
}

func (c *Client) CreateProperty(ctx context.Context, params CreatePropertyParams) (*dto.Listing, error) {
	var resp dto.Listing
	if err := c.do(ctx, http.MethodPost, "/properties", params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ListProperties(ctx context.Context, city string) ([]dto.Listing, error) {
	path := "/properties"
	if city != "" {
		path += "?city=" + url.QueryEscape(city)
	}
	var resp []dto.Listing
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) GetProperty(ctx context.Context, id int64) (*dto.Listing, error) {
	var resp dto.Listing
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/properties/%d", id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PromoteProperty buys a week of promotion for one of the caller's
// properties. The backend rejects stacking with a 409 while a promotion is
// active.
func (c *Client) PromoteProperty(ctx context.Context, id int64) (*dto.PromotionResult, error) {
	var resp dto.PromotionResult
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/properties/%d/promote", id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StartConversation creates or fetches the thread between the caller and the
// property owner. The backend guarantees idempotence per (caller, property).
func (c *Client) StartConversation(ctx context.Context, propertyID int64) (*dto.Conversation, error) {
	var resp dto.Conversation
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/chat/start/%d", propertyID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ListMessages(ctx context.Context, conversationID int64) ([]dto.Message, error) {
	var resp dto.MessageList
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/chat/%d/messages", conversationID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (c *Client) ListConversations(ctx context.Context) ([]dto.ConversationSummary, error) {
	var resp dto.ConversationList
	if err := c.do(ctx, http.MethodGet, "/chat/conversations", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Conversations, nil
}

func (c *Client) MyPlan(ctx context.Context) (*dto.PlanStatus, error) {
	var resp dto.PlanStatus
	if err := c.do(ctx, http.MethodGet, "/plans/me", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) UpgradePlan(ctx context.Context, planType string) (*dto.Plan, error) {
	var resp dto.Plan
	body := map[string]string{"planType": planType}
	if err := c.do(ctx, http.MethodPost, "/plans/upgrade", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Stats(ctx context.Context) (*dto.Stats, error) {
	var resp dto.Stats
	if err := c.do(ctx, http.MethodGet, "/stats", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
