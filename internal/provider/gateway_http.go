package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"gym-chat-service/internal/observability"
)

// HTTPGateway talks to the messaging provider's REST API. Each call carries its own
// timeout; retrying is the caller's job, through a RetryPolicy.
type HTTPGateway struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
}

// NewHTTPGateway builds a gateway against the given base URL.
func NewHTTPGateway(baseURL, apiKey string, timeout time.Duration) *HTTPGateway {
	return &HTTPGateway{
		baseURL:    baseURL,
		apiKey:     apiKey,
		timeout:    timeout,
		httpClient: &http.Client{},
	}
}

var _ Gateway = (*HTTPGateway)(nil)

// EnsureUser upserts the user on the provider side.
func (g *HTTPGateway) EnsureUser(ctx context.Context, externalID, displayName string) error {
	body := map[string]string{"id": externalID, "name": displayName}
	return g.do(ctx, http.MethodPut, "/users/"+url.PathEscape(externalID), body, nil)
}

// CreateChannel materializes a channel. A 409 from the provider becomes
// ErrChannelExists so callers can adopt the existing channel instead.
func (g *HTTPGateway) CreateChannel(ctx context.Context, kind, channelID, creatorExternalID string, memberExternalIDs []string) (ChannelDescriptor, error) {
	body := map[string]any{
		"kind":       kind,
		"channel_id": channelID,
		"created_by": creatorExternalID,
		"members":    memberExternalIDs,
	}
	var desc ChannelDescriptor
	err := g.do(ctx, http.MethodPost, "/channels", body, &desc)
	return desc, err
}

// QueryChannel reads channel state. Message fetch is bounded to zero when the
// caller only needs membership.
func (g *HTTPGateway) QueryChannel(ctx context.Context, kind, channelID, asExternalID string) (ChannelDescriptor, []Message, error) {
	var resp struct {
		Channel  ChannelDescriptor `json:"channel"`
		Messages []Message         `json:"messages"`
	}
	path := fmt.Sprintf("/channels/%s/%s?as=%s", url.PathEscape(kind), url.PathEscape(channelID), url.QueryEscape(asExternalID))
	err := g.do(ctx, http.MethodGet, path, nil, &resp)
	return resp.Channel, resp.Messages, err
}

// AddMembers adds users to a channel.
func (g *HTTPGateway) AddMembers(ctx context.Context, kind, channelID string, externalIDs []string) error {
	body := map[string]any{"members": externalIDs}
	return g.do(ctx, http.MethodPost, g.channelPath(kind, channelID)+"/members", body, nil)
}

// RemoveMember removes one user from a channel.
func (g *HTTPGateway) RemoveMember(ctx context.Context, kind, channelID, externalID string) error {
	return g.do(ctx, http.MethodDelete, g.channelPath(kind, channelID)+"/members/"+url.PathEscape(externalID), nil, nil)
}

// HideForUser hides the channel for one user, optionally clearing their history.
func (g *HTTPGateway) HideForUser(ctx context.Context, kind, channelID, externalID string, clearHistory bool) error {
	body := map[string]any{"user": externalID, "clear_history": clearHistory}
	return g.do(ctx, http.MethodPost, g.channelPath(kind, channelID)+"/hide", body, nil)
}

// ShowForUser makes the channel visible again for one user.
func (g *HTTPGateway) ShowForUser(ctx context.Context, kind, channelID, externalID string) error {
	body := map[string]any{"user": externalID}
	return g.do(ctx, http.MethodPost, g.channelPath(kind, channelID)+"/show", body, nil)
}

// DeleteMessage deletes a message, soft by default.
func (g *HTTPGateway) DeleteMessage(ctx context.Context, kind, channelID, messageID string, soft bool) error {
	path := fmt.Sprintf("%s/messages/%s?soft=%t", g.channelPath(kind, channelID), url.PathEscape(messageID), soft)
	return g.do(ctx, http.MethodDelete, path, nil, nil)
}

// DeleteChannel removes the channel on the provider side.
func (g *HTTPGateway) DeleteChannel(ctx context.Context, kind, channelID string) error {
	return g.do(ctx, http.MethodDelete, g.channelPath(kind, channelID), nil, nil)
}

// IssueToken requests a short-lived access token for the user.
func (g *HTTPGateway) IssueToken(ctx context.Context, externalID string) (Token, error) {
	var token Token
	err := g.do(ctx, http.MethodPost, "/tokens", map[string]string{"user": externalID}, &token)
	return token, err
}

func (g *HTTPGateway) channelPath(kind, channelID string) string {
	return fmt.Sprintf("/channels/%s/%s", url.PathEscape(kind), url.PathEscape(channelID))
}

func (g *HTTPGateway) do(ctx context.Context, method, path string, body any, out any) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &Error{Message: fmt.Sprintf("encode request: %v", err)}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return &Error{Message: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := g.httpClient.Do(req)
	if err != nil {
		observability.ObserveProviderCall(method+" "+path, "network_error", time.Since(start))
		// Timeouts and connection failures are worth retrying.
		return &Error{Transient: true, Message: err.Error()}
	}
	defer resp.Body.Close()
	observability.ObserveProviderCall(method+" "+path, fmt.Sprintf("%d", resp.StatusCode), time.Since(start))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &Error{Message: fmt.Sprintf("decode response: %v", err)}
		}
		return nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	switch {
	case resp.StatusCode == http.StatusConflict:
		return ErrChannelExists
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return &Error{Transient: true, Message: fmt.Sprintf("status %d: %s", resp.StatusCode, raw)}
	default:
		return &Error{Message: fmt.Sprintf("status %d: %s", resp.StatusCode, raw)}
	}
}
