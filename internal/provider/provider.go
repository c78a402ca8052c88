// Package provider wraps the external messaging provider. The local store stays
// the source of truth; callers decide per operation whether a provider failure is
// fatal or advisory.
package provider

import (
	"context"
	"fmt"
	"time"
)

// ChannelDescriptor is the provider's view of a channel.
type ChannelDescriptor struct {
	Kind      string   `json:"kind"`
	ChannelID string   `json:"channel_id"`
	CreatedBy string   `json:"created_by"`
	Members   []string `json:"members"`
}

// Message is a provider-side message reference, fetched only when the caller needs
// to delete history.
type Message struct {
	ID     string `json:"id"`
	Sender string `json:"sender"`
}

// Token is a short-lived provider access token for one external user.
type Token struct {
	Value     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Gateway is the full surface the chat lifecycle consumes. Every method can fail
// with *Error; only transient errors are worth retrying.
type Gateway interface {
	EnsureUser(ctx context.Context, externalID, displayName string) error
	CreateChannel(ctx context.Context, kind, channelID, creatorExternalID string, memberExternalIDs []string) (ChannelDescriptor, error)
	QueryChannel(ctx context.Context, kind, channelID, asExternalID string) (ChannelDescriptor, []Message, error)
	AddMembers(ctx context.Context, kind, channelID string, externalIDs []string) error
	RemoveMember(ctx context.Context, kind, channelID, externalID string) error
	HideForUser(ctx context.Context, kind, channelID, externalID string, clearHistory bool) error
	ShowForUser(ctx context.Context, kind, channelID, externalID string) error
	DeleteMessage(ctx context.Context, kind, channelID, messageID string, soft bool) error
	DeleteChannel(ctx context.Context, kind, channelID string) error
	IssueToken(ctx context.Context, externalID string) (Token, error)
}

// Error is the single error shape surfaced by every gateway operation.
type Error struct {
	Transient bool
	Message   string
}

func (e *Error) Error() string {
	if e.Transient {
		return fmt.Sprintf("provider (transient): %s", e.Message)
	}
	return fmt.Sprintf("provider: %s", e.Message)
}

// ErrChannelExists is returned by CreateChannel when the channel id is already
// taken. Callers treat it as the normal convergence path under concurrency.
var ErrChannelExists = &Error{Transient: false, Message: "channel already exists"}
