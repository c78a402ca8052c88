package service

import (
	"context"
	"log"

	"gym-chat-service/internal/identity"
	"gym-chat-service/internal/models"
	"gym-chat-service/internal/observability"
	"gym-chat-service/internal/provider"
)

// IssueUserToken returns a provider access token for the caller. Fresh tokens are
// cached for the provider's token lifetime; when the provider is unreachable a
// stale cached token is better than none, since the provider keeps honoring tokens
// slightly past expiry.
func (s *ChatLifecycle) IssueUserToken(ctx context.Context, userID, tenant int) (provider.Token, error) {
	active, err := s.tenants.IsActiveInTenant(ctx, userID, tenant)
	if err != nil {
		return provider.Token{}, err
	}
	if !active {
		return provider.Token{}, models.ErrNotAuthorized
	}

	ext := identity.ExternalID(userID, tenant)
	key := tokenCachePrefix + ext

	if val, ok := s.tokens.Get(key); ok {
		observability.IncCacheHit("token")
		if token, ok := val.(provider.Token); ok {
			return token, nil
		}
	}
	observability.IncCacheMiss("token")

	var token provider.Token
	err = s.retry.Do(ctx, "issue_token", func(ctx context.Context) error {
		issued, err := s.gateway.IssueToken(ctx, ext)
		token = issued
		return err
	})
	if err == nil {
		s.tokens.Put(key, token)
		return token, nil
	}

	if val, ok := s.tokens.GetStale(key); ok {
		if stale, ok := val.(provider.Token); ok {
			log.Printf("token issuance degraded, serving stale token external_id=%s: %v", ext, err)
			return stale, nil
		}
	}
	return provider.Token{}, providerFailure(err)
}
