package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gym-chat-service/internal/models"
	"gym-chat-service/internal/provider"
)

func TestIssueUserToken(t *testing.T) {
	f := newFixture(t)
	token := provider.Token{Value: "tok-1", ExpiresAt: f.clock.Now().Add(time.Hour)}

	f.tenants.On("IsActiveInTenant", mock.Anything, 10, 2).Return(true, nil).Once()
	f.gateway.On("IssueToken", mock.Anything, "user_10_t2").Return(token, nil).Once()

	got, err := f.svc.IssueUserToken(context.Background(), 10, 2)

	require.NoError(t, err)
	assert.Equal(t, "tok-1", got.Value)
	f.assertExpectations(t)
}

func TestIssueUserTokenCached(t *testing.T) {
	f := newFixture(t)
	token := provider.Token{Value: "tok-1"}

	f.tenants.On("IsActiveInTenant", mock.Anything, 10, 2).Return(true, nil).Twice()
	f.gateway.On("IssueToken", mock.Anything, "user_10_t2").Return(token, nil).Once()

	_, err := f.svc.IssueUserToken(context.Background(), 10, 2)
	require.NoError(t, err)

	// Within the token TTL the provider is not contacted again.
	got, err := f.svc.IssueUserToken(context.Background(), 10, 2)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", got.Value)
	f.assertExpectations(t)
}

func TestIssueUserTokenRefreshesAfterExpiry(t *testing.T) {
	f := newFixture(t)

	f.tenants.On("IsActiveInTenant", mock.Anything, 10, 2).Return(true, nil).Twice()
	f.gateway.On("IssueToken", mock.Anything, "user_10_t2").
		Return(provider.Token{Value: "tok-1"}, nil).Once()
	f.gateway.On("IssueToken", mock.Anything, "user_10_t2").
		Return(provider.Token{Value: "tok-2"}, nil).Once()

	_, err := f.svc.IssueUserToken(context.Background(), 10, 2)
	require.NoError(t, err)

	f.clock.Advance(5*time.Minute + time.Second)

	got, err := f.svc.IssueUserToken(context.Background(), 10, 2)
	require.NoError(t, err)
	assert.Equal(t, "tok-2", got.Value)
	f.assertExpectations(t)
}

func TestIssueUserTokenStaleFallback(t *testing.T) {
	f := newFixture(t)

	f.tenants.On("IsActiveInTenant", mock.Anything, 10, 2).Return(true, nil).Twice()
	f.gateway.On("IssueToken", mock.Anything, "user_10_t2").
		Return(provider.Token{Value: "tok-1"}, nil).Once()

	_, err := f.svc.IssueUserToken(context.Background(), 10, 2)
	require.NoError(t, err)

	// Token expires, then the provider goes down. The stale token is served
	// rather than failing the caller.
	f.clock.Advance(6 * time.Minute)
	f.gateway.On("IssueToken", mock.Anything, "user_10_t2").
		Return(provider.Token{}, &provider.Error{Transient: true, Message: "timeout"})

	got, err := f.svc.IssueUserToken(context.Background(), 10, 2)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", got.Value)
}

func TestIssueUserTokenProviderUnavailable(t *testing.T) {
	f := newFixture(t)

	f.tenants.On("IsActiveInTenant", mock.Anything, 10, 2).Return(true, nil).Once()
	f.gateway.On("IssueToken", mock.Anything, "user_10_t2").
		Return(provider.Token{}, &provider.Error{Transient: true, Message: "timeout"})

	_, err := f.svc.IssueUserToken(context.Background(), 10, 2)
	require.ErrorIs(t, err, models.ErrProviderUnavailable)
}

func TestIssueUserTokenRequiresActiveTenant(t *testing.T) {
	f := newFixture(t)

	f.tenants.On("IsActiveInTenant", mock.Anything, 10, 2).Return(false, nil).Once()

	_, err := f.svc.IssueUserToken(context.Background(), 10, 2)
	require.ErrorIs(t, err, models.ErrNotAuthorized)
	f.gateway.AssertNotCalled(t, "IssueToken", mock.Anything, mock.Anything)
}
