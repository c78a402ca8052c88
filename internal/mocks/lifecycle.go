package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"gym-chat-service/internal/models"
	"gym-chat-service/internal/provider"
)

// LifecycleMock mocks the room lifecycle service consumed by the HTTP handlers.
type LifecycleMock struct {
	mock.Mock
}

func (m *LifecycleMock) GetOrCreateDirectChat(ctx context.Context, userA, userB, requestingTenant int) (models.RoomHandle, error) {
	args := m.Called(ctx, userA, userB, requestingTenant)
	return args.Get(0).(models.RoomHandle), args.Error(1)
}

func (m *LifecycleMock) GetOrCreateEventChat(ctx context.Context, eventID, creatorUser int) (models.RoomHandle, error) {
	args := m.Called(ctx, eventID, creatorUser)
	return args.Get(0).(models.RoomHandle), args.Error(1)
}

func (m *LifecycleMock) AddMembers(ctx context.Context, roomID, actorUser, tenant int, userIDs []int) (models.RoomHandle, error) {
	args := m.Called(ctx, roomID, actorUser, tenant, userIDs)
	return args.Get(0).(models.RoomHandle), args.Error(1)
}

func (m *LifecycleMock) HideChannelForUser(ctx context.Context, roomID, userID, tenant int) (models.HideResult, error) {
	args := m.Called(ctx, roomID, userID, tenant)
	return args.Get(0).(models.HideResult), args.Error(1)
}

func (m *LifecycleMock) ShowChannelForUser(ctx context.Context, roomID, userID, tenant int) (models.HideResult, error) {
	args := m.Called(ctx, roomID, userID, tenant)
	return args.Get(0).(models.HideResult), args.Error(1)
}

func (m *LifecycleMock) LeaveGroup(ctx context.Context, roomID, userID, tenant int, autoHide bool) (models.LeaveResult, error) {
	args := m.Called(ctx, roomID, userID, tenant, autoHide)
	return args.Get(0).(models.LeaveResult), args.Error(1)
}

func (m *LifecycleMock) DeleteGroup(ctx context.Context, roomID, userID, tenant int, hardDelete bool) (models.DeleteGroupResult, error) {
	args := m.Called(ctx, roomID, userID, tenant, hardDelete)
	return args.Get(0).(models.DeleteGroupResult), args.Error(1)
}

func (m *LifecycleMock) DeleteConversationForUser(ctx context.Context, roomID, userID, tenant int) (models.DeleteConversationResult, error) {
	args := m.Called(ctx, roomID, userID, tenant)
	return args.Get(0).(models.DeleteConversationResult), args.Error(1)
}

func (m *LifecycleMock) ListRooms(ctx context.Context, userID, tenant int, includeHidden bool) ([]models.RoomSummary, error) {
	args := m.Called(ctx, userID, tenant, includeHidden)
	var rooms []models.RoomSummary
	if v := args.Get(0); v != nil {
		rooms = v.([]models.RoomSummary)
	}
	return rooms, args.Error(1)
}

func (m *LifecycleMock) IssueUserToken(ctx context.Context, userID, tenant int) (provider.Token, error) {
	args := m.Called(ctx, userID, tenant)
	return args.Get(0).(provider.Token), args.Error(1)
}
