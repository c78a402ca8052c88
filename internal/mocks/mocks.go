package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"gym-chat-service/internal/models"
	"gym-chat-service/internal/provider"
	"gym-chat-service/internal/repositories"
)

type RoomRepositoryMock struct {
	mock.Mock
}

func (m *RoomRepositoryMock) GetRoom(ctx context.Context, roomID int) (models.Room, error) {
	args := m.Called(ctx, roomID)
	var room models.Room
	if val := args.Get(0); val != nil {
		room = val.(models.Room)
	}
	return room, args.Error(1)
}

func (m *RoomRepositoryMock) FindRoomByChannelID(ctx context.Context, channelID string) (models.Room, error) {
	args := m.Called(ctx, channelID)
	var room models.Room
	if val := args.Get(0); val != nil {
		room = val.(models.Room)
	}
	return room, args.Error(1)
}

func (m *RoomRepositoryMock) FindRoomByEventID(ctx context.Context, eventID int) (models.Room, error) {
	args := m.Called(ctx, eventID)
	return args.Get(0).(models.Room), args.Error(1)
}

func (m *RoomRepositoryMock) CreateRoomWithMembers(ctx context.Context, room models.Room, memberIDs []int) (models.Room, error) {
	args := m.Called(ctx, room, memberIDs)
	var created models.Room
	if val := args.Get(0); val != nil {
		created = val.(models.Room)
	}
	return created, args.Error(1)
}

func (m *RoomRepositoryMock) CloseRoom(ctx context.Context, roomID int) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

func (m *RoomRepositoryMock) ListMembers(ctx context.Context, roomID int) ([]models.Membership, error) {
	args := m.Called(ctx, roomID)
	var members []models.Membership
	if val := args.Get(0); val != nil {
		members = val.([]models.Membership)
	}
	return members, args.Error(1)
}

func (m *RoomRepositoryMock) CountMembers(ctx context.Context, roomID int) (int, error) {
	args := m.Called(ctx, roomID)
	return args.Int(0), args.Error(1)
}

func (m *RoomRepositoryMock) IsMember(ctx context.Context, roomID int, userID int) (bool, error) {
	args := m.Called(ctx, roomID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *RoomRepositoryMock) AddMembers(ctx context.Context, roomID int, userIDs []int) error {
	args := m.Called(ctx, roomID, userIDs)
	return args.Error(0)
}

func (m *RoomRepositoryMock) RemoveMemberClosingEmpty(ctx context.Context, roomID int, userID int) (int, bool, error) {
	args := m.Called(ctx, roomID, userID)
	return args.Int(0), args.Bool(1), args.Error(2)
}

func (m *RoomRepositoryMock) UpsertHiddenMarker(ctx context.Context, userID int, roomID int) (bool, error) {
	args := m.Called(ctx, userID, roomID)
	return args.Bool(0), args.Error(1)
}

func (m *RoomRepositoryMock) RemoveHiddenMarker(ctx context.Context, userID int, roomID int) (bool, error) {
	args := m.Called(ctx, userID, roomID)
	return args.Bool(0), args.Error(1)
}

func (m *RoomRepositoryMock) ListRoomsForUser(ctx context.Context, userID int, tenantID int, includeHidden bool) ([]models.RoomSummary, error) {
	args := m.Called(ctx, userID, tenantID, includeHidden)
	var rooms []models.RoomSummary
	if val := args.Get(0); val != nil {
		rooms = val.([]models.RoomSummary)
	}
	return rooms, args.Error(1)
}

type TenantRepositoryMock struct {
	mock.Mock
}

func (m *TenantRepositoryMock) SharedTenants(ctx context.Context, userA int, userB int) ([]int, error) {
	args := m.Called(ctx, userA, userB)
	var tenants []int
	if val := args.Get(0); val != nil {
		tenants = val.([]int)
	}
	return tenants, args.Error(1)
}

func (m *TenantRepositoryMock) IsActiveInTenant(ctx context.Context, userID int, tenantID int) (bool, error) {
	args := m.Called(ctx, userID, tenantID)
	return args.Bool(0), args.Error(1)
}

func (m *TenantRepositoryMock) RoleInTenant(ctx context.Context, userID int, tenantID int) (string, error) {
	args := m.Called(ctx, userID, tenantID)
	return args.String(0), args.Error(1)
}

func (m *TenantRepositoryMock) EventTenant(ctx context.Context, eventID int) (int, error) {
	args := m.Called(ctx, eventID)
	return args.Int(0), args.Error(1)
}

type GatewayMock struct {
	mock.Mock
}

func (m *GatewayMock) EnsureUser(ctx context.Context, externalID, displayName string) error {
	args := m.Called(ctx, externalID, displayName)
	return args.Error(0)
}

func (m *GatewayMock) CreateChannel(ctx context.Context, kind, channelID, creatorExternalID string, memberExternalIDs []string) (provider.ChannelDescriptor, error) {
	args := m.Called(ctx, kind, channelID, creatorExternalID, memberExternalIDs)
	var desc provider.ChannelDescriptor
	if val := args.Get(0); val != nil {
		desc = val.(provider.ChannelDescriptor)
	}
	return desc, args.Error(1)
}

func (m *GatewayMock) QueryChannel(ctx context.Context, kind, channelID, asExternalID string) (provider.ChannelDescriptor, []provider.Message, error) {
	args := m.Called(ctx, kind, channelID, asExternalID)
	var desc provider.ChannelDescriptor
	if val := args.Get(0); val != nil {
		desc = val.(provider.ChannelDescriptor)
	}
	var msgs []provider.Message
	if val := args.Get(1); val != nil {
		msgs = val.([]provider.Message)
	}
	return desc, msgs, args.Error(2)
}

func (m *GatewayMock) AddMembers(ctx context.Context, kind, channelID string, externalIDs []string) error {
	args := m.Called(ctx, kind, channelID, externalIDs)
	return args.Error(0)
}

func (m *GatewayMock) RemoveMember(ctx context.Context, kind, channelID, externalID string) error {
	args := m.Called(ctx, kind, channelID, externalID)
	return args.Error(0)
}

func (m *GatewayMock) HideForUser(ctx context.Context, kind, channelID, externalID string, clearHistory bool) error {
	args := m.Called(ctx, kind, channelID, externalID, clearHistory)
	return args.Error(0)
}

func (m *GatewayMock) ShowForUser(ctx context.Context, kind, channelID, externalID string) error {
	args := m.Called(ctx, kind, channelID, externalID)
	return args.Error(0)
}

func (m *GatewayMock) DeleteMessage(ctx context.Context, kind, channelID, messageID string, soft bool) error {
	args := m.Called(ctx, kind, channelID, messageID, soft)
	return args.Error(0)
}

func (m *GatewayMock) DeleteChannel(ctx context.Context, kind, channelID string) error {
	args := m.Called(ctx, kind, channelID)
	return args.Error(0)
}

func (m *GatewayMock) IssueToken(ctx context.Context, externalID string) (provider.Token, error) {
	args := m.Called(ctx, externalID)
	var token provider.Token
	if val := args.Get(0); val != nil {
		token = val.(provider.Token)
	}
	return token, args.Error(1)
}

var _ repositories.RoomRepository = (*RoomRepositoryMock)(nil)
var _ repositories.TenantRepository = (*TenantRepositoryMock)(nil)
var _ provider.Gateway = (*GatewayMock)(nil)
