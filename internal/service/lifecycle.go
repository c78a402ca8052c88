// Package service implements the chat room lifecycle: channel identity resolution,
// the cross-tenant visibility rule, the membership/visibility state machine, and the
// retry discipline around the messaging provider. It is the only component allowed
// to talk to the provider gateway and the room store together.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"go.opentelemetry.io/otel"

	"gym-chat-service/internal/cache"
	"gym-chat-service/internal/identity"
	"gym-chat-service/internal/models"
	"gym-chat-service/internal/observability"
	"gym-chat-service/internal/provider"
	"gym-chat-service/internal/rabbitmq"
	"gym-chat-service/internal/repositories"
)

// ChannelKind is the provider-defined namespace all gym channels live in.
const ChannelKind = "messaging"

const (
	tokenCachePrefix   = "token:"
	channelCachePrefix = "channel:"
)

var tracer = otel.Tracer("gym-chat-service/lifecycle")

// ChatLifecycle orchestrates all user-facing room operations.
type ChatLifecycle struct {
	rooms    repositories.RoomRepository
	tenants  repositories.TenantRepository
	gateway  provider.Gateway
	retry    provider.RetryPolicy
	tokens   *cache.TTLCache
	channels *cache.TTLCache
	events   rabbitmq.Publisher
}

// NewChatLifecycle builds the lifecycle service. Both caches are owned by the
// caller; the service only reads and writes entries.
func NewChatLifecycle(
	rooms repositories.RoomRepository,
	tenants repositories.TenantRepository,
	gateway provider.Gateway,
	retry provider.RetryPolicy,
	tokens *cache.TTLCache,
	channels *cache.TTLCache,
	events rabbitmq.Publisher,
) *ChatLifecycle {
	return &ChatLifecycle{
		rooms:    rooms,
		tenants:  tenants,
		gateway:  gateway,
		retry:    retry,
		tokens:   tokens,
		channels: channels,
		events:   events,
	}
}

// GetOrCreateDirectChat resolves the canonical direct room for two users. Any
// shared tenant may issue the request; the room always belongs to the smallest
// shared tenant so concurrent requests from different tenants converge on one row.
func (s *ChatLifecycle) GetOrCreateDirectChat(ctx context.Context, userA, userB, requestingTenant int) (models.RoomHandle, error) {
	ctx, span := tracer.Start(ctx, "lifecycle.getOrCreateDirectChat")
	defer span.End()

	if userA == userB {
		return models.RoomHandle{}, models.ErrInvalidOperation
	}

	shared, err := s.tenants.SharedTenants(ctx, userA, userB)
	if err != nil {
		return models.RoomHandle{}, err
	}
	if len(shared) == 0 || !contains(shared, requestingTenant) {
		return models.RoomHandle{}, models.ErrNoSharedTenant
	}
	ownerTenant := shared[0]

	extA := identity.ExternalID(userA, ownerTenant)
	extB := identity.ExternalID(userB, ownerTenant)
	channelID := identity.DirectChannelID(extA, extB)

	if handle, ok := s.cachedHandle(channelID); ok {
		return handle, nil
	}

	room, err := s.rooms.FindRoomByChannelID(ctx, channelID)
	if err == nil {
		return s.handleFromRoom(ctx, room, false)
	}
	if !errors.Is(err, repositories.ErrRoomNotFound) {
		return models.RoomHandle{}, err
	}

	s.ensureUser(ctx, extA)
	s.ensureUser(ctx, extB)

	if err := s.createChannel(ctx, channelID, extA, []string{extA, extB}); err != nil {
		return models.RoomHandle{}, err
	}

	room, err = s.rooms.CreateRoomWithMembers(ctx, models.Room{
		ChannelID: channelID,
		Kind:      ChannelKind,
		TenantID:  ownerTenant,
		IsDirect:  true,
		CreatedBy: userA,
	}, []int{userA, userB})
	if errors.Is(err, repositories.ErrChannelConflict) {
		// A concurrent request won the insert; adopt its row.
		room, err = s.rooms.FindRoomByChannelID(ctx, channelID)
		if err != nil {
			return models.RoomHandle{}, err
		}
		return s.handleFromRoom(ctx, room, false)
	}
	if err != nil {
		return models.RoomHandle{}, err
	}

	s.publishEvent(ctx, "chat.room.created", room)
	return s.handleFromRoom(ctx, room, true)
}

// GetOrCreateEventChat resolves the canonical room for an event. The room belongs
// to the event's tenant and starts with only the creator; further members join
// through AddMembers.
func (s *ChatLifecycle) GetOrCreateEventChat(ctx context.Context, eventID, creatorUser int) (models.RoomHandle, error) {
	ctx, span := tracer.Start(ctx, "lifecycle.getOrCreateEventChat")
	defer span.End()

	eventTenant, err := s.tenants.EventTenant(ctx, eventID)
	if errors.Is(err, repositories.ErrEventNotFound) {
		return models.RoomHandle{}, models.ErrNotFound
	}
	if err != nil {
		return models.RoomHandle{}, err
	}

	active, err := s.tenants.IsActiveInTenant(ctx, creatorUser, eventTenant)
	if err != nil {
		return models.RoomHandle{}, err
	}
	if !active {
		return models.RoomHandle{}, models.ErrNotAuthorized
	}

	// The channel id embeds the hash of whoever created the room, so the lookup
	// has to go by event id: any member may ask and must land on the same room.
	room, err := s.rooms.FindRoomByEventID(ctx, eventID)
	if err == nil {
		return s.handleFromRoom(ctx, room, false)
	}
	if !errors.Is(err, repositories.ErrRoomNotFound) {
		return models.RoomHandle{}, err
	}

	creatorExt := identity.ExternalID(creatorUser, eventTenant)
	channelID := identity.EventChannelID(eventID, creatorExt)

	s.ensureUser(ctx, creatorExt)

	if err := s.createChannel(ctx, channelID, creatorExt, []string{creatorExt}); err != nil {
		return models.RoomHandle{}, err
	}

	room, err = s.rooms.CreateRoomWithMembers(ctx, models.Room{
		ChannelID: channelID,
		Kind:      ChannelKind,
		TenantID:  eventTenant,
		EventID:   eventRef(eventID),
		CreatedBy: creatorUser,
	}, []int{creatorUser})
	if errors.Is(err, repositories.ErrChannelConflict) {
		// A concurrent creator won; its row is the one indexed by event id.
		room, err = s.rooms.FindRoomByEventID(ctx, eventID)
		if err != nil {
			return models.RoomHandle{}, err
		}
		return s.handleFromRoom(ctx, room, false)
	}
	if err != nil {
		return models.RoomHandle{}, err
	}

	s.publishEvent(ctx, "chat.room.created", room)
	return s.handleFromRoom(ctx, room, true)
}

// AddMembers adds users to a non-direct room. The provider call is a hard
// dependency: local membership rows are only written after it succeeds.
func (s *ChatLifecycle) AddMembers(ctx context.Context, roomID, actorUser, tenant int, userIDs []int) (models.RoomHandle, error) {
	room, err := s.rooms.GetRoom(ctx, roomID)
	if errors.Is(err, repositories.ErrRoomNotFound) {
		return models.RoomHandle{}, models.ErrNotFound
	}
	if err != nil {
		return models.RoomHandle{}, err
	}
	if room.IsDirect || room.Status != models.RoomStatusActive {
		return models.RoomHandle{}, models.ErrInvalidOperation
	}
	if room.TenantID != tenant {
		return models.RoomHandle{}, models.ErrNotAuthorized
	}
	member, err := s.rooms.IsMember(ctx, roomID, actorUser)
	if err != nil {
		return models.RoomHandle{}, err
	}
	if !member {
		return models.RoomHandle{}, models.ErrNotAuthorized
	}

	extIDs := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		ext := identity.ExternalID(id, room.TenantID)
		s.ensureUser(ctx, ext)
		extIDs = append(extIDs, ext)
	}

	err = s.retry.Do(ctx, "add_members", func(ctx context.Context) error {
		return s.gateway.AddMembers(ctx, room.Kind, room.ChannelID, extIDs)
	})
	if err != nil {
		return models.RoomHandle{}, providerFailure(err)
	}

	if err := s.rooms.AddMembers(ctx, roomID, userIDs); err != nil {
		return models.RoomHandle{}, err
	}

	s.channels.Evict(channelCachePrefix + room.ChannelID)
	return s.handleFromRoom(ctx, room, false)
}

// HideChannelForUser hides a direct room for one user. The provider call is
// advisory: the local marker is the source of truth for list filtering.
func (s *ChatLifecycle) HideChannelForUser(ctx context.Context, roomID, userID, tenant int) (models.HideResult, error) {
	room, err := s.authorizeDirectRoomAccess(ctx, roomID, userID, tenant)
	if err != nil {
		return models.HideResult{}, err
	}

	alreadyHidden, err := s.rooms.UpsertHiddenMarker(ctx, userID, roomID)
	if err != nil {
		return models.HideResult{}, err
	}

	ext := identity.ExternalID(userID, room.TenantID)
	if err := s.retry.Do(ctx, "hide_for_user", func(ctx context.Context) error {
		return s.gateway.HideForUser(ctx, room.Kind, room.ChannelID, ext, false)
	}); err != nil {
		log.Printf("hide advisory call failed room=%d user=%d: %v", roomID, userID, err)
	}

	s.publishEvent(ctx, "chat.room.hidden", room)
	message := "channel hidden"
	if alreadyHidden {
		message = "channel was already hidden"
	}
	return models.HideResult{
		Success:       true,
		RoomID:        roomID,
		Message:       message,
		IsHidden:      true,
		AlreadyHidden: alreadyHidden,
	}, nil
}

// ShowChannelForUser is the inverse of HideChannelForUser. Messages removed by
// DeleteConversationForUser stay gone even after the room becomes visible again.
func (s *ChatLifecycle) ShowChannelForUser(ctx context.Context, roomID, userID, tenant int) (models.HideResult, error) {
	room, err := s.authorizeDirectRoomAccess(ctx, roomID, userID, tenant)
	if err != nil {
		return models.HideResult{}, err
	}

	existed, err := s.rooms.RemoveHiddenMarker(ctx, userID, roomID)
	if err != nil {
		return models.HideResult{}, err
	}

	ext := identity.ExternalID(userID, room.TenantID)
	if err := s.retry.Do(ctx, "show_for_user", func(ctx context.Context) error {
		return s.gateway.ShowForUser(ctx, room.Kind, room.ChannelID, ext)
	}); err != nil {
		log.Printf("show advisory call failed room=%d user=%d: %v", roomID, userID, err)
	}

	message := "channel visible"
	if !existed {
		message = "channel was not hidden"
	}
	return models.HideResult{
		Success:       true,
		RoomID:        roomID,
		Message:       message,
		IsHidden:      false,
		AlreadyHidden: !existed,
	}, nil
}

// LeaveGroup removes the caller from a group room. The provider removal is a hard
// dependency; local membership only changes after it succeeds. The last member to
// leave closes the room.
func (s *ChatLifecycle) LeaveGroup(ctx context.Context, roomID, userID, tenant int, autoHide bool) (models.LeaveResult, error) {
	ctx, span := tracer.Start(ctx, "lifecycle.leaveGroup")
	defer span.End()

	room, err := s.rooms.GetRoom(ctx, roomID)
	if errors.Is(err, repositories.ErrRoomNotFound) {
		return models.LeaveResult{}, models.ErrNotFound
	}
	if err != nil {
		return models.LeaveResult{}, err
	}
	if room.IsDirect || room.HasEvent() {
		return models.LeaveResult{}, models.ErrInvalidOperation
	}
	if room.TenantID != tenant {
		return models.LeaveResult{}, models.ErrNotAuthorized
	}
	member, err := s.rooms.IsMember(ctx, roomID, userID)
	if err != nil {
		return models.LeaveResult{}, err
	}
	if !member {
		return models.LeaveResult{}, models.ErrNotAuthorized
	}

	ext := identity.ExternalID(userID, room.TenantID)
	err = s.retry.Do(ctx, "remove_member", func(ctx context.Context) error {
		return s.gateway.RemoveMember(ctx, room.Kind, room.ChannelID, ext)
	})
	if err != nil {
		return models.LeaveResult{}, providerFailure(err)
	}

	remaining, closed, err := s.rooms.RemoveMemberClosingEmpty(ctx, roomID, userID)
	if err != nil {
		return models.LeaveResult{}, err
	}

	if autoHide {
		if _, err := s.rooms.UpsertHiddenMarker(ctx, userID, roomID); err != nil {
			log.Printf("auto-hide failed room=%d user=%d: %v", roomID, userID, err)
		}
	}

	if closed {
		s.channels.Evict(channelCachePrefix + room.ChannelID)
		s.publishEvent(ctx, "chat.room.closed", room)
	}

	return models.LeaveResult{
		Success:          true,
		RoomID:           roomID,
		Message:          "left group",
		RemainingMembers: remaining,
		GroupClosed:      closed,
	}, nil
}

// DeleteGroup closes an empty group room. Only a tenant administrator or owner may
// delete it, or the original creator when their role is below administrator. The
// provider-side channel removal is advisory.
func (s *ChatLifecycle) DeleteGroup(ctx context.Context, roomID, userID, tenant int, hardDelete bool) (models.DeleteGroupResult, error) {
	room, err := s.rooms.GetRoom(ctx, roomID)
	if errors.Is(err, repositories.ErrRoomNotFound) {
		return models.DeleteGroupResult{}, models.ErrNotFound
	}
	if err != nil {
		return models.DeleteGroupResult{}, err
	}
	if room.IsDirect || room.HasEvent() {
		return models.DeleteGroupResult{}, models.ErrInvalidOperation
	}
	if room.TenantID != tenant {
		return models.DeleteGroupResult{}, models.ErrNotAuthorized
	}

	role, err := s.tenants.RoleInTenant(ctx, userID, tenant)
	if err != nil {
		return models.DeleteGroupResult{}, err
	}
	isAdmin := role == models.RoleAdmin || role == models.RoleOwner
	if !isAdmin && room.CreatedBy != userID {
		return models.DeleteGroupResult{}, models.ErrNotAuthorized
	}

	count, err := s.rooms.CountMembers(ctx, roomID)
	if err != nil {
		return models.DeleteGroupResult{}, err
	}
	if count > 0 {
		return models.DeleteGroupResult{}, &models.HasMembersError{Count: count}
	}

	if room.Status != models.RoomStatusClosed {
		if err := s.rooms.CloseRoom(ctx, roomID); err != nil {
			return models.DeleteGroupResult{}, err
		}
	}

	deletedFromProvider := false
	if hardDelete {
		if err := s.retry.Do(ctx, "delete_channel", func(ctx context.Context) error {
			return s.gateway.DeleteChannel(ctx, room.Kind, room.ChannelID)
		}); err != nil {
			log.Printf("provider channel delete failed room=%d: %v", roomID, err)
		} else {
			deletedFromProvider = true
		}
	}

	s.channels.Evict(channelCachePrefix + room.ChannelID)
	s.publishEvent(ctx, "chat.room.deleted", room)
	return models.DeleteGroupResult{
		Success:             true,
		RoomID:              roomID,
		Message:             "group deleted",
		GroupDeleted:        true,
		DeletedFromProvider: deletedFromProvider,
	}, nil
}

// DeleteConversationForUser implements "delete for me" on a direct room: soft
// deletes every provider message, clears the caller's history, and hides the room
// locally. The other participant's view is unaffected, and the removed messages do
// not come back when the room is shown again.
func (s *ChatLifecycle) DeleteConversationForUser(ctx context.Context, roomID, userID, tenant int) (models.DeleteConversationResult, error) {
	ctx, span := tracer.Start(ctx, "lifecycle.deleteConversationForUser")
	defer span.End()

	room, err := s.authorizeDirectRoomAccess(ctx, roomID, userID, tenant)
	if err != nil {
		return models.DeleteConversationResult{}, err
	}

	ext := identity.ExternalID(userID, room.TenantID)

	var messages []provider.Message
	if err := s.retry.Do(ctx, "query_channel", func(ctx context.Context) error {
		_, msgs, err := s.gateway.QueryChannel(ctx, room.Kind, room.ChannelID, ext)
		messages = msgs
		return err
	}); err != nil {
		log.Printf("message fetch failed room=%d user=%d: %v", roomID, userID, err)
	}

	deleted := 0
	for _, msg := range messages {
		if err := s.gateway.DeleteMessage(ctx, room.Kind, room.ChannelID, msg.ID, true); err != nil {
			log.Printf("message delete failed room=%d message=%s: %v", roomID, msg.ID, err)
			continue
		}
		deleted++
	}

	historyCleared := true
	if err := s.retry.Do(ctx, "hide_for_user", func(ctx context.Context) error {
		return s.gateway.HideForUser(ctx, room.Kind, room.ChannelID, ext, true)
	}); err != nil {
		log.Printf("history clear failed room=%d user=%d: %v", roomID, userID, err)
		historyCleared = false
	}

	if _, err := s.rooms.UpsertHiddenMarker(ctx, userID, roomID); err != nil {
		return models.DeleteConversationResult{}, err
	}

	s.publishEvent(ctx, "chat.room.hidden", room)
	return models.DeleteConversationResult{
		Success:         true,
		RoomID:          roomID,
		Message:         "conversation deleted",
		MessagesDeleted: deleted,
		HistoryCleared:  historyCleared,
	}, nil
}

// ListRooms returns the rooms visible to the user under the tenant context.
func (s *ChatLifecycle) ListRooms(ctx context.Context, userID, tenant int, includeHidden bool) ([]models.RoomSummary, error) {
	active, err := s.tenants.IsActiveInTenant(ctx, userID, tenant)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, models.ErrNotAuthorized
	}
	return s.rooms.ListRoomsForUser(ctx, userID, tenant, includeHidden)
}

// authorizeDirectRoomAccess loads a room and checks the direct-room preconditions
// shared by hide, show and delete-conversation: the room must be direct, the user
// must hold a membership, and the tenant context must either own the room or be
// shared by every member.
func (s *ChatLifecycle) authorizeDirectRoomAccess(ctx context.Context, roomID, userID, tenant int) (models.Room, error) {
	room, err := s.rooms.GetRoom(ctx, roomID)
	if errors.Is(err, repositories.ErrRoomNotFound) {
		return models.Room{}, models.ErrNotFound
	}
	if err != nil {
		return models.Room{}, err
	}
	if !room.IsDirect {
		return models.Room{}, models.ErrInvalidOperation
	}

	member, err := s.rooms.IsMember(ctx, roomID, userID)
	if err != nil {
		return models.Room{}, err
	}
	if !member {
		return models.Room{}, models.ErrNotAuthorized
	}

	if room.TenantID != tenant {
		members, err := s.rooms.ListMembers(ctx, roomID)
		if err != nil {
			return models.Room{}, err
		}
		for _, m := range members {
			active, err := s.tenants.IsActiveInTenant(ctx, m.UserID, tenant)
			if err != nil {
				return models.Room{}, err
			}
			if !active {
				return models.Room{}, models.ErrNotAuthorized
			}
		}
	}
	return room, nil
}

// createChannel materializes the channel on the provider, treating "already
// exists" as success by adopting the existing channel.
func (s *ChatLifecycle) createChannel(ctx context.Context, channelID, creatorExt string, memberExts []string) error {
	err := s.retry.Do(ctx, "create_channel", func(ctx context.Context) error {
		_, err := s.gateway.CreateChannel(ctx, ChannelKind, channelID, creatorExt, memberExts)
		return err
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, provider.ErrChannelExists) {
		queryErr := s.retry.Do(ctx, "query_channel", func(ctx context.Context) error {
			_, _, err := s.gateway.QueryChannel(ctx, ChannelKind, channelID, creatorExt)
			return err
		})
		if queryErr != nil {
			return providerFailure(queryErr)
		}
		return nil
	}
	return providerFailure(err)
}

func (s *ChatLifecycle) ensureUser(ctx context.Context, externalID string) {
	// Upsert failures are non-critical; the provider backfills users lazily.
	if err := s.gateway.EnsureUser(ctx, externalID, externalID); err != nil {
		log.Printf("ensure user failed external_id=%s: %v", externalID, err)
	}
}

func (s *ChatLifecycle) cachedHandle(channelID string) (models.RoomHandle, bool) {
	val, ok := s.channels.Get(channelCachePrefix + channelID)
	if !ok {
		observability.IncCacheMiss("channel")
		return models.RoomHandle{}, false
	}
	observability.IncCacheHit("channel")
	handle, ok := val.(models.RoomHandle)
	return handle, ok
}

func (s *ChatLifecycle) handleFromRoom(ctx context.Context, room models.Room, created bool) (models.RoomHandle, error) {
	members, err := s.rooms.ListMembers(ctx, room.ID)
	if err != nil {
		return models.RoomHandle{}, err
	}
	memberIDs := make([]int, 0, len(members))
	for _, m := range members {
		memberIDs = append(memberIDs, m.UserID)
	}
	handle := models.RoomHandle{
		RoomID:    room.ID,
		ChannelID: room.ChannelID,
		Kind:      room.Kind,
		IsDirect:  room.IsDirect,
		Members:   memberIDs,
		Created:   created,
	}
	s.channels.Put(channelCachePrefix+room.ChannelID, handle)
	return handle, nil
}

func (s *ChatLifecycle) publishEvent(ctx context.Context, routingKey string, room models.Room) {
	if s.events == nil {
		return
	}
	envelope := observability.EventEnvelope{
		EventType: "room_lifecycle",
		EventName: routingKey,
		Payload: map[string]any{
			"room_id":    room.ID,
			"channel_id": room.ChannelID,
			"tenant_id":  room.TenantID,
			"is_direct":  room.IsDirect,
		},
	}
	if err := s.events.Publish(ctx, routingKey, envelope); err != nil {
		log.Printf("lifecycle event publish failed key=%s room=%d: %v", routingKey, room.ID, err)
	}
}

// providerFailure maps an exhausted transient failure to ErrProviderUnavailable
// and passes hard provider rejections through unchanged.
func providerFailure(err error) error {
	var provErr *provider.Error
	if errors.As(err, &provErr) && provErr.Transient {
		return fmt.Errorf("%w: %v", models.ErrProviderUnavailable, err)
	}
	return err
}

func contains(values []int, target int) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

func eventRef(eventID int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(eventID), Valid: true}
}
