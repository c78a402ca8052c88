package models

import (
	"database/sql"
	"time"
)

// Room statuses. CLOSED is terminal; a room never goes back to ACTIVE.
const (
	RoomStatusActive = "ACTIVE"
	RoomStatusClosed = "CLOSED"
)

// Tenant roles mirrored from the identity service.
const (
	RoleOwner  = "OWNER"
	RoleAdmin  = "ADMIN"
	RoleMember = "MEMBER"
)

// Room is the local mirror of one conversation channel on the messaging provider.
type Room struct {
	ID        int            `db:"id" json:"id"`
	ChannelID string         `db:"channel_id" json:"channel_id"`
	Kind      string         `db:"kind" json:"kind"`
	Name      sql.NullString `db:"name" json:"-"`
	TenantID  int            `db:"tenant_id" json:"tenant_id"`
	IsDirect  bool           `db:"is_direct" json:"is_direct"`
	EventID   sql.NullInt64  `db:"event_id" json:"-"`
	Status    string         `db:"status" json:"status"`
	CreatedBy int            `db:"created_by" json:"created_by"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// HasEvent reports whether the room is bound to an event entity.
func (r Room) HasEvent() bool {
	return r.EventID.Valid
}

// Membership joins a user to a room.
type Membership struct {
	RoomID   int       `db:"room_id" json:"room_id"`
	UserID   int       `db:"user_id" json:"user_id"`
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}

// HiddenMarker records that a user chose not to see a room. It is independent of
// membership and of the room's own status.
type HiddenMarker struct {
	UserID   int       `db:"user_id" json:"user_id"`
	RoomID   int       `db:"room_id" json:"room_id"`
	HiddenAt time.Time `db:"hidden_at" json:"hidden_at"`
}

// RoomSummary is the listing view of a room for one user under one tenant.
type RoomSummary struct {
	RoomID    int       `db:"id" json:"room_id"`
	ChannelID string    `db:"channel_id" json:"channel_id"`
	Name      string    `db:"name" json:"name,omitempty"`
	TenantID  int       `db:"tenant_id" json:"tenant_id"`
	IsDirect  bool      `db:"is_direct" json:"is_direct"`
	Hidden    bool      `db:"hidden" json:"hidden"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// UserTenant mirrors one tenant membership from the identity service.
type UserTenant struct {
	UserID   int    `db:"user_id" json:"user_id"`
	TenantID int    `db:"tenant_id" json:"tenant_id"`
	Role     string `db:"role" json:"role"`
	IsActive bool   `db:"is_active" json:"is_active"`
}
