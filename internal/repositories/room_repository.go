package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"gym-chat-service/internal/models"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	// ErrChannelConflict signals that another writer already persisted a room with
	// the same canonical channel id. Callers re-fetch the winning row.
	ErrChannelConflict = errors.New("channel id already taken")
)

const uniqueViolation = "23505"

// RoomRepository abstracts persistence for rooms, memberships and hidden markers.
type RoomRepository interface {
	GetRoom(ctx context.Context, roomID int) (models.Room, error)
	FindRoomByChannelID(ctx context.Context, channelID string) (models.Room, error)
	FindRoomByEventID(ctx context.Context, eventID int) (models.Room, error)
	CreateRoomWithMembers(ctx context.Context, room models.Room, memberIDs []int) (models.Room, error)
	CloseRoom(ctx context.Context, roomID int) error
	ListMembers(ctx context.Context, roomID int) ([]models.Membership, error)
	CountMembers(ctx context.Context, roomID int) (int, error)
	IsMember(ctx context.Context, roomID int, userID int) (bool, error)
	AddMembers(ctx context.Context, roomID int, userIDs []int) error
	RemoveMemberClosingEmpty(ctx context.Context, roomID int, userID int) (remaining int, closed bool, err error)
	UpsertHiddenMarker(ctx context.Context, userID int, roomID int) (alreadyHidden bool, err error)
	RemoveHiddenMarker(ctx context.Context, userID int, roomID int) (existed bool, err error)
	ListRoomsForUser(ctx context.Context, userID int, tenantID int, includeHidden bool) ([]models.RoomSummary, error)
}

// RoomRepo is a sqlx implementation of RoomRepository.
type RoomRepo struct {
	db *sqlx.DB
}

// NewRoomRepo constructs a RoomRepo.
func NewRoomRepo(db *sqlx.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

const roomColumns = `id, channel_id, kind, name, tenant_id, is_direct, event_id, status, created_by, created_at, updated_at`

// GetRoom fetches a room by id.
func (r *RoomRepo) GetRoom(ctx context.Context, roomID int) (models.Room, error) {
	var room models.Room
	err := r.db.GetContext(ctx, &room, `SELECT `+roomColumns+` FROM rooms WHERE id=$1`, roomID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Room{}, ErrRoomNotFound
	}
	return room, err
}

// FindRoomByChannelID fetches a room by its canonical external channel id.
func (r *RoomRepo) FindRoomByChannelID(ctx context.Context, channelID string) (models.Room, error) {
	var room models.Room
	err := r.db.GetContext(ctx, &room, `SELECT `+roomColumns+` FROM rooms WHERE channel_id=$1`, channelID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Room{}, ErrRoomNotFound
	}
	return room, err
}

// FindRoomByEventID fetches the room attached to an event. At most one exists,
// enforced by a partial unique index on event_id.
func (r *RoomRepo) FindRoomByEventID(ctx context.Context, eventID int) (models.Room, error) {
	var room models.Room
	err := r.db.GetContext(ctx, &room, `SELECT `+roomColumns+` FROM rooms WHERE event_id=$1`, eventID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Room{}, ErrRoomNotFound
	}
	return room, err
}

// CreateRoomWithMembers persists a room and its initial memberships in one
// transaction. A unique violation on channel_id becomes ErrChannelConflict so the
// caller can converge on the row another writer won.
func (r *RoomRepo) CreateRoomWithMembers(ctx context.Context, room models.Room, memberIDs []int) (models.Room, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Room{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	err = tx.QueryRowxContext(ctx,
		`INSERT INTO rooms (channel_id, kind, name, tenant_id, is_direct, event_id, status, created_by)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
         RETURNING `+roomColumns,
		room.ChannelID, room.Kind, room.Name, room.TenantID, room.IsDirect, room.EventID, models.RoomStatusActive, room.CreatedBy).
		StructScan(&room)
	if err != nil {
		if isUniqueViolation(err) {
			err = ErrChannelConflict
		}
		return models.Room{}, err
	}

	for _, userID := range memberIDs {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO room_members (room_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			room.ID, userID); err != nil {
			return models.Room{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return models.Room{}, err
	}
	return room, nil
}

// CloseRoom transitions a room to CLOSED. The transition is terminal.
func (r *RoomRepo) CloseRoom(ctx context.Context, roomID int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE rooms SET status=$1, updated_at=NOW() WHERE id=$2`, models.RoomStatusClosed, roomID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrRoomNotFound
	}
	return nil
}

// ListMembers returns the memberships of a room.
func (r *RoomRepo) ListMembers(ctx context.Context, roomID int) ([]models.Membership, error) {
	var members []models.Membership
	err := r.db.SelectContext(ctx, &members,
		`SELECT room_id, user_id, joined_at FROM room_members WHERE room_id=$1 ORDER BY joined_at ASC`, roomID)
	return members, err
}

// CountMembers counts memberships of a room.
func (r *RoomRepo) CountMembers(ctx context.Context, roomID int) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM room_members WHERE room_id=$1`, roomID)
	return count, err
}

// IsMember checks membership.
func (r *RoomRepo) IsMember(ctx context.Context, roomID int, userID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM room_members WHERE room_id=$1 AND user_id=$2)`, roomID, userID)
	return exists, err
}

// AddMembers inserts memberships, ignoring users already present.
func (r *RoomRepo) AddMembers(ctx context.Context, roomID int, userIDs []int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, userID := range userIDs {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO room_members (room_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			roomID, userID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// RemoveMemberClosingEmpty removes a membership and, when the room is left empty,
// closes it in the same transaction.
func (r *RoomRepo) RemoveMemberClosingEmpty(ctx context.Context, roomID int, userID int) (int, bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, false, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`DELETE FROM room_members WHERE room_id=$1 AND user_id=$2`, roomID, userID); err != nil {
		return 0, false, err
	}

	var remaining int
	if err = tx.GetContext(ctx, &remaining,
		`SELECT COUNT(*) FROM room_members WHERE room_id=$1`, roomID); err != nil {
		return 0, false, err
	}

	closed := false
	if remaining == 0 {
		if _, err = tx.ExecContext(ctx,
			`UPDATE rooms SET status=$1, updated_at=NOW() WHERE id=$2`, models.RoomStatusClosed, roomID); err != nil {
			return 0, false, err
		}
		closed = true
	}

	if err = tx.Commit(); err != nil {
		return 0, false, err
	}
	return remaining, closed, nil
}

// UpsertHiddenMarker records a hidden marker and reports whether it already existed.
func (r *RoomRepo) UpsertHiddenMarker(ctx context.Context, userID int, roomID int) (bool, error) {
	var inserted bool
	err := r.db.GetContext(ctx, &inserted,
		`INSERT INTO hidden_rooms (user_id, room_id) VALUES ($1, $2)
         ON CONFLICT (user_id, room_id) DO NOTHING
         RETURNING TRUE`, userID, roomID)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	return false, err
}

// RemoveHiddenMarker deletes a hidden marker and reports whether one existed.
func (r *RoomRepo) RemoveHiddenMarker(ctx context.Context, userID int, roomID int) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM hidden_rooms WHERE user_id=$1 AND room_id=$2`, userID, roomID)
	if err != nil {
		return false, err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListRoomsForUser returns the active rooms visible to a user under a tenant.
// A room qualifies when its own tenant matches, or when it is a direct room and
// every member holds an active membership in the requested tenant.
func (r *RoomRepo) ListRoomsForUser(ctx context.Context, userID int, tenantID int, includeHidden bool) ([]models.RoomSummary, error) {
	query := `SELECT r.id, r.channel_id, COALESCE(r.name, '') AS name, r.tenant_id, r.is_direct,
               (h.user_id IS NOT NULL) AS hidden, r.created_at
        FROM rooms r
        INNER JOIN room_members rm ON rm.room_id = r.id AND rm.user_id = $1
        LEFT JOIN hidden_rooms h ON h.room_id = r.id AND h.user_id = $1
        WHERE r.status = $3
        AND (
            r.tenant_id = $2
            OR (r.is_direct AND NOT EXISTS (
                SELECT 1 FROM room_members other
                WHERE other.room_id = r.id
                AND NOT EXISTS (
                    SELECT 1 FROM user_tenants ut
                    WHERE ut.user_id = other.user_id AND ut.tenant_id = $2 AND ut.is_active
                )
            ))
        )
        AND ($4 OR h.user_id IS NULL)
        ORDER BY r.created_at DESC`

	var rooms []models.RoomSummary
	err := r.db.SelectContext(ctx, &rooms, query, userID, tenantID, models.RoomStatusActive, includeHidden)
	return rooms, err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
