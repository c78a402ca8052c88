package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

var ErrEventNotFound = errors.New("event not found")

// TenantRepository reads the identity and scheduling mirrors: tenant memberships
// and events. This service never writes them.
type TenantRepository interface {
	SharedTenants(ctx context.Context, userA int, userB int) ([]int, error)
	IsActiveInTenant(ctx context.Context, userID int, tenantID int) (bool, error)
	RoleInTenant(ctx context.Context, userID int, tenantID int) (string, error)
	EventTenant(ctx context.Context, eventID int) (int, error)
}

// TenantRepo is a sqlx implementation of TenantRepository.
type TenantRepo struct {
	db *sqlx.DB
}

// NewTenantRepo constructs a TenantRepo.
func NewTenantRepo(db *sqlx.DB) *TenantRepo {
	return &TenantRepo{db: db}
}

// SharedTenants returns the active tenants two users have in common, ascending.
// The ascending order matters: the first element is the canonical owner tenant for
// a direct room.
func (r *TenantRepo) SharedTenants(ctx context.Context, userA int, userB int) ([]int, error) {
	var tenants []int
	err := r.db.SelectContext(ctx, &tenants,
		`SELECT a.tenant_id FROM user_tenants a
         INNER JOIN user_tenants b ON b.tenant_id = a.tenant_id
         WHERE a.user_id=$1 AND b.user_id=$2 AND a.is_active AND b.is_active
         ORDER BY a.tenant_id ASC`, userA, userB)
	return tenants, err
}

// IsActiveInTenant checks an active tenant membership.
func (r *TenantRepo) IsActiveInTenant(ctx context.Context, userID int, tenantID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM user_tenants WHERE user_id=$1 AND tenant_id=$2 AND is_active)`, userID, tenantID)
	return exists, err
}

// RoleInTenant returns the user's role in the tenant, or "" without error when the
// user has no active membership there.
func (r *TenantRepo) RoleInTenant(ctx context.Context, userID int, tenantID int) (string, error) {
	var role string
	err := r.db.GetContext(ctx, &role,
		`SELECT role FROM user_tenants WHERE user_id=$1 AND tenant_id=$2 AND is_active`, userID, tenantID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return role, err
}

// EventTenant returns the owning tenant of an event.
func (r *TenantRepo) EventTenant(ctx context.Context, eventID int) (int, error) {
	var tenantID int
	err := r.db.GetContext(ctx, &tenantID, `SELECT tenant_id FROM events WHERE id=$1`, eventID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrEventNotFound
	}
	return tenantID, err
}
