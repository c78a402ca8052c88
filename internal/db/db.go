package db

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Connect initializes the database connection and runs migrations.
func Connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS rooms (
            id SERIAL PRIMARY KEY,
            channel_id VARCHAR(64) NOT NULL UNIQUE,
            kind VARCHAR(32) NOT NULL DEFAULT 'messaging',
            name TEXT,
            tenant_id INT NOT NULL,
            is_direct BOOLEAN NOT NULL DEFAULT FALSE,
            event_id INT,
            status VARCHAR(16) NOT NULL DEFAULT 'ACTIVE',
            created_by INT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE TABLE IF NOT EXISTS room_members (
            room_id INT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
            user_id INT NOT NULL,
            joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            PRIMARY KEY(room_id, user_id)
        );`,
		`CREATE TABLE IF NOT EXISTS hidden_rooms (
            user_id INT NOT NULL,
            room_id INT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
            hidden_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            PRIMARY KEY(user_id, room_id)
        );`,
		`CREATE TABLE IF NOT EXISTS user_tenants (
            user_id INT NOT NULL,
            tenant_id INT NOT NULL,
            role VARCHAR(16) NOT NULL DEFAULT 'MEMBER',
            is_active BOOLEAN NOT NULL DEFAULT TRUE,
            PRIMARY KEY(user_id, tenant_id)
        );`,
		`CREATE TABLE IF NOT EXISTS events (
            id INT PRIMARY KEY,
            tenant_id INT NOT NULL
        );`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_rooms_event ON rooms(event_id) WHERE event_id IS NOT NULL;`,
		`CREATE INDEX IF NOT EXISTS idx_room_members_user ON room_members(user_id);`,
		`CREATE INDEX IF NOT EXISTS idx_user_tenants_tenant ON user_tenants(tenant_id);`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	log.Println("database migrations applied")
	return nil
}
