package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dirsync/scim-provisioner/models"
	"github.com/google/uuid"
)

const userColumns = `id, uuid, username, email, first_name, last_name, formatted_name, title,
	active, external_id, remote_id, last_synced, sync_status, sync_error, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.UUID, &u.Username, &u.Email, &u.FirstName, &u.LastName,
		&u.FormattedName, &u.Title, &u.Active, &u.ExternalID, &u.RemoteID,
		&u.LastSynced, &u.SyncStatus, &u.SyncError, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUsers retrieves all users ordered by username.
func (d *SyncDB) GetUsers(ctx context.Context) ([]models.User, error) {
	rows, err := d.DB.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("error retrieving users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// GetUser retrieves a single user by its stable UUID.
func (d *SyncDB) GetUser(ctx context.Context, userUUID string) (*models.User, error) {
	row := d.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE uuid = $1`, userUUID)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("error retrieving user %s: %w", userUUID, err)
	}
	return u, nil
}

// CreateUser inserts a new user in pending state.
func (d *SyncDB) CreateUser(ctx context.Context, req models.UserRequest) (*models.User, error) {
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	row := d.DB.QueryRowContext(ctx, `
		INSERT INTO users (uuid, username, email, first_name, last_name, formatted_name, title, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+userColumns,
		uuid.New().String(), req.Username, req.Email, req.FirstName, req.LastName,
		req.FormattedName, req.Title, active)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("error inserting user: %w", err)
	}
	return u, nil
}

// UpdateUser applies a local mutation. The user returns to pending so the
// next sync pass picks it up.
func (d *SyncDB) UpdateUser(ctx context.Context, userUUID string, req models.UserRequest) (*models.User, error) {
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	row := d.DB.QueryRowContext(ctx, `
		UPDATE users
		SET username = $2, email = $3, first_name = $4, last_name = $5,
			formatted_name = $6, title = $7, active = $8,
			sync_status = 'pending', sync_error = NULL, updated_at = now()
		WHERE uuid = $1
		RETURNING `+userColumns,
		userUUID, req.Username, req.Email, req.FirstName, req.LastName,
		req.FormattedName, req.Title, active)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("error updating user %s: %w", userUUID, err)
	}
	return u, nil
}

// SetUserActive flips the local active flag, returning the user to pending.
func (d *SyncDB) SetUserActive(ctx context.Context, userUUID string, active bool) (*models.User, error) {
	row := d.DB.QueryRowContext(ctx, `
		UPDATE users
		SET active = $2, sync_status = 'pending', sync_error = NULL, updated_at = now()
		WHERE uuid = $1
		RETURNING `+userColumns,
		userUUID, active)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("error updating user %s: %w", userUUID, err)
	}
	return u, nil
}

// DeleteUser removes the local record. Remote deprovisioning is a separate
// deactivation step, not a side effect of local deletion.
func (d *SyncDB) DeleteUser(ctx context.Context, userUUID string) error {
	res, err := d.DB.ExecContext(ctx, `DELETE FROM users WHERE uuid = $1`, userUUID)
	if err != nil {
		return fmt.Errorf("error deleting user %s: %w", userUUID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// PendingUsers retrieves users awaiting a sync pass.
func (d *SyncDB) PendingUsers(ctx context.Context) ([]models.User, error) {
	rows, err := d.DB.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE sync_status = 'pending' ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("error retrieving pending users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// UpdateUserSyncState durably commits the outcome of a sync pass. A nil
// remoteID keeps the existing linkage; syncErr always replaces the stored
// error text. last_synced advances only on a successful sync.
func (d *SyncDB) UpdateUserSyncState(ctx context.Context, userUUID string, remoteID *string, status models.SyncStatus, syncErr *string) error {
	_, err := d.DB.ExecContext(ctx, `
		UPDATE users
		SET remote_id = COALESCE($2, remote_id),
			sync_status = $3,
			sync_error = $4,
			last_synced = CASE WHEN $3 = 'synced' THEN now() ELSE last_synced END,
			updated_at = now()
		WHERE uuid = $1`,
		userUUID, remoteID, status, syncErr)
	if err != nil {
		return fmt.Errorf("error updating sync state for user %s: %w", userUUID, err)
	}
	return nil
}
