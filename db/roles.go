package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dirsync/scim-provisioner/models"
	"github.com/google/uuid"
)

const roleColumns = `r.id, r.uuid, r.name, r.description, r.idp_role_value, r.remote_role_id,
	r.active, r.is_default, r.created_at, r.updated_at`

func scanRole(row rowScanner) (*models.Role, error) {
	var r models.Role
	err := row.Scan(&r.ID, &r.UUID, &r.Name, &r.Description, &r.IdPRoleValue,
		&r.RemoteRoleID, &r.Active, &r.IsDefault, &r.CreatedAt, &r.UpdatedAt, &r.UserCount)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetRoles retrieves all roles with their assignment counts.
func (d *SyncDB) GetRoles(ctx context.Context) ([]models.Role, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT `+roleColumns+`, COUNT(ur.user_id)
		FROM roles r
		LEFT JOIN user_roles ur ON ur.role_id = r.id
		GROUP BY r.id
		ORDER BY r.name`)
	if err != nil {
		return nil, fmt.Errorf("error retrieving roles: %w", err)
	}
	defer rows.Close()

	var roles []models.Role
	for rows.Next() {
		r, err := scanRole(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning role: %w", err)
		}
		roles = append(roles, *r)
	}
	return roles, rows.Err()
}

// GetRole retrieves a single role by UUID.
func (d *SyncDB) GetRole(ctx context.Context, roleUUID string) (*models.Role, error) {
	row := d.DB.QueryRowContext(ctx, `
		SELECT `+roleColumns+`, COUNT(ur.user_id)
		FROM roles r
		LEFT JOIN user_roles ur ON ur.role_id = r.id
		WHERE r.uuid = $1
		GROUP BY r.id`, roleUUID)
	r, err := scanRole(row)
	if err != nil {
		return nil, fmt.Errorf("error retrieving role %s: %w", roleUUID, err)
	}
	return r, nil
}

// CreateRole inserts a new role. At most one role may be the default; setting
// is_default clears the flag on every other role.
func (d *SyncDB) CreateRole(ctx context.Context, req models.RoleRequest) (*models.Role, error) {
	active, isDefault := true, false
	if req.Active != nil {
		active = *req.Active
	}
	if req.IsDefault != nil {
		isDefault = *req.IsDefault
	}

	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("error starting transaction: %w", err)
	}
	if isDefault {
		if err := d.execQuery(tx, `UPDATE roles SET is_default = FALSE WHERE is_default`); err != nil {
			return nil, fmt.Errorf("error clearing default role: %w", err)
		}
	}

	var roleUUID string
	err = tx.QueryRowContext(ctx, `
		INSERT INTO roles (uuid, name, description, idp_role_value, active, is_default)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING uuid`,
		uuid.New().String(), req.Name, req.Description, req.IdPRoleValue, active, isDefault).Scan(&roleUUID)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("error inserting role: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing role: %w", err)
	}
	return d.GetRole(ctx, roleUUID)
}

// UpdateRole applies a local mutation to a role.
func (d *SyncDB) UpdateRole(ctx context.Context, roleUUID string, req models.RoleRequest) (*models.Role, error) {
	active, isDefault := true, false
	if req.Active != nil {
		active = *req.Active
	}
	if req.IsDefault != nil {
		isDefault = *req.IsDefault
	}

	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("error starting transaction: %w", err)
	}
	if isDefault {
		if err := d.execQuery(tx, `UPDATE roles SET is_default = FALSE WHERE is_default AND uuid <> $1`, roleUUID); err != nil {
			return nil, fmt.Errorf("error clearing default role: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE roles
		SET name = $2, description = $3, idp_role_value = $4, active = $5,
			is_default = $6, updated_at = now()
		WHERE uuid = $1`,
		roleUUID, req.Name, req.Description, req.IdPRoleValue, active, isDefault)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("error updating role %s: %w", roleUUID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		tx.Rollback()
		return nil, sql.ErrNoRows
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing role update: %w", err)
	}
	return d.GetRole(ctx, roleUUID)
}

// DeleteRole removes a role and its assignments.
func (d *SyncDB) DeleteRole(ctx context.Context, roleUUID string) error {
	res, err := d.DB.ExecContext(ctx, `DELETE FROM roles WHERE uuid = $1`, roleUUID)
	if err != nil {
		return fmt.Errorf("error deleting role %s: %w", roleUUID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AssignRole records a role assignment for a user. Both UUIDs must resolve;
// sql.ErrNoRows distinguishes a missing role or user from the
// already-assigned no-op.
func (d *SyncDB) AssignRole(ctx context.Context, roleUUID, userUUID string) error {
	var userID, roleID int64
	err := d.DB.QueryRowContext(ctx, `
		SELECT u.id, r.id FROM users u, roles r
		WHERE u.uuid = $1 AND r.uuid = $2`, userUUID, roleUUID).Scan(&userID, &roleID)
	if errors.Is(err, sql.ErrNoRows) {
		return sql.ErrNoRows
	}
	if err != nil {
		return fmt.Errorf("error resolving role %s and user %s: %w", roleUUID, userUUID, err)
	}

	_, err = d.DB.ExecContext(ctx, `
		INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, userID, roleID)
	if err != nil {
		return fmt.Errorf("error assigning role %s to user %s: %w", roleUUID, userUUID, err)
	}
	return nil
}

// UnassignRole removes a role assignment from a user.
func (d *SyncDB) UnassignRole(ctx context.Context, roleUUID, userUUID string) error {
	res, err := d.DB.ExecContext(ctx, `
		DELETE FROM user_roles ur
		USING users u, roles r
		WHERE ur.user_id = u.id AND ur.role_id = r.id
		AND u.uuid = $1 AND r.uuid = $2`, userUUID, roleUUID)
	if err != nil {
		return fmt.Errorf("error unassigning role %s from user %s: %w", roleUUID, userUUID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
