package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dirsync/scim-provisioner/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// prefixColumns qualifies a column list with a table alias for joins.
func prefixColumns(alias, cols string) string {
	parts := strings.Split(cols, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

const groupColumns = `id, uuid, display_name, description, external_id, remote_id,
	last_synced, sync_status, sync_error, created_at, updated_at`

func scanGroup(row rowScanner) (*models.Group, error) {
	var g models.Group
	err := row.Scan(&g.ID, &g.UUID, &g.DisplayName, &g.Description, &g.ExternalID,
		&g.RemoteID, &g.LastSynced, &g.SyncStatus, &g.SyncError, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// GetGroups retrieves all groups with their membership attached.
func (d *SyncDB) GetGroups(ctx context.Context) ([]models.Group, error) {
	rows, err := d.DB.QueryContext(ctx, `SELECT `+groupColumns+` FROM groups ORDER BY display_name`)
	if err != nil {
		return nil, fmt.Errorf("error retrieving groups: %w", err)
	}
	defer rows.Close()

	var groups []models.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning group: %w", err)
		}
		groups = append(groups, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return d.attachMembers(ctx, groups)
}

// GetGroup retrieves a single group by UUID with membership attached.
func (d *SyncDB) GetGroup(ctx context.Context, groupUUID string) (*models.Group, error) {
	row := d.DB.QueryRowContext(ctx, `SELECT `+groupColumns+` FROM groups WHERE uuid = $1`, groupUUID)
	g, err := scanGroup(row)
	if err != nil {
		return nil, fmt.Errorf("error retrieving group %s: %w", groupUUID, err)
	}
	groups, err := d.attachMembers(ctx, []models.Group{*g})
	if err != nil {
		return nil, err
	}
	return &groups[0], nil
}

// attachMembers loads the member users for each group in one query.
func (d *SyncDB) attachMembers(ctx context.Context, groups []models.Group) ([]models.Group, error) {
	if len(groups) == 0 {
		return groups, nil
	}
	ids := make([]int64, 0, len(groups))
	for i := range groups {
		ids = append(ids, groups[i].ID)
	}

	rows, err := d.DB.QueryContext(ctx, `
		SELECT gm.group_id, `+prefixColumns("u", userColumns)+`
		FROM group_members gm
		JOIN users u ON u.id = gm.user_id
		WHERE gm.group_id = ANY($1)
		ORDER BY u.username`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("error retrieving group members: %w", err)
	}
	defer rows.Close()

	membersByGroup := make(map[int64][]models.User)
	for rows.Next() {
		var groupID int64
		var u models.User
		err := rows.Scan(&groupID, &u.ID, &u.UUID, &u.Username, &u.Email, &u.FirstName,
			&u.LastName, &u.FormattedName, &u.Title, &u.Active, &u.ExternalID, &u.RemoteID,
			&u.LastSynced, &u.SyncStatus, &u.SyncError, &u.CreatedAt, &u.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("error scanning group member: %w", err)
		}
		membersByGroup[groupID] = append(membersByGroup[groupID], u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range groups {
		members := membersByGroup[groups[i].ID]
		if members == nil {
			members = []models.User{}
		}
		groups[i].Members = members
	}
	return groups, nil
}

// CreateGroup inserts a new group with its initial membership in pending state.
func (d *SyncDB) CreateGroup(ctx context.Context, req models.GroupRequest) (*models.Group, error) {
	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("error starting transaction: %w", err)
	}

	row := tx.QueryRowContext(ctx, `
		INSERT INTO groups (uuid, display_name, description)
		VALUES ($1, $2, $3)
		RETURNING `+groupColumns,
		uuid.New().String(), req.DisplayName, req.Description)
	g, err := scanGroup(row)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("error inserting group: %w", err)
	}

	for _, userID := range req.MemberIDs {
		if err := d.execQuery(tx, `
			INSERT INTO group_members (group_id, user_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, g.ID, userID); err != nil {
			return nil, fmt.Errorf("error inserting group member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing group: %w", err)
	}
	return d.GetGroup(ctx, g.UUID)
}

// UpdateGroup applies a local mutation to a group's metadata and membership,
// returning it to pending.
func (d *SyncDB) UpdateGroup(ctx context.Context, groupUUID string, req models.GroupRequest) (*models.Group, error) {
	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("error starting transaction: %w", err)
	}

	row := tx.QueryRowContext(ctx, `
		UPDATE groups
		SET display_name = $2, description = $3,
			sync_status = 'pending', sync_error = NULL, updated_at = now()
		WHERE uuid = $1
		RETURNING `+groupColumns,
		groupUUID, req.DisplayName, req.Description)
	g, err := scanGroup(row)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("error updating group %s: %w", groupUUID, err)
	}

	if err := d.execQuery(tx, `DELETE FROM group_members WHERE group_id = $1`, g.ID); err != nil {
		return nil, fmt.Errorf("error clearing group members: %w", err)
	}
	for _, userID := range req.MemberIDs {
		if err := d.execQuery(tx, `
			INSERT INTO group_members (group_id, user_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, g.ID, userID); err != nil {
			return nil, fmt.Errorf("error inserting group member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing group update: %w", err)
	}
	return d.GetGroup(ctx, groupUUID)
}

// DeleteGroup removes the local group record and its membership rows.
func (d *SyncDB) DeleteGroup(ctx context.Context, groupUUID string) error {
	res, err := d.DB.ExecContext(ctx, `DELETE FROM groups WHERE uuid = $1`, groupUUID)
	if err != nil {
		return fmt.Errorf("error deleting group %s: %w", groupUUID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AddGroupMember records a new membership and returns the group to pending.
// Both UUIDs must resolve; sql.ErrNoRows distinguishes a missing group or
// user from the already-a-member no-op.
func (d *SyncDB) AddGroupMember(ctx context.Context, groupUUID, userUUID string) error {
	var groupID, userID int64
	err := d.DB.QueryRowContext(ctx, `
		SELECT g.id, u.id FROM groups g, users u
		WHERE g.uuid = $1 AND u.uuid = $2`, groupUUID, userUUID).Scan(&groupID, &userID)
	if errors.Is(err, sql.ErrNoRows) {
		return sql.ErrNoRows
	}
	if err != nil {
		return fmt.Errorf("error resolving group %s and user %s: %w", groupUUID, userUUID, err)
	}

	res, err := d.DB.ExecContext(ctx, `
		INSERT INTO group_members (group_id, user_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, groupID, userID)
	if err != nil {
		return fmt.Errorf("error adding member to group %s: %w", groupUUID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Already a member; nothing changed, so the sync status stays put.
		return nil
	}
	return d.markGroupPending(ctx, groupUUID)
}

// RemoveGroupMember drops a membership and returns the group to pending.
func (d *SyncDB) RemoveGroupMember(ctx context.Context, groupUUID, userUUID string) error {
	res, err := d.DB.ExecContext(ctx, `
		DELETE FROM group_members gm
		USING groups g, users u
		WHERE gm.group_id = g.id AND gm.user_id = u.id
		AND g.uuid = $1 AND u.uuid = $2`, groupUUID, userUUID)
	if err != nil {
		return fmt.Errorf("error removing member from group %s: %w", groupUUID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return d.markGroupPending(ctx, groupUUID)
}

func (d *SyncDB) markGroupPending(ctx context.Context, groupUUID string) error {
	_, err := d.DB.ExecContext(ctx, `
		UPDATE groups SET sync_status = 'pending', sync_error = NULL, updated_at = now()
		WHERE uuid = $1`, groupUUID)
	if err != nil {
		return fmt.Errorf("error marking group %s pending: %w", groupUUID, err)
	}
	return nil
}

// PendingGroups retrieves groups awaiting a sync pass, membership attached.
func (d *SyncDB) PendingGroups(ctx context.Context) ([]models.Group, error) {
	rows, err := d.DB.QueryContext(ctx,
		`SELECT `+groupColumns+` FROM groups WHERE sync_status = 'pending' ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("error retrieving pending groups: %w", err)
	}
	defer rows.Close()

	var groups []models.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning group: %w", err)
		}
		groups = append(groups, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return d.attachMembers(ctx, groups)
}

// UpdateGroupSyncState durably commits the outcome of a group sync pass,
// with the same linkage and error semantics as the user variant.
func (d *SyncDB) UpdateGroupSyncState(ctx context.Context, groupUUID string, remoteID *string, status models.SyncStatus, syncErr *string) error {
	_, err := d.DB.ExecContext(ctx, `
		UPDATE groups
		SET remote_id = COALESCE($2, remote_id),
			sync_status = $3,
			sync_error = $4,
			last_synced = CASE WHEN $3 = 'synced' THEN now() ELSE last_synced END,
			updated_at = now()
		WHERE uuid = $1`,
		groupUUID, remoteID, status, syncErr)
	if err != nil {
		return fmt.Errorf("error updating sync state for group %s: %w", groupUUID, err)
	}
	return nil
}
