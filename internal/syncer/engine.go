package syncer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dirsync/scim-provisioner/internal/scim"
	"github.com/dirsync/scim-provisioner/models"
	"github.com/rs/zerolog"
)

// Directory is the remote directory capability set the engine drives.
// *scim.Client is the production implementation.
type Directory interface {
	CreateUser(ctx context.Context, user models.SCIMUser) (*models.SCIMUserResource, error)
	GetUser(ctx context.Context, userID string) (*models.SCIMUserResource, error)
	UpdateUser(ctx context.Context, userID string, user models.SCIMUser) (*models.SCIMUserResource, error)
	DeactivateUser(ctx context.Context, userID string) error
	FindUserByEmail(ctx context.Context, email string) (*models.SCIMUserResource, error)
	CreateGroup(ctx context.Context, group models.SCIMGroup) (*models.SCIMGroupResource, error)
	GetGroup(ctx context.Context, groupID string) (*models.SCIMGroupResource, error)
	PatchGroupMetadata(ctx context.Context, groupID, displayName, externalID string) error
	ReplaceGroupMembers(ctx context.Context, groupID string, memberIDs []string) error
	AddGroupMember(ctx context.Context, groupID, userID string) error
	RemoveGroupMember(ctx context.Context, groupID, userID string) error
}

var _ Directory = (*scim.Client)(nil)

// Store is the persistence surface the engine needs: loading entities and
// durably committing their sync state. A nil remoteID leaves the stored
// linkage untouched; syncErr replaces the stored error text, so nil clears it.
type Store interface {
	GetUser(ctx context.Context, userUUID string) (*models.User, error)
	GetGroup(ctx context.Context, groupUUID string) (*models.Group, error)
	PendingUsers(ctx context.Context) ([]models.User, error)
	PendingGroups(ctx context.Context) ([]models.Group, error)
	UpdateUserSyncState(ctx context.Context, userUUID string, remoteID *string, status models.SyncStatus, syncErr *string) error
	UpdateGroupSyncState(ctx context.Context, groupUUID string, remoteID *string, status models.SyncStatus, syncErr *string) error
}

// Notifier receives an event on every committed status transition.
type Notifier interface {
	Notify(event models.SyncEvent)
}

// Config tunes the membership reconciler's bounded retry.
type Config struct {
	MaxRetries int
	RetryDelay time.Duration
}

// Engine reconciles local users and groups into the remote directory. It is
// safe for concurrent use; syncs for the same entity are serialized.
type Engine struct {
	store      Store
	dir        Directory
	notifier   Notifier
	log        *zerolog.Logger
	maxRetries int
	retryDelay time.Duration
	locks      *entityLocks
}

// New creates a sync engine. notifier may be nil.
func New(store Store, dir Directory, notifier Notifier, cfg Config, log *zerolog.Logger) *Engine {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	return &Engine{
		store:      store,
		dir:        dir,
		notifier:   notifier,
		log:        log,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		locks:      newEntityLocks(),
	}
}

// SyncUser provisions one local user into the remote directory: update when a
// remote linkage exists, otherwise create, adopting a pre-existing remote
// record on a duplicate conflict. Credential failures and cancellation are
// returned as errors without committing a status; everything else lands on
// the user's sync fields.
func (e *Engine) SyncUser(ctx context.Context, userUUID string) (*models.SyncResult, error) {
	unlock := e.locks.acquire("user:" + userUUID)
	defer unlock()

	user, err := e.store.GetUser(ctx, userUUID)
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", userUUID, err)
	}

	remoteID, action, status, errText, fatal := e.pushUser(ctx, user)
	if fatal != nil {
		return nil, fatal
	}
	if err := ctx.Err(); err != nil {
		// Cancelled mid-flight. The stored status stays as it was; the next
		// pass recomputes everything from current remote state.
		return nil, err
	}

	if err := e.store.UpdateUserSyncState(ctx, user.UUID, optional(remoteID), status, optional(errText)); err != nil {
		return nil, fmt.Errorf("persist sync state for user %s: %w", user.UUID, err)
	}
	e.notify("user", user.UUID, remoteID, action, status, errText)

	e.log.Info().Str("user", user.Username).Str("action", action).
		Str("status", string(status)).Msg("user sync finished")

	res := &models.SyncResult{
		Success:  status == models.SyncSynced,
		RemoteID: remoteID,
		Error:    errText,
	}
	switch {
	case status == models.SyncSynced && action == models.ActionCreate:
		res.Message = fmt.Sprintf("user %s created in remote directory", user.Username)
	case status == models.SyncSynced && action == models.ActionLink:
		res.Message = fmt.Sprintf("user %s linked to existing remote record", user.Username)
	case status == models.SyncSynced:
		res.Message = fmt.Sprintf("user %s updated in remote directory", user.Username)
	case status == models.SyncWarning:
		res.Message = fmt.Sprintf("user %s sync needs attention", user.Username)
	default:
		res.Message = fmt.Sprintf("user %s sync failed", user.Username)
	}
	return res, nil
}

// pushUser performs the remote calls for one user. fatal is non-nil only for
// credential failures, which must abort the whole operation or batch.
func (e *Engine) pushUser(ctx context.Context, user *models.User) (remoteID, action string, status models.SyncStatus, errText string, fatal error) {
	payload := userPayload(user)

	if user.RemoteID != nil && *user.RemoteID != "" {
		remote, err := e.dir.GetUser(ctx, *user.RemoteID)
		switch {
		case err == nil:
			if _, uerr := e.dir.UpdateUser(ctx, remote.ID, payload); uerr != nil {
				if scim.IsUnauthorized(uerr) {
					return "", "", "", "", uerr
				}
				return remote.ID, models.ActionUpdate, models.SyncFailed, uerr.Error(), nil
			}
			return remote.ID, models.ActionUpdate, models.SyncSynced, "", nil
		case scim.IsUnauthorized(err):
			return "", "", "", "", err
		case scim.IsNotFound(err):
			// Linked record vanished remotely; recreate below.
		default:
			return *user.RemoteID, models.ActionUpdate, models.SyncFailed,
				fmt.Sprintf("fetch remote user: %v", err), nil
		}
	}

	created, err := e.dir.CreateUser(ctx, payload)
	if err == nil {
		return created.ID, models.ActionCreate, models.SyncSynced, "", nil
	}
	if scim.IsUnauthorized(err) {
		return "", "", "", "", err
	}
	if !scim.IsConflict(err) {
		return "", models.ActionCreate, models.SyncFailed, err.Error(), nil
	}

	// Already exists remotely. Adopt the existing record instead of failing.
	existing, findErr := e.dir.FindUserByEmail(ctx, user.Email)
	if findErr != nil {
		if scim.IsUnauthorized(findErr) {
			return "", "", "", "", findErr
		}
		return "", models.ActionLink, models.SyncWarning,
			fmt.Sprintf("user exists remotely but lookup failed: %v", findErr), nil
	}
	if existing == nil {
		return "", models.ActionLink, models.SyncWarning,
			fmt.Sprintf("remote reports %s already exists but no record matches the email", user.Username), nil
	}
	return existing.ID, models.ActionLink, models.SyncSynced, "", nil
}

// DeactivateUser disables the user's remote record. The local record is
// expected to have been deactivated by the CRUD layer already.
func (e *Engine) DeactivateUser(ctx context.Context, userUUID string) (*models.SyncResult, error) {
	unlock := e.locks.acquire("user:" + userUUID)
	defer unlock()

	user, err := e.store.GetUser(ctx, userUUID)
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", userUUID, err)
	}
	if user.RemoteID == nil || *user.RemoteID == "" {
		return &models.SyncResult{
			Success: false,
			Message: fmt.Sprintf("user %s has no remote linkage", user.Username),
			Error:   "user was never synced to the remote directory",
		}, nil
	}

	status, errText := models.SyncSynced, ""
	if derr := e.dir.DeactivateUser(ctx, *user.RemoteID); derr != nil {
		if scim.IsUnauthorized(derr) {
			return nil, derr
		}
		status, errText = models.SyncFailed, derr.Error()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := e.store.UpdateUserSyncState(ctx, user.UUID, user.RemoteID, status, optional(errText)); err != nil {
		return nil, fmt.Errorf("persist sync state for user %s: %w", user.UUID, err)
	}
	e.notify("user", user.UUID, *user.RemoteID, models.ActionUpdate, status, errText)

	return &models.SyncResult{
		Success:  status == models.SyncSynced,
		Message:  fmt.Sprintf("user %s deactivated in remote directory", user.Username),
		RemoteID: *user.RemoteID,
		Error:    errText,
	}, nil
}

// SyncGroup provisions one local group: members first, then the group itself,
// then membership reconciliation and a separate metadata patch. Members that
// cannot be synced are left out of the transmitted membership and reported.
func (e *Engine) SyncGroup(ctx context.Context, groupUUID string) (*models.SyncResult, error) {
	unlock := e.locks.acquire("group:" + groupUUID)
	defer unlock()

	group, err := e.store.GetGroup(ctx, groupUUID)
	if err != nil {
		return nil, fmt.Errorf("load group %s: %w", groupUUID, err)
	}

	desired := make([]string, 0, len(group.Members))
	var skipped []string
	for i := range group.Members {
		m := &group.Members[i]
		if m.SyncStatus == models.SyncSynced && m.RemoteID != nil && *m.RemoteID != "" {
			desired = append(desired, *m.RemoteID)
			continue
		}
		res, serr := e.SyncUser(ctx, m.UUID)
		if serr != nil {
			return nil, serr
		}
		if res.Success && res.RemoteID != "" {
			desired = append(desired, res.RemoteID)
		} else {
			skipped = append(skipped, fmt.Sprintf("%s: %s", m.Username, res.Error))
		}
	}

	var errs []string
	remoteID := ""
	action := models.ActionReconcile

	if group.RemoteID != nil && *group.RemoteID != "" {
		remote, gerr := e.dir.GetGroup(ctx, *group.RemoteID)
		switch {
		case gerr == nil:
			remoteID = remote.ID
			if merr := e.syncGroupMetadata(ctx, group, remote); merr != nil {
				if scim.IsUnauthorized(merr) {
					return nil, merr
				}
				errs = append(errs, fmt.Sprintf("metadata: %v", merr))
			}
		case scim.IsUnauthorized(gerr):
			return nil, gerr
		case scim.IsNotFound(gerr):
			// Linked group vanished remotely; recreate below.
		default:
			return e.commitGroup(ctx, group, *group.RemoteID, action, nil,
				append(errs, fmt.Sprintf("fetch remote group: %v", gerr)), skipped)
		}
	}

	if remoteID == "" {
		created, cerr := e.dir.CreateGroup(ctx, models.SCIMGroup{
			Schemas:     []string{models.SchemaGroup},
			DisplayName: group.DisplayName,
			ExternalID:  group.UUID,
		})
		if cerr != nil {
			if scim.IsUnauthorized(cerr) {
				return nil, cerr
			}
			return e.commitGroup(ctx, group, "", models.ActionCreate, nil,
				append(errs, fmt.Sprintf("create group: %v", cerr)), skipped)
		}
		remoteID = created.ID
		action = models.ActionCreate
	}

	recon, rerr := e.reconcileMembers(ctx, remoteID, desired)
	if rerr != nil {
		return nil, rerr
	}
	errs = append(errs, recon.Errors...)

	return e.commitGroup(ctx, group, remoteID, action, recon, errs, skipped)
}

// syncGroupMetadata patches display attributes when they drifted from the
// remote state. Membership is never touched here: the remote API's generic
// replace clobbers members on metadata-only edits.
func (e *Engine) syncGroupMetadata(ctx context.Context, group *models.Group, remote *models.SCIMGroupResource) error {
	displayName, externalID := "", ""
	if remote.DisplayName != group.DisplayName {
		displayName = group.DisplayName
	}
	if remote.ExternalID != group.UUID {
		externalID = group.UUID
	}
	if displayName == "" && externalID == "" {
		return nil
	}
	return e.dir.PatchGroupMetadata(ctx, remote.ID, displayName, externalID)
}

// commitGroup persists the outcome of a group sync and builds its result.
func (e *Engine) commitGroup(ctx context.Context, group *models.Group, remoteID, action string, recon *MembershipResult, errs, skipped []string) (*models.SyncResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	status := models.SyncSynced
	errText := ""
	switch {
	case len(errs) > 0:
		status = models.SyncFailed
		errText = strings.Join(errs, "; ")
	case len(skipped) > 0:
		status = models.SyncWarning
		errText = "members not synced: " + strings.Join(skipped, "; ")
	}

	if err := e.store.UpdateGroupSyncState(ctx, group.UUID, optional(remoteID), status, optional(errText)); err != nil {
		return nil, fmt.Errorf("persist sync state for group %s: %w", group.UUID, err)
	}
	e.notify("group", group.UUID, remoteID, action, status, errText)

	e.log.Info().Str("group", group.DisplayName).Str("action", action).
		Str("status", string(status)).Msg("group sync finished")

	res := &models.SyncResult{
		Success:  status == models.SyncSynced,
		RemoteID: remoteID,
		Error:    errText,
	}
	switch {
	case status == models.SyncFailed:
		res.Message = fmt.Sprintf("group %s sync failed", group.DisplayName)
	case status == models.SyncWarning:
		res.Message = fmt.Sprintf("group %s synced with warnings", group.DisplayName)
	case action == models.ActionCreate:
		res.Message = fmt.Sprintf("group %s created in remote directory", group.DisplayName)
	default:
		res.Message = fmt.Sprintf("group %s synced", group.DisplayName)
	}
	if recon != nil {
		res.Message += fmt.Sprintf(" (%d added, %d removed, %d unchanged)",
			len(recon.Added), len(recon.Removed), len(recon.Unchanged))
	}
	return res, nil
}

// BulkSyncPendingUsers syncs every pending user, isolating per-user failures.
// Credential failures and cancellation abort the whole batch.
func (e *Engine) BulkSyncPendingUsers(ctx context.Context) (*models.BulkSyncResult, error) {
	users, err := e.store.PendingUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending users: %w", err)
	}

	out := &models.BulkSyncResult{}
	for i := range users {
		res, serr := e.SyncUser(ctx, users[i].UUID)
		if serr != nil {
			if scim.IsUnauthorized(serr) || ctx.Err() != nil {
				return nil, serr
			}
			// A user deleted mid-batch or a failed state commit is that
			// user's problem, not the batch's.
			out.FailedCount++
			out.Errors = append(out.Errors, fmt.Sprintf("%s: %v", users[i].Username, serr))
			continue
		}
		if res.Success {
			out.SyncedCount++
		} else {
			out.FailedCount++
			out.Errors = append(out.Errors, fmt.Sprintf("%s: %s", users[i].Username, res.Error))
		}
	}
	return out, nil
}

// BulkSyncPendingGroups syncs every pending group, isolating per-group
// failures the same way.
func (e *Engine) BulkSyncPendingGroups(ctx context.Context) (*models.BulkSyncResult, error) {
	groups, err := e.store.PendingGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending groups: %w", err)
	}

	out := &models.BulkSyncResult{}
	for i := range groups {
		res, serr := e.SyncGroup(ctx, groups[i].UUID)
		if serr != nil {
			if scim.IsUnauthorized(serr) || ctx.Err() != nil {
				return nil, serr
			}
			out.FailedCount++
			out.Errors = append(out.Errors, fmt.Sprintf("%s: %v", groups[i].DisplayName, serr))
			continue
		}
		if res.Success {
			out.SyncedCount++
		} else {
			out.FailedCount++
			out.Errors = append(out.Errors, fmt.Sprintf("%s: %s", groups[i].DisplayName, res.Error))
		}
	}
	return out, nil
}

func (e *Engine) notify(entityType, entityID, remoteID, action string, status models.SyncStatus, errText string) {
	if e.notifier == nil {
		return
	}
	e.notifier.Notify(models.SyncEvent{
		EntityType: entityType,
		EntityID:   entityID,
		RemoteID:   remoteID,
		Action:     action,
		Status:     status,
		Error:      errText,
		Timestamp:  time.Now().UTC(),
	})
}

// userPayload builds the remote representation of a local user.
func userPayload(u *models.User) models.SCIMUser {
	payload := models.SCIMUser{
		Schemas:    []string{models.SchemaUser},
		UserName:   u.Username,
		Active:     u.Active,
		ExternalID: u.UUID,
		Emails:     []models.SCIMEmail{{Value: u.Email, Type: "work", Primary: true}},
	}
	if u.Title != nil {
		payload.Title = *u.Title
	}
	name := models.SCIMName{Formatted: u.DisplayName()}
	if u.FirstName != nil {
		name.GivenName = *u.FirstName
	}
	if u.LastName != nil {
		name.FamilyName = *u.LastName
	}
	payload.Name = &name
	return payload
}

// optional maps the empty string to nil so untouched columns stay untouched.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
