package syncer

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dirsync/scim-provisioner/internal/scim"
)

// MembershipResult reports what a reconciliation pass actually changed.
// Entries in Errors mean the pass was partial; the changes that did land are
// still listed in Added/Removed.
type MembershipResult struct {
	Added     []string
	Removed   []string
	Unchanged []string
	Errors    []string
}

// diffMembers compares membership sets by remote id. Output slices are
// sorted so results are stable across runs.
func diffMembers(current, desired []string) (toAdd, toRemove, unchanged []string) {
	curSet := make(map[string]struct{}, len(current))
	for _, id := range current {
		curSet[id] = struct{}{}
	}
	desSet := make(map[string]struct{}, len(desired))
	for _, id := range desired {
		desSet[id] = struct{}{}
	}

	for id := range desSet {
		if _, ok := curSet[id]; ok {
			unchanged = append(unchanged, id)
		} else {
			toAdd = append(toAdd, id)
		}
	}
	for id := range curSet {
		if _, ok := desSet[id]; !ok {
			toRemove = append(toRemove, id)
		}
	}

	sort.Strings(toAdd)
	sort.Strings(toRemove)
	sort.Strings(unchanged)
	return toAdd, toRemove, unchanged
}

// reconcileMembers drives the group's remote membership to the desired set.
// It re-reads current membership first, skips the write entirely when already
// converged, then tries one atomic replace with bounded retry before falling
// back to per-member patches. Only credential failures and cancellation come
// back as an error; everything else lands in the result.
func (e *Engine) reconcileMembers(ctx context.Context, groupID string, desired []string) (*MembershipResult, error) {
	remote, err := e.dir.GetGroup(ctx, groupID)
	if err != nil {
		if scim.IsUnauthorized(err) {
			return nil, err
		}
		return &MembershipResult{Errors: []string{fmt.Sprintf("fetch membership: %v", err)}}, nil
	}

	toAdd, toRemove, unchanged := diffMembers(remote.MemberIDs(), desired)
	result := &MembershipResult{Unchanged: unchanged}
	if len(toAdd) == 0 && len(toRemove) == 0 {
		// Already converged. A redundant write against this backend can race
		// with concurrent external changes, so none is issued.
		return result, nil
	}

	var replaceErr error
	for attempt := 1; attempt <= e.maxRetries; attempt++ {
		replaceErr = e.dir.ReplaceGroupMembers(ctx, groupID, desired)
		if replaceErr == nil {
			result.Added = toAdd
			result.Removed = toRemove
			return result, nil
		}
		if scim.IsUnauthorized(replaceErr) {
			return nil, replaceErr
		}
		if !scim.IsConflict(replaceErr) && !scim.IsTransient(replaceErr) {
			break
		}
		if attempt < e.maxRetries {
			e.log.Warn().Str("group", groupID).Int("attempt", attempt).
				Err(replaceErr).Msg("membership replace collided, retrying")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(e.retryDelay):
			}
		}
	}

	e.log.Warn().Str("group", groupID).Err(replaceErr).
		Msg("atomic membership replace unavailable, applying per-member patches")

	for _, id := range toRemove {
		if rerr := e.dir.RemoveGroupMember(ctx, groupID, id); rerr != nil {
			if scim.IsUnauthorized(rerr) {
				return nil, rerr
			}
			result.Errors = append(result.Errors, fmt.Sprintf("remove member %s: %v", id, rerr))
			continue
		}
		result.Removed = append(result.Removed, id)
	}
	for _, id := range toAdd {
		if aerr := e.dir.AddGroupMember(ctx, groupID, id); aerr != nil {
			if scim.IsUnauthorized(aerr) {
				return nil, aerr
			}
			result.Errors = append(result.Errors, fmt.Sprintf("add member %s: %v", id, aerr))
			continue
		}
		result.Added = append(result.Added, id)
	}
	return result, nil
}
