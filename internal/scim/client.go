package scim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dirsync/scim-provisioner/models"
	"github.com/rs/zerolog"
)

// Client is a client for the remote directory's SCIM 2.0 API. Construct it
// with NewClient and inject it wherever directory access is needed; there is
// no shared global instance.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	Log        *zerolog.Logger

	// SearchPageSize bounds the linear fallback scan in FindUserByEmail.
	SearchPageSize int
}

// NewClient creates a new Client. The request timeout bounds every remote
// call; a timeout surfaces as a Transient error.
func NewClient(baseURL, token string, timeout time.Duration, log *zerolog.Logger) *Client {
	return &Client{
		BaseURL:        strings.TrimRight(baseURL, "/"),
		Token:          token,
		HTTPClient:     &http.Client{Timeout: timeout},
		Log:            log,
		SearchPageSize: 100,
	}
}

// makeRequest performs an authenticated JSON request against the SCIM API.
// Every call is logged with method, endpoint, status and latency; the bearer
// token is never written to the log. Failures come back as *APIError.
func (c *Client) makeRequest(ctx context.Context, method, endpoint string, payload interface{}) ([]byte, error) {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, &APIError{Kind: KindMalformed, Detail: fmt.Sprintf("encode request: %v", err)}
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &APIError{Kind: KindMalformed, Detail: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.Token))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	latency := time.Since(start)

	if err != nil {
		c.Log.Error().Str("method", method).Str("endpoint", endpoint).
			Dur("latency", latency).Err(err).Msg("SCIM request failed")
		return nil, &APIError{Kind: KindTransient, Detail: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	respBody := new(bytes.Buffer)
	if _, err := respBody.ReadFrom(resp.Body); err != nil {
		return nil, &APIError{Kind: KindTransient, Status: resp.StatusCode,
			Detail: fmt.Sprintf("read response: %v", err)}
	}

	c.Log.Debug().Str("method", method).Str("endpoint", endpoint).
		Int("status", resp.StatusCode).Dur("latency", latency).
		RawJSON("payload", redact(body)).Msg("SCIM request")

	if resp.StatusCode >= 400 {
		apiErr := &APIError{
			Kind:   classifyStatus(resp.StatusCode),
			Status: resp.StatusCode,
			Detail: strings.TrimSpace(respBody.String()),
		}
		c.Log.Error().Str("method", method).Str("endpoint", endpoint).
			Int("status", resp.StatusCode).Dur("latency", latency).
			Str("kind", apiErr.Kind.String()).Msg("SCIM error response")
		return nil, apiErr
	}

	return respBody.Bytes(), nil
}

// redact keeps the call log valid JSON when there is no payload.
func redact(body []byte) []byte {
	if len(body) == 0 {
		return []byte("null")
	}
	return body
}

func decode(body []byte, out interface{}) error {
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &APIError{Kind: KindMalformed, Detail: fmt.Sprintf("decode response: %v", err)}
	}
	return nil
}

// CreateUser creates a user in the remote directory. A Conflict error means
// the user already exists remotely; resolution belongs to the caller.
func (c *Client) CreateUser(ctx context.Context, user models.SCIMUser) (*models.SCIMUserResource, error) {
	body, err := c.makeRequest(ctx, http.MethodPost, "/Users", user)
	if err != nil {
		return nil, err
	}
	var resource models.SCIMUserResource
	if err := decode(body, &resource); err != nil {
		return nil, err
	}
	return &resource, nil
}

// GetUser retrieves a user by its remote id.
func (c *Client) GetUser(ctx context.Context, userID string) (*models.SCIMUserResource, error) {
	body, err := c.makeRequest(ctx, http.MethodGet, "/Users/"+userID, nil)
	if err != nil {
		return nil, err
	}
	var resource models.SCIMUserResource
	if err := decode(body, &resource); err != nil {
		return nil, err
	}
	return &resource, nil
}

// UpdateUser performs a full replacement of the remote user representation.
// Repeating the call with the same payload converges to the same state.
func (c *Client) UpdateUser(ctx context.Context, userID string, user models.SCIMUser) (*models.SCIMUserResource, error) {
	body, err := c.makeRequest(ctx, http.MethodPut, "/Users/"+userID, user)
	if err != nil {
		return nil, err
	}
	var resource models.SCIMUserResource
	if err := decode(body, &resource); err != nil {
		return nil, err
	}
	return &resource, nil
}

// PatchUser applies partial updates to a remote user.
func (c *Client) PatchUser(ctx context.Context, userID string, patch models.PatchRequest) (*models.SCIMUserResource, error) {
	body, err := c.makeRequest(ctx, http.MethodPatch, "/Users/"+userID, patch)
	if err != nil {
		return nil, err
	}
	var resource models.SCIMUserResource
	if err := decode(body, &resource); err != nil {
		return nil, err
	}
	return &resource, nil
}

// DeactivateUser sets active=false on the remote user. Preferred over
// deletion because it keeps the remote audit history.
func (c *Client) DeactivateUser(ctx context.Context, userID string) error {
	patch := models.NewPatchRequest(models.PatchOperation{
		Op:    "replace",
		Path:  "active",
		Value: false,
	})
	_, err := c.PatchUser(ctx, userID, patch)
	return err
}

// DeleteUser permanently removes the remote user.
func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	_, err := c.makeRequest(ctx, http.MethodDelete, "/Users/"+userID, nil)
	return err
}

// ListUsers queries remote users with optional SCIM filtering.
func (c *Client) ListUsers(ctx context.Context, startIndex, count int, filter string) (*models.SCIMListResponse, error) {
	params := url.Values{}
	params.Set("startIndex", fmt.Sprintf("%d", startIndex))
	params.Set("count", fmt.Sprintf("%d", count))
	if filter != "" {
		params.Set("filter", filter)
	}

	body, err := c.makeRequest(ctx, http.MethodGet, "/Users?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	var list models.SCIMListResponse
	if err := decode(body, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// FindUserByEmail looks up a remote user by email. It tries structured filter
// queries first and falls back to one bounded page scan when the server does
// not support them. Absence of a match is (nil, nil), not an error.
func (c *Client) FindUserByEmail(ctx context.Context, email string) (*models.SCIMUserResource, error) {
	filters := []string{
		fmt.Sprintf(`emails.value eq %q`, email),
		fmt.Sprintf(`userName eq %q`, email),
	}

	for _, filter := range filters {
		list, err := c.ListUsers(ctx, 1, c.SearchPageSize, filter)
		if err != nil {
			if IsUnauthorized(err) {
				return nil, err
			}
			// Filter syntax unsupported by this server; try the next form.
			c.Log.Warn().Str("filter", filter).Err(err).Msg("SCIM filter query failed")
			continue
		}
		if len(list.Resources) > 0 {
			return &list.Resources[0], nil
		}
	}

	// Fall back to scanning one page of users.
	list, err := c.ListUsers(ctx, 1, c.SearchPageSize, "")
	if err != nil {
		return nil, err
	}
	want := strings.ToLower(email)
	for i := range list.Resources {
		u := &list.Resources[i]
		if strings.ToLower(u.UserName) == want {
			return u, nil
		}
		for _, e := range u.Emails {
			if strings.ToLower(e.Value) == want {
				return u, nil
			}
		}
	}
	return nil, nil
}

// CreateGroup creates a group in the remote directory.
func (c *Client) CreateGroup(ctx context.Context, group models.SCIMGroup) (*models.SCIMGroupResource, error) {
	body, err := c.makeRequest(ctx, http.MethodPost, "/Groups", group)
	if err != nil {
		return nil, err
	}
	var resource models.SCIMGroupResource
	if err := decode(body, &resource); err != nil {
		return nil, err
	}
	return &resource, nil
}

// GetGroup retrieves a group, including its current membership, by remote id.
func (c *Client) GetGroup(ctx context.Context, groupID string) (*models.SCIMGroupResource, error) {
	body, err := c.makeRequest(ctx, http.MethodGet, "/Groups/"+groupID, nil)
	if err != nil {
		return nil, err
	}
	var resource models.SCIMGroupResource
	if err := decode(body, &resource); err != nil {
		return nil, err
	}
	return &resource, nil
}

// DeleteGroup permanently removes the remote group.
func (c *Client) DeleteGroup(ctx context.Context, groupID string) error {
	_, err := c.makeRequest(ctx, http.MethodDelete, "/Groups/"+groupID, nil)
	return err
}

// patchGroup applies PATCH operations to a remote group.
func (c *Client) patchGroup(ctx context.Context, groupID string, patch models.PatchRequest) error {
	_, err := c.makeRequest(ctx, http.MethodPatch, "/Groups/"+groupID, patch)
	return err
}

// PatchGroupMetadata updates display attributes only. The membership path is
// deliberately untouched: a generic full-object replace on this API discards
// members on metadata-only edits.
func (c *Client) PatchGroupMetadata(ctx context.Context, groupID, displayName, externalID string) error {
	var ops []models.PatchOperation
	if displayName != "" {
		ops = append(ops, models.PatchOperation{Op: "replace", Path: "displayName", Value: displayName})
	}
	if externalID != "" {
		ops = append(ops, models.PatchOperation{Op: "replace", Path: "externalId", Value: externalID})
	}
	if len(ops) == 0 {
		return nil
	}
	return c.patchGroup(ctx, groupID, models.NewPatchRequest(ops...))
}

// ReplaceGroupMembers atomically replaces the group's full membership list.
func (c *Client) ReplaceGroupMembers(ctx context.Context, groupID string, memberIDs []string) error {
	values := make([]models.SCIMGroupMember, 0, len(memberIDs))
	for _, id := range memberIDs {
		values = append(values, models.SCIMGroupMember{Value: id})
	}
	patch := models.NewPatchRequest(models.PatchOperation{
		Op:    "replace",
		Path:  "members",
		Value: values,
	})
	return c.patchGroup(ctx, groupID, patch)
}

// AddGroupMember adds a single member without touching the rest of the group.
func (c *Client) AddGroupMember(ctx context.Context, groupID, userID string) error {
	patch := models.NewPatchRequest(models.PatchOperation{
		Op:    "add",
		Path:  "members",
		Value: []models.SCIMGroupMember{{Value: userID}},
	})
	return c.patchGroup(ctx, groupID, patch)
}

// RemoveGroupMember removes a single member by remote id.
func (c *Client) RemoveGroupMember(ctx context.Context, groupID, userID string) error {
	patch := models.NewPatchRequest(models.PatchOperation{
		Op:   "remove",
		Path: fmt.Sprintf("members[value eq %q]", userID),
	})
	return c.patchGroup(ctx, groupID, patch)
}
