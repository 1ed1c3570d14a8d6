package models

// SCIM 2.0 wire types (RFC 7643/7644). These are a closed set: every payload
// exchanged with the remote directory is one of these structs, validated at
// the boundary.

const (
	SchemaUser    = "urn:ietf:params:scim:schemas:core:2.0:User"
	SchemaGroup   = "urn:ietf:params:scim:schemas:core:2.0:Group"
	SchemaPatchOp = "urn:ietf:params:scim:api:messages:2.0:PatchOp"
)

type SCIMEmail struct {
	Value   string `json:"value"`
	Type    string `json:"type,omitempty"`
	Primary bool   `json:"primary,omitempty"`
}

type SCIMName struct {
	Formatted  string `json:"formatted,omitempty"`
	GivenName  string `json:"givenName,omitempty"`
	FamilyName string `json:"familyName,omitempty"`
}

// SCIMUser is the request representation of a user.
type SCIMUser struct {
	Schemas    []string    `json:"schemas"`
	UserName   string      `json:"userName"`
	Active     bool        `json:"active"`
	Emails     []SCIMEmail `json:"emails,omitempty"`
	Name       *SCIMName   `json:"name,omitempty"`
	Title      string      `json:"title,omitempty"`
	ExternalID string      `json:"externalId,omitempty"`
}

// SCIMUserResource is a user as returned by the remote directory.
type SCIMUserResource struct {
	ID         string      `json:"id"`
	UserName   string      `json:"userName"`
	Active     bool        `json:"active"`
	Emails     []SCIMEmail `json:"emails,omitempty"`
	Name       *SCIMName   `json:"name,omitempty"`
	Title      string      `json:"title,omitempty"`
	ExternalID string      `json:"externalId,omitempty"`
}

// SCIMGroupMember references a user inside a group payload. Value carries the
// remote user id; Ref is the full resource URL some servers require.
type SCIMGroupMember struct {
	Ref     string `json:"$ref,omitempty"`
	Value   string `json:"value"`
	Display string `json:"display,omitempty"`
	Type    string `json:"type,omitempty"`
}

// SCIMGroup is the request representation of a group.
type SCIMGroup struct {
	Schemas     []string          `json:"schemas"`
	DisplayName string            `json:"displayName"`
	ExternalID  string            `json:"externalId,omitempty"`
	Members     []SCIMGroupMember `json:"members,omitempty"`
}

// SCIMGroupResource is a group as returned by the remote directory.
type SCIMGroupResource struct {
	ID          string            `json:"id"`
	DisplayName string            `json:"displayName"`
	ExternalID  string            `json:"externalId,omitempty"`
	Members     []SCIMGroupMember `json:"members,omitempty"`
}

// MemberIDs returns the remote ids of the group's members.
func (g *SCIMGroupResource) MemberIDs() []string {
	ids := make([]string, 0, len(g.Members))
	for _, m := range g.Members {
		if m.Value != "" {
			ids = append(ids, m.Value)
		}
	}
	return ids
}

// PatchOperation is a single SCIM PATCH operation triple.
type PatchOperation struct {
	Op    string      `json:"op"`
	Path  string      `json:"path,omitempty"`
	Value interface{} `json:"value,omitempty"`
}

// PatchRequest is an ordered list of PATCH operations.
type PatchRequest struct {
	Schemas    []string         `json:"schemas"`
	Operations []PatchOperation `json:"Operations"`
}

// NewPatchRequest builds a PatchRequest with the PatchOp schema set.
func NewPatchRequest(ops ...PatchOperation) PatchRequest {
	return PatchRequest{
		Schemas:    []string{SchemaPatchOp},
		Operations: ops,
	}
}

// SCIMListResponse is a paginated user query result.
type SCIMListResponse struct {
	TotalResults int                `json:"totalResults"`
	StartIndex   int                `json:"startIndex"`
	ItemsPerPage int                `json:"itemsPerPage"`
	Resources    []SCIMUserResource `json:"Resources"`
}
