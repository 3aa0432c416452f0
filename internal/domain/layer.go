// Package domain contains the core business entities and value objects.
package domain

import (
	"strings"
	"time"
)

// Layer is the local record of a published spatial dataset.
// Name is unique within its workspace.
type Layer struct {
	ID               int64
	Name             string
	Workspace        string
	Store            string
	StoreType        string
	Typename         string // workspace:name reference into the catalog
	Title            string
	UUID             string
	Abstract         string
	Keywords         string // space separated
	OwnerID          int64
	PocID            *int64 // point of contact
	MetadataAuthorID *int64
	BBox             BoundingBox // lat/lon extent
	MercatorBBox     BoundingBox
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// KeywordList returns the layer keywords as a slice.
func (l *Layer) KeywordList() []string {
	return strings.Fields(l.Keywords)
}

// JoinKeywords joins keywords the way they are stored on a layer record.
func JoinKeywords(keywords []string) string {
	return strings.Join(keywords, " ")
}

// QualifiedName returns workspace:name.
func QualifiedName(workspace, name string) string {
	return workspace + ":" + name
}

// LayerDefaults holds the values applied when a layer record is created.
type LayerDefaults struct {
	Store     string
	StoreType string
	Typename  string
	Title     string
	UUID      string
	Keywords  string
	Abstract  string
	OwnerID   int64
	BBox      BoundingBox
}

// ContactRole tags a contact's relation to a layer.
type ContactRole string

// Contact roles.
const (
	RolePointOfContact ContactRole = "pointOfContact"
	RoleAuthor         ContactRole = "author"
)

// Contact links a user to the point-of-contact and author roles.
type Contact struct {
	ID     int64
	UserID int64
	Name   string
	Role   ContactRole
}

// User is an account that can own layers and call the API.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	IsSuperuser  bool
	IsActive     bool
}

// Anonymous is the user value for unauthenticated requests.
var Anonymous = User{}

// IsAnonymous reports whether u is the anonymous user.
func (u User) IsAnonymous() bool {
	return u.ID == 0 && u.Username == ""
}

// LayerRefKind distinguishes the variants of LayerRef.
type LayerRefKind int

// LayerRef variants.
const (
	RefProposedName LayerRefKind = iota
	RefExistingLayer
)

// LayerRef names the layer an upload targets: either an existing record or a
// proposed name that still has to be resolved.
type LayerRef struct {
	Kind LayerRefKind
	ID   int64  // set for RefExistingLayer
	Name string // existing layer name or proposed name
}

// ExistingLayer references a layer record already in the database.
func ExistingLayer(l *Layer) LayerRef {
	return LayerRef{Kind: RefExistingLayer, ID: l.ID, Name: l.Name}
}

// ProposedName references a layer that does not exist yet.
func ProposedName(name string) LayerRef {
	return LayerRef{Kind: RefProposedName, Name: name}
}

// String returns the referenced name.
func (r LayerRef) String() string {
	return r.Name
}
