// Package dataset defines the content-addressed document store façade (the
// narrow surface the MCP tool handlers are built against) and the record
// types that flow through it.
package dataset

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RecordType classifies a Record within the store.
type RecordType string

const (
	RecordTypeDocument        RecordType = "document"
	RecordTypeCollectionHdr   RecordType = "collection_header"
	RecordTypeDatasetHeader   RecordType = "dataset_header"
	RecordTypeFrameset        RecordType = "frameset"
)

func (t RecordType) Valid() bool {
	switch t {
	case RecordTypeDocument, RecordTypeCollectionHdr, RecordTypeDatasetHeader, RecordTypeFrameset:
		return true
	default:
		return false
	}
}

// RelationshipType classifies how two records relate to each other.
type RelationshipType string

const (
	RelationshipParent    RelationshipType = "parent"
	RelationshipChild     RelationshipType = "child"
	RelationshipRelated   RelationshipType = "related"
	RelationshipReference RelationshipType = "reference"
	RelationshipContains  RelationshipType = "contains"
	RelationshipMemberOf  RelationshipType = "member_of"
)

func (t RelationshipType) Valid() bool {
	switch t {
	case RelationshipParent, RelationshipChild, RelationshipRelated,
		RelationshipReference, RelationshipContains, RelationshipMemberOf:
		return true
	default:
		return false
	}
}

// Relationship links a Record to another record, URI, path, or content
// identifier. Exactly one of the Target* fields must be set.
type Relationship struct {
	Type        RelationshipType `json:"type"`
	TargetUUID  string           `json:"target_uuid,omitempty"`
	TargetURI   string           `json:"target_uri,omitempty"`
	TargetPath  string           `json:"target_path,omitempty"`
	TargetCID   string           `json:"target_cid,omitempty"`
	Title       string           `json:"title,omitempty"`
	Description string           `json:"description,omitempty"`
}

// Validate checks that the relationship has a known type and exactly one
// target reference.
func (r Relationship) Validate() error {
	if !r.Type.Valid() {
		return fmt.Errorf("%w: relationship type %q", ErrInvalidArgument, r.Type)
	}
	set := 0
	for _, v := range []string{r.TargetUUID, r.TargetURI, r.TargetPath, r.TargetCID} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("%w: relationship must set exactly one of target_uuid/target_uri/target_path/target_cid, got %d", ErrInvalidArgument, set)
	}
	if r.TargetUUID != "" {
		if _, err := uuid.Parse(r.TargetUUID); err != nil {
			return fmt.Errorf("%w: target_uuid is not a valid uuid: %v", ErrInvalidArgument, err)
		}
	}
	return nil
}

// MetadataStatus is the lifecycle status carried in Metadata.Status.
type MetadataStatus string

const (
	StatusDraft     MetadataStatus = "draft"
	StatusReview    MetadataStatus = "review"
	StatusPublished MetadataStatus = "published"
	StatusArchived  MetadataStatus = "archived"
)

func (s MetadataStatus) Valid() bool {
	switch s {
	case "", StatusDraft, StatusReview, StatusPublished, StatusArchived:
		return true
	default:
		return false
	}
}

// Metadata carries the structured fields attached to a Record, mirroring
// the frontmatter schema of the content-addressed document format.
type Metadata struct {
	Title          string            `json:"title,omitempty"`
	Author         string            `json:"author,omitempty"`
	Tags           []string          `json:"tags,omitempty"`
	Status         MetadataStatus    `json:"status,omitempty"`
	Context        string            `json:"context,omitempty"`
	Collection     string            `json:"collection,omitempty"`
	CollectionID   string            `json:"collection_id,omitempty"`
	CollectionIDType string          `json:"collection_id_type,omitempty"`
	CreatedAt      time.Time         `json:"created_at,omitempty"`
	UpdatedAt      time.Time         `json:"updated_at,omitempty"`
	Relationships  []Relationship    `json:"relationships,omitempty"`
	Custom         map[string]string `json:"custom_metadata,omitempty"`
}

func (m Metadata) Validate() error {
	if !m.Status.Valid() {
		return fmt.Errorf("%w: metadata status %q", ErrInvalidArgument, m.Status)
	}
	for _, rel := range m.Relationships {
		if err := rel.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Record is the unit of storage in the dataset: a document, a collection
// header, a dataset header, or a frameset, identified by a 128-bit UUID.
type Record struct {
	UUID      string    `json:"uuid"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Type      RecordType `json:"record_type"`
	Vector    []float32 `json:"vector,omitempty"`
	RawData   []byte    `json:"raw_data,omitempty"`
	RawMediaType string `json:"raw_media_type,omitempty"`
	Metadata  Metadata  `json:"metadata"`
	Version   int64     `json:"version"`
}

// Validate checks structural invariants of a Record prior to storage.
func (r Record) Validate() error {
	if r.UUID == "" {
		return fmt.Errorf("%w: uuid is required", ErrInvalidArgument)
	}
	if _, err := uuid.Parse(r.UUID); err != nil {
		return fmt.Errorf("%w: uuid is not valid: %v", ErrInvalidArgument, err)
	}
	if !r.Type.Valid() {
		return fmt.Errorf("%w: record_type %q", ErrInvalidArgument, r.Type)
	}
	if r.RawData != nil && r.RawMediaType == "" {
		return fmt.Errorf("%w: raw_media_type is required when raw_data is set", ErrInvalidArgument)
	}
	return r.Metadata.Validate()
}

// NewUUID generates a fresh record identifier.
func NewUUID() string {
	return uuid.New().String()
}

// ErrInvalidArgument is wrapped by Validate errors so callers can
// errors.Is against a single sentinel regardless of which field failed.
var ErrInvalidArgument = errors.New("invalid argument")
