package models

// Friend is an end-user who has interacted with the tenant's messaging
// channel.
type Friend struct {
	BaseModel

	// TenantID scopes the friend to one tenant.
	TenantID ULID `gorm:"type:varchar(26);not null;uniqueIndex:idx_friends_tenant_line_user,priority:1" json:"tenant_id"`

	// LineUserID is the friend's LINE platform user ID, unique per tenant.
	LineUserID string `gorm:"size:64;not null;uniqueIndex:idx_friends_tenant_line_user,priority:2" json:"line_user_id"`

	// DisplayName is the friend's profile name.
	DisplayName string `gorm:"size:255" json:"display_name"`

	// SegmentIDs lists the segments the friend belongs to.
	SegmentIDs []string `gorm:"type:text;serializer:json" json:"segment_ids,omitempty"`

	// CustomFields holds tenant-defined attributes.
	CustomFields map[string]string `gorm:"type:text;serializer:json" json:"custom_fields,omitempty"`

	// IsBlocked indicates the friend has blocked the channel.
	IsBlocked bool `gorm:"default:false" json:"is_blocked"`

	// Tags are the friend's attached tags, loaded via the join table.
	Tags []Tag `gorm:"many2many:friend_tags;" json:"tags,omitempty"`
}

// TableName returns the table name for the Friend model.
func (Friend) TableName() string {
	return "friends"
}

// Validate checks if the friend record is valid.
func (f *Friend) Validate() error {
	if f.TenantID.IsZero() {
		return ErrValidation{Field: "tenant_id", Message: "tenant_id is required"}
	}
	if f.LineUserID == "" {
		return ErrValidation{Field: "line_user_id", Message: "line_user_id is required"}
	}
	return nil
}

// TagIDs returns the IDs of the friend's tags as strings.
func (f *Friend) TagIDs() []string {
	ids := make([]string, 0, len(f.Tags))
	for _, t := range f.Tags {
		ids = append(ids, t.ID.String())
	}
	return ids
}

// Tag is a tenant-defined label attachable to friends.
type Tag struct {
	BaseModel

	// TenantID scopes the tag to one tenant.
	TenantID ULID `gorm:"type:varchar(26);not null;index" json:"tenant_id"`

	// Name is the tag label.
	Name string `gorm:"size:255;not null" json:"name"`
}

// TableName returns the table name for the Tag model.
func (Tag) TableName() string {
	return "tags"
}

// Validate checks if the tag is valid.
func (t *Tag) Validate() error {
	if t.TenantID.IsZero() {
		return ErrValidation{Field: "tenant_id", Message: "tenant_id is required"}
	}
	if t.Name == "" {
		return ErrValidation{Field: "name", Message: "name is required"}
	}
	return nil
}
