package models

// Tenant represents an organization account. All rules, friends, and
// response logs are scoped to one tenant.
type Tenant struct {
	BaseModel

	// Name is a human-readable name for the tenant.
	Name string `gorm:"size:255;not null" json:"name"`

	// LineChannelID identifies the tenant's LINE messaging channel.
	LineChannelID string `gorm:"size:64;uniqueIndex" json:"line_channel_id"`

	// LineChannelSecret authenticates webhook signatures. Redacted in logs.
	LineChannelSecret string `gorm:"size:128" json:"-" masq:"secret"`

	// LineAccessToken authorizes delivery API calls. Redacted in logs.
	LineAccessToken string `gorm:"size:512" json:"-" masq:"secret"`

	// IsActive determines whether inbound messages are processed.
	IsActive *bool `gorm:"default:true" json:"is_active"`
}

// TableName returns the table name for the Tenant model.
func (Tenant) TableName() string {
	return "tenants"
}

// Validate checks if the tenant configuration is valid.
func (t *Tenant) Validate() error {
	if t.Name == "" {
		return ErrValidation{Field: "name", Message: "name is required"}
	}
	return nil
}
