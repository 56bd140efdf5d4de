package models

// ResponseStatus records the outcome of handling an inbound message.
type ResponseStatus string

const (
	// ResponseStatusSuccess means a rule matched and a response was resolved.
	ResponseStatusSuccess ResponseStatus = "success"

	// ResponseStatusFailed means a rule matched but resolution or an action failed.
	ResponseStatusFailed ResponseStatus = "failed"

	// ResponseStatusNoMatch means no rule matched the message.
	ResponseStatusNoMatch ResponseStatus = "no_match"
)

// ResponseLog records one handled inbound message for analytics and
// debugging. Message bodies are redacted in log output, not in storage.
type ResponseLog struct {
	BaseModel

	// TenantID scopes the log row to one tenant.
	TenantID ULID `gorm:"type:varchar(26);not null;index:idx_response_logs_tenant_created,priority:1" json:"tenant_id"`

	// FriendID is the friend whose message was handled.
	FriendID ULID `gorm:"type:varchar(26);not null;index" json:"friend_id"`

	// RuleID is the matched rule, if any.
	RuleID *ULID `gorm:"type:varchar(26);index" json:"rule_id,omitempty"`

	// MatchedKeyword is the keyword text that fired the rule.
	MatchedKeyword string `gorm:"size:512" json:"matched_keyword,omitempty"`

	// ReceivedMessage is the inbound message text.
	ReceivedMessage string `gorm:"type:text" json:"received_message"`

	// SentResponse is a short description of the resolved response.
	SentResponse string `gorm:"type:text" json:"sent_response,omitempty"`

	// Status is the handling outcome.
	Status ResponseStatus `gorm:"size:20;not null;index" json:"status"`

	// ResponseTimeMs is the engine latency for this message.
	ResponseTimeMs int64 `json:"response_time_ms"`

	// ErrorMessage carries the failure reason for failed rows.
	ErrorMessage string `gorm:"size:1024" json:"error_message,omitempty"`
}

// TableName returns the table name for the ResponseLog model.
func (ResponseLog) TableName() string {
	return "response_logs"
}

// Validate checks if the log row is valid.
func (l *ResponseLog) Validate() error {
	if l.TenantID.IsZero() {
		return ErrValidation{Field: "tenant_id", Message: "tenant_id is required"}
	}
	if l.FriendID.IsZero() {
		return ErrValidation{Field: "friend_id", Message: "friend_id is required"}
	}
	switch l.Status {
	case ResponseStatusSuccess, ResponseStatusFailed, ResponseStatusNoMatch:
	default:
		return ErrValidation{Field: "status", Message: "status must be success, failed, or no_match"}
	}
	return nil
}
