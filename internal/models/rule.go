package models

import (
	"encoding/json"
	"fmt"
	"regexp"
	"time"
)

// MatchType specifies how a keyword is compared against message text.
type MatchType string

const (
	// MatchTypeExact matches on trimmed, case-sensitive equality.
	MatchTypeExact MatchType = "exact"

	// MatchTypePartial matches on substring containment.
	MatchTypePartial MatchType = "partial"

	// MatchTypeRegex matches by compiling the keyword text as a regular expression.
	MatchTypeRegex MatchType = "regex"
)

// MaxPatternLength caps regex keyword patterns at authoring time.
// Longer patterns are rejected as a validation error.
const MaxPatternLength = 512

// Keyword is an immutable match term carried by a rule. A rule matches
// when any of its keywords match (logical OR).
type Keyword struct {
	ID        string    `json:"id,omitempty"`
	Text      string    `json:"text"`
	MatchType MatchType `json:"match_type"`
}

// Validate checks the keyword configuration. Invalid regex patterns are
// rejected here, at save time, never at match time.
func (k Keyword) Validate() error {
	if k.Text == "" {
		return ErrValidation{Field: "keywords", Message: "keyword text is required"}
	}
	switch k.MatchType {
	case MatchTypeExact, MatchTypePartial:
	case MatchTypeRegex:
		if len(k.Text) > MaxPatternLength {
			return ErrValidation{Field: "keywords", Message: fmt.Sprintf("regex pattern exceeds %d characters", MaxPatternLength)}
		}
		if _, err := regexp.Compile(k.Text); err != nil {
			return ErrValidation{Field: "keywords", Message: fmt.Sprintf("invalid regex pattern %q: %v", k.Text, err)}
		}
	default:
		return ErrValidation{Field: "keywords", Message: fmt.Sprintf("unknown match type %q", k.MatchType)}
	}
	return nil
}

// ResponseType specifies the kind of response payload a rule emits.
type ResponseType string

const (
	// ResponseTypeText is a plain text reply.
	ResponseTypeText ResponseType = "text"

	// ResponseTypeImage is an image reply with content and preview URLs.
	ResponseTypeImage ResponseType = "image"

	// ResponseTypeVideo is a video reply with content and preview URLs.
	ResponseTypeVideo ResponseType = "video"

	// ResponseTypeFlex is a LINE flex message carried as opaque JSON.
	ResponseTypeFlex ResponseType = "flex"
)

// ResponseContent is the response payload configured on a rule.
// Variable substitution (e.g. {name}) is performed by the delivery
// layer, not here.
type ResponseContent struct {
	Type               ResponseType    `json:"type"`
	Text               string          `json:"text,omitempty"`
	OriginalContentURL string          `json:"original_content_url,omitempty"`
	PreviewImageURL    string          `json:"preview_image_url,omitempty"`
	AltText            string          `json:"alt_text,omitempty"`
	FlexJSON           json.RawMessage `json:"flex_json,omitempty"`
}

// Validate checks the response configuration. Unknown response types are
// rejected so bad data is caught at save time instead of degrading matching.
func (c ResponseContent) Validate() error {
	switch c.Type {
	case ResponseTypeText:
		if c.Text == "" {
			return ErrValidation{Field: "response", Message: "text response requires text"}
		}
	case ResponseTypeImage, ResponseTypeVideo:
		if c.OriginalContentURL == "" {
			return ErrValidation{Field: "response", Message: fmt.Sprintf("%s response requires original_content_url", c.Type)}
		}
	case ResponseTypeFlex:
		if len(c.FlexJSON) == 0 {
			return ErrValidation{Field: "response", Message: "flex response requires flex_json"}
		}
		if !json.Valid(c.FlexJSON) {
			return ErrValidation{Field: "response", Message: "flex_json is not valid JSON"}
		}
	default:
		return ErrValidation{Field: "response", Message: fmt.Sprintf("unknown response type %q", c.Type)}
	}
	return nil
}

// TimeCondition restricts a rule to day-of-week and time-of-day windows.
// An empty Days slice means every day. Overnight windows (start after end,
// e.g. 22:00-06:00) wrap across midnight.
type TimeCondition struct {
	Days      []int  `json:"days,omitempty"` // 0=Sunday .. 6=Saturday
	StartTime string `json:"start_time"`     // "HH:MM"
	EndTime   string `json:"end_time"`       // "HH:MM"
}

// Validate checks the time window configuration.
func (t TimeCondition) Validate() error {
	for _, d := range t.Days {
		if d < 0 || d > 6 {
			return ErrValidation{Field: "trigger.time", Message: fmt.Sprintf("day %d out of range 0-6", d)}
		}
	}
	if _, err := parseClock(t.StartTime); err != nil {
		return ErrValidation{Field: "trigger.time", Message: fmt.Sprintf("invalid start_time: %v", err)}
	}
	if _, err := parseClock(t.EndTime); err != nil {
		return ErrValidation{Field: "trigger.time", Message: fmt.Sprintf("invalid end_time: %v", err)}
	}
	return nil
}

// Window returns the start and end of the window as minutes since midnight.
func (t TimeCondition) Window() (start, end int, err error) {
	start, err = parseClock(t.StartTime)
	if err != nil {
		return 0, 0, err
	}
	end, err = parseClock(t.EndTime)
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// parseClock parses an "HH:MM" string to minutes since midnight. The
// whole string must match; trailing characters are rejected so a
// malformed window cannot be saved as a truncated one.
func parseClock(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("clock %q is not HH:MM", s)
	}
	for _, i := range []int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return 0, fmt.Errorf("clock %q is not HH:MM", s)
		}
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	if h > 23 || m > 59 {
		return 0, fmt.Errorf("clock %q out of range", s)
	}
	return h*60 + m, nil
}

// FriendCondition restricts a rule by friend attributes. Required sets
// must all be present; excluded sets must all be absent. CustomFields
// are equality predicates against the friend's custom field values.
type FriendCondition struct {
	RequiredTagIDs     []string          `json:"required_tag_ids,omitempty"`
	ExcludedTagIDs     []string          `json:"excluded_tag_ids,omitempty"`
	RequiredSegmentIDs []string          `json:"required_segment_ids,omitempty"`
	ExcludedSegmentIDs []string          `json:"excluded_segment_ids,omitempty"`
	CustomFields       map[string]string `json:"custom_fields,omitempty"`
}

// LimitPeriod is the bucketing period for trigger-count limits.
type LimitPeriod string

const (
	// LimitPeriodDay buckets trigger counts per calendar day.
	LimitPeriodDay LimitPeriod = "day"

	// LimitPeriodWeek buckets trigger counts per ISO week.
	LimitPeriodWeek LimitPeriod = "week"

	// LimitPeriodMonth buckets trigger counts per calendar month.
	LimitPeriodMonth LimitPeriod = "month"
)

// LimitCondition caps how often a rule may fire within a period.
type LimitCondition struct {
	// PerFriend caps triggers per friend within the period.
	PerFriend *int `json:"per_friend,omitempty"`
	// Total caps triggers across all friends within the period.
	Total  *int        `json:"total,omitempty"`
	Period LimitPeriod `json:"period"`
}

// Validate checks the limit configuration.
func (l LimitCondition) Validate() error {
	if l.PerFriend == nil && l.Total == nil {
		return ErrValidation{Field: "trigger.limit", Message: "limit requires per_friend or total"}
	}
	if l.PerFriend != nil && *l.PerFriend < 1 {
		return ErrValidation{Field: "trigger.limit", Message: "per_friend must be at least 1"}
	}
	if l.Total != nil && *l.Total < 1 {
		return ErrValidation{Field: "trigger.limit", Message: "total must be at least 1"}
	}
	switch l.Period {
	case LimitPeriodDay, LimitPeriodWeek, LimitPeriodMonth:
	default:
		return ErrValidation{Field: "trigger.limit", Message: fmt.Sprintf("unknown limit period %q", l.Period)}
	}
	return nil
}

// TriggerConfig carries the optional condition groups attached to a rule.
// Groups are conjunctive: all configured groups must hold. An absent
// group imposes no constraint.
type TriggerConfig struct {
	Time   []TimeCondition  `json:"time,omitempty"`
	Friend *FriendCondition `json:"friend,omitempty"`
	Limit  *LimitCondition  `json:"limit,omitempty"`
}

// Validate checks all configured condition groups.
func (tc TriggerConfig) Validate() error {
	for _, t := range tc.Time {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	if tc.Limit != nil {
		if err := tc.Limit.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ActionType specifies a post-match action kind.
type ActionType string

const (
	// ActionAddTag attaches a tag to the friend after a match.
	ActionAddTag ActionType = "add_tag"

	// ActionRemoveTag removes a tag from the friend after a match.
	ActionRemoveTag ActionType = "remove_tag"

	// ActionUpdateField sets a custom field on the friend after a match.
	ActionUpdateField ActionType = "update_field"
)

// RuleAction is a post-match side effect executed against the friend.
type RuleAction struct {
	Type  ActionType `json:"type"`
	TagID string     `json:"tag_id,omitempty"`
	Field string     `json:"field,omitempty"`
	Value string     `json:"value,omitempty"`
}

// Validate checks the action configuration. Unknown action kinds are
// rejected at save time.
func (a RuleAction) Validate() error {
	switch a.Type {
	case ActionAddTag, ActionRemoveTag:
		if a.TagID == "" {
			return ErrValidation{Field: "actions", Message: fmt.Sprintf("%s action requires tag_id", a.Type)}
		}
	case ActionUpdateField:
		if a.Field == "" {
			return ErrValidation{Field: "actions", Message: "update_field action requires field"}
		}
	default:
		return ErrValidation{Field: "actions", Message: fmt.Sprintf("unknown action type %q", a.Type)}
	}
	return nil
}

// AutoResponseRule is a tenant-scoped auto-response trigger. Rules are
// evaluated against inbound messages in priority order; a higher
// Priority value takes precedence.
type AutoResponseRule struct {
	BaseModel

	// TenantID scopes the rule to one tenant.
	TenantID ULID `gorm:"type:varchar(26);not null;index:idx_rules_tenant_priority,priority:1" json:"tenant_id"`

	// Name is a human-readable name for this rule.
	Name string `gorm:"size:255;not null" json:"name"`

	// Description provides additional details about the rule.
	Description string `gorm:"size:1024" json:"description,omitempty"`

	// Priority determines precedence among matching rules (higher wins).
	// Reordering reassigns priorities as a dense descending sequence.
	Priority int `gorm:"not null;default:0;index:idx_rules_tenant_priority,priority:2" json:"priority"`

	// IsActive determines if the rule is eligible for selection.
	IsActive *bool `gorm:"default:true" json:"is_active"`

	// Keywords is the ordered keyword list; any match fires the rule.
	Keywords []Keyword `gorm:"type:text;serializer:json" json:"keywords"`

	// Trigger carries the optional time/friend/limit condition groups.
	Trigger TriggerConfig `gorm:"type:text;serializer:json" json:"trigger"`

	// Response is the payload emitted when the rule fires.
	Response ResponseContent `gorm:"type:text;serializer:json" json:"response"`

	// Actions are post-match side effects executed against the friend.
	Actions []RuleAction `gorm:"type:text;serializer:json" json:"actions,omitempty"`

	// ValidUntil soft-deactivates the rule after this instant.
	ValidUntil *time.Time `json:"valid_until,omitempty"`
}

// TableName returns the table name for the AutoResponseRule model.
func (AutoResponseRule) TableName() string {
	return "auto_response_rules"
}

// Validate checks if the rule configuration is valid.
func (r *AutoResponseRule) Validate() error {
	if r.TenantID.IsZero() {
		return ErrValidation{Field: "tenant_id", Message: "tenant_id is required"}
	}
	if r.Name == "" {
		return ErrValidation{Field: "name", Message: "name is required"}
	}
	if len(r.Keywords) == 0 {
		return ErrValidation{Field: "keywords", Message: "at least one keyword is required"}
	}
	for _, k := range r.Keywords {
		if err := k.Validate(); err != nil {
			return err
		}
	}
	if err := r.Trigger.Validate(); err != nil {
		return err
	}
	if err := r.Response.Validate(); err != nil {
		return err
	}
	for _, a := range r.Actions {
		if err := a.Validate(); err != nil {
			return err
		}
	}
	return nil
}
