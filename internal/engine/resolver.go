package engine

import (
	"encoding/json"
	"fmt"

	"github.com/linarr/linarr/internal/models"
)

// ResponsePayload is the resolved response descriptor handed to the
// delivery channel. Structured payloads (image/video/flex) are opaque
// to the engine; variable substitution in text is the delivery layer's
// concern.
type ResponsePayload struct {
	RuleID         string              `json:"rule_id"`
	RuleName       string              `json:"rule_name"`
	MatchedKeyword string              `json:"matched_keyword"`
	Type           models.ResponseType `json:"type"`
	Text           string              `json:"text,omitempty"`
	ContentURL     string              `json:"content_url,omitempty"`
	PreviewURL     string              `json:"preview_url,omitempty"`
	AltText        string              `json:"alt_text,omitempty"`
	FlexJSON       json.RawMessage     `json:"flex_json,omitempty"`
	Actions        []models.RuleAction `json:"actions,omitempty"`
}

// resolveResponse turns a selected rule into a concrete response
// payload. A malformed response type fails with a ConfigurationError
// rather than silently defaulting.
func resolveResponse(sel *Selection) (*ResponsePayload, error) {
	rule := sel.Rule
	payload := &ResponsePayload{
		RuleID:         rule.ID.String(),
		RuleName:       rule.Name,
		MatchedKeyword: sel.MatchedKeyword,
		Type:           rule.Response.Type,
		Actions:        rule.Actions,
	}

	switch rule.Response.Type {
	case models.ResponseTypeText:
		payload.Text = rule.Response.Text
	case models.ResponseTypeImage, models.ResponseTypeVideo:
		payload.ContentURL = rule.Response.OriginalContentURL
		payload.PreviewURL = rule.Response.PreviewImageURL
	case models.ResponseTypeFlex:
		payload.FlexJSON = rule.Response.FlexJSON
		payload.AltText = rule.Response.AltText
	default:
		return nil, &ConfigurationError{
			RuleID: rule.ID.String(),
			Reason: fmt.Sprintf("unknown response type %q", rule.Response.Type),
		}
	}

	return payload, nil
}

// Describe returns a short description of the payload for response logs.
func (p *ResponsePayload) Describe() string {
	if p.Type == models.ResponseTypeText {
		return p.Text
	}
	return fmt.Sprintf("[%s]", p.Type)
}
