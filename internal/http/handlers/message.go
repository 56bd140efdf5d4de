package handlers

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/linarr/linarr/internal/engine"
	"github.com/linarr/linarr/internal/models"
	"github.com/linarr/linarr/internal/repository"
)

// MessageHandler handles inbound message evaluation endpoints.
type MessageHandler struct {
	engine  *engine.Engine
	friends repository.FriendRepository
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(eng *engine.Engine, friends repository.FriendRepository) *MessageHandler {
	return &MessageHandler{engine: eng, friends: friends}
}

// Register registers the message routes with the API.
func (h *MessageHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "handleMessage",
		Method:      "POST",
		Path:        "/api/v1/tenants/{tenantId}/messages",
		Summary:     "Handle inbound message",
		Description: "Evaluates an inbound text message against the tenant's rules and returns the resolved response, if any",
		Tags:        []string{"Messages"},
	}, h.Handle)
}

// HandleMessageRequest is the request body for handling a message.
// Exactly one of friend_id or line_user_id identifies the sender.
type HandleMessageRequest struct {
	FriendID   string `json:"friend_id,omitempty" doc:"Sender's friend ID (ULID)"`
	LineUserID string `json:"line_user_id,omitempty" doc:"Sender's LINE user ID"`
	Text       string `json:"text" doc:"Message text" minLength:"1"`
}

// HandleMessageInput is the input for handling a message.
type HandleMessageInput struct {
	TenantID string `path:"tenantId" doc:"Tenant ID (ULID)"`
	Body     HandleMessageRequest
}

// HandleMessageOutput is the output for handling a message.
type HandleMessageOutput struct {
	Body struct {
		Matched  bool                    `json:"matched" doc:"Whether any rule matched"`
		Response *engine.ResponsePayload `json:"response,omitempty" doc:"Resolved response payload when a rule matched"`
	}
}

// Handle evaluates an inbound message and returns the winning rule's
// response payload, or matched=false when no rule fires.
func (h *MessageHandler) Handle(ctx context.Context, input *HandleMessageInput) (*HandleMessageOutput, error) {
	tenantID, err := models.ParseULID(input.TenantID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid tenant ID format", err)
	}

	friendID, err := h.resolveFriendID(ctx, tenantID, input.Body)
	if err != nil {
		return nil, err
	}

	payload, err := h.engine.HandleIncomingMessage(ctx, tenantID, friendID, input.Body.Text)
	if err != nil {
		if errors.Is(err, engine.ErrFriendNotFound) {
			return nil, huma.Error404NotFound("friend not found")
		}
		return nil, huma.Error500InternalServerError("failed to handle message", err)
	}

	resp := &HandleMessageOutput{}
	resp.Body.Matched = payload != nil
	resp.Body.Response = payload
	return resp, nil
}

// resolveFriendID maps the request's sender reference to a friend ID.
func (h *MessageHandler) resolveFriendID(ctx context.Context, tenantID models.ULID, body HandleMessageRequest) (models.ULID, error) {
	switch {
	case body.FriendID != "":
		id, err := models.ParseULID(body.FriendID)
		if err != nil {
			return models.ULID{}, huma.Error400BadRequest("invalid friend_id format", err)
		}
		return id, nil
	case body.LineUserID != "":
		friend, err := h.friends.GetByLineUserID(ctx, tenantID, body.LineUserID)
		if err != nil {
			return models.ULID{}, huma.Error500InternalServerError("failed to look up friend", err)
		}
		if friend == nil {
			return models.ULID{}, huma.Error404NotFound("friend not found")
		}
		return friend.ID, nil
	default:
		return models.ULID{}, huma.Error400BadRequest("friend_id or line_user_id is required")
	}
}
