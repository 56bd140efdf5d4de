package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linarr/linarr/internal/engine"
	"github.com/linarr/linarr/internal/models"
	"github.com/linarr/linarr/internal/repository"
)

type messageFixture struct {
	handler  *MessageHandler
	rules    repository.RuleRepository
	friends  repository.FriendRepository
	tenantID models.ULID
	friend   *models.Friend
}

func newMessageFixture(t *testing.T) *messageFixture {
	t.Helper()

	db := setupHandlerTestDB(t)
	ruleRepo := repository.NewRuleRepository(db)
	friendRepo := repository.NewFriendRepository(db)
	eng := engine.New(
		ruleRepo,
		friendRepo,
		repository.NewTriggerCounterRepository(db),
		repository.NewResponseLogRepository(db),
		engine.DefaultConfig(),
	)

	tenantID := models.NewULID()
	friend := &models.Friend{
		TenantID:   tenantID,
		LineUserID: "U1234567890",
	}
	require.NoError(t, friendRepo.Create(context.Background(), friend))

	return &messageFixture{
		handler:  NewMessageHandler(eng, friendRepo),
		rules:    ruleRepo,
		friends:  friendRepo,
		tenantID: tenantID,
		friend:   friend,
	}
}

func (f *messageFixture) addRule(t *testing.T, name, keyword string) {
	t.Helper()
	rule := &models.AutoResponseRule{
		TenantID: f.tenantID,
		Name:     name,
		Priority: 1,
		Keywords: []models.Keyword{
			{Text: keyword, MatchType: models.MatchTypeExact},
		},
		Response: models.ResponseContent{Type: models.ResponseTypeText, Text: "welcome!"},
	}
	require.NoError(t, f.rules.Create(context.Background(), rule))
}

func TestMessageHandler_MatchByFriendID(t *testing.T) {
	ctx := context.Background()
	f := newMessageFixture(t)
	f.addRule(t, "greeting", "hello")

	out, err := f.handler.Handle(ctx, &HandleMessageInput{
		TenantID: f.tenantID.String(),
		Body: HandleMessageRequest{
			FriendID: f.friend.ID.String(),
			Text:     "hello",
		},
	})
	require.NoError(t, err)
	assert.True(t, out.Body.Matched)
	require.NotNil(t, out.Body.Response)
	assert.Equal(t, "greeting", out.Body.Response.RuleName)
	assert.Equal(t, "welcome!", out.Body.Response.Text)
}

func TestMessageHandler_MatchByLineUserID(t *testing.T) {
	ctx := context.Background()
	f := newMessageFixture(t)
	f.addRule(t, "greeting", "hello")

	out, err := f.handler.Handle(ctx, &HandleMessageInput{
		TenantID: f.tenantID.String(),
		Body: HandleMessageRequest{
			LineUserID: "U1234567890",
			Text:       "hello",
		},
	})
	require.NoError(t, err)
	assert.True(t, out.Body.Matched)
}

func TestMessageHandler_NoMatch(t *testing.T) {
	ctx := context.Background()
	f := newMessageFixture(t)
	f.addRule(t, "greeting", "hello")

	out, err := f.handler.Handle(ctx, &HandleMessageInput{
		TenantID: f.tenantID.String(),
		Body: HandleMessageRequest{
			FriendID: f.friend.ID.String(),
			Text:     "goodbye",
		},
	})
	require.NoError(t, err)
	assert.False(t, out.Body.Matched)
	assert.Nil(t, out.Body.Response)
}

func TestMessageHandler_UnknownFriend(t *testing.T) {
	ctx := context.Background()
	f := newMessageFixture(t)

	_, err := f.handler.Handle(ctx, &HandleMessageInput{
		TenantID: f.tenantID.String(),
		Body: HandleMessageRequest{
			FriendID: models.NewULID().String(),
			Text:     "hello",
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "friend not found")
}

func TestMessageHandler_UnknownLineUserID(t *testing.T) {
	ctx := context.Background()
	f := newMessageFixture(t)

	_, err := f.handler.Handle(ctx, &HandleMessageInput{
		TenantID: f.tenantID.String(),
		Body: HandleMessageRequest{
			LineUserID: "Unobody",
			Text:       "hello",
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "friend not found")
}

func TestMessageHandler_RequiresSenderReference(t *testing.T) {
	ctx := context.Background()
	f := newMessageFixture(t)

	_, err := f.handler.Handle(ctx, &HandleMessageInput{
		TenantID: f.tenantID.String(),
		Body:     HandleMessageRequest{Text: "hello"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "friend_id or line_user_id is required")
}
