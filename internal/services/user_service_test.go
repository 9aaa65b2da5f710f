package services

import (
	"context"
	"strings"
	"testing"

	"github.com/qarzdaftar/backend/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushTokenLifecycle(t *testing.T) {
	e := newEnv(t)
	svc := NewUserService(e.repos.Users, e.linker)
	ctx := context.Background()
	u := e.user(t, "Dilshod")

	err := svc.SavePushToken(ctx, u.ID, "   ")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	require.NoError(t, svc.SavePushToken(ctx, u.ID, " ExponentPushToken[x] "))
	got, err := e.repos.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.PushToken)
	assert.Equal(t, "ExponentPushToken[x]", *got.PushToken)

	st, err := svc.Settings(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, NotificationSettings{PushEnabled: true, TelegramConfigured: true}, st)

	require.NoError(t, svc.RemovePushToken(ctx, u.ID))
	st, err = svc.Settings(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, st.PushEnabled)
}

func TestUnknownUser(t *testing.T) {
	e := newEnv(t)
	svc := NewUserService(e.repos.Users, e.linker)

	err := svc.SavePushToken(context.Background(), "missing", "ExponentPushToken[x]")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = svc.Settings(context.Background(), "missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestTelegramLinkAndUnlink(t *testing.T) {
	e := newEnv(t)
	svc := NewUserService(e.repos.Users, e.linker)
	ctx := context.Background()
	u := e.user(t, "Dilshod")

	st, err := svc.TelegramLink(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, st.URL)
	code := (*st.URL)[strings.Index(*st.URL, "=")+1:]

	e.linker.HandleCommand(ctx, 31, "/start "+code)
	settings, err := svc.Settings(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, settings.TelegramLinked)

	require.NoError(t, svc.UnlinkTelegram(ctx, u.ID))
	settings, err = svc.Settings(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, settings.TelegramLinked)
	assert.Len(t, e.bot.messages(31), 2)
}
