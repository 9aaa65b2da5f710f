package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/qarzdaftar/backend/internal/apperr"
	"github.com/qarzdaftar/backend/internal/logger"
	"github.com/qarzdaftar/backend/internal/models"
	"github.com/qarzdaftar/backend/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sent struct {
	chatID int64
	text   string
}

type fakeBot struct {
	mu       sync.Mutex
	msgs     []sent
	username string
	sendErr  error
	nameErr  error
}

func (f *fakeBot) SendMessage(_ context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.msgs = append(f.msgs, sent{chatID, text})
	return nil
}

func (f *fakeBot) BotUsername(context.Context) (string, error) { return f.username, f.nameErr }

func (f *fakeBot) last(t *testing.T) sent {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.msgs)
	return f.msgs[len(f.msgs)-1]
}

type stubSummaries struct{ text string }

func (s stubSummaries) OverdueSummary(context.Context, string) (string, error) { return s.text, nil }

func newLinker(t *testing.T) (*Linker, *memory.Store, *fakeBot, *LinkStore) {
	t.Helper()
	store := memory.New()
	bot := &fakeBot{username: "qarzdaftar_bot"}
	links := NewLinkStore(10 * time.Minute)
	l := NewLinker(store.Repositories().Users, links, bot, stubSummaries{text: "summary"}, logger.Discard())
	return l, store, bot, links
}

func codeFrom(t *testing.T, url string) string {
	t.Helper()
	i := strings.Index(url, "?start=")
	require.Positive(t, i)
	return url[i+len("?start="):]
}

func TestLinkFlow(t *testing.T) {
	l, store, bot, _ := newLinker(t)
	ctx := context.Background()
	u := store.AddUser(models.User{Name: "Dilshod"})

	st, err := l.LinkStatus(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, st.IsLinked)
	assert.True(t, st.IsConfigured)
	require.NotNil(t, st.URL)
	assert.True(t, strings.HasPrefix(*st.URL, "https://t.me/qarzdaftar_bot?start="))

	l.HandleCommand(ctx, 4242, "/start "+codeFrom(t, *st.URL))
	assert.Equal(t, sent{4242, msgLinked}, bot.last(t))

	got, err := store.Repositories().Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.TelegramChatID)
	assert.EqualValues(t, 4242, *got.TelegramChatID)

	st, err = l.LinkStatus(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, st.IsLinked)
	assert.Nil(t, st.URL)
}

func TestStartWithReusedCode(t *testing.T) {
	l, store, bot, links := newLinker(t)
	ctx := context.Background()
	u := store.AddUser(models.User{Name: "Dilshod"})
	code, _, err := links.Issue(u.ID)
	require.NoError(t, err)

	l.HandleCommand(ctx, 1, "/start "+code)
	assert.Equal(t, msgLinked, bot.last(t).text)

	l.HandleCommand(ctx, 2, "/start "+code)
	assert.Equal(t, sent{2, msgBadCode}, bot.last(t))

	got, _ := store.Repositories().Users.GetByID(ctx, u.ID)
	assert.EqualValues(t, 1, *got.TelegramChatID)
}

func TestStartWithExpiredCode(t *testing.T) {
	l, store, bot, links := newLinker(t)
	clock := &fakeClock{t: time.Now()}
	links.now = clock.Now
	u := store.AddUser(models.User{Name: "Dilshod"})
	code, _, err := links.Issue(u.ID)
	require.NoError(t, err)

	clock.Advance(11 * time.Minute)
	l.HandleCommand(context.Background(), 7, "/start "+code)

	assert.Equal(t, msgBadCode, bot.last(t).text)
	got, _ := store.Repositories().Users.GetByID(context.Background(), u.ID)
	assert.False(t, got.IsTelegramLinked())
}

func TestStartWithMalformedCode(t *testing.T) {
	l, _, bot, _ := newLinker(t)
	l.HandleCommand(context.Background(), 7, "/start <script>")
	assert.Equal(t, msgBadCode, bot.last(t).text)
}

func TestStartWithoutCodeGreets(t *testing.T) {
	l, _, bot, _ := newLinker(t)
	l.HandleCommand(context.Background(), 7, "/start@qarzdaftar_bot")
	assert.Equal(t, msgWelcome, bot.last(t).text)
}

func TestConcurrentStartsLinkOnce(t *testing.T) {
	l, store, bot, links := newLinker(t)
	u := store.AddUser(models.User{Name: "Dilshod"})
	code, _, err := links.Issue(u.ID)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(chat int64) {
			defer wg.Done()
			l.HandleCommand(context.Background(), chat, "/start "+code)
		}(int64(100 + i))
	}
	wg.Wait()

	linked := 0
	for _, m := range bot.msgs {
		if m.text == msgLinked {
			linked++
		}
	}
	assert.Equal(t, 1, linked)
	assert.Len(t, bot.msgs, 10)
}

func TestUnlinkFromChat(t *testing.T) {
	l, store, bot, _ := newLinker(t)
	ctx := context.Background()
	u := store.AddUser(models.User{Name: "Dilshod"})
	require.NoError(t, store.Repositories().Users.LinkTelegram(ctx, u.ID, 55))

	l.HandleCommand(ctx, 55, "/unlink")
	assert.Equal(t, sent{55, msgUnlinkedChat}, bot.last(t))

	got, _ := store.Repositories().Users.GetByID(ctx, u.ID)
	assert.False(t, got.IsTelegramLinked())

	l.HandleCommand(ctx, 55, "/unlink")
	assert.Equal(t, msgNotLinked, bot.last(t).text)
}

func TestUnlinkFromAppNotifiesChat(t *testing.T) {
	l, store, bot, _ := newLinker(t)
	ctx := context.Background()
	u := store.AddUser(models.User{Name: "Dilshod"})
	require.NoError(t, store.Repositories().Users.LinkTelegram(ctx, u.ID, 55))

	require.NoError(t, l.Unlink(ctx, u.ID))
	assert.Equal(t, sent{55, msgUnlinkedByApp}, bot.last(t))
}

func TestUnlinkSurvivesSendFailure(t *testing.T) {
	l, store, bot, _ := newLinker(t)
	ctx := context.Background()
	u := store.AddUser(models.User{Name: "Dilshod"})
	require.NoError(t, store.Repositories().Users.LinkTelegram(ctx, u.ID, 55))
	bot.sendErr = errors.New("telegram down")

	require.NoError(t, l.Unlink(ctx, u.ID))
	got, _ := store.Repositories().Users.GetByID(ctx, u.ID)
	assert.False(t, got.IsTelegramLinked())
}

func TestListSendsSummary(t *testing.T) {
	l, store, bot, _ := newLinker(t)
	ctx := context.Background()
	u := store.AddUser(models.User{Name: "Dilshod"})
	require.NoError(t, store.Repositories().Users.LinkTelegram(ctx, u.ID, 9))

	l.HandleCommand(ctx, 9, "/list")
	assert.Equal(t, sent{9, "summary"}, bot.last(t))

	l.HandleCommand(ctx, 10, "/list")
	assert.Equal(t, sent{10, msgNotLinked}, bot.last(t))
}

func TestUnconfiguredLinker(t *testing.T) {
	store := memory.New()
	u := store.AddUser(models.User{Name: "Dilshod"})
	l := NewLinker(store.Repositories().Users, NewLinkStore(time.Minute), nil, stubSummaries{}, logger.Discard())

	st, err := l.LinkStatus(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, LinkStatus{}, st)

	l.HandleCommand(context.Background(), 1, "/start")
	assert.NoError(t, l.SendSummary(context.Background(), u.ID, 1))
}

func TestLinkStatusWhenTelegramUnreachable(t *testing.T) {
	l, store, bot, links := newLinker(t)
	bot.nameErr = errors.New("timeout")
	u := store.AddUser(models.User{Name: "Dilshod"})

	st, err := l.LinkStatus(context.Background(), u.ID)
	require.NoError(t, err)
	assert.True(t, st.IsConfigured)
	assert.Nil(t, st.URL)
	assert.Zero(t, links.Len())
}

func TestLinkStatusUnknownUser(t *testing.T) {
	l, _, _, _ := newLinker(t)
	_, err := l.LinkStatus(context.Background(), "missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
