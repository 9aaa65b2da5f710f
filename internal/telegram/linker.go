package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/qarzdaftar/backend/internal/apperr"
	"github.com/qarzdaftar/backend/internal/repository"
)

const (
	msgWelcome = "Assalomu alaykum! 👋\n\nMen <b>Qarz Daftar</b> ilovasining botiman.\n" +
		"Hisobingizni bog'lash uchun ilovadagi \"Telegram\" bo'limidan havola oling."
	msgLinked = "Telegram hisobingiz Qarz Daftar ilovasiga muvaffaqiyatli bog'landi! ✅\n\n" +
		"Endi to'lov muddati kelganda sizga xabar yuboriladi.\n" +
		"Muddati o'tgan nasiyalarni ko'rish uchun /list, bog'lanishni bekor qilish uchun /unlink buyrug'ini yuboring."
	msgBadCode       = "Bu havola eskirgan yoki yaroqsiz. ❌\nIltimos, ilovadan yangi havola oling."
	msgNotLinked     = "Sizning Telegram hisobingiz hech qanday akkauntga bog'lanmagan."
	msgUnlinkedChat  = "Telegram hisobingiz Qarz Daftar ilovasidan muvaffaqiyatli uzildi. ✅\nQayta bog'lanish uchun ilovadagi havoladan foydalaning."
	msgUnlinkedByApp = "Telegram hisobingiz Qarz Daftar ilovasidan uzildi. ❌\nQayta bog'lanish uchun ilovadagi havoladan foydalaning."
	msgFailure       = "Xatolik yuz berdi. Iltimos, keyinroq qayta urinib ko'ring."
)

// Summarizer renders the current overdue summary for a user.
type Summarizer interface {
	OverdueSummary(ctx context.Context, userID string) (string, error)
}

// LinkStatus is what the app shows on its Telegram screen. URL is set only
// when the user is not linked and a deep link could be built.
type LinkStatus struct {
	URL          *string `json:"url"`
	IsLinked     bool    `json:"isLinked"`
	IsConfigured bool    `json:"isConfigured"`
}

// Linker pairs chats with users and answers the bot commands. A nil bot means
// Telegram is not configured; every operation then degrades to a no-op.
type Linker struct {
	users     repository.Users
	links     *LinkStore
	bot       Messenger
	summaries Summarizer
	log       *slog.Logger
}

func NewLinker(users repository.Users, links *LinkStore, bot Messenger, summaries Summarizer, log *slog.Logger) *Linker {
	return &Linker{users: users, links: links, bot: bot, summaries: summaries, log: log}
}

func (l *Linker) Configured() bool { return l.bot != nil }

// LinkStatus reports whether userID is linked and, if not, mints a fresh
// deep link. Failing to reach Telegram leaves URL nil rather than failing.
func (l *Linker) LinkStatus(ctx context.Context, userID string) (LinkStatus, error) {
	u, err := l.users.GetByID(ctx, userID)
	if err != nil {
		return LinkStatus{}, userErr(err)
	}
	st := LinkStatus{IsLinked: u.IsTelegramLinked(), IsConfigured: l.Configured()}
	if st.IsLinked || !st.IsConfigured {
		return st, nil
	}

	username, err := l.bot.BotUsername(ctx)
	if err != nil {
		l.log.Warn("telegram username lookup failed", "err", err)
		return st, nil
	}
	code, _, err := l.links.Issue(userID)
	if err != nil {
		return LinkStatus{}, fmt.Errorf("issue link code: %w", err)
	}
	url := fmt.Sprintf("https://t.me/%s?start=%s", username, code)
	st.URL = &url
	return st, nil
}

// Unlink detaches the user's chat and tells the chat about it. The notice is
// best effort.
func (l *Linker) Unlink(ctx context.Context, userID string) error {
	u, err := l.users.GetByID(ctx, userID)
	if err != nil {
		return userErr(err)
	}
	if !u.IsTelegramLinked() {
		return nil
	}
	if err := l.users.UnlinkTelegram(ctx, userID); err != nil {
		return userErr(err)
	}
	l.reply(ctx, *u.TelegramChatID, msgUnlinkedByApp)
	return nil
}

// SendSummary pushes the user's overdue summary to chatID.
func (l *Linker) SendSummary(ctx context.Context, userID string, chatID int64) error {
	if l.bot == nil {
		return nil
	}
	text, err := l.summaries.OverdueSummary(ctx, userID)
	if err != nil {
		return err
	}
	return l.bot.SendMessage(ctx, chatID, text)
}

// HandleUpdate answers one webhook update. Anything that is not a text
// message is ignored.
func (l *Linker) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message == nil || upd.Message.Text == "" {
		return
	}
	chat := upd.FromChat()
	if chat == nil {
		return
	}
	l.HandleCommand(ctx, chat.ID, upd.Message.Text)
}

// HandleCommand understands /start [code], /unlink and /list. Every failure
// is answered in the chat; nothing is returned to the caller.
func (l *Linker) HandleCommand(ctx context.Context, chatID int64, text string) {
	if l.bot == nil {
		return
	}
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return
	}
	cmd := fields[0]
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i]
	}

	switch cmd {
	case "/start":
		if len(fields) < 2 {
			l.reply(ctx, chatID, msgWelcome)
			return
		}
		l.handleStart(ctx, chatID, fields[1])
	case "/unlink":
		l.handleUnlink(ctx, chatID)
	case "/list":
		l.handleList(ctx, chatID)
	}
}

func (l *Linker) handleStart(ctx context.Context, chatID int64, code string) {
	if !wellFormedCode(code) {
		l.reply(ctx, chatID, msgBadCode)
		return
	}
	userID, ok := l.links.Consume(code)
	if !ok {
		l.reply(ctx, chatID, msgBadCode)
		return
	}
	if err := l.users.LinkTelegram(ctx, userID, chatID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			l.reply(ctx, chatID, msgBadCode)
			return
		}
		l.log.Error("link telegram", "user_id", userID, "err", err)
		l.reply(ctx, chatID, msgFailure)
		return
	}
	l.log.Info("telegram linked", "user_id", userID)
	l.reply(ctx, chatID, msgLinked)
}

func (l *Linker) handleUnlink(ctx context.Context, chatID int64) {
	u, err := l.users.GetByTelegramChatID(ctx, chatID)
	if errors.Is(err, repository.ErrNotFound) {
		l.reply(ctx, chatID, msgNotLinked)
		return
	}
	if err == nil {
		err = l.users.UnlinkTelegram(ctx, u.ID)
	}
	if err != nil {
		l.log.Error("unlink telegram", "chat_id", chatID, "err", err)
		l.reply(ctx, chatID, msgFailure)
		return
	}
	l.log.Info("telegram unlinked from chat", "user_id", u.ID)
	l.reply(ctx, chatID, msgUnlinkedChat)
}

func (l *Linker) handleList(ctx context.Context, chatID int64) {
	u, err := l.users.GetByTelegramChatID(ctx, chatID)
	if errors.Is(err, repository.ErrNotFound) {
		l.reply(ctx, chatID, msgNotLinked)
		return
	}
	if err != nil {
		l.log.Error("list lookup", "chat_id", chatID, "err", err)
		l.reply(ctx, chatID, msgFailure)
		return
	}
	if err := l.SendSummary(ctx, u.ID, chatID); err != nil {
		l.log.Error("send summary", "user_id", u.ID, "err", err)
		l.reply(ctx, chatID, msgFailure)
	}
}

func (l *Linker) reply(ctx context.Context, chatID int64, text string) {
	if l.bot == nil {
		return
	}
	if err := l.bot.SendMessage(ctx, chatID, text); err != nil {
		l.log.Warn("telegram reply failed", "chat_id", chatID, "err", err)
	}
}

func userErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("user not found")
	}
	return err
}
