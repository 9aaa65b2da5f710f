// Package summary renders overdue debts as Telegram-ready HTML text. It does
// no I/O; "today" is always passed in.
package summary

import (
	"fmt"
	"html"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/qarzdaftar/backend/internal/models"
)

const (
	// MaxItems is how many customers are listed one by one.
	MaxItems = 5

	// MaxMessageRunes is Telegram's limit for one text message.
	MaxMessageRunes = 4096

	// MaxNameRunes bounds a customer name or phone before escaping.
	MaxNameRunes = 64

	CriticalDays = 10
	Currency     = "so'm"

	NothingOverdue  = "✅ Hozirda muddati o'tgan nasiyalar yo'q."
	PaymentDueTitle = "To'lov muddati keldi"

	footer = "💡 To'liq ro'yxat uchun Qarz Daftar ilovasini oching."
)

// Bucket groups items by how late they are.
type Bucket uint8

const (
	DueToday Bucket = iota
	Warning
	Critical
)

func Classify(daysLate int) Bucket {
	switch {
	case daysLate >= CriticalDays:
		return Critical
	case daysLate >= 1:
		return Warning
	default:
		return DueToday
	}
}

// Compose builds the summary for one user. Items with a balance of zero or
// less are settled and never shown.
func Compose(items []models.OverdueItem, today time.Time) string {
	owing := make([]models.OverdueItem, 0, len(items))
	for _, it := range items {
		if it.Amount > 0 {
			owing = append(owing, it)
		}
	}
	if len(owing) == 0 {
		return NothingOverdue
	}

	sort.SliceStable(owing, func(i, j int) bool { return owing[i].Amount > owing[j].Amount })

	var (
		total                       int64
		critical, warning, dueToday int
	)
	for _, it := range owing {
		total += it.Amount
		switch Classify(DaysLate(it.DueDate, today)) {
		case Critical:
			critical++
		case Warning:
			warning++
		default:
			dueToday++
		}
	}

	var b strings.Builder
	b.WriteString("📊 <b>Bugungi holat:</b>\n")
	fmt.Fprintf(&b, "   👥 %d ta mijoz qarzdor\n", len(owing))
	fmt.Fprintf(&b, "   💰 Jami: %s %s\n", FormatAmount(total), Currency)
	if critical > 0 {
		fmt.Fprintf(&b, "   🔴 %d+ kun kechikkan: %d ta\n", CriticalDays, critical)
	}
	if warning > 0 {
		fmt.Fprintf(&b, "   🟡 1-%d kun kechikkan: %d ta\n", CriticalDays-1, warning)
	}
	if dueToday > 0 {
		fmt.Fprintf(&b, "   🟢 Bugun muddati: %d ta\n", dueToday)
	}

	b.WriteString("\n📋 <b>Eng muhim nasiyalar:</b>\n\n")
	// room kept for the "... va yana" line and the footer
	budget := MaxMessageRunes - utf8.RuneCountInString(footer) - 120
	shown := 0
	for i, it := range owing {
		if i == MaxItems {
			break
		}
		line := itemLine(i+1, it, today)
		if i > 0 {
			line = "\n\n" + line
		}
		if utf8.RuneCountInString(b.String())+utf8.RuneCountInString(line) > budget {
			break
		}
		b.WriteString(line)
		shown++
	}

	if rest := owing[shown:]; len(rest) > 0 {
		var restTotal int64
		for _, it := range rest {
			restTotal += it.Amount
		}
		fmt.Fprintf(&b, "\n\n... va yana <b>%d ta</b> nasiya (%s %s)", len(rest), FormatAmount(restTotal), Currency)
	}

	b.WriteString("\n\n")
	b.WriteString(footer)
	return b.String()
}

func itemLine(n int, it models.OverdueItem, today time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d. <b>%s</b> — %s %s", n, html.EscapeString(Truncate(it.CustomerName, MaxNameRunes)), FormatAmount(it.Amount), Currency)
	if it.CustomerPhone != nil && *it.CustomerPhone != "" {
		fmt.Fprintf(&b, "\n   📞 %s", html.EscapeString(Truncate(*it.CustomerPhone, MaxNameRunes)))
	}
	fmt.Fprintf(&b, "\n   📅 Muddati: %s (%s)", FormatDate(it.DueDate, today.Location()), Lateness(DaysLate(it.DueDate, today)))
	return b.String()
}

// Truncate cuts s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}

// PaymentDueMessage is the per-debt text stored in the inbox and pushed.
func PaymentDueMessage(customerName string, amount int64) string {
	return fmt.Sprintf("%s bugun %s %s qaytarishi kerak", customerName, FormatAmount(amount), Currency)
}

// DaysLate counts whole calendar days from due to today in today's
// location. Dates in the future count as zero.
func DaysLate(due, today time.Time) int {
	loc := today.Location()
	dy, dm, dd := due.In(loc).Date()
	ty, tm, td := today.Date()
	d := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC).Sub(time.Date(dy, dm, dd, 0, 0, 0, 0, time.UTC))
	days := int(d.Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

func Lateness(days int) string {
	if days <= 0 {
		return "bugun"
	}
	return strconv.Itoa(days) + " kun kechikkan"
}

func FormatDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("02.01.2006")
}

// FormatAmount groups digits in threes with spaces and drops the sign.
func FormatAmount(n int64) string {
	if n < 0 {
		n = -n
	}
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
	}
	for i := pre; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
