package bot

import (
	"context"
	"fmt"
	"log/slog"
	"portfolio/internal/types"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"
)

const (
	statsDays   = 7
	liveLimit   = 10
	panelLength = 5
)

// Store is the read surface the bot reports from.
type Store interface {
	GetStats(ctx context.Context, days int) (*types.Stats, error)
	GetRecentVisitors(ctx context.Context, limit int) ([]types.RecentVisit, error)
}

// TelegramBot answers the site owner's analytics commands and relays alerts.
// Messages from anyone but the owner are ignored.
type TelegramBot struct {
	tgBot   *tele.Bot
	ownerID int64
	store   Store
}

func NewTelegramBot(tgToken string, ownerID int64, store Store) (*TelegramBot, error) {
	pref := tele.Settings{
		Token:  tgToken,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	bot, err := tele.NewBot(pref)
	if err != nil {
		slog.Error("failed to initialize telegram bot", "error", err)
		return nil, err
	}

	return &TelegramBot{
		tgBot:   bot,
		ownerID: ownerID,
		store:   store,
	}, nil
}

func (b *TelegramBot) Start(ctx context.Context) error {
	slog.Info("Telegram bot started", "bot_username", b.tgBot.Me.Username)

	owner := b.tgBot.Group()
	owner.Use(b.ownerOnly)
	owner.Handle("/start", b.handleStart)
	owner.Handle("/stats", b.handleStats)
	owner.Handle("/live", b.handleLive)

	go func() {
		<-ctx.Done()
		slog.Info("Telegram bot shutting down")
		b.tgBot.Stop()
	}()

	b.tgBot.Start()
	return nil
}

// Notify sends text to the owner. Delivery failures are logged only.
func (b *TelegramBot) Notify(text string) {
	if _, err := b.tgBot.Send(&tele.User{ID: b.ownerID}, text); err != nil {
		slog.Error("failed to notify owner", "error", err)
	}
}

func (b *TelegramBot) ownerOnly(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if c.Sender() == nil || c.Sender().ID != b.ownerID {
			slog.Debug("ignoring message from non-owner", "user_id", senderID(c))
			return nil
		}
		return next(c)
	}
}

func (b *TelegramBot) handleStart(c tele.Context) error {
	return c.Send("Analytics bot. Commands: /stats for the last 7 days, /live for current visitors.")
}

func (b *TelegramBot) handleStats(c tele.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stats, err := b.store.GetStats(ctx, statsDays)
	if err != nil {
		slog.Error("failed to load stats", "error", err)
		return c.Send("Failed to load stats, please try again later.")
	}
	return c.Send(formatStats(stats))
}

func (b *TelegramBot) handleLive(c tele.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stats, err := b.store.GetStats(ctx, 1)
	if err != nil {
		slog.Error("failed to load stats", "error", err)
		return c.Send("Failed to load live visitors, please try again later.")
	}
	recent, err := b.store.GetRecentVisitors(ctx, liveLimit)
	if err != nil {
		slog.Error("failed to load recent visitors", "error", err)
		return c.Send("Failed to load live visitors, please try again later.")
	}
	return c.Send(formatLive(stats.LiveVisitors, recent))
}

func formatStats(s *types.Stats) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Last %d days\n", s.Days)
	fmt.Fprintf(&sb, "Pageviews: %d\n", s.TotalPageviews)
	fmt.Fprintf(&sb, "Visitors: %d\n", s.UniqueVisitors)
	fmt.Fprintf(&sb, "Sessions: %d (%.1f pages each)\n", s.TotalSessions, s.AvgPagesPerSession)
	fmt.Fprintf(&sb, "Bot requests: %d\n", s.BotRequests)
	fmt.Fprintf(&sb, "Live now: %d\n", s.LiveVisitors)

	if len(s.TopPages) > 0 {
		sb.WriteString("\nTop pages\n")
		for _, p := range s.TopPages[:min(len(s.TopPages), panelLength)] {
			fmt.Fprintf(&sb, "  %s  %d\n", p.Path, p.Views)
		}
	}
	writePanel(&sb, "Top referrers", s.TopReferrers)
	writePanel(&sb, "Countries", s.Countries)
	return strings.TrimRight(sb.String(), "\n")
}

func writePanel(sb *strings.Builder, title string, rows []types.NamedCount) {
	if len(rows) == 0 {
		return
	}
	fmt.Fprintf(sb, "\n%s\n", title)
	for _, r := range rows[:min(len(rows), panelLength)] {
		fmt.Fprintf(sb, "  %s  %d\n", r.Name, r.Count)
	}
}

func formatLive(live int64, recent []types.RecentVisit) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Live visitors: %d\n", live)
	if len(recent) == 0 {
		sb.WriteString("No recent pageviews.")
		return sb.String()
	}
	sb.WriteString("\nRecent pageviews\n")
	for _, v := range recent {
		fmt.Fprintf(&sb, "  %s  %s", clockTime(v.Timestamp), v.Path)
		if where := location(v); where != "" {
			fmt.Fprintf(&sb, "  %s", where)
		}
		sb.WriteByte('\n')
	}
	return strings.TrimRight(sb.String(), "\n")
}

func location(v types.RecentVisit) string {
	var parts []string
	if v.City != nil && *v.City != "" {
		parts = append(parts, *v.City)
	}
	if v.Country != nil && *v.Country != "" {
		parts = append(parts, *v.Country)
	}
	return strings.Join(parts, ", ")
}

// clockTime renders a stored timestamp as HH:MM:SS UTC, or returns it
// unchanged when it does not parse.
func clockTime(ts string) string {
	t, err := time.Parse("2006-01-02T15:04:05.000000Z", ts)
	if err != nil {
		return ts
	}
	return t.Format(time.TimeOnly)
}

func senderID(c tele.Context) int64 {
	if c.Sender() == nil {
		return 0
	}
	return c.Sender().ID
}
