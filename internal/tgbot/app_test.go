package tgbot

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"athletics-registry/internal/memstore"
	"athletics-registry/internal/models"
	"athletics-registry/internal/policy"
	"athletics-registry/internal/repository"
	"athletics-registry/internal/store"
)

const (
	adminID = int64(100)
	userID  = int64(200)
)

type fakeSender struct {
	mu      sync.Mutex
	sent    []tgbotapi.MessageConfig
	acked   []string
	updates chan tgbotapi.Update
	stopped bool
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, m)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cb, ok := c.(tgbotapi.CallbackConfig); ok {
		f.acked = append(f.acked, cb.CallbackQueryID)
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeSender) StopReceivingUpdates() {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
}

func (f *fakeSender) last() tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return tgbotapi.MessageConfig{}
	}
	return f.sent[len(f.sent)-1]
}

func (f *fakeSender) to(chatID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, m := range f.sent {
		if m.ChatID == chatID {
			out = append(out, m.Text)
		}
	}
	return out
}

func anyContains(msgs []string, subs ...string) bool {
	for _, m := range msgs {
		ok := true
		for _, sub := range subs {
			if !strings.Contains(m, sub) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

func newBot(t *testing.T) (*App, *fakeSender, *repository.EventRepository, *repository.ParticipantRepository) {
	t.Helper()
	st := store.NewLocal(memstore.New(), nil)
	events := repository.NewEventRepository(st, nil, nil)
	fs := &fakeSender{updates: make(chan tgbotapi.Update, 4)}
	app := NewWithSender(fs, map[int64]bool{adminID: true}, events, nil)
	participants := repository.NewParticipantRepository(st, events, nil, repository.WithNotifier(app))
	app.SetParticipants(participants)
	return app, fs, events, participants
}

func text(from int64, s string) *tgbotapi.Message {
	return &tgbotapi.Message{From: &tgbotapi.User{ID: from}, Text: s}
}

func adminCtx() context.Context {
	return policy.WithIdentity(context.Background(), models.Identity{Username: "alice", Role: models.RoleAdmin})
}

func seedEvent(t *testing.T, events *repository.EventRepository) models.Event {
	t.Helper()
	ev, err := events.Create(adminCtx(), models.EventDraft{
		Name: "Sukan 2025", Date: "2025-05-01", Venue: "Stadium A",
		Lanes100M: 8, Lanes200M: 8, Lanes110MHurdles: 6,
	})
	if err != nil {
		t.Fatalf("seed event: %v", err)
	}
	return ev
}

func TestStartShowsEventsButton(t *testing.T) {
	app, fs, _, _ := newBot(t)
	if err := app.handleMessage(context.Background(), text(userID, "/start")); err != nil {
		t.Fatalf("start: %v", err)
	}
	m := fs.last()
	kb, ok := m.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok || len(kb.InlineKeyboard) != 1 {
		t.Fatalf("markup = %#v", m.ReplyMarkup)
	}
	if d := kb.InlineKeyboard[0][0].CallbackData; d == nil || *d != "u:events" {
		t.Fatalf("button data = %v", d)
	}
	if strings.Contains(m.Text, "/peserta") {
		t.Fatalf("admin help shown to user: %q", m.Text)
	}
}

func TestEventsCommandAndCallback(t *testing.T) {
	app, fs, events, _ := newBot(t)
	ctx := context.Background()

	if err := app.handleMessage(ctx, text(userID, "/kejohanan")); err != nil {
		t.Fatalf("kejohanan: %v", err)
	}
	if got := fs.last().Text; got != "Tiada kejohanan lagi." {
		t.Fatalf("empty list = %q", got)
	}

	seedEvent(t, events)
	q := &tgbotapi.CallbackQuery{ID: "cb1", From: &tgbotapi.User{ID: adminID}, Data: "u:events"}
	if err := app.handleCallback(ctx, q); err != nil {
		t.Fatalf("callback: %v", err)
	}
	if len(fs.acked) != 1 || fs.acked[0] != "cb1" {
		t.Fatalf("acked = %v", fs.acked)
	}
	m := fs.last()
	if !strings.Contains(m.Text, "1. Sukan 2025") || !strings.Contains(m.Text, "Stadium A") {
		t.Fatalf("list = %q", m.Text)
	}
	if _, ok := m.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup); !ok {
		t.Fatalf("admin should get per-event buttons")
	}
}

func TestCountsAdminOnly(t *testing.T) {
	app, fs, events, participants := newBot(t)
	ctx := context.Background()
	ev := seedEvent(t, events)

	user := policy.WithIdentity(ctx, models.Identity{Username: "bob", Role: models.RoleUser})
	for _, name := range []string{"Ali", "Abu"} {
		_, err := participants.CreateFor(user, ev, models.ParticipantDraft{
			Team: "SK Bukit", BibNumber: "B" + name, Category: models.CategoryMale,
			AgeGroup: "9 TAHUN", Name: name, Entries: models.EntrySet{models.Entry100M},
		})
		if err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}

	if err := app.handleMessage(ctx, text(userID, "/peserta 1")); err != nil {
		t.Fatalf("user peserta: %v", err)
	}
	if got := fs.to(userID); len(got) != 1 || got[0] != "Akses ditolak." {
		t.Fatalf("user got %q", got)
	}

	// admins also receive registration notices, so search their messages
	if err := app.handleMessage(ctx, text(adminID, "/peserta 1")); err != nil {
		t.Fatalf("admin peserta: %v", err)
	}
	if !anyContains(fs.to(adminID), "2 peserta", "LELAKI 9 TAHUN: 2") {
		t.Fatalf("counts missing from %q", fs.to(adminID))
	}

	if err := app.handleMessage(ctx, text(adminID, "/peserta 9")); err != nil {
		t.Fatalf("missing event: %v", err)
	}
	if !anyContains(fs.to(adminID), "Kejohanan tidak dijumpai.") {
		t.Fatalf("missing event reply not sent: %q", fs.to(adminID))
	}
}

func TestRegistrationNotifiesAdmins(t *testing.T) {
	_, fs, events, participants := newBot(t)
	ev := seedEvent(t, events)

	user := policy.WithIdentity(context.Background(), models.Identity{Username: "bob", Role: models.RoleUser})
	_, err := participants.CreateFor(user, ev, models.ParticipantDraft{
		Team: "SK Bukit", BibNumber: "101", Category: models.CategoryFemale,
		AgeGroup: "10 TAHUN", Name: "Siti", Entries: models.EntrySet{models.Entry100M, models.EntryRelay4x100},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(fs.to(adminID)) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("admin was not notified")
		}
		time.Sleep(10 * time.Millisecond)
	}
	got := fs.to(adminID)[0]
	if !strings.Contains(got, "Siti") || !strings.Contains(got, "Sukan 2025") {
		t.Fatalf("notification = %q", got)
	}
	if len(fs.to(userID)) != 0 {
		t.Fatalf("non-admin notified")
	}
}

func TestEventCreateFlow(t *testing.T) {
	app, fs, events, _ := newBot(t)
	ctx := context.Background()

	if err := app.handleMessage(ctx, text(userID, "/baru")); err != nil {
		t.Fatalf("user baru: %v", err)
	}
	if got := fs.last().Text; got != "Akses ditolak." {
		t.Fatalf("user got %q", got)
	}

	steps := []string{"/baru", "Sukan 2026", "2026-05-01", "Stadium B", "abc", "8", "8", "6"}
	for _, s := range steps {
		if err := app.handleMessage(ctx, text(adminID, s)); err != nil {
			t.Fatalf("step %q: %v", s, err)
		}
	}
	if got := fs.last().Text; !strings.Contains(got, "Sukan 2026") || !strings.Contains(got, "id 1") {
		t.Fatalf("final reply = %q", got)
	}
	list, err := events.List(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("events = %v %v", list, err)
	}
	if ev := list[0]; ev.Venue != "Stadium B" || ev.Lanes110MHurdles != 6 {
		t.Fatalf("created = %+v", ev)
	}
	if st := app.getState(adminID); st.Flow != "" {
		t.Fatalf("flow not cleared: %+v", st)
	}
}

func TestRunStopsWhenUpdatesClose(t *testing.T) {
	app, fs, _, _ := newBot(t)
	fs.updates <- tgbotapi.Update{Message: text(userID, "/start")}
	close(fs.updates)

	if err := app.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(fs.to(userID)) != 1 || !fs.stopped {
		t.Fatalf("sent = %v stopped = %v", fs.to(userID), fs.stopped)
	}
}
