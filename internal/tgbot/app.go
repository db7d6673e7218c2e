package tgbot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"athletics-registry/internal/models"
	"athletics-registry/internal/policy"
	"athletics-registry/internal/repository"
)

// Sender is the part of the Bot API the app uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type App struct {
	bot          Sender
	admins       map[int64]bool
	events       *repository.EventRepository
	participants *repository.ParticipantRepository
	log          *zap.Logger

	// in-memory state for multi-step admin flows
	mu    sync.Mutex
	state map[int64]userState
}

type userState struct {
	Flow string
	Step int
	Data map[string]string
}

const flowEventCreate = "event_create"

func New(token string, admins map[int64]bool, events *repository.EventRepository, log *zap.Logger) (*App, error) {
	b, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	b.Debug = false
	return NewWithSender(b, admins, events, log), nil
}

func NewWithSender(bot Sender, admins map[int64]bool, events *repository.EventRepository, log *zap.Logger) *App {
	if log == nil {
		log = zap.NewNop()
	}
	return &App{
		bot:    bot,
		admins: admins,
		events: events,
		log:    log,
		state:  map[int64]userState{},
	}
}

// SetParticipants lets the bot read registrations. The participant
// repository is built after the bot because the bot is its notifier.
func (a *App) SetParticipants(p *repository.ParticipantRepository) {
	a.participants = p
}

func (a *App) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := a.bot.GetUpdatesChan(u)
	defer a.bot.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			if upd.Message != nil {
				if err := a.handleMessage(ctx, upd.Message); err != nil {
					a.log.Warn("handle message", zap.Error(err))
				}
			} else if upd.CallbackQuery != nil {
				if err := a.handleCallback(ctx, upd.CallbackQuery); err != nil {
					a.log.Warn("handle callback", zap.Error(err))
				}
			}
		}
	}
}

func (a *App) SendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := a.bot.Send(msg)
	return err
}

func (a *App) isAdmin(tgID int64) bool {
	return a.admins[tgID]
}

// adminContext lets a Telegram admin pass the write policy.
func (a *App) adminContext(ctx context.Context, tgID int64) context.Context {
	return policy.WithIdentity(ctx, models.Identity{Username: "tg:" + strconv.FormatInt(tgID, 10), Role: models.RoleAdmin})
}

// ParticipantRegistered tells every admin about a new registration.
func (a *App) ParticipantRegistered(_ context.Context, ev models.Event, p models.Participant) {
	text := FormatRegistration(ev, p)
	go a.notifyAdmins(text)
}

func (a *App) notifyAdmins(text string) int {
	sent := 0
	for id := range a.admins {
		if err := a.SendText(id, text); err != nil {
			a.log.Warn("notify admin", zap.Int64("tg_id", id), zap.Error(err))
			continue
		}
		sent++
		time.Sleep(35 * time.Millisecond) // simple anti-flood
	}
	return sent
}

// ---------- Message handling ----------

func (a *App) handleMessage(ctx context.Context, m *tgbotapi.Message) error {
	if m.From == nil {
		return nil
	}
	tgID := m.From.ID
	txt := strings.TrimSpace(m.Text)

	switch {
	case strings.HasPrefix(txt, "/start"):
		a.setState(tgID, userState{})
		return a.showStart(tgID)
	case strings.HasPrefix(txt, "/kejohanan"):
		return a.showEvents(ctx, tgID)
	case strings.HasPrefix(txt, "/peserta"):
		if !a.isAdmin(tgID) {
			return a.SendText(tgID, "Akses ditolak.")
		}
		arg := strings.TrimSpace(strings.TrimPrefix(txt, "/peserta"))
		id, err := strconv.Atoi(arg)
		if err != nil {
			return a.SendText(tgID, "Guna: /peserta <id kejohanan>")
		}
		return a.showCounts(ctx, tgID, id)
	case strings.HasPrefix(txt, "/baru"):
		if !a.isAdmin(tgID) {
			return a.SendText(tgID, "Akses ditolak.")
		}
		a.setState(tgID, userState{Flow: flowEventCreate, Step: 1, Data: map[string]string{}})
		return a.SendText(tgID, "Kejohanan baru. Nama kejohanan:")
	case strings.HasPrefix(txt, "/batal"):
		a.setState(tgID, userState{})
		return a.SendText(tgID, "Dibatalkan.")
	}

	if st := a.getState(tgID); st.Flow == flowEventCreate {
		return a.handleEventCreateFlow(ctx, tgID, txt, st)
	}
	return a.showStart(tgID)
}

func (a *App) showStart(tgID int64) error {
	text := "Sistem Pendaftaran Olahraga\n\n/kejohanan senarai kejohanan"
	if a.isAdmin(tgID) {
		text += "\n/peserta <id> ringkasan peserta\n/baru daftar kejohanan baru"
	}
	msg := tgbotapi.NewMessage(tgID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📅 Senarai kejohanan", "u:events"),
		),
	)
	_, err := a.bot.Send(msg)
	return err
}

func (a *App) showEvents(ctx context.Context, tgID int64) error {
	events, err := a.events.List(ctx)
	if err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(tgID, FormatEvents(events))
	if a.isAdmin(tgID) && len(events) > 0 {
		rows := [][]tgbotapi.InlineKeyboardButton{}
		for _, ev := range events {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("👥 "+ev.Name, "a:counts:"+strconv.Itoa(ev.ID)),
			))
		}
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	}
	_, err = a.bot.Send(msg)
	return err
}

func (a *App) showCounts(ctx context.Context, tgID int64, eventID int) error {
	if a.participants == nil {
		return a.SendText(tgID, "Senarai peserta tidak tersedia.")
	}
	events, err := a.events.List(ctx)
	if err != nil {
		return err
	}
	for _, ev := range events {
		if ev.ID != eventID {
			continue
		}
		ps, err := a.participants.ListFor(ctx, ev)
		if err != nil {
			return err
		}
		return a.SendText(tgID, FormatCounts(ev, ps))
	}
	return a.SendText(tgID, "Kejohanan tidak dijumpai.")
}

// ---------- Callback handling ----------

func (a *App) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	tgID := q.From.ID
	data := q.Data

	// ack
	cb := tgbotapi.NewCallback(q.ID, "")
	_, _ = a.bot.Request(cb)

	if data == "u:events" {
		return a.showEvents(ctx, tgID)
	}
	if strings.HasPrefix(data, "a:") {
		if !a.isAdmin(tgID) {
			return a.SendText(tgID, "Akses ditolak.")
		}
		if rest, ok := strings.CutPrefix(data, "a:counts:"); ok {
			id, err := strconv.Atoi(rest)
			if err != nil {
				return nil
			}
			return a.showCounts(ctx, tgID, id)
		}
	}
	return nil
}

// ---------- Flows ----------

var eventCreatePrompts = []string{
	"Nama kejohanan:",
	"Tarikh (contoh 2025-05-01):",
	"Tempat:",
	"Jumlah lorong 100M:",
	"Jumlah lorong 200M:",
	"Jumlah lorong 110M berpagar:",
}

var eventCreateKeys = []string{"name", "date", "venue", "l100", "l200", "l110"}

func (a *App) handleEventCreateFlow(ctx context.Context, tgID int64, txt string, st userState) error {
	if st.Data == nil {
		st.Data = map[string]string{}
	}
	if st.Step < 1 || st.Step > len(eventCreateKeys) {
		a.setState(tgID, userState{})
		return a.SendText(tgID, "Set semula. /baru")
	}
	if txt == "" {
		return a.SendText(tgID, "Kosong. Cuba lagi: "+eventCreatePrompts[st.Step-1])
	}
	if st.Step > 3 {
		if n, err := strconv.Atoi(txt); err != nil || n <= 0 {
			return a.SendText(tgID, "Perlu nombor lebih daripada 0. "+eventCreatePrompts[st.Step-1])
		}
	}
	st.Data[eventCreateKeys[st.Step-1]] = txt
	if st.Step < len(eventCreateKeys) {
		st.Step++
		a.setState(tgID, st)
		return a.SendText(tgID, eventCreatePrompts[st.Step-1])
	}

	a.setState(tgID, userState{})
	d := draftFromFlow(st.Data)
	ev, err := a.events.Create(a.adminContext(ctx, tgID), d)
	if err != nil {
		return a.SendText(tgID, "Gagal: "+err.Error())
	}
	return a.SendText(tgID, fmt.Sprintf("✅ Kejohanan %s didaftarkan (id %d).", ev.Name, ev.ID))
}

func draftFromFlow(data map[string]string) models.EventDraft {
	atoi := func(k string) int {
		n, _ := strconv.Atoi(data[k])
		return n
	}
	return models.EventDraft{
		Name:             data["name"],
		Date:             data["date"],
		Venue:            data["venue"],
		Lanes100M:        atoi("l100"),
		Lanes200M:        atoi("l200"),
		Lanes110MHurdles: atoi("l110"),
	}
}

func (a *App) getState(tgID int64) userState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state[tgID]
}

func (a *App) setState(tgID int64, st userState) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state[tgID] = st
}
