package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"athletics-registry/internal/localstore"
	"athletics-registry/internal/models"
	"athletics-registry/internal/policy"
	"athletics-registry/internal/store"
)

type EventRepository struct {
	st    store.Store
	slots localstore.Slots
	log   *zap.Logger

	mu       sync.Mutex
	events   []models.Event
	selected *models.Event
}

// NewEventRepository restores a previously selected event from slots. A slot
// that no longer parses is dropped.
func NewEventRepository(st store.Store, slots localstore.Slots, log *zap.Logger) *EventRepository {
	if log == nil {
		log = zap.NewNop()
	}
	if slots == nil {
		slots = localstore.NewMemory()
	}
	r := &EventRepository{st: st, slots: slots, log: log}
	if raw, ok := slots.Get(SelectedEventSlot); ok && raw != "" {
		var ev models.Event
		if err := json.Unmarshal([]byte(raw), &ev); err != nil {
			log.Warn("dropping unreadable event selection", zap.Error(err))
			_ = slots.Remove(SelectedEventSlot)
		} else {
			r.selected = &ev
		}
	}
	return r
}

// List fetches every event in sheet order and re-resolves the selection
// against the fresh rows.
func (r *EventRepository) List(ctx context.Context) ([]models.Event, error) {
	recs, err := fetchRecords(ctx, r.st, models.TableEvents)
	if err != nil {
		return nil, err
	}
	events := make([]models.Event, 0, len(recs))
	for _, rec := range recs {
		events = append(events, models.EventFromRecord(rec))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = events
	if r.selected != nil {
		if fresh, ok := findSame(events, *r.selected); ok {
			if fresh != *r.selected {
				r.persistLocked(fresh)
			}
		} else {
			r.log.Warn("selected event missing from fresh list",
				zap.String("event", r.selected.Name), zap.String("uid", r.selected.UID))
		}
	}
	return append([]models.Event(nil), events...), nil
}

// Events is the last fetched list.
func (r *EventRepository) Events() []models.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Event(nil), r.events...)
}

// Find looks id up in the last fetched list.
func (r *EventRepository) Find(id int) (models.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return findID(r.events, id)
}

// Select marks a cached event as current and persists it. Unknown ids leave
// the selection alone.
func (r *EventRepository) Select(id int) (models.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev, ok := findID(r.events, id)
	if !ok {
		return models.Event{}, false
	}
	r.persistLocked(ev)
	return ev, true
}

func (r *EventRepository) Selected() (models.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.selected == nil {
		return models.Event{}, false
	}
	return *r.selected, true
}

func (r *EventRepository) ClearSelection() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selected = nil
	return r.slots.Remove(SelectedEventSlot)
}

func (r *EventRepository) Create(ctx context.Context, d models.EventDraft) (models.Event, error) {
	if err := d.Validate(); err != nil {
		return models.Event{}, err
	}
	if err := policy.Authorize(ctx, policy.CreateEvent); err != nil {
		return models.Event{}, err
	}
	uid := uuid.NewString()
	res, err := insert(ctx, r.st, models.TableEvents, d.Fields(uid))
	if err := checkWrite("create event", res, err); err != nil {
		return models.Event{}, err
	}
	r.log.Info("event created", zap.String("event", d.Name), zap.String("uid", uid))

	events, err := r.List(ctx)
	if err != nil {
		return models.Event{}, err
	}
	if ev, ok := findCreatedEvent(events, uid, d.Normalize().Name); ok {
		return ev, nil
	}
	return models.Event{}, fmt.Errorf("created event %s: %w", uid, ErrEventNotFound)
}

// findCreatedEvent finds a new row by uid. Sheets without a UID column drop
// it, so the last row with the same name stands in.
func findCreatedEvent(events []models.Event, uid, name string) (models.Event, bool) {
	for _, ev := range events {
		if ev.UID == uid {
			return ev, true
		}
	}
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].UID == "" && events[i].Name == name {
			return events[i], true
		}
	}
	return models.Event{}, false
}

func (r *EventRepository) Update(ctx context.Context, id int, p models.EventPatch) (models.Event, error) {
	if err := p.Validate(); err != nil {
		return models.Event{}, err
	}
	if err := policy.Authorize(ctx, policy.UpdateEvent); err != nil {
		return models.Event{}, err
	}
	res, err := update(ctx, r.st, models.TableEvents, id, p.Fields())
	if err := checkWrite(fmt.Sprintf("update event %d", id), res, err); err != nil {
		return models.Event{}, err
	}
	r.log.Info("event updated", zap.Int("id", id))

	events, err := r.List(ctx)
	if err != nil {
		return models.Event{}, err
	}
	ev, ok := findID(events, id)
	if !ok {
		return models.Event{}, fmt.Errorf("updated event %d: %w", id, ErrEventNotFound)
	}
	return ev, nil
}

func (r *EventRepository) persistLocked(ev models.Event) {
	r.selected = &ev
	b, err := json.Marshal(ev)
	if err != nil {
		r.log.Warn("encode event selection", zap.Error(err))
		return
	}
	if err := r.slots.Set(SelectedEventSlot, string(b)); err != nil {
		r.log.Warn("persist event selection", zap.Error(err))
	}
}

func findID(events []models.Event, id int) (models.Event, bool) {
	for _, ev := range events {
		if ev.ID == id {
			return ev, true
		}
	}
	return models.Event{}, false
}

func findSame(events []models.Event, want models.Event) (models.Event, bool) {
	for _, ev := range events {
		if ev.SameAs(want) {
			return ev, true
		}
	}
	return models.Event{}, false
}
