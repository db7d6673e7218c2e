package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"athletics-registry/internal/models"
	"athletics-registry/internal/policy"
	"athletics-registry/internal/store"
)

// Notifier hears about every new registration.
type Notifier interface {
	ParticipantRegistered(ctx context.Context, ev models.Event, p models.Participant)
}

type ParticipantRepository struct {
	st     store.Store
	events *EventRepository
	notify Notifier
	log    *zap.Logger

	mu           sync.Mutex
	participants []models.Participant
}

type ParticipantOption func(*ParticipantRepository)

func WithNotifier(n Notifier) ParticipantOption {
	return func(r *ParticipantRepository) { r.notify = n }
}

func NewParticipantRepository(st store.Store, events *EventRepository, log *zap.Logger, opts ...ParticipantOption) *ParticipantRepository {
	if log == nil {
		log = zap.NewNop()
	}
	r := &ParticipantRepository{st: st, events: events, log: log}
	for _, o := range opts {
		o(r)
	}
	return r
}

// List fetches the participants of the selected event and caches them.
func (r *ParticipantRepository) List(ctx context.Context) ([]models.Participant, error) {
	sel, ok := r.events.Selected()
	if !ok {
		return nil, ErrNoEventSelected
	}
	ps, err := r.ListFor(ctx, sel)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.participants = ps
	r.mu.Unlock()
	return append([]models.Participant(nil), ps...), nil
}

// ListFor fetches the participants of ev without touching the cache.
func (r *ParticipantRepository) ListFor(ctx context.Context, ev models.Event) ([]models.Participant, error) {
	recs, err := fetchRecords(ctx, r.st, models.TableParticipants)
	if err != nil {
		return nil, err
	}
	out := make([]models.Participant, 0, len(recs))
	for _, rec := range recs {
		p := models.ParticipantFromRecord(rec)
		if p.BelongsTo(ev) {
			out = append(out, p)
		}
	}
	return out, nil
}

// Participants is the last list fetched for the selected event.
func (r *ParticipantRepository) Participants() []models.Participant {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Participant(nil), r.participants...)
}

// Create registers d under the selected event.
func (r *ParticipantRepository) Create(ctx context.Context, d models.ParticipantDraft) (models.Participant, error) {
	sel, ok := r.events.Selected()
	if !ok {
		if err := d.Validate(); err != nil {
			return models.Participant{}, err
		}
		return models.Participant{}, ErrNoEventSelected
	}
	return r.CreateFor(ctx, sel, d)
}

// CreateFor registers d under ev. The event must still exist in a fresh
// event list.
func (r *ParticipantRepository) CreateFor(ctx context.Context, ev models.Event, d models.ParticipantDraft) (models.Participant, error) {
	if err := d.Validate(); err != nil {
		return models.Participant{}, err
	}
	if err := policy.Authorize(ctx, policy.CreateParticipant); err != nil {
		return models.Participant{}, err
	}
	events, err := r.events.List(ctx)
	if err != nil {
		return models.Participant{}, err
	}
	current, ok := findSame(events, ev)
	if !ok {
		return models.Participant{}, fmt.Errorf("%s: %w", ev.Name, ErrEventNotFound)
	}

	uid := uuid.NewString()
	res, err := insert(ctx, r.st, models.TableParticipants, d.Fields(uid, current))
	if err := checkWrite("create participant", res, err); err != nil {
		return models.Participant{}, err
	}
	r.log.Info("participant registered",
		zap.String("event", current.Name),
		zap.String("uid", uid),
		zap.String("team", d.Team),
	)

	ps, err := r.refresh(ctx, current)
	if err != nil {
		return models.Participant{}, err
	}
	created, ok := findCreatedParticipant(ps, uid, d.Normalize())
	if !ok {
		return models.Participant{}, fmt.Errorf("created participant %s missing after refresh", uid)
	}
	if r.notify != nil {
		r.notify.ParticipantRegistered(ctx, current, created)
	}
	return created, nil
}

// findCreatedParticipant finds a new row by uid, or on sheets without a UID
// column by the last row carrying the draft's team, bib number and name.
func findCreatedParticipant(ps []models.Participant, uid string, d models.ParticipantDraft) (models.Participant, bool) {
	for _, p := range ps {
		if p.UID == uid {
			return p, true
		}
	}
	for i := len(ps) - 1; i >= 0; i-- {
		p := ps[i]
		if p.UID == "" && p.Team == d.Team && p.BibNumber == d.BibNumber && p.Name == d.Name {
			return p, true
		}
	}
	return models.Participant{}, false
}

func (r *ParticipantRepository) Update(ctx context.Context, id int, p models.ParticipantPatch) error {
	if err := policy.Authorize(ctx, policy.UpdateParticipant); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}
	res, err := update(ctx, r.st, models.TableParticipants, id, p.Fields())
	if err := checkWrite(fmt.Sprintf("update participant %d", id), res, err); err != nil {
		return err
	}
	r.log.Info("participant updated", zap.Int("id", id))
	r.refreshSelected(ctx)
	return nil
}

// Delete removes row id. Later participants move up one id.
func (r *ParticipantRepository) Delete(ctx context.Context, id int) error {
	if err := policy.Authorize(ctx, policy.DeleteParticipant); err != nil {
		return err
	}
	res, err := r.st.DeleteRecord(ctx, models.TableParticipants, id)
	if err := checkWrite(fmt.Sprintf("delete participant %d", id), res, err); err != nil {
		return err
	}
	r.log.Info("participant deleted", zap.Int("id", id))
	r.refreshSelected(ctx)
	return nil
}

// refresh re-reads ev's participants, caching them when ev is selected.
func (r *ParticipantRepository) refresh(ctx context.Context, ev models.Event) ([]models.Participant, error) {
	ps, err := r.ListFor(ctx, ev)
	if err != nil {
		return nil, err
	}
	if sel, ok := r.events.Selected(); ok && sel.SameAs(ev) {
		r.mu.Lock()
		r.participants = ps
		r.mu.Unlock()
	}
	return ps, nil
}

func (r *ParticipantRepository) refreshSelected(ctx context.Context) {
	if _, ok := r.events.Selected(); !ok {
		return
	}
	if _, err := r.List(ctx); err != nil {
		r.log.Warn("refresh participants after write", zap.Error(err))
	}
}

// Filter narrows the cached list. It never reads the store.
func (r *ParticipantRepository) Filter(f models.ParticipantFilter) []models.Participant {
	return FilterParticipants(r.Participants(), f)
}

// FilterParticipants keeps the rows matching f in their original order.
func FilterParticipants(ps []models.Participant, f models.ParticipantFilter) []models.Participant {
	out := make([]models.Participant, 0, len(ps))
	for _, p := range ps {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	return out
}

// Teams lists the distinct teams in the cached list, sorted.
func (r *ParticipantRepository) Teams() []string {
	seen := map[string]bool{}
	var out []string
	for _, p := range r.Participants() {
		if p.Team != "" && !seen[p.Team] {
			seen[p.Team] = true
			out = append(out, p.Team)
		}
	}
	sort.Strings(out)
	return out
}

func (r *ParticipantRepository) Categories() []models.Category {
	present := map[models.Category]bool{}
	for _, p := range r.Participants() {
		present[p.Category] = true
	}
	var out []models.Category
	for _, c := range models.Categories {
		if present[c] {
			out = append(out, c)
		}
	}
	return out
}

func (r *ParticipantRepository) AgeGroups() []models.AgeGroup {
	present := map[models.AgeGroup]bool{}
	for _, p := range r.Participants() {
		present[p.AgeGroup] = true
	}
	var out []models.AgeGroup
	for _, a := range models.AgeGroups {
		if present[a] {
			out = append(out, a)
		}
	}
	return out
}
