// Package heats draws the start lists of one entry at an event. Laned
// entries are split into heats no larger than the event's lane count; field
// entries run as a single flight.
package heats

import (
	"fmt"

	"athletics-registry/internal/models"
)

type Request struct {
	Entry    models.Entry
	Category models.Category
	AgeGroup models.AgeGroup
}

// Slot is one starting position. Relay slots hold a whole team.
type Slot struct {
	Lane         int                  `json:"lane,omitempty"`
	Team         string               `json:"team"`
	Participants []models.Participant `json:"participants"`
}

type Heat struct {
	Number int    `json:"number"`
	Slots  []Slot `json:"slots"`
}

type Result struct {
	Event    string          `json:"event"`
	Entry    models.Entry    `json:"entry"`
	Category models.Category `json:"category,omitempty"`
	AgeGroup models.AgeGroup `json:"ageGroup,omitempty"`
	Lanes    int             `json:"lanes,omitempty"`
	Heats    []Heat          `json:"heats"`
}

// Generate draws heats for req from ps, keeping registration order.
func Generate(ev models.Event, ps []models.Participant, req Request) (Result, error) {
	if !req.Entry.Valid() {
		return Result{}, &models.ValidationError{Field: models.ColEntries, Message: fmt.Sprintf("unknown entry %q", string(req.Entry))}
	}
	res := Result{Event: ev.Name, Entry: req.Entry, Category: req.Category, AgeGroup: req.AgeGroup, Heats: []Heat{}}

	lanes := laneCount(ev, req.Entry)
	if laned(req.Entry) && lanes <= 0 {
		return Result{}, &models.ValidationError{
			Field:   models.ColEntries,
			Message: fmt.Sprintf("%s has no lanes configured for %s", ev.Name, req.Entry),
		}
	}

	slots := collect(ps, req)
	if len(slots) == 0 {
		return res, nil
	}
	if !laned(req.Entry) {
		res.Heats = append(res.Heats, Heat{Number: 1, Slots: slots})
		return res, nil
	}

	res.Lanes = lanes
	next := 0
	for i, size := range Split(len(slots), lanes) {
		h := Heat{Number: i + 1, Slots: make([]Slot, 0, size)}
		for lane := 1; lane <= size; lane++ {
			s := slots[next]
			s.Lane = lane
			h.Slots = append(h.Slots, s)
			next++
		}
		res.Heats = append(res.Heats, h)
	}
	return res, nil
}

// Split divides n starters into the fewest heats of at most capacity, sizes
// differing by at most one, larger heats first.
func Split(n, capacity int) []int {
	if n <= 0 || capacity <= 0 {
		return nil
	}
	count := (n + capacity - 1) / capacity
	base, extra := n/count, n%count
	sizes := make([]int, count)
	for i := range sizes {
		sizes[i] = base
		if i < extra {
			sizes[i]++
		}
	}
	return sizes
}

func laned(e models.Entry) bool {
	return e.Laned() || e.Team()
}

func laneCount(ev models.Event, e models.Entry) int {
	switch e {
	case models.EntryRelay4x100:
		return ev.Lanes100M
	case models.EntryRelay4x200:
		return ev.Lanes200M
	}
	return ev.Lanes(e)
}

// collect builds one slot per participant, or per team for relays.
func collect(ps []models.Participant, req Request) []Slot {
	var slots []Slot
	teamSlot := map[string]int{}
	for _, p := range ps {
		if !p.Entries.Has(req.Entry) {
			continue
		}
		if req.Category != "" && p.Category != req.Category {
			continue
		}
		if req.AgeGroup != "" && p.AgeGroup != req.AgeGroup {
			continue
		}
		if req.Entry.Team() {
			if i, ok := teamSlot[p.Team]; ok {
				slots[i].Participants = append(slots[i].Participants, p)
				continue
			}
			teamSlot[p.Team] = len(slots)
		}
		slots = append(slots, Slot{Team: p.Team, Participants: []models.Participant{p}})
	}
	return slots
}
