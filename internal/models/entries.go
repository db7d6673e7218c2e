package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"athletics-registry/internal/util"
)

// Entry is one contest a participant is registered for.
type Entry string

const (
	Entry100M        Entry = "100M"
	Entry200M        Entry = "200M"
	Entry110MHurdles Entry = "110M BERPAGAR"
	EntryLongJump    Entry = "LOMPAT JAUH"
	EntryHighJump    Entry = "LOMPAT TINGGI"
	EntryShotPut     Entry = "LONTAR PELURU"
	EntryRelay4x100  Entry = "4X100M"
	EntryRelay4x200  Entry = "4X200M"
)

var IndividualEntries = []Entry{
	Entry100M, Entry200M, Entry110MHurdles, EntryLongJump, EntryHighJump, EntryShotPut,
}

var TeamEntries = []Entry{EntryRelay4x100, EntryRelay4x200}

const (
	MaxIndividualEntries = 2
	MaxTeamEntries       = 2
)

var (
	ErrTooManyIndividual = &ValidationError{Field: ColEntries, Message: "Peserta hanya boleh mengambil maksimum 2 acara individu"}
	ErrTooManyTeam       = &ValidationError{Field: ColEntries, Message: "Peserta hanya boleh mengambil maksimum 2 acara berkumpulan"}
	ErrNoEntries         = &ValidationError{Field: ColEntries, Message: "at least one entry is required"}
)

func (e Entry) Individual() bool { return containsEntry(IndividualEntries, e) }

func (e Entry) Team() bool { return containsEntry(TeamEntries, e) }

func (e Entry) Valid() bool { return e.Individual() || e.Team() }

// Laned reports whether the entry is run in lanes and split into heats.
func (e Entry) Laned() bool {
	return e == Entry100M || e == Entry200M || e == Entry110MHurdles
}

func containsEntry(list []Entry, e Entry) bool {
	for _, x := range list {
		if x == e {
			return true
		}
	}
	return false
}

// EntrySet is a participant's entries in the order they were picked.
type EntrySet []Entry

// ParseEntries reads the comma separated cell form.
func ParseEntries(s string) EntrySet {
	parts := util.SplitTrimmed(s, ",")
	out := make(EntrySet, 0, len(parts))
	for _, p := range parts {
		out = append(out, Entry(strings.ToUpper(p)))
	}
	return out
}

// String is the cell form, joined with ", ".
func (s EntrySet) String() string {
	parts := make([]string, len(s))
	for i, e := range s {
		parts[i] = string(e)
	}
	return strings.Join(parts, ", ")
}

// UnmarshalJSON accepts a list of codes or the comma separated cell form.
func (s *EntrySet) UnmarshalJSON(b []byte) error {
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		out := make(EntrySet, 0, len(list))
		for _, e := range list {
			out = append(out, Entry(strings.ToUpper(strings.TrimSpace(e))))
		}
		*s = out
		return nil
	}
	var cell string
	if err := json.Unmarshal(b, &cell); err != nil {
		return fmt.Errorf("%s: expected a list or a string", ColEntries)
	}
	*s = ParseEntries(cell)
	return nil
}

func (s EntrySet) Has(e Entry) bool { return containsEntry(s, e) }

func (s EntrySet) counts() (individual, team int) {
	for _, e := range s {
		switch {
		case e.Individual():
			individual++
		case e.Team():
			team++
		}
	}
	return individual, team
}

// Validate checks the set a participant may be registered with.
func (s EntrySet) Validate() error {
	if len(s) == 0 {
		return ErrNoEntries
	}
	seen := make(map[Entry]bool, len(s))
	for _, e := range s {
		if !e.Valid() {
			return &ValidationError{Field: ColEntries, Message: fmt.Sprintf("unknown entry %q", string(e))}
		}
		if seen[e] {
			return &ValidationError{Field: ColEntries, Message: fmt.Sprintf("duplicate entry %q", string(e))}
		}
		seen[e] = true
	}
	return s.checkLimits()
}

func (s EntrySet) checkLimits() error {
	individual, team := s.counts()
	if individual > MaxIndividualEntries {
		return ErrTooManyIndividual
	}
	if team > MaxTeamEntries {
		return ErrTooManyTeam
	}
	return nil
}

// Toggle adds or removes e. A change that would break a limit is refused and
// the receiver is returned unchanged together with the reason.
func (s EntrySet) Toggle(e Entry, on bool) (EntrySet, error) {
	if !e.Valid() {
		return s, &ValidationError{Field: ColEntries, Message: fmt.Sprintf("unknown entry %q", string(e))}
	}
	if !on {
		out := make(EntrySet, 0, len(s))
		for _, x := range s {
			if x != e {
				out = append(out, x)
			}
		}
		return out, nil
	}
	if s.Has(e) {
		return s, nil
	}
	next := append(append(EntrySet{}, s...), e)
	if err := next.checkLimits(); err != nil {
		return s, err
	}
	return next, nil
}
