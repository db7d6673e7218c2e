package models

import (
	"strings"

	"athletics-registry/internal/tabular"
)

// Event is one competition row of the Maklumat table.
type Event struct {
	ID               int    `json:"id"`
	UID              string `json:"UID,omitempty"`
	Name             string `json:"NAMA_KEJOHANAN"`
	Date             string `json:"TARIKH_KEJOHANAN"`
	Venue            string `json:"TEMPAT_KEJOHANAN"`
	Lanes100M        int    `json:"JUMLAH_LORONG_100M"`
	Lanes200M        int    `json:"JUMLAH_LORONG_200M"`
	Lanes110MHurdles int    `json:"JUMLAH_LORONG_110M_BERPAGAR"`
}

func EventFromRecord(r tabular.Record) Event {
	return Event{
		ID:               r.ID(),
		UID:              r.String(ColUID),
		Name:             r.String(ColEventName),
		Date:             r.String(ColEventDate),
		Venue:            r.String(ColEventVenue),
		Lanes100M:        r.Int(ColLanes100M),
		Lanes200M:        r.Int(ColLanes200M),
		Lanes110MHurdles: r.Int(ColLanes110MHurd),
	}
}

// Lanes is the lane count configured for a laned entry, 0 otherwise.
func (e Event) Lanes(entry Entry) int {
	switch entry {
	case Entry100M:
		return e.Lanes100M
	case Entry200M:
		return e.Lanes200M
	case Entry110MHurdles:
		return e.Lanes110MHurdles
	}
	return 0
}

// SameAs matches by UID when both sides carry one, by name otherwise.
func (e Event) SameAs(o Event) bool {
	if e.UID != "" && o.UID != "" {
		return e.UID == o.UID
	}
	return e.Name == o.Name
}

type EventDraft struct {
	Name             string `json:"NAMA_KEJOHANAN" col:"NAMA_KEJOHANAN" validate:"required"`
	Date             string `json:"TARIKH_KEJOHANAN" col:"TARIKH_KEJOHANAN" validate:"required"`
	Venue            string `json:"TEMPAT_KEJOHANAN" col:"TEMPAT_KEJOHANAN" validate:"required"`
	Lanes100M        int    `json:"JUMLAH_LORONG_100M" col:"JUMLAH_LORONG_100M" validate:"gt=0"`
	Lanes200M        int    `json:"JUMLAH_LORONG_200M" col:"JUMLAH_LORONG_200M" validate:"gt=0"`
	Lanes110MHurdles int    `json:"JUMLAH_LORONG_110M_BERPAGAR" col:"JUMLAH_LORONG_110M_BERPAGAR" validate:"gt=0"`
}

// Normalize trims the text fields.
func (d EventDraft) Normalize() EventDraft {
	d.Name = strings.TrimSpace(d.Name)
	d.Date = strings.TrimSpace(d.Date)
	d.Venue = strings.TrimSpace(d.Venue)
	return d
}

func (d EventDraft) Validate() error {
	return Check(d.Normalize())
}

// Fields lays the draft out in EventColumns order.
func (d EventDraft) Fields(uid string) tabular.Fields {
	d = d.Normalize()
	return tabular.Fields{
		{Name: ColEventName, Value: d.Name},
		{Name: ColEventDate, Value: d.Date},
		{Name: ColEventVenue, Value: d.Venue},
		{Name: ColLanes100M, Value: d.Lanes100M},
		{Name: ColLanes200M, Value: d.Lanes200M},
		{Name: ColLanes110MHurd, Value: d.Lanes110MHurdles},
		{Name: ColUID, Value: uid},
	}
}

// EventPatch changes only the fields that are set.
type EventPatch struct {
	Name             *string `json:"NAMA_KEJOHANAN,omitempty" col:"NAMA_KEJOHANAN" validate:"omitnil,min=1"`
	Date             *string `json:"TARIKH_KEJOHANAN,omitempty" col:"TARIKH_KEJOHANAN" validate:"omitnil,min=1"`
	Venue            *string `json:"TEMPAT_KEJOHANAN,omitempty" col:"TEMPAT_KEJOHANAN" validate:"omitnil,min=1"`
	Lanes100M        *int    `json:"JUMLAH_LORONG_100M,omitempty" col:"JUMLAH_LORONG_100M" validate:"omitnil,gt=0"`
	Lanes200M        *int    `json:"JUMLAH_LORONG_200M,omitempty" col:"JUMLAH_LORONG_200M" validate:"omitnil,gt=0"`
	Lanes110MHurdles *int    `json:"JUMLAH_LORONG_110M_BERPAGAR,omitempty" col:"JUMLAH_LORONG_110M_BERPAGAR" validate:"omitnil,gt=0"`
}

func (p EventPatch) Validate() error {
	if len(p.Fields()) == 0 {
		return &ValidationError{Message: "nothing to update"}
	}
	return Check(p.trimmed())
}

func (p EventPatch) trimmed() EventPatch {
	p.Name = trimPtr(p.Name)
	p.Date = trimPtr(p.Date)
	p.Venue = trimPtr(p.Venue)
	return p
}

func (p EventPatch) Fields() tabular.Fields {
	p = p.trimmed()
	var f tabular.Fields
	f = setString(f, ColEventName, p.Name)
	f = setString(f, ColEventDate, p.Date)
	f = setString(f, ColEventVenue, p.Venue)
	f = setInt(f, ColLanes100M, p.Lanes100M)
	f = setInt(f, ColLanes200M, p.Lanes200M)
	f = setInt(f, ColLanes110MHurd, p.Lanes110MHurdles)
	return f
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

func setString(f tabular.Fields, name string, v *string) tabular.Fields {
	if v == nil {
		return f
	}
	return f.Set(name, *v)
}

func setInt(f tabular.Fields, name string, v *int) tabular.Fields {
	if v == nil {
		return f
	}
	return f.Set(name, *v)
}
