package models

import (
	"strings"

	"athletics-registry/internal/tabular"
)

type Category string

const (
	CategoryMale   Category = "LELAKI"
	CategoryFemale Category = "PEREMPUAN"
)

var Categories = []Category{CategoryMale, CategoryFemale}

func (c Category) Valid() bool { return c == CategoryMale || c == CategoryFemale }

type AgeGroup string

var AgeGroups = []AgeGroup{"7 TAHUN", "8 TAHUN", "9 TAHUN", "10 TAHUN", "11 TAHUN", "12 TAHUN"}

func (a AgeGroup) Valid() bool {
	for _, g := range AgeGroups {
		if g == a {
			return true
		}
	}
	return false
}

// Participant is one registration row of the Daftar table.
type Participant struct {
	ID        int      `json:"id"`
	UID       string   `json:"UID,omitempty"`
	EventUID  string   `json:"EVENT_UID,omitempty"`
	EventName string   `json:"NAMA_KEJOHANAN"`
	Team      string   `json:"PASUKAN"`
	BibNumber string   `json:"NO_BADAN"`
	Category  Category `json:"KATEGORI"`
	AgeGroup  AgeGroup `json:"UMUR"`
	Name      string   `json:"NAMA_PESERTA"`
	Entries   EntrySet `json:"ACARA"`
}

func ParticipantFromRecord(r tabular.Record) Participant {
	return Participant{
		ID:        r.ID(),
		UID:       r.String(ColUID),
		EventUID:  r.String(ColEventUID),
		EventName: r.String(ColEventName),
		Team:      r.String(ColTeam),
		BibNumber: r.String(ColBibNumber),
		Category:  Category(r.String(ColCategory)),
		AgeGroup:  AgeGroup(r.String(ColAgeGroup)),
		Name:      r.String(ColName),
		Entries:   ParseEntries(r.String(ColEntries)),
	}
}

// BelongsTo joins a participant to an event: by UID when both rows carry
// one, by event name for older rows.
func (p Participant) BelongsTo(e Event) bool {
	if p.EventUID != "" && e.UID != "" {
		return p.EventUID == e.UID
	}
	return p.EventName == e.Name
}

// ParticipantDraft is a registration before it is written. The event columns
// are stamped from the selected event, not taken from the caller.
type ParticipantDraft struct {
	Team      string   `json:"PASUKAN" col:"PASUKAN" validate:"required"`
	BibNumber string   `json:"NO_BADAN" col:"NO_BADAN" validate:"required"`
	Category  Category `json:"KATEGORI" col:"KATEGORI" validate:"category"`
	AgeGroup  AgeGroup `json:"UMUR" col:"UMUR" validate:"agegroup"`
	Name      string   `json:"NAMA_PESERTA" col:"NAMA_PESERTA" validate:"required"`
	Entries   EntrySet `json:"ACARA" col:"ACARA"`
}

func (d ParticipantDraft) Normalize() ParticipantDraft {
	d.Team = strings.TrimSpace(d.Team)
	d.BibNumber = strings.TrimSpace(d.BibNumber)
	d.Category = Category(strings.ToUpper(strings.TrimSpace(string(d.Category))))
	d.AgeGroup = AgeGroup(strings.ToUpper(strings.TrimSpace(string(d.AgeGroup))))
	d.Name = strings.TrimSpace(d.Name)
	return d
}

func (d ParticipantDraft) Validate() error {
	d = d.Normalize()
	if err := Check(d); err != nil {
		return err
	}
	return d.Entries.Validate()
}

// Fields lays the draft out in ParticipantColumns order for event e.
func (d ParticipantDraft) Fields(uid string, e Event) tabular.Fields {
	d = d.Normalize()
	return tabular.Fields{
		{Name: ColEventName, Value: e.Name},
		{Name: ColTeam, Value: d.Team},
		{Name: ColBibNumber, Value: d.BibNumber},
		{Name: ColCategory, Value: string(d.Category)},
		{Name: ColAgeGroup, Value: string(d.AgeGroup)},
		{Name: ColName, Value: d.Name},
		{Name: ColEntries, Value: d.Entries.String()},
		{Name: ColUID, Value: uid},
		{Name: ColEventUID, Value: e.UID},
	}
}

type ParticipantPatch struct {
	Team      *string   `json:"PASUKAN,omitempty" col:"PASUKAN" validate:"omitnil,min=1"`
	BibNumber *string   `json:"NO_BADAN,omitempty" col:"NO_BADAN" validate:"omitnil,min=1"`
	Category  *Category `json:"KATEGORI,omitempty" col:"KATEGORI" validate:"omitnil,category"`
	AgeGroup  *AgeGroup `json:"UMUR,omitempty" col:"UMUR" validate:"omitnil,agegroup"`
	Name      *string   `json:"NAMA_PESERTA,omitempty" col:"NAMA_PESERTA" validate:"omitnil,min=1"`
	Entries   *EntrySet `json:"ACARA,omitempty" col:"ACARA"`
}

func (p ParticipantPatch) Validate() error {
	if len(p.Fields()) == 0 {
		return &ValidationError{Message: "nothing to update"}
	}
	p = p.normalized()
	if err := Check(p); err != nil {
		return err
	}
	if p.Entries != nil {
		return p.Entries.Validate()
	}
	return nil
}

func (p ParticipantPatch) normalized() ParticipantPatch {
	p.Team = trimPtr(p.Team)
	p.BibNumber = trimPtr(p.BibNumber)
	p.Name = trimPtr(p.Name)
	if p.Category != nil {
		c := Category(strings.ToUpper(strings.TrimSpace(string(*p.Category))))
		p.Category = &c
	}
	if p.AgeGroup != nil {
		a := AgeGroup(strings.ToUpper(strings.TrimSpace(string(*p.AgeGroup))))
		p.AgeGroup = &a
	}
	return p
}

func (p ParticipantPatch) Fields() tabular.Fields {
	p = p.normalized()
	var f tabular.Fields
	f = setString(f, ColTeam, p.Team)
	f = setString(f, ColBibNumber, p.BibNumber)
	if p.Category != nil {
		f = f.Set(ColCategory, string(*p.Category))
	}
	if p.AgeGroup != nil {
		f = f.Set(ColAgeGroup, string(*p.AgeGroup))
	}
	f = setString(f, ColName, p.Name)
	if p.Entries != nil {
		f = f.Set(ColEntries, p.Entries.String())
	}
	return f
}

// ParticipantFilter keeps rows matching every non-empty criterion.
type ParticipantFilter struct {
	Team     string
	Category Category
	AgeGroup AgeGroup
}

func (f ParticipantFilter) Match(p Participant) bool {
	if f.Team != "" && p.Team != f.Team {
		return false
	}
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.AgeGroup != "" && p.AgeGroup != f.AgeGroup {
		return false
	}
	return true
}
