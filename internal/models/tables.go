// Package models holds the typed rows of the three registry tables and the
// rules a draft must satisfy before it is written.
package models

import (
	"fmt"
	"slices"

	"athletics-registry/internal/tabular"
)

// Table names in the spreadsheet.
const (
	TableLogin        = "Login"
	TableEvents       = "Maklumat"
	TableParticipants = "Daftar"
)

// Column headers shared by events and participants.
const (
	ColUID       = "UID"
	ColEventName = "NAMA_KEJOHANAN"
)

const (
	ColEventDate     = "TARIKH_KEJOHANAN"
	ColEventVenue    = "TEMPAT_KEJOHANAN"
	ColLanes100M     = "JUMLAH_LORONG_100M"
	ColLanes200M     = "JUMLAH_LORONG_200M"
	ColLanes110MHurd = "JUMLAH_LORONG_110M_BERPAGAR"
)

const (
	ColEventUID  = "EVENT_UID"
	ColTeam      = "PASUKAN"
	ColBibNumber = "NO_BADAN"
	ColCategory  = "KATEGORI"
	ColAgeGroup  = "UMUR"
	ColName      = "NAMA_PESERTA"
	ColEntries   = "ACARA"
)

const (
	ColUsername = "username"
	ColPassword = "password"
	ColUserType = "userType"
)

// EventColumns is the header order used when the events table is created.
var EventColumns = []string{
	ColEventName, ColEventDate, ColEventVenue,
	ColLanes100M, ColLanes200M, ColLanes110MHurd,
	ColUID,
}

// ParticipantColumns is the header order used when the participants table is
// created.
var ParticipantColumns = []string{
	ColEventName, ColTeam, ColBibNumber, ColCategory, ColAgeGroup, ColName, ColEntries,
	ColUID, ColEventUID,
}

// LoginColumns is the header order of the credentials table.
var LoginColumns = []string{ColUsername, ColPassword, ColUserType}

// Schemas maps each table to its declared columns.
var Schemas = map[string][]string{
	TableEvents:       EventColumns,
	TableParticipants: ParticipantColumns,
	TableLogin:        LoginColumns,
}

// CheckColumns rejects fields that table does not declare. The store would
// drop them silently; writers fail instead.
func CheckColumns(table string, fields tabular.Fields) error {
	cols, ok := Schemas[table]
	if !ok {
		return &ValidationError{Message: fmt.Sprintf("unknown table %q", table)}
	}
	for _, f := range fields {
		if !slices.Contains(cols, f.Name) {
			return &ValidationError{Field: f.Name, Message: fmt.Sprintf("%s has no column %s", table, f.Name)}
		}
	}
	return nil
}
