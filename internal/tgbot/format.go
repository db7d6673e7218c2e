package tgbot

import (
	"fmt"
	"strings"

	"athletics-registry/internal/models"
)

func FormatEvents(events []models.Event) string {
	if len(events) == 0 {
		return "Tiada kejohanan lagi."
	}
	var b strings.Builder
	b.WriteString("📅 Kejohanan:")
	for _, ev := range events {
		fmt.Fprintf(&b, "\n%d. %s\n   %s, %s\n   Lorong: 100M %d, 200M %d, 110M berpagar %d",
			ev.ID, ev.Name, ev.Date, ev.Venue, ev.Lanes100M, ev.Lanes200M, ev.Lanes110MHurdles)
	}
	return b.String()
}

// FormatCounts summarises an event's participants by category and age group.
func FormatCounts(ev models.Event, ps []models.Participant) string {
	var b strings.Builder
	fmt.Fprintf(&b, "👥 %s: %d peserta", ev.Name, len(ps))
	for _, c := range models.Categories {
		for _, g := range models.AgeGroups {
			n := 0
			for _, p := range ps {
				if p.Category == c && p.AgeGroup == g {
					n++
				}
			}
			if n > 0 {
				fmt.Fprintf(&b, "\n%s %s: %d", c, g, n)
			}
		}
	}
	return b.String()
}

func FormatRegistration(ev models.Event, p models.Participant) string {
	return fmt.Sprintf("🆕 Pendaftaran baru (%s)\n%s, %s\nNo. badan %s, %s %s\nAcara: %s",
		ev.Name, p.Name, p.Team, p.BibNumber, p.Category, p.AgeGroup, p.Entries)
}
