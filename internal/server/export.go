package server

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"athletics-registry/internal/models"
	"athletics-registry/internal/policy"
)

var exportHeader = []string{
	"id", models.ColEventName, models.ColTeam, models.ColBibNumber,
	models.ColCategory, models.ColAgeGroup, models.ColName, models.ColEntries,
}

// ExportParticipants streams the event's participants as CSV.
func (a *API) ExportParticipants(c echo.Context) error {
	if err := policy.Authorize(c.Request().Context(), policy.ExportParticipants); err != nil {
		return httpError(err)
	}
	ev, err := a.event(c)
	if err != nil {
		return err
	}
	ps, err := a.participants.ListFor(c.Request().Context(), ev)
	if err != nil {
		return httpError(err)
	}
	body, err := BuildParticipantsCSV(ps)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="peserta_%s.csv"`, fileSafe(ev.Name)))
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", body)
}

func BuildParticipantsCSV(ps []models.Participant) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeader); err != nil {
		return nil, err
	}
	for _, p := range ps {
		rec := []string{
			strconv.Itoa(p.ID), p.EventName, p.Team, p.BibNumber,
			string(p.Category), string(p.AgeGroup), p.Name, p.Entries.String(),
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func fileSafe(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		}
		return '_'
	}, s)
}
