package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"athletics-registry/internal/heats"
	"athletics-registry/internal/models"
	"athletics-registry/internal/policy"
	"athletics-registry/internal/repository"
	"athletics-registry/internal/session"
)

type API struct {
	events       *repository.EventRepository
	participants *repository.ParticipantRepository
	auth         *session.Authenticator
	key          []byte
	ttl          time.Duration
	log          *zap.Logger
}

func NewAPI(events *repository.EventRepository, participants *repository.ParticipantRepository,
	auth *session.Authenticator, key []byte, ttl time.Duration, log *zap.Logger) *API {
	if log == nil {
		log = zap.NewNop()
	}
	return &API{events: events, participants: participants, auth: auth, key: key, ttl: ttl, log: log}
}

func (a *API) Register(e *echo.Echo) {
	e.POST("/api/login", a.Signin)
	e.POST("/api/register", a.SignUp)

	g := e.Group("/api", JWT(a.key))
	g.GET("/me", a.Me)
	g.GET("/events", a.ListEvents)
	g.POST("/events", a.CreateEvent)
	g.PUT("/events/:id", a.UpdateEvent)
	g.GET("/events/:id/participants", a.ListParticipants)
	g.POST("/events/:id/participants", a.CreateParticipant)
	g.PUT("/events/:id/participants/:pid", a.UpdateParticipant)
	g.DELETE("/events/:id/participants/:pid", a.DeleteParticipant)
	g.GET("/events/:id/participants.csv", a.ExportParticipants)
	g.GET("/events/:id/heats", a.Heats)
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Signin checks credentials against the Login table and returns a token.
func (a *API) Signin(c echo.Context) error {
	var creds credentials
	if err := c.Bind(&creds); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	id, err := a.auth.Authenticate(c.Request().Context(), creds.Username, creds.Password)
	if err != nil {
		return httpError(err)
	}
	token, exp, err := session.IssueToken(a.key, id, a.ttl)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{
		"token":     token,
		"expiresAt": exp.UTC().Format(time.RFC3339),
		"user":      id,
	})
}

func (a *API) SignUp(c echo.Context) error {
	var creds credentials
	if err := c.Bind(&creds); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := a.auth.Register(c.Request().Context(), creds.Username, creds.Password); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, map[string]any{"success": true, "username": strings.TrimSpace(creds.Username)})
}

func (a *API) Me(c echo.Context) error {
	id, ok := identityOf(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return c.JSON(http.StatusOK, id)
}

func (a *API) ListEvents(c echo.Context) error {
	events, err := a.events.List(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, events)
}

func (a *API) CreateEvent(c echo.Context) error {
	var d models.EventDraft
	if err := c.Bind(&d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ev, err := a.events.Create(c.Request().Context(), d)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, ev)
}

func (a *API) UpdateEvent(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	var p models.EventPatch
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ev, err := a.events.Update(c.Request().Context(), id, p)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, ev)
}

func (a *API) ListParticipants(c echo.Context) error {
	if err := policy.Authorize(c.Request().Context(), policy.ListParticipants); err != nil {
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
	f := models.ParticipantFilter{
		Team:     c.QueryParam("pasukan"),
		Category: models.Category(strings.ToUpper(c.QueryParam("kategori"))),
		AgeGroup: models.AgeGroup(strings.ToUpper(c.QueryParam("umur"))),
	}
	return c.JSON(http.StatusOK, repository.FilterParticipants(ps, f))
}

func (a *API) CreateParticipant(c echo.Context) error {
	ev, err := a.event(c)
	if err != nil {
		return err
	}
	var d models.ParticipantDraft
	if err := c.Bind(&d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := a.participants.CreateFor(c.Request().Context(), ev, d)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (a *API) UpdateParticipant(c echo.Context) error {
	pid, err := a.participantOf(c)
	if err != nil {
		return err
	}
	var p models.ParticipantPatch
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := a.participants.Update(c.Request().Context(), pid, p); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}

func (a *API) DeleteParticipant(c echo.Context) error {
	pid, err := a.participantOf(c)
	if err != nil {
		return err
	}
	if err := a.participants.Delete(c.Request().Context(), pid); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (a *API) Heats(c echo.Context) error {
	if err := policy.Authorize(c.Request().Context(), policy.GenerateHeats); err != nil {
		return httpError(err)
	}
	entry := models.Entry(strings.ToUpper(strings.TrimSpace(c.QueryParam("acara"))))
	if entry == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "acara is required")
	}
	ev, err := a.event(c)
	if err != nil {
		return err
	}
	ps, err := a.participants.ListFor(c.Request().Context(), ev)
	if err != nil {
		return httpError(err)
	}
	res, err := heats.Generate(ev, ps, heats.Request{
		Entry:    entry,
		Category: models.Category(strings.ToUpper(c.QueryParam("kategori"))),
		AgeGroup: models.AgeGroup(strings.ToUpper(c.QueryParam("umur"))),
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}

// event resolves :id against a fresh event list.
func (a *API) event(c echo.Context) (models.Event, error) {
	id, err := intParam(c, "id")
	if err != nil {
		return models.Event{}, err
	}
	events, err := a.events.List(c.Request().Context())
	if err != nil {
		return models.Event{}, httpError(err)
	}
	for _, ev := range events {
		if ev.ID == id {
			return ev, nil
		}
	}
	return models.Event{}, echo.NewHTTPError(http.StatusNotFound, "event not found")
}

// participantOf checks that :pid is registered under :id.
func (a *API) participantOf(c echo.Context) (int, error) {
	ev, err := a.event(c)
	if err != nil {
		return 0, err
	}
	pid, err := intParam(c, "pid")
	if err != nil {
		return 0, err
	}
	ps, err := a.participants.ListFor(c.Request().Context(), ev)
	if err != nil {
		return 0, httpError(err)
	}
	for _, p := range ps {
		if p.ID == pid {
			return pid, nil
		}
	}
	return 0, echo.NewHTTPError(http.StatusNotFound, "participant not found")
}

func intParam(c echo.Context, name string) (int, error) {
	n, err := strconv.Atoi(c.Param(name))
	if err != nil || n < 1 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return n, nil
}
