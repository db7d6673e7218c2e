// Package endpoint serves the spreadsheet web-app protocol: one URL, the verb
// in the "action" parameter, every answer a JSON envelope with HTTP 200.
package endpoint

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"athletics-registry/internal/store"
	"athletics-registry/internal/tabular"
	"athletics-registry/internal/util"
)

type Handler struct {
	st     store.Store
	secret string
	log    *zap.Logger
}

// New serves st. Every request must carry an X-Signature header made with
// secret; with an empty secret the endpoint refuses everything.
func New(st store.Store, secret string, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{st: st, secret: secret, log: log}
}

// Register mounts GET (read) and POST (create/update/delete) on path.
func (h *Handler) Register(e *echo.Echo, path string) {
	e.GET(path, h.Get)
	e.POST(path, h.Post)
}

func (h *Handler) Get(c echo.Context) error {
	action := c.QueryParam("action")
	sheet := c.QueryParam("sheet")
	if err := h.verify(c, action, sheet, "", ""); err != nil {
		return err
	}
	if action != store.ActionRead {
		return c.JSON(http.StatusOK, tabular.WriteFailure(tabular.ErrInvalidAction))
	}

	res, err := h.st.FetchTable(c.Request().Context(), sheet)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	if !res.OK() {
		return c.JSON(http.StatusOK, &tabular.WriteResult{Status: res.Status, Message: res.Message})
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) Post(c echo.Context) error {
	action := c.FormValue("action")
	sheet := c.FormValue("sheet")
	rawID := c.FormValue("id")
	rawData := c.FormValue("data")
	if err := h.verify(c, action, sheet, rawID, rawData); err != nil {
		return err
	}

	if (action == store.ActionCreate || action == store.ActionUpdate) && rawData == "" {
		return c.JSON(http.StatusOK, tabular.WriteFailure(tabular.ErrNoFields))
	}

	var fields tabular.Fields
	if rawData != "" {
		if err := json.Unmarshal([]byte(rawData), &fields); err != nil {
			return c.JSON(http.StatusOK, tabular.WriteFailure(fmt.Errorf("invalid data: %w", err)))
		}
	}

	ctx := c.Request().Context()
	var (
		res *tabular.WriteResult
		err error
	)
	switch action {
	case store.ActionCreate:
		res, err = h.st.InsertRecord(ctx, sheet, fields)
	case store.ActionUpdate, store.ActionDelete:
		id, convErr := strconv.Atoi(rawID)
		if convErr != nil {
			return c.JSON(http.StatusOK, tabular.WriteFailure(fmt.Errorf("%w: %q", tabular.ErrInvalidID, rawID)))
		}
		if action == store.ActionUpdate {
			res, err = h.st.UpdateRecord(ctx, sheet, id, fields)
		} else {
			res, err = h.st.DeleteRecord(ctx, sheet, id)
		}
	default:
		return c.JSON(http.StatusOK, tabular.WriteFailure(tabular.ErrInvalidAction))
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	if res.OK() {
		h.log.Info("record written",
			zap.String("action", action),
			zap.String("sheet", sheet),
			zap.String("id", rawID),
		)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) verify(c echo.Context, action, sheet, id, data string) error {
	if h.secret == "" {
		h.log.Warn("store endpoint has no secret, request refused", zap.String("action", action), zap.String("sheet", sheet))
		return echo.NewHTTPError(http.StatusUnauthorized, "store endpoint disabled")
	}
	sig := c.Request().Header.Get(store.SignatureHeader)
	if !util.VerifyRequestSignature(h.secret, sig, action, sheet, id, data) {
		h.log.Warn("rejected unsigned store request", zap.String("action", action), zap.String("sheet", sheet))
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid signature")
	}
	return nil
}
