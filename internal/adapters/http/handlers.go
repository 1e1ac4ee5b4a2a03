package http

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/campfinder/internal/core/domain"
	"github.com/samirrijal/campfinder/internal/core/usecases"
)

// maxQueryLength bounds free-text place queries.
const maxQueryLength = 200

// SuggestHandler returns place-name suggestions for a partial query.
func SuggestHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := c.Query("q")
		if len(q) > maxQueryLength {
			return errBadRequest(c, "query too long (max 200 characters)")
		}
		return c.JSON(fiber.Map{"suggestions": deps.App.Places.Suggest(q)})
	}
}

type searchRequest struct {
	Query       string   `json:"query"`
	UseLocation bool     `json:"use_location"`
	Lat         *float64 `json:"lat"`
	Lng         *float64 `json:"lng"`
	Force       bool     `json:"force"`
}

// SearchHandler runs a search and returns the ranked result, paginated.
// With use_location the device position is updated first and the query is
// ignored.
func SearchHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req searchRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return errBadRequest(c, "invalid request body")
			}
		}
		if len(req.Query) > maxQueryLength {
			return errBadRequest(c, "query too long (max 200 characters)")
		}

		query := req.Query
		if req.UseLocation {
			if req.Lat == nil || req.Lng == nil {
				return errBadRequest(c, "lat and lng are required with use_location")
			}
			pos := domain.Coordinate{Latitude: *req.Lat, Longitude: *req.Lng}
			if !pos.Valid() {
				return errBadRequest(c, "lat/lng out of range")
			}
			deps.App.Search.UpdatePosition(pos)
			query = ""
		}

		res, err := deps.App.Search.Search(c.UserContext(), query, req.Force)
		if err != nil {
			return errDomain(c, err)
		}
		return paginatedResult(c, res, false)
	}
}

// ResultsHandler returns the last published search result.
func ResultsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res := deps.App.Search.LastResult()
		if res == nil {
			return errNotFound(c, "no search has completed yet")
		}
		c.Set("Cache-Control", "no-cache")
		return paginatedResult(c, res, true)
	}
}

type resultPage struct {
	Query       string            `json:"query"`
	Center      domain.Coordinate `json:"center"`
	Source      string            `json:"source"`
	CompletedAt time.Time         `json:"completed_at"`
	Records     domain.ResultSet  `json:"records"`
	Pagination  Pagination        `json:"pagination"`
}

// paginatedResult writes one page of res. Link headers are only set for GET
// routes, where the page URLs can be followed.
func paginatedResult(c *fiber.Ctx, res *domain.SearchResult, links bool) error {
	pg := pageFromQuery(c, len(res.Records))
	start, end := pg.bounds()

	if links {
		SetLinkHeaders(c, pg)
	}
	return c.JSON(resultPage{
		Query:       res.Query,
		Center:      res.Center,
		Source:      res.Source,
		CompletedAt: res.CompletedAt,
		Records:     res.Records[start:end],
		Pagination:  pg,
	})
}

type filtersRequest struct {
	IDs []string `json:"ids"`
}

// GetFiltersHandler returns the active filter ids.
func GetFiltersHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ids": deps.App.Search.ActiveFilters(c.UserContext())})
	}
}

// PutFiltersHandler replaces the filter set and re-queries the network.
func PutFiltersHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req filtersRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		res, err := deps.App.Search.ApplyFilters(c.UserContext(), req.IDs)
		return filtersResponse(c, deps, res, err)
	}
}

// DeleteFiltersHandler clears the filter set and re-queries the network.
func DeleteFiltersHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, err := deps.App.Search.ResetFilters(c.UserContext())
		return filtersResponse(c, deps, res, err)
	}
}

// filtersResponse reports the stored filter set even when the follow-up
// search failed; the failure is published as an event as well.
func filtersResponse(c *fiber.Ctx, deps *Dependencies, res *domain.SearchResult, err error) error {
	body := fiber.Map{"ids": deps.App.Search.ActiveFilters(c.UserContext())}
	if err != nil {
		body["error"] = fiber.Map{"kind": domain.KindOf(err), "message": err.Error()}
		return c.Status(fiber.StatusAccepted).JSON(body)
	}
	body["result"] = res
	return c.JSON(body)
}

type viewResponse struct {
	View       domain.ViewState       `json:"view"`
	Visibility domain.Visibility      `json:"visibility"`
	Index      int                    `json:"history_index"`
	Length     int                    `json:"history_length"`
	Detail     *domain.DetailSnapshot `json:"detail,omitempty"`
}

func currentView(deps *Dependencies) viewResponse {
	state, idx, n := deps.App.View.HistoryEntry()
	resp := viewResponse{
		View:       state,
		Visibility: state.Visibility(),
		Index:      idx,
		Length:     n,
	}
	if sess := deps.App.View.Session(); sess != nil {
		resp.Detail = sess.Snapshot()
	}
	return resp
}

// GetViewHandler returns the current view state.
func GetViewHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("Cache-Control", "no-store")
		return c.JSON(currentView(deps))
	}
}

// ToggleViewHandler switches between map and list.
func ToggleViewHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		deps.App.View.Toggle(c.UserContext())
		return c.JSON(currentView(deps))
	}
}

// OpenDetailHandler switches to the detail view of an object. The content
// loads in the background; poll GET /v1/detail/:id or listen on /ws.
func OpenDetailHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := objectIDParam(c)
		if _, err := deps.App.View.OpenDetail(c.UserContext(), id); err != nil {
			return errDomain(c, err)
		}
		return c.Status(fiber.StatusAccepted).JSON(currentView(deps))
	}
}

// objectIDParam returns the unescaped, trimmed :id route parameter.
func objectIDParam(c *fiber.Ctx) string {
	raw := c.Params("id")
	if id, err := url.PathUnescape(raw); err == nil {
		raw = id
	}
	return strings.TrimSpace(raw)
}

// BackHandler pops one history entry.
func BackHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		deps.App.View.Back(c.UserContext())
		return c.JSON(currentView(deps))
	}
}

// ForwardHandler moves one history entry forward.
func ForwardHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		deps.App.View.Forward(c.UserContext())
		return c.JSON(currentView(deps))
	}
}

// DetailHandler returns the open detail session for an object. With
// ?wait=true it blocks until the load settles or the request times out.
func DetailHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := objectIDParam(c)
		sess := deps.App.View.Session()
		if sess == nil || sess.ObjectID() != id {
			return errNotFound(c, "no open detail view for "+id)
		}

		if c.QueryBool("wait", false) {
			if err := waitSession(c.UserContext(), sess); err != nil {
				return newError(c, fiber.StatusGatewayTimeout, "timeout", "detail still loading")
			}
		}

		snap := sess.Snapshot()
		if snap.Status == domain.DetailFailed {
			return errDomain(c, sess.Err())
		}
		c.Set("Cache-Control", "no-store")
		return c.JSON(snap)
	}
}

func waitSession(ctx context.Context, sess *usecases.DetailSession) error {
	select {
	case <-sess.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type positionRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// PositionHandler records a device position fix. Moves of 100 m or less are
// ignored.
func PositionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req positionRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		pos := domain.Coordinate{Latitude: req.Lat, Longitude: req.Lng}
		if !pos.Valid() {
			return errBadRequest(c, "lat/lng out of range")
		}
		updated := deps.App.Search.UpdatePosition(pos)
		return c.JSON(fiber.Map{
			"updated":  updated,
			"position": deps.App.Search.Position(),
		})
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginHandler exchanges credentials for a proxy session and runs the
// startup sequence on success.
func LoginHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Sessions == nil {
			return errInternal(c, "sessions not configured")
		}
		var req loginRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Email == "" || req.Password == "" {
			return errBadRequest(c, "email and password are required")
		}

		msg, err := deps.Sessions.Login(c.UserContext(), req.Email, req.Password)
		if err != nil {
			LoggerFromCtx(c.UserContext()).Info("login rejected", "error", err)
			return errUnauthorized(c, err.Error())
		}

		report, err := deps.App.Start(c.UserContext())
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(fiber.Map{"message": msg, "start": report})
	}
}

// SessionHandler reports whether the stored session is still accepted.
func SessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Sessions == nil {
			return c.JSON(fiber.Map{"authenticated": false})
		}
		c.Set("Cache-Control", "no-store")
		return c.JSON(fiber.Map{"authenticated": deps.Sessions.IsAuthenticated(c.UserContext())})
	}
}

// LogoutHandler forgets the stored session.
func LogoutHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Sessions != nil {
			deps.Sessions.Logout(c.UserContext())
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// StartHandler re-runs the startup sequence.
func StartHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		report, err := deps.App.Start(c.UserContext())
		if err != nil {
			return errInternal(c, err.Error())
		}
		if !report.Authenticated {
			return c.Status(fiber.StatusUnauthorized).JSON(report)
		}
		return c.JSON(report)
	}
}
