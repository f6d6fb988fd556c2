package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"arenawager/format"
	"arenawager/models"
	"arenawager/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Caller runs fn on the main context and waits for it
type Caller interface {
	Call(ctx context.Context, fn func()) error
}

// Handlers serves the wager and arena endpoints
type Handlers struct {
	loop          Caller
	manager       *service.WagerManager
	arenas        *service.ArenaRegistry
	wallet        service.Wallet
	schematicsDir string
}

// NewHandlers creates the handler set. Every engine call is made through loop.
func NewHandlers(loop Caller, manager *service.WagerManager, arenas *service.ArenaRegistry, wallet service.Wallet, schematicsDir string) *Handlers {
	return &Handlers{
		loop:          loop,
		manager:       manager,
		arenas:        arenas,
		wallet:        wallet,
		schematicsDir: schematicsDir,
	}
}

// Register mounts the routes on the /api group
func (h *Handlers) Register(g *echo.Group) {
	g.GET("/wagers", h.ListOffers)
	g.POST("/wagers", h.CreateOffer)
	g.POST("/wagers/:id/accept", h.AcceptOffer)
	g.DELETE("/wagers/:id", h.CancelOffer)

	g.GET("/participants/:id/wager", h.ActiveWager)
	g.POST("/participants/:id/forfeit", h.Forfeit)
	g.GET("/participants/:id/balance", h.Balance)

	g.GET("/arenas", h.ListArenas)
	g.POST("/arenas", h.CreateArena)
	g.POST("/arenas/reload", h.ReloadArenas)
	g.DELETE("/arenas/:name", h.DeleteArena)
	g.PUT("/arenas/:name/spawns/:n", h.SetSpawn)
	g.PUT("/lobby", h.SetLobby)
}

// call runs fn on the main loop and reports its error.
// fn gets a context detached from request cancellation because a queued task runs even after the client has gone.
func (h *Handlers) call(c echo.Context, fn func(ctx context.Context) error) error {
	ctx := c.Request().Context()
	work := context.WithoutCancel(ctx)

	var err error
	if callErr := h.loop.Call(ctx, func() { err = fn(work) }); callErr != nil {
		return callErr
	}
	return err
}

func paramUUID(c echo.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	return id, err == nil
}

func (h *Handlers) ListOffers(c echo.Context) error {
	var offers []*models.Wager
	if err := h.call(c, func(ctx context.Context) error {
		offers = h.manager.GetWaitingOffers()
		return nil
	}); err != nil {
		return respondError(c, err)
	}

	resp := make([]WagerResponse, 0, len(offers))
	for _, w := range offers {
		resp = append(resp, newWagerResponse(w))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handlers) CreateOffer(c echo.Context) error {
	var req CreateOfferRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.ParticipantID == uuid.Nil {
		return badRequest(c, "participant_id is required")
	}
	amount, err := format.ParseAmount(req.Amount)
	if err != nil {
		return badRequest(c, "invalid amount")
	}

	var wager *models.Wager
	if err := h.call(c, func(ctx context.Context) error {
		var err error
		wager, err = h.manager.CreateOffer(ctx, models.Participant{ID: req.ParticipantID, Name: req.Name}, amount)
		return err
	}); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, newWagerResponse(wager))
}

func (h *Handlers) AcceptOffer(c echo.Context) error {
	wagerID, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "invalid wager id")
	}
	var req AcceptOfferRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.ParticipantID == uuid.Nil {
		return badRequest(c, "participant_id is required")
	}

	var wager *models.Wager
	if err := h.call(c, func(ctx context.Context) error {
		var err error
		wager, err = h.manager.AcceptOffer(ctx, models.Participant{ID: req.ParticipantID, Name: req.Name}, wagerID)
		return err
	}); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, newWagerResponse(wager))
}

func (h *Handlers) CancelOffer(c echo.Context) error {
	wagerID, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "invalid wager id")
	}
	participantID, err := uuid.Parse(c.QueryParam("participant_id"))
	if err != nil {
		return badRequest(c, "participant_id query parameter is required")
	}

	if err := h.call(c, func(ctx context.Context) error {
		return h.manager.CancelOwnOffer(ctx, participantID, wagerID)
	}); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handlers) ActiveWager(c echo.Context) error {
	participantID, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "invalid participant id")
	}

	var (
		wager *models.Wager
		found bool
	)
	if err := h.call(c, func(ctx context.Context) error {
		wager, found = h.manager.GetActiveWagerFor(participantID)
		return nil
	}); err != nil {
		return respondError(c, err)
	}
	if !found {
		return respondError(c, service.ErrNotInMatch)
	}
	return c.JSON(http.StatusOK, newWagerResponse(wager))
}

func (h *Handlers) Forfeit(c echo.Context) error {
	participantID, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "invalid participant id")
	}

	if err := h.call(c, func(ctx context.Context) error {
		return h.manager.Forfeit(ctx, participantID)
	}); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handlers) Balance(c echo.Context) error {
	participantID, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "invalid participant id")
	}

	balance, err := h.wallet.Balance(c.Request().Context(), participantID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, BalanceResponse{ParticipantID: participantID, Balance: balance.String()})
}

func (h *Handlers) ListArenas(c echo.Context) error {
	var resp ArenaListResponse
	if err := h.call(c, func(ctx context.Context) error {
		for _, a := range h.arenas.List() {
			resp.Arenas = append(resp.Arenas, ArenaResponse{Arena: a, Status: a.Status()})
		}
		if lobby, ok := h.arenas.Lobby(); ok {
			resp.Lobby = lobby
		}
		return nil
	}); err != nil {
		return respondError(c, err)
	}
	if resp.Arenas == nil {
		resp.Arenas = []ArenaResponse{}
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handlers) CreateArena(c echo.Context) error {
	var req CreateArenaRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return badRequest(c, "name is required")
	}

	var arena *models.Arena
	if err := h.call(c, func(ctx context.Context) error {
		var err error
		arena, err = h.arenas.Create(ctx, name)
		return err
	}); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, ArenaResponse{Arena: arena, Status: arena.Status()})
}

func (h *Handlers) DeleteArena(c echo.Context) error {
	name := c.Param("name")
	if err := h.call(c, func(ctx context.Context) error {
		return h.arenas.Delete(ctx, name)
	}); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handlers) SetSpawn(c echo.Context) error {
	name := c.Param("name")
	point, err := strconv.Atoi(c.Param("n"))
	if err != nil || (point != 1 && point != 2) {
		return badRequest(c, "spawn must be 1 or 2")
	}
	var loc models.Location
	if err := c.Bind(&loc); err != nil {
		return badRequest(c, "invalid location")
	}

	var arena *models.Arena
	if err := h.call(c, func(ctx context.Context) error {
		if err := h.arenas.SetSpawn(ctx, name, point, loc); err != nil {
			return err
		}
		arena, _ = h.arenas.Get(name)
		return nil
	}); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, ArenaResponse{Arena: arena, Status: arena.Status()})
}

func (h *Handlers) SetLobby(c echo.Context) error {
	var loc models.Location
	if err := c.Bind(&loc); err != nil {
		return badRequest(c, "invalid location")
	}
	if loc.World == "" {
		return badRequest(c, "world is required")
	}

	if err := h.call(c, func(ctx context.Context) error {
		return h.arenas.SetLobby(ctx, loc)
	}); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, loc)
}

func (h *Handlers) ReloadArenas(c echo.Context) error {
	var created []string
	if err := h.call(c, func(ctx context.Context) error {
		var err error
		created, err = h.arenas.DiscoverSchematics(ctx, h.schematicsDir)
		return err
	}); err != nil {
		return respondError(c, err)
	}
	if created == nil {
		created = []string{}
	}
	return c.JSON(http.StatusOK, ReloadResponse{Created: created})
}
