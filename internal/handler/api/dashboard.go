package api

import (
	"net/http"
	"time"

	"HyperTrack/internal/domain/models"
	domrepo "HyperTrack/internal/domain/repository"
	"HyperTrack/internal/service/evmrpc"
	"HyperTrack/internal/service/ratelimit"
	xhttp "HyperTrack/pkg/http"
	xlogger "HyperTrack/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Refresher is the slice of the refresh orchestrator the API needs.
type Refresher interface {
	Wallets() []models.WalletConfig
	TriggerRefresh() bool
}

// DashboardHandler serves the wallet dashboard endpoints: configured
// wallets, the current snapshot set, aggregate summary, on-demand refresh
// and the persisted history.
type DashboardHandler struct {
	log       *xlogger.Logger
	title     string
	refresher Refresher
	store     domrepo.SnapshotStore
	history   domrepo.HistoryStore
	hub       *Hub
	rl        *ratelimit.Limiter
}

func NewDashboardHandler(
	log *xlogger.Logger,
	title string,
	refresher Refresher,
	store domrepo.SnapshotStore,
	history domrepo.HistoryStore,
	hub *Hub,
) *DashboardHandler {
	return &DashboardHandler{
		log:       log.WithComponent("api"),
		title:     title,
		refresher: refresher,
		store:     store,
		history:   history,
		hub:       hub,
		rl:        ratelimit.New(),
	}
}

func (h *DashboardHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	if h.hub != nil {
		e.GET("/ws", h.hub.Serve)
	}

	g := e.Group("/api/v1")
	g.GET("/wallets", h.Wallets)
	g.GET("/snapshots", h.Snapshots)
	g.GET("/snapshots/:address", h.SnapshotByAddress)
	g.GET("/summary", h.Summary)
	g.POST("/refresh", h.Refresh)
	g.GET("/history/trades", h.TradeHistory)
	g.GET("/history/balances", h.BalanceHistory)
}

// Health reports liveness plus history backend reachability. A sick history
// backend does not fail the probe: the dashboard still serves live data.
func (h *DashboardHandler) Health(c echo.Context) error {
	out := map[string]interface{}{
		"status":  "ok",
		"title":   h.title,
		"history": h.history.Backend(),
	}
	if err := h.history.Health(c.Request().Context()); err != nil {
		out["history_error"] = err.Error()
	}
	return xhttp.SuccessResponse(c, out)
}

func (h *DashboardHandler) Wallets(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.refresher.Wallets())
}

// Snapshots returns the current snapshot set. Before the first refresh
// completes there is nothing to show and the endpoint says so; it never
// fabricates an empty set.
func (h *DashboardHandler) Snapshots(c echo.Context) error {
	set := h.store.Current()
	if set == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no snapshot set published yet"))
	}
	return xhttp.SuccessResponse(c, set)
}

func (h *DashboardHandler) SnapshotByAddress(c echo.Context) error {
	address := c.Param("address")
	if !evmrpc.ValidAddress(address) {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("%q is not a valid EVM address", address))
	}
	snap, ok := h.store.Snapshot(address)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no snapshot for %s", address))
	}
	return xhttp.SuccessResponse(c, snap)
}

// Summary aggregates the current set into the top-metrics row for one window.
func (h *DashboardHandler) Summary(c echo.Context) error {
	req := &models.SummaryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	w, err := models.ParseWindow(req.Window)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}

	set := h.store.Current()
	if set == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no snapshot set published yet"))
	}
	return xhttp.SuccessResponse(c, set.Summarize(w))
}

// Refresh starts an on-demand refresh cycle. 202 either way: started=false
// means one was already in flight, which serves the caller just as well.
func (h *DashboardHandler) Refresh(c echo.Context) error {
	if !h.rl.Allow(c.RealIP()+":refresh", 3, 0.5) {
		return xhttp.AppErrorResponse(c, xhttp.NewAppError(
			"ERR_RATE_LIMITED", "", "refresh rate limited", http.StatusTooManyRequests))
	}
	started := h.refresher.TriggerRefresh()
	if started {
		h.log.Info("on-demand refresh started", xlogger.String("remote", c.RealIP()))
	}
	return xhttp.AcceptedResponse(c, map[string]bool{"started": started})
}

// TradeHistory returns a wallet's persisted fills, newest first. Only the
// ClickHouse backend serves reads.
func (h *DashboardHandler) TradeHistory(c echo.Context) error {
	req := &models.TradesHistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !evmrpc.ValidAddress(req.Address) {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("%q is not a valid EVM address", req.Address))
	}
	if err := h.readableHistory(); err != nil {
		return xhttp.AppErrorResponse(c, err)
	}

	rows, err := h.history.RecentTrades(c.Request().Context(), req.Address, req.Limit)
	if err != nil {
		h.log.Error("trade history query failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("trade history query failed").WithError(err))
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

// BalanceHistory returns a wallet's balance series inside a window, oldest
// first, optionally narrowed to one token.
func (h *DashboardHandler) BalanceHistory(c echo.Context) error {
	req := &models.BalanceHistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !evmrpc.ValidAddress(req.Address) {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("%q is not a valid EVM address", req.Address))
	}
	w, err := models.ParseWindow(req.Window)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}
	if aerr := h.readableHistory(); aerr != nil {
		return xhttp.AppErrorResponse(c, aerr)
	}

	points, err := h.history.BalanceHistory(c.Request().Context(), req.Address, req.Token, w.CutoffTime(time.Now()))
	if err != nil {
		h.log.Error("balance history query failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("balance history query failed").WithError(err))
	}
	return xhttp.ListResponse(c, points, int64(len(points)))
}

func (h *DashboardHandler) readableHistory() *xhttp.AppError {
	if h.history.Backend() != "clickhouse" {
		return xhttp.UnavailableError("history backend '" + h.history.Backend() + "' does not serve reads")
	}
	return nil
}
