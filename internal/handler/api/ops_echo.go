package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	models "AltScan/internal/domain/models"
	drepo "AltScan/internal/domain/repository"
	icache "AltScan/internal/service/cache"
	"AltScan/internal/usecase"
	xhttp "AltScan/pkg/http"
	xlogger "AltScan/pkg/logger"

	"github.com/labstack/echo/v4"
)

const recentCacheTTL = 5 * time.Second

// HealthProbe reports one dependency's reachability for /healthz.
type HealthProbe struct {
	Name  string
	Check func(ctx context.Context) error
}

// OpsEchoHandler implements the Echo-based ops endpoints: recent signals,
// scan status and health.
type OpsEchoHandler struct {
	logger    *xlogger.Logger
	log       drepo.SignalLog
	scanner   *usecase.Scanner
	collector *usecase.BarCollector // nil when the live stream is disabled
	resp      icache.BytesCache     // short-TTL response cache
	probes    []HealthProbe
}

func NewOpsEchoHandler(logger *xlogger.Logger, log drepo.SignalLog, scanner *usecase.Scanner) *OpsEchoHandler {
	return &OpsEchoHandler{
		logger:  logger,
		log:     log,
		scanner: scanner,
		resp:    icache.NewTTLCache(),
	}
}

// SetCollector attaches the live stream collector for status reporting.
func (h *OpsEchoHandler) SetCollector(c *usecase.BarCollector) { h.collector = c }

// SetResponseCache swaps the response cache backend.
func (h *OpsEchoHandler) SetResponseCache(c icache.BytesCache) { h.resp = c }

// AddProbe registers a dependency check for /healthz.
func (h *OpsEchoHandler) AddProbe(name string, check func(ctx context.Context) error) {
	h.probes = append(h.probes, HealthProbe{Name: name, Check: check})
}

func (h *OpsEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	g := e.Group("/api")
	g.GET("/signals/recent", h.RecentSignals)
	g.GET("/scan/status", h.ScanStatus)
}

func (h *OpsEchoHandler) RecentSignals(c echo.Context) error {
	req := &models.RecentSignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	key := fmt.Sprintf("signals:recent:%s:%s:%d", req.Symbol, req.Side, req.Limit)
	if h.resp != nil {
		if b, ok, err := h.resp.GetBytes(key); err == nil && ok {
			return c.JSONBlob(http.StatusOK, b)
		}
	}

	lines := h.log.Recent(req.Symbol, req.Side, req.Limit)
	body, err := json.Marshal(xhttp.APIResponse{
		Status:  http.StatusOK,
		Message: http.StatusText(http.StatusOK),
		Data:    &xhttp.ListDataResponse{Rows: lines, Total: int64(len(lines))},
	})
	if err != nil {
		h.logger.Error("recent signals encode error", xlogger.Error(err))
		return xhttp.ListResponse(c, lines, int64(len(lines)))
	}
	if h.resp != nil {
		_ = h.resp.SetBytes(key, body, recentCacheTTL)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=5")
	return c.JSONBlob(http.StatusOK, body)
}

func (h *OpsEchoHandler) ScanStatus(c echo.Context) error {
	status := map[string]interface{}{
		"last_cycle": h.scanner.Status(),
	}
	if h.collector != nil {
		status["stream"] = map[string]interface{}{
			"connected": h.collector.IsConnected(),
			"tracked":   h.collector.Tracked(),
		}
	} else {
		status["stream"] = "disabled"
	}
	return xhttp.SuccessResponse(c, status)
}

func (h *OpsEchoHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	deps := make(map[string]string, len(h.probes))
	healthy := true
	for _, p := range h.probes {
		if err := p.Check(ctx); err != nil {
			deps[p.Name] = err.Error()
			healthy = false
			continue
		}
		deps[p.Name] = "ok"
	}

	res := map[string]interface{}{"status": "ok"}
	if !healthy {
		res["status"] = "degraded"
	}
	if len(deps) > 0 {
		res["deps"] = deps
	}
	return xhttp.SuccessResponse(c, res)
}
