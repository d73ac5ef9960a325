// Package api serves diagnostics about the running backings over HTTP.
//
//	@title			glbacking API
//	@version		1.0
//	@description	Inspect window backings, statistics and metrics.
//	@BasePath		/
package api

//go:generate go tool swag init --generalInfo api.go --output docs --parseDependency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	"github.com/fosdem/glbacking/lib/api/docs"
	"github.com/fosdem/glbacking/lib/backing"
	"github.com/fosdem/glbacking/lib/config"
	"github.com/fosdem/glbacking/lib/metrics"
	"github.com/fosdem/glbacking/lib/stats"
	"github.com/gorilla/websocket"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Backings is what the API needs from the backing registry.
type Backings interface {
	Infos() []backing.Info
	Snapshot(ctx context.Context, wid uint64) (*image.RGBA, error)
	Len() int
}

type Api struct {
	srv      http.Server
	mux      *http.ServeMux
	cfg      *config.ApiCfg
	log      *slog.Logger
	backings Backings

	Stats *stats.Stats

	wsMu      sync.Mutex
	wsClients map[*websocket.Conn]bool

	killOnce sync.Once
	kill     func()
}

func New(cfg *config.ApiCfg, b Backings, log *slog.Logger) *Api {
	if log == nil {
		log = slog.Default()
	}
	a := &Api{
		mux:       http.NewServeMux(),
		cfg:       cfg,
		log:       log.With(slog.String("module", "api")),
		backings:  b,
		Stats:     stats.New(),
		wsClients: make(map[*websocket.Conn]bool),
	}
	a.srv.Addr = cfg.Bind
	a.srv.Handler = a.mux
	a.routes()
	return a
}

func (a *Api) routes() {
	if a.cfg.EnableProfiler {
		a.mux.HandleFunc("/prof", a.profileCPU)
	}
	a.mux.HandleFunc("/api/kill", a.suicide)
	a.mux.HandleFunc("/api/stats", a.getStats)
	a.mux.HandleFunc("/api/info", a.getInfos)
	a.mux.HandleFunc("/api/info/{wid}", a.getInfo)
	a.mux.HandleFunc("/api/snapshot/{wid}", a.handleSnapshot)
	a.mux.HandleFunc("/api/snapshot/{wid}/{format}", a.handleSnapshot)
	a.mux.HandleFunc("/api/ws", a.handleWebsocket)
	a.mux.Handle("/metrics", metrics.Handler())
	a.mux.Handle("/swagger/", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
	docs.SwaggerInfo.BasePath = "/"
}

// OnKill sets what /api/kill does.
func (a *Api) OnKill(fn func()) {
	a.kill = fn
}

func (a *Api) Handler() http.Handler {
	return a.mux
}

// Serve blocks until the server fails or is shut down.
func (a *Api) Serve() error {
	a.log.Info("starting web server", slog.String("bind", a.cfg.Bind))
	err := a.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *Api) Shutdown(ctx context.Context) error {
	a.wsMu.Lock()
	for ws := range a.wsClients {
		_ = ws.Close()
	}
	a.wsMu.Unlock()
	return a.srv.Shutdown(ctx)
}

// snapshotStats refreshes the statistics that depend on the registry.
func (a *Api) snapshotStats() stats.Stats {
	a.Stats.SetBackings(a.backings.Len())
	return a.Stats.Snapshot()
}

func writeJSON(w http.ResponseWriter, log *slog.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	encoder := json.NewEncoder(w)
	if err := encoder.Encode(v); err != nil {
		log.Error("could not write response", slog.Any("error", err))
	}
}

func parseWID(s string) (uint64, error) {
	return strconv.ParseUint(s, 0, 64)
}

// @Summary	Record a CPU profile for 10 seconds
// @Router		/prof [get]
// @Tags		debug
// @Produce	octet-stream
// @Success	200
func (a *Api) profileCPU(w http.ResponseWriter, _ *http.Request) {
	err := pprof.StartCPUProfile(w)
	if err != nil {
		http.Error(w, fmt.Sprintf("Could not start CPU profile: %s", err), http.StatusInternalServerError)
		return
	}
	time.Sleep(10 * time.Second)
	pprof.StopCPUProfile()
}

// @Summary	Shut the process down
// @Router		/api/kill [post]
// @Tags		base
// @Success	200
func (a *Api) suicide(w http.ResponseWriter, _ *http.Request) {
	a.log.Info("shutting down as per api request")
	if a.kill != nil {
		a.killOnce.Do(a.kill)
	}
	_, err := fmt.Fprintf(w, "\"ok\"\n")
	if err != nil {
		a.log.Error("could not write response", slog.Any("error", err))
	}
}

// @Summary	Upload and presentation statistics
// @Router		/api/stats [get]
// @Tags		base
// @Produce	json
// @Success	200	{object}	stats.Stats
func (a *Api) getStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, a.log, a.snapshotStats())
}

// @Summary	State of every window backing
// @Router		/api/info [get]
// @Tags		backing
// @Produce	json
// @Success	200	{array}	backing.Info
func (a *Api) getInfos(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, a.log, a.backings.Infos())
}

// @Summary	State of one window backing
// @Router		/api/info/{wid} [get]
// @Tags		backing
// @Param		wid	path	string	true	"Window id, decimal or 0x prefixed"
// @Produce	json
// @Success	200	{object}	backing.Info
// @Failure	400	{string}	string	"The window id is not a number"
// @Failure	404	{string}	string	"There is no backing for this window"
func (a *Api) getInfo(w http.ResponseWriter, req *http.Request) {
	wid, err := parseWID(req.PathValue("wid"))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid window id: %s", err), http.StatusBadRequest)
		return
	}
	for _, info := range a.backings.Infos() {
		if info.ID == wid {
			writeJSON(w, a.log, info)
			return
		}
	}
	http.Error(w, "Backing does not exist", http.StatusNotFound)
}
