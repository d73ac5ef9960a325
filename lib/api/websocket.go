package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/fosdem/glbacking/lib/backing"
	"github.com/fosdem/glbacking/lib/stats"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(req *http.Request) bool {
		return true
	},
}

const (
	wsInterval = 2 * time.Second
	wsTimeout  = 10 * time.Second
)

// Status is pushed to websocket clients every couple of seconds.
type Status struct {
	Stats    stats.Stats    `json:"stats"`
	Backings []backing.Info `json:"backings"`
}

func (a *Api) status() Status {
	return Status{Stats: a.snapshotStats(), Backings: a.backings.Infos()}
}

func (a *Api) setWsClients() {
	a.Stats.SetWsClients(len(a.wsClients))
}

// @Summary	Open websocket for realtime status information
// @Router		/api/ws [get]
// @Param		Upgrade	header	string	true	"websocket"
// @Tags		base
// @Success	101	{object}	Status
func (a *Api) handleWebsocket(w http.ResponseWriter, req *http.Request) {
	ws, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		http.Error(w, fmt.Sprintf("couldn't make websocket: %s", err), 400)
		return
	}
	defer func(ws *websocket.Conn) {
		err := ws.Close()
		if err != nil {
			a.log.Debug("could not close websocket", slog.Any("error", err))
		}
	}(ws)

	a.wsMu.Lock()
	a.wsClients[ws] = true
	a.setWsClients()
	a.wsMu.Unlock()

	go a.websocketWriter(ws)

	for {
		_, msg, err := ws.ReadMessage()
		if err != nil {
			a.wsMu.Lock()
			delete(a.wsClients, ws)
			a.setWsClients()
			a.wsMu.Unlock()
			break
		}
		a.log.Debug("websocket message ignored", slog.String("message", string(msg)))
	}
}

func (a *Api) websocketWriter(ws *websocket.Conn) {
	ticker := time.NewTicker(wsInterval)
	defer func() {
		ticker.Stop()
		_ = ws.Close()
	}()
	for {
		packet, err := json.Marshal(a.status())
		if err != nil {
			a.log.Error("could not encode status", slog.Any("error", err))
			return
		}
		err = ws.SetWriteDeadline(time.Now().Add(wsTimeout))
		if err != nil {
			a.log.Debug("could not set write deadline", slog.Any("error", err))
			return
		}
		if err := ws.WriteMessage(websocket.TextMessage, packet); err != nil {
			return
		}
		<-ticker.C
	}
}
