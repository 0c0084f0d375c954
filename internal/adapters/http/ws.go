package httpadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"svw.info/meldsolver/internal/domain"
)

const (
	wsReadTimeout  = 120 * time.Second
	wsWriteTimeout = 10 * time.Second
	wsPingEvery    = 30 * time.Second
	wsSendBuffer   = 16
	wsMaxMessage   = 64 << 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsMessage is one inbound solve request. ID is echoed on the reply.
type wsMessage struct {
	ID    string          `json:"id,omitempty"`
	Tiles json.RawMessage `json:"tiles"`
}

type wsReply struct {
	ID string `json:"id,omitempty"`
	solveResp
}

// handleSolveWS answers every text message {tiles} with a solve result,
// in the order received.
func (h *Handler) handleSolveWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "err", err)
		return
	}
	ctx, cancel := context.WithCancel(r.Context())
	send := make(chan []byte, wsSendBuffer)
	go func() {
		writePump(ws, send)
		cancel()
	}()
	h.readPump(ctx, ws, send)
	cancel()
	close(send)
}

func (h *Handler) readPump(ctx context.Context, ws *websocket.Conn, send chan<- []byte) {
	ws.SetReadLimit(wsMaxMessage)
	_ = ws.SetReadDeadline(time.Now().Add(wsReadTimeout))
	ws.SetPongHandler(func(string) error {
		_ = ws.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("ws read failed", "err", err)
			}
			return
		}
		reply := h.solveMessage(ctx, data)
		b, err := json.Marshal(reply)
		if err != nil {
			slog.Error("ws marshal failed", "err", err)
			return
		}
		select {
		case send <- b:
		case <-ctx.Done():
			return
		}
	}
}

func (h *Handler) solveMessage(ctx context.Context, data []byte) wsReply {
	var in wsMessage
	if err := json.Unmarshal(data, &in); err != nil {
		return wsReply{solveResp: solveResp{Error: "invalid JSON: " + err.Error()}}
	}
	var pool domain.TileSet
	if len(in.Tiles) > 0 {
		if err := json.Unmarshal(in.Tiles, &pool); err != nil {
			return wsReply{ID: in.ID, solveResp: solveResp{Error: "invalid tiles: " + err.Error()}}
		}
	}
	res, err := h.UC.Solve(ctx, pool)
	if err != nil {
		return wsReply{ID: in.ID, solveResp: solveResp{Error: err.Error()}}
	}
	return wsReply{ID: in.ID, solveResp: toSolveResp(res)}
}

// writePump drains send and keeps the connection alive with pings. It
// closes the socket on return, which also ends the read loop.
func writePump(ws *websocket.Conn, send <-chan []byte) {
	ticker := time.NewTicker(wsPingEvery)
	defer func() {
		ticker.Stop()
		_ = ws.Close()
	}()

	for {
		select {
		case msg, ok := <-send:
			_ = ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if !ok {
				_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
