package handlers

import (
	"log"
	"net/http"

	"quiz-live-backend/internal/realtime"
	"quiz-live-backend/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type WSHandler struct {
	hub *ws.Hub
}

func NewWSHandler(hub *ws.Hub) *WSHandler {
	return &WSHandler{hub: hub}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

var knownTables = map[string]bool{
	realtime.TableSessions:     true,
	realtime.TableParticipants: true,
	realtime.TableResponses:    true,
	realtime.AllTables:         true,
}

// HandleWebSocket godoc
// @Summary      Change stream of a session
// @Description  Streams {"type":"change","data":{...}} messages for the requested tables, all of them by default
// @Tags         websocket
// @Param        id path int true "Session ID"
// @Param        table query []string false "sessions, participants or responses" collectionFormat(multi)
// @Router       /ws/session/{id} [get]
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	sessionID, ok := paramID(c, "id")
	if !ok {
		return
	}
	tables := c.QueryArray("table")
	for _, t := range tables {
		if !knownTables[t] {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unknown table " + t})
			return
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws: upgrade error: %v", err)
		return
	}

	if err := h.hub.Serve(c.Request.Context(), sessionID, conn, tables); err != nil {
		log.Printf("ws: session %d stream ended: %v", sessionID, err)
	}
}
