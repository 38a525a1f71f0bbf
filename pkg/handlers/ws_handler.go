package handlers

import (
	"encoding/json"
	"log"

	"github.com/backsoul/trivia/pkg/game"
	"github.com/backsoul/trivia/pkg/models"
	"github.com/fasthttp/websocket"
	"github.com/valyala/fasthttp"
)

// WSHandler maneja el canal WebSocket de los lobbies: por acá bajan
// todos los eventos de la partida hacia los jugadores conectados
type WSHandler struct {
	directory *game.Directory
}

// NewWSHandler crea una nueva instancia del handler WebSocket
func NewWSHandler(directory *game.Directory) *WSHandler {
	return &WSHandler{
		directory: directory,
	}
}

var upgrader = websocket.FastHTTPUpgrader{
	CheckOrigin: func(ctx *fasthttp.RequestCtx) bool {
		return true // Permitir conexiones desde cualquier origen en desarrollo
	},
}

// HandleWebSocket maneja GET /ws?code={code}&playerId={playerId}
func (h *WSHandler) HandleWebSocket(ctx *fasthttp.RequestCtx) {
	code := string(ctx.QueryArgs().Peek("code"))
	playerID := string(ctx.QueryArgs().Peek("playerId"))

	if code == "" || playerID == "" {
		h.respondWithError(ctx, fasthttp.StatusBadRequest, "Parámetros 'code' y 'playerId' son requeridos")
		return
	}

	// Validar antes del upgrade: después ya no hay respuesta HTTP
	lobby, err := h.directory.Get(code)
	if err != nil {
		h.respondWithError(ctx, fasthttp.StatusNotFound, "Lobby no encontrado")
		return
	}

	if !lobby.HasPlayer(playerID) {
		h.respondWithError(ctx, fasthttp.StatusNotFound, "Jugador desconocido: primero hay que unirse al lobby")
		return
	}

	err = upgrader.Upgrade(ctx, func(ws *websocket.Conn) {
		defer ws.Close()

		if err := lobby.Connect(playerID, ws); err != nil {
			log.Printf("❌ Error conectando a %s en lobby %s: %v", playerID, code, err)
			return
		}
		defer func() {
			if err := lobby.Disconnect(playerID, ws); err != nil {
				log.Printf("⚠️ Error desconectando a %s en lobby %s: %v", playerID, code, err)
			}
		}()

		// Enviar el estado actual del lobby al conectarse
		if err := lobby.SendState(playerID); err != nil {
			log.Printf("⚠️ Error enviando snapshot a %s: %v", playerID, err)
		}

		// Escuchar hasta que el cliente cierre
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				break
			}
		}
	})

	if err != nil {
		log.Printf("Error upgrading to WebSocket: %v", err)
		ctx.Error("Error upgrading to WebSocket", fasthttp.StatusInternalServerError)
	}
}

func (h *WSHandler) respondWithError(ctx *fasthttp.RequestCtx, statusCode int, message string) {
	response := models.APIResponse{
		Success: false,
		Error:   message,
	}

	ctx.Response.Header.Set("Content-Type", "application/json")
	ctx.SetStatusCode(statusCode)
	jsonData, _ := json.Marshal(response)
	ctx.SetBody(jsonData)
}
