package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/backsoul/trivia/pkg/game"
	"github.com/backsoul/trivia/pkg/models"
	"github.com/valyala/fasthttp"
)

// LobbyHandler maneja las peticiones HTTP de los lobbies
type LobbyHandler struct {
	directory *game.Directory
}

// NewLobbyHandler crea una nueva instancia del handler de lobbies
func NewLobbyHandler(directory *game.Directory) *LobbyHandler {
	return &LobbyHandler{
		directory: directory,
	}
}

// CreateLobby maneja POST /api/lobbies
func (h *LobbyHandler) CreateLobby(ctx *fasthttp.RequestCtx) {
	var request struct {
		models.LobbyCreateRequest
		TotalRounds int `json:"totalRounds,omitempty"`
	}
	if err := json.Unmarshal(ctx.PostBody(), &request); err != nil {
		h.respondWithError(ctx, fasthttp.StatusBadRequest, "JSON inválido")
		return
	}

	if request.Code == "" || request.HostID == "" || request.HostName == "" {
		h.respondWithError(ctx, fasthttp.StatusBadRequest, "code, hostId y hostName son requeridos")
		return
	}

	lobby, err := h.directory.Create(request.Code, request.HostID, request.HostName, request.TotalRounds)
	if err != nil {
		h.respondWithGameError(ctx, err, "Error creando lobby")
		return
	}

	h.respondWithJSON(ctx, fasthttp.StatusCreated, models.APIResponse{
		Success: true,
		Message: "Lobby creado exitosamente",
		Data:    lobby.Snapshot(),
	})
}

// GetLobby maneja GET /api/lobbies/{code}
func (h *LobbyHandler) GetLobby(ctx *fasthttp.RequestCtx) {
	code := ctx.UserValue("code").(string)

	lobby, err := h.directory.Get(code)
	if err != nil {
		h.respondWithGameError(ctx, err, "Error obteniendo lobby")
		return
	}

	h.respondWithSuccess(ctx, lobby.Snapshot(), "Lobby obtenido exitosamente")
}

// JoinLobby maneja POST /api/lobbies/{code}/join
func (h *LobbyHandler) JoinLobby(ctx *fasthttp.RequestCtx) {
	code := ctx.UserValue("code").(string)

	var request models.JoinRequest
	if err := json.Unmarshal(ctx.PostBody(), &request); err != nil {
		h.respondWithError(ctx, fasthttp.StatusBadRequest, "JSON inválido")
		return
	}

	if request.PlayerID == "" || request.PlayerName == "" {
		h.respondWithError(ctx, fasthttp.StatusBadRequest, "playerId y playerName son requeridos")
		return
	}

	lobby, err := h.directory.Get(code)
	if err != nil {
		h.respondWithGameError(ctx, err, "Error obteniendo lobby")
		return
	}

	if err := lobby.Join(request.PlayerID, request.PlayerName); err != nil {
		h.respondWithGameError(ctx, err, "Error uniéndose al lobby")
		return
	}

	h.respondWithSuccess(ctx, lobby.Snapshot(), fmt.Sprintf("%s se unió al lobby", request.PlayerName))
}

// StartLobby maneja POST /api/lobbies/{code}/start
func (h *LobbyHandler) StartLobby(ctx *fasthttp.RequestCtx) {
	code := ctx.UserValue("code").(string)

	lobby, err := h.directory.Get(code)
	if err != nil {
		h.respondWithGameError(ctx, err, "Error obteniendo lobby")
		return
	}

	// Un doble start no es error: el segundo caller recibe OK igual
	if err := lobby.Start(); err != nil {
		h.respondWithGameError(ctx, err, "Error iniciando partida")
		return
	}

	h.respondWithSuccess(ctx, lobby.Snapshot(), "Partida iniciada")
}

// SubmitAnswer maneja POST /api/lobbies/{code}/answer
func (h *LobbyHandler) SubmitAnswer(ctx *fasthttp.RequestCtx) {
	code := ctx.UserValue("code").(string)

	var request models.AnswerRequest
	if err := json.Unmarshal(ctx.PostBody(), &request); err != nil {
		h.respondWithError(ctx, fasthttp.StatusBadRequest, "JSON inválido")
		return
	}

	if request.PlayerID == "" {
		h.respondWithError(ctx, fasthttp.StatusBadRequest, "playerId es requerido")
		return
	}

	lobby, err := h.directory.Get(code)
	if err != nil {
		h.respondWithGameError(ctx, err, "Error obteniendo lobby")
		return
	}

	// Tardías y duplicadas se aceptan y se ignoran: el cliente no
	// tiene forma de saber si perdió la carrera contra el timer
	if err := lobby.SubmitAnswer(request.PlayerID, request.Answer, time.Now()); err != nil {
		h.respondWithGameError(ctx, err, "Error registrando respuesta")
		return
	}

	h.respondWithSuccess(ctx, nil, "Respuesta recibida")
}

// respondWithGameError mapea los errores del coordinador a códigos HTTP
func (h *LobbyHandler) respondWithGameError(ctx *fasthttp.RequestCtx, err error, prefix string) {
	switch {
	case errors.Is(err, game.ErrNotInitialized):
		h.respondWithError(ctx, fasthttp.StatusNotFound, "Lobby no encontrado")
	case errors.Is(err, game.ErrAlreadyInitialized):
		h.respondWithError(ctx, fasthttp.StatusConflict, "Ya existe un lobby con ese código")
	case errors.Is(err, game.ErrUnknownPlayer):
		h.respondWithError(ctx, fasthttp.StatusNotFound, "Jugador desconocido")
	default:
		h.respondWithError(ctx, fasthttp.StatusInternalServerError, fmt.Sprintf("%s: %v", prefix, err))
	}
}

// Métodos auxiliares para respuestas HTTP
func (h *LobbyHandler) respondWithJSON(ctx *fasthttp.RequestCtx, statusCode int, response interface{}) {
	ctx.Response.Header.Set("Content-Type", "application/json")
	ctx.SetStatusCode(statusCode)

	jsonData, err := json.Marshal(response)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetBodyString(`{"success": false, "error": "Error al serializar respuesta"}`)
		return
	}

	ctx.SetBody(jsonData)
}

func (h *LobbyHandler) respondWithError(ctx *fasthttp.RequestCtx, statusCode int, message string) {
	response := models.APIResponse{
		Success: false,
		Error:   message,
	}
	h.respondWithJSON(ctx, statusCode, response)
}

func (h *LobbyHandler) respondWithSuccess(ctx *fasthttp.RequestCtx, data interface{}, message string) {
	response := models.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	}
	h.respondWithJSON(ctx, fasthttp.StatusOK, response)
}
