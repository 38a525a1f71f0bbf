package game

import (
	"time"

	"github.com/backsoul/trivia/pkg/config"
	"github.com/backsoul/trivia/pkg/models"
)

// Tipos de eventos que viajan por el canal WebSocket de un lobby
const (
	EventPlayerJoined       = "player_joined"
	EventPlayerConnected    = "player_connected"
	EventPlayerDisconnected = "player_disconnected"
	EventCountdownTick      = "countdown_tick"
	EventRoundStarted       = "round_started"
	EventRoundResult        = "round_result"
	EventGameEnded          = "game_ended"
	EventLobbyState         = "lobby_state"
)

// Settings parámetros de juego de un lobby
type Settings struct {
	TotalRounds       int
	RoundDuration     time.Duration
	CountdownTicks    int
	CountdownInterval time.Duration
	RoundResultDelay  time.Duration
	RoundEndPolicy    string

	// Espera antes de reintentar una operación que falló por una
	// dependencia caída (fuente de preguntas, store)
	RetryInterval time.Duration
}

// SettingsFromConfig construye los parámetros de juego desde la
// configuración del servidor
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		TotalRounds:       cfg.TotalRounds,
		RoundDuration:     cfg.RoundDuration,
		CountdownTicks:    cfg.CountdownTicks,
		CountdownInterval: cfg.CountdownInterval,
		RoundResultDelay:  cfg.RoundResultDelay,
		RoundEndPolicy:    cfg.RoundEndPolicy,
		RetryInterval:     cfg.RetryInterval,
	}
}

// StateStore contrato de persistencia del lobby. Lo implementa
// services.StateService sobre Redis.
type StateStore interface {
	SaveState(state *models.LobbyState) error
	LoadState(code string) (*models.LobbyState, error)
	DeleteState(code string) error
}

// QuestionSource fuente de contenido: entrega la pregunta de cada
// ronda. Lo implementa services.QuestionService.
type QuestionSource interface {
	RandomQuestion() (*models.TriviaQuestion, error)
}

// Hub fan-out de eventos hacia las conexiones del lobby. Lo
// implementa websocket.Broadcaster.
type Hub interface {
	Broadcast(eventType string, data interface{})
}
