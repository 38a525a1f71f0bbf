package models

import "time"

// LobbyStatus estado de la partida dentro de un lobby
type LobbyStatus string

const (
	StatusWaiting    LobbyStatus = "waiting"     // Esperando jugadores
	StatusCountdown  LobbyStatus = "countdown"   // Cuenta regresiva antes de la primera ronda
	StatusPlaying    LobbyStatus = "playing"     // Ronda en curso
	StatusRoundEnded LobbyStatus = "round_ended" // Ronda terminada, mostrando resultados
	StatusFinished   LobbyStatus = "finished"    // Partida terminada
)

// Player representa a un jugador dentro del lobby.
// El jugador nunca se elimina durante la vida de la sesión: si se
// desconecta solo cambia el flag Connected, el puntaje se conserva.
type Player struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Connected  bool      `json:"connected"`
	TotalScore float64   `json:"totalScore"`
	JoinedAt   time.Time `json:"joinedAt"`
}

// Target la respuesta correcta de una ronda junto con sus
// variantes aceptadas (por ejemplo "France", "FR", "French Republic")
type Target struct {
	Answer     string   `json:"answer"`
	Alternates []string `json:"alternates,omitempty"`
}

// Answer respuesta enviada por un jugador durante una ronda
type Answer struct {
	PlayerID   string    `json:"playerId"`
	Text       string    `json:"text"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// CurrentRound la ronda en curso (o la última jugada mientras se
// muestran resultados). Answers conserva el orden de llegada y admite
// como máximo una respuesta por jugador.
type CurrentRound struct {
	Number    int       `json:"number"`
	Question  string    `json:"question"`
	Category  string    `json:"category,omitempty"`
	Target    Target    `json:"target"`
	StartTime time.Time `json:"startTime"`
	Answers   []Answer  `json:"answers"`
}

// HasAnswered indica si el jugador ya respondió en esta ronda
func (r *CurrentRound) HasAnswered(playerID string) bool {
	for _, a := range r.Answers {
		if a.PlayerID == playerID {
			return true
		}
	}
	return false
}

// LobbyState estado completo de un lobby. Es el blob que se persiste
// en Redis después de cada mutación: un lobby expulsado de memoria se
// reconstruye íntegramente desde aquí (las conexiones WebSocket no se
// persisten, el cliente debe reconectarse).
type LobbyState struct {
	SessionID   string             `json:"sessionId"`
	Code        string             `json:"code"`
	HostID      string             `json:"hostId"`
	Status      LobbyStatus        `json:"status"`
	TotalRounds int                `json:"totalRounds"`
	Players     map[string]*Player `json:"players"`
	Round       *CurrentRound      `json:"currentRound,omitempty"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

// PlayerScore resultado de un jugador en una ronda (efímero, se
// calcula al cerrar la ronda y viaja en el broadcast de resultados)
type PlayerScore struct {
	PlayerID   string  `json:"playerId"`
	PlayerName string  `json:"playerName"`
	Score      float64 `json:"score"`
	IsCorrect  bool    `json:"isCorrect"`
}

// LeaderboardEntry entrada en la tabla de posiciones
type LeaderboardEntry struct {
	PlayerID   string  `json:"playerId"`
	PlayerName string  `json:"playerName"`
	TotalScore float64 `json:"totalScore"`
	Rank       int     `json:"rank"`
}
