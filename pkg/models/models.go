package models

// TriviaQuestion estructura para representar una pregunta de trivia.
// La respuesta canónica y sus variantes nunca se envían al cliente
// al iniciar la ronda, solo al revelar resultados.
type TriviaQuestion struct {
	ID         int      `json:"id"`
	Prompt     string   `json:"prompt"`
	Category   string   `json:"category"`
	Answer     string   `json:"answer"`
	Alternates []string `json:"alternates,omitempty"`
}

// QuestionsData estructura para el JSON completo del banco de preguntas
type QuestionsData struct {
	Questions []TriviaQuestion `json:"questions"`
	Metadata  struct {
		Total       int    `json:"totalQuestions"`
		Version     string `json:"version"`
		LastUpdated string `json:"lastUpdated"`
		Description string `json:"description"`
	} `json:"metadata"`
}

// APIResponse estructura estándar para respuestas de API
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// LobbyCreateRequest request para crear un lobby
type LobbyCreateRequest struct {
	Code     string `json:"code"`
	HostID   string `json:"hostId"`
	HostName string `json:"hostName"`
}

// JoinRequest request para unirse a un lobby
type JoinRequest struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

// AnswerRequest request para enviar una respuesta
type AnswerRequest struct {
	PlayerID string `json:"playerId"`
	Answer   string `json:"answer"`
}

// LobbySnapshot vista del lobby para el endpoint de estado
type LobbySnapshot struct {
	SessionID    string      `json:"sessionId"`
	Code         string      `json:"code"`
	HostID       string      `json:"hostId"`
	Status       LobbyStatus `json:"status"`
	TotalRounds  int         `json:"totalRounds"`
	CurrentRound int         `json:"currentRound,omitempty"`
	Players      []Player    `json:"players"`
}
