package game

import (
	"log"
	"sort"
	"sync"
	"time"

	"github.com/backsoul/trivia/pkg/config"
	"github.com/backsoul/trivia/pkg/models"
	"github.com/backsoul/trivia/pkg/scoring"
	"github.com/backsoul/trivia/pkg/websocket"
)

// Lobby es el coordinador de una sesión de trivia: un actor que lleva
// el roster, las conexiones, la cuenta regresiva, las rondas con su
// timer, el puntaje y los broadcasts.
//
// Toda mutación de estado pasa por el mutex del lobby, así las
// operaciones quedan serializadas aunque la cuenta regresiva y las
// esperas entre rondas corran en goroutines aparte. El estado se
// persiste después de cada mutación y siempre ANTES del broadcast
// correspondiente: si Redis falla, la operación se revierte y no se
// anuncia nada.
type Lobby struct {
	mu       sync.Mutex
	state    *models.LobbyState
	settings Settings

	store     StateStore
	questions QuestionSource
	registry  *websocket.Registry
	hub       Hub

	// Timer de fin de ronda. Hay a lo sumo uno pendiente: toda
	// transición que saca al lobby de "playing" lo cancela.
	roundTimer *time.Timer

	// Timer del avance entre rondas (y de los reintentos cuando la
	// fuente de preguntas o el store fallan). También a lo sumo uno.
	advanceTimer *time.Timer

	// Marcado al expulsar el lobby de memoria: los trabajos diferidos
	// que alcancen a disparar no deben seguir manejando la sesión,
	// de eso se encarga la instancia rehidratada.
	stopped bool
}

// NewLobby construye el coordinador sobre un estado (nuevo o
// rehidratado desde Redis). Las conexiones arrancan siempre vacías.
func NewLobby(state *models.LobbyState, settings Settings, store StateStore, questions QuestionSource) *Lobby {
	registry := websocket.NewRegistry()
	return &Lobby{
		state:     state,
		settings:  settings,
		store:     store,
		questions: questions,
		registry:  registry,
		hub:       websocket.NewBroadcaster(registry),
	}
}

// Code código de invitación del lobby
func (l *Lobby) Code() string {
	return l.state.Code
}

// SessionID identificador de la sesión
func (l *Lobby) SessionID() string {
	return l.state.SessionID
}

// HasPlayer indica si la identidad pertenece al roster
func (l *Lobby) HasPlayer(playerID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.state.Players[playerID]
	return ok
}

// Join agrega un jugador al roster. Si la identidad ya estaba, es un
// rejoin y no hace nada (el jugador conserva su puntaje).
func (l *Lobby) Join(playerID, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.state.Players[playerID]; exists {
		return nil
	}

	player := &models.Player{
		ID:       playerID,
		Name:     name,
		JoinedAt: time.Now(),
	}
	l.state.Players[playerID] = player

	if err := l.persistLocked(); err != nil {
		delete(l.state.Players, playerID)
		return err
	}

	l.hub.Broadcast(EventPlayerJoined, map[string]interface{}{
		"player":      player,
		"playerCount": len(l.state.Players),
	})

	log.Printf("👤 %s se unió al lobby %s (%d jugadores)", name, l.state.Code, len(l.state.Players))
	return nil
}

// Connect registra la conexión WebSocket de un jugador y lo marca
// como conectado. Si ya tenía una conexión, gana la nueva.
func (l *Lobby) Connect(playerID string, conn websocket.Conn) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	player, ok := l.state.Players[playerID]
	if !ok {
		return ErrUnknownPlayer
	}

	l.registry.Attach(playerID, conn)

	wasConnected := player.Connected
	player.Connected = true

	if err := l.persistLocked(); err != nil {
		player.Connected = wasConnected
		return err
	}

	l.hub.Broadcast(EventPlayerConnected, map[string]interface{}{
		"playerId":   playerID,
		"playerName": player.Name,
	})

	return nil
}

// Disconnect saca la conexión del registro y marca al jugador como
// desconectado. El jugador y su puntaje se conservan siempre.
func (l *Lobby) Disconnect(playerID string, conn websocket.Conn) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	player, ok := l.state.Players[playerID]
	if !ok {
		return ErrUnknownPlayer
	}

	l.registry.Detach(playerID, conn)

	// Si quedó otra conexión registrada, la vieja fue reemplazada y
	// el jugador sigue conectado
	if _, still := l.registry.Get(playerID); still {
		return nil
	}

	if !player.Connected {
		return nil
	}
	player.Connected = false

	if err := l.persistLocked(); err != nil {
		player.Connected = true
		return err
	}

	l.hub.Broadcast(EventPlayerDisconnected, map[string]interface{}{
		"playerId":   playerID,
		"playerName": player.Name,
	})

	return nil
}

// Start arranca la partida: cuenta regresiva y primera ronda.
// Si la partida ya arrancó es un no-op, no un error: el caller puede
// estar compitiendo con otro start.
func (l *Lobby) Start() error {
	l.mu.Lock()
	if l.state.Status != models.StatusWaiting {
		l.mu.Unlock()
		return nil
	}

	l.state.Status = models.StatusCountdown
	if err := l.persistLocked(); err != nil {
		l.state.Status = models.StatusWaiting
		l.mu.Unlock()
		return err
	}
	l.mu.Unlock()

	log.Printf("🚦 Cuenta regresiva iniciada en lobby %s", l.state.Code)
	go l.runCountdown()
	return nil
}

// runCountdown emite los ticks de la cuenta regresiva sin retener el
// mutex: los joins, conexiones y desconexiones siguen entrando
// mientras tanto.
func (l *Lobby) runCountdown() {
	for i := l.settings.CountdownTicks; i > 0; i-- {
		if l.isStopped() {
			return
		}
		l.hub.Broadcast(EventCountdownTick, map[string]interface{}{"count": i})
		time.Sleep(l.settings.CountdownInterval)
	}
	if l.isStopped() {
		return
	}
	l.hub.Broadcast(EventCountdownTick, map[string]interface{}{"count": 0, "go": true})

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopped || l.state.Status != models.StatusCountdown {
		return
	}
	if err := l.startRoundLocked(1); err != nil {
		log.Printf("❌ Error iniciando la primera ronda en %s: %v", l.state.Code, err)
	}
}

// startRoundLocked arma la ronda n: pide una pregunta, pone el lobby
// en playing, anuncia la ronda (sin la respuesta) y programa el timer
// de cierre. Requiere el mutex tomado.
func (l *Lobby) startRoundLocked(n int) error {
	question, err := l.questions.RandomQuestion()
	if err != nil {
		// Sin pregunta no hay ronda: reintentar cuando la fuente
		// vuelva, si no el lobby queda varado esperando un avance
		// que ya disparó
		l.scheduleStartRetryLocked(n)
		return err
	}

	prevStatus := l.state.Status
	prevRound := l.state.Round

	l.state.Status = models.StatusPlaying
	l.state.Round = &models.CurrentRound{
		Number:   n,
		Question: question.Prompt,
		Category: question.Category,
		Target: models.Target{
			Answer:     question.Answer,
			Alternates: question.Alternates,
		},
		StartTime: time.Now(),
		Answers:   []models.Answer{},
	}

	if err := l.persistLocked(); err != nil {
		l.state.Status = prevStatus
		l.state.Round = prevRound
		l.scheduleStartRetryLocked(n)
		return err
	}

	l.hub.Broadcast(EventRoundStarted, map[string]interface{}{
		"round":       n,
		"totalRounds": l.state.TotalRounds,
		"question":    question.Prompt,
		"category":    question.Category,
		"durationMs":  l.settings.RoundDuration.Milliseconds(),
	})

	l.scheduleRoundTimerLocked(l.settings.RoundDuration)

	log.Printf("▶️ Ronda %d/%d iniciada en lobby %s", n, l.state.TotalRounds, l.state.Code)
	return nil
}

// SubmitAnswer registra la respuesta de un jugador. Las respuestas
// tardías, duplicadas o de identidades desconocidas se ignoran en
// silencio: son carreras esperadas, no errores del caller.
// Vale la primera respuesta de cada jugador por ronda.
func (l *Lobby) SubmitAnswer(playerID, text string, receivedAt time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state.Status != models.StatusPlaying || l.state.Round == nil {
		return nil
	}
	if _, ok := l.state.Players[playerID]; !ok {
		return nil
	}
	if l.state.Round.HasAnswered(playerID) {
		return nil
	}

	l.state.Round.Answers = append(l.state.Round.Answers, models.Answer{
		PlayerID:   playerID,
		Text:       text,
		ReceivedAt: receivedAt,
	})

	if err := l.persistLocked(); err != nil {
		l.state.Round.Answers = l.state.Round.Answers[:len(l.state.Round.Answers)-1]
		return err
	}

	// Si ya respondieron todos los que tenían que responder, la
	// ronda cierra sin esperar al timer
	if l.everyoneAnsweredLocked() {
		l.cancelRoundTimerLocked()
		return l.endRoundLocked()
	}

	return nil
}

// everyoneAnsweredLocked decide si la ronda puede cerrar
// anticipadamente según la política configurada: con "connected"
// cuentan solo los jugadores conectados, con "all" el roster entero.
func (l *Lobby) everyoneAnsweredLocked() bool {
	required := 0
	for id, player := range l.state.Players {
		if l.settings.RoundEndPolicy == config.PolicyConnected && !player.Connected {
			continue
		}
		required++
		if !l.state.Round.HasAnswered(id) {
			return false
		}
	}
	return required > 0
}

// endRoundFromTimer es el callback del timer de fin de ronda
func (l *Lobby) endRoundFromTimer() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopped {
		return
	}
	if err := l.endRoundLocked(); err != nil {
		log.Printf("❌ Error cerrando ronda por timer en %s: %v", l.state.Code, err)
	}
}

// endRoundLocked cierra la ronda en curso: evalúa respuestas, acredita
// puntajes, persiste y anuncia resultados. Es idempotente: si la ronda
// ya cerró (el timer disparó después del cierre anticipado, o al
// revés) no hace nada, así nadie cobra dos veces.
func (l *Lobby) endRoundLocked() error {
	if l.state.Status != models.StatusPlaying {
		return nil
	}

	l.cancelRoundTimerLocked()

	round := l.state.Round
	scores := scoring.EvaluateRound(round.Answers, round.Target, round.StartTime)

	for i := range scores {
		player := l.state.Players[scores[i].PlayerID]
		scores[i].PlayerName = player.Name
		player.TotalScore += scores[i].Score
	}
	l.state.Status = models.StatusRoundEnded

	if err := l.persistLocked(); err != nil {
		for _, ps := range scores {
			l.state.Players[ps.PlayerID].TotalScore -= ps.Score
		}
		l.state.Status = models.StatusPlaying
		// Reintentar el cierre cuando el store se recupere, si no la
		// ronda quedaría abierta para siempre
		l.scheduleRoundTimerLocked(l.settings.RetryInterval)
		return err
	}

	leaderboard := scoring.Rank(l.state.Players)

	l.hub.Broadcast(EventRoundResult, map[string]interface{}{
		"round":         round.Number,
		"correctAnswer": round.Target.Answer,
		"alternates":    round.Target.Alternates,
		"scores":        scores,
		"leaderboard":   leaderboard,
	})

	log.Printf("🏁 Ronda %d cerrada en lobby %s (%d respuestas)", round.Number, l.state.Code, len(round.Answers))

	l.scheduleAdvanceLocked(l.settings.RoundResultDelay)
	return nil
}

// advance pasa de los resultados a la siguiente ronda, o cierra la
// partida si ya se jugaron todas
func (l *Lobby) advance() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopped || l.state.Status != models.StatusRoundEnded {
		return
	}

	if l.state.Round != nil && l.state.Round.Number < l.state.TotalRounds {
		if err := l.startRoundLocked(l.state.Round.Number + 1); err != nil {
			log.Printf("❌ Error iniciando ronda %d en %s: %v", l.state.Round.Number+1, l.state.Code, err)
		}
		return
	}

	if err := l.endGameLocked(); err != nil {
		log.Printf("❌ Error terminando partida en %s: %v", l.state.Code, err)
	}
}

// endGameLocked termina la partida y anuncia al ganador. Idempotente
// contra disparos duplicados.
func (l *Lobby) endGameLocked() error {
	if l.state.Status == models.StatusFinished {
		return nil
	}

	l.cancelRoundTimerLocked()

	prevStatus := l.state.Status
	l.state.Status = models.StatusFinished

	if err := l.persistLocked(); err != nil {
		l.state.Status = prevStatus
		return err
	}

	leaderboard := scoring.Rank(l.state.Players)
	var winner interface{}
	if len(leaderboard) > 0 {
		winner = leaderboard[0]
	}

	l.hub.Broadcast(EventGameEnded, map[string]interface{}{
		"winner":      winner,
		"leaderboard": leaderboard,
	})

	log.Printf("🏆 Partida terminada en lobby %s", l.state.Code)
	return nil
}

// Snapshot devuelve una copia del roster y el estado de la partida
func (l *Lobby) Snapshot() models.LobbySnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	players := make([]models.Player, 0, len(l.state.Players))
	for _, p := range l.state.Players {
		players = append(players, *p)
	}
	sort.Slice(players, func(i, j int) bool {
		return players[i].JoinedAt.Before(players[j].JoinedAt)
	})

	currentRound := 0
	if l.state.Round != nil {
		currentRound = l.state.Round.Number
	}

	return models.LobbySnapshot{
		SessionID:    l.state.SessionID,
		Code:         l.state.Code,
		HostID:       l.state.HostID,
		Status:       l.state.Status,
		TotalRounds:  l.state.TotalRounds,
		CurrentRound: currentRound,
		Players:      players,
	}
}

// SendState envía el estado actual del lobby a la conexión registrada
// de un jugador (el snapshot inicial al conectarse). La escritura va
// serializada con los broadcasts sobre esa conexión.
func (l *Lobby) SendState(playerID string) error {
	return l.registry.Send(playerID, EventLobbyState, l.Snapshot())
}

// Resume reanuda los trabajos diferidos de un lobby rehidratado desde
// Redis: si quedó a mitad de una ronda el timer se reprograma por el
// tiempo restante (y dispara ya mismo si venció durante la expulsión).
func (l *Lobby) Resume() {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state.Status {
	case models.StatusCountdown:
		go l.runCountdown()
	case models.StatusPlaying:
		if l.state.Round == nil {
			return
		}
		remaining := time.Until(l.state.Round.StartTime.Add(l.settings.RoundDuration))
		if remaining < 0 {
			remaining = 0
		}
		l.scheduleRoundTimerLocked(remaining)
	case models.StatusRoundEnded:
		l.scheduleAdvanceLocked(l.settings.RoundResultDelay)
	}
}

// shutdown cancela los trabajos pendientes del lobby antes de sacarlo
// de memoria. Lo que ya esté en vuelo (una cuenta regresiva, un timer
// que alcanzó a disparar) ve el flag y abandona: desde acá la sesión
// es de la instancia rehidratada.
func (l *Lobby) shutdown() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopped = true
	l.cancelRoundTimerLocked()
	l.cancelAdvanceTimerLocked()
}

func (l *Lobby) isStopped() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stopped
}

func (l *Lobby) scheduleRoundTimerLocked(d time.Duration) {
	l.cancelRoundTimerLocked()
	l.roundTimer = time.AfterFunc(d, l.endRoundFromTimer)
}

// cancelRoundTimerLocked detiene el timer pendiente. Cancelar un timer
// ya disparado o ya cancelado es inocuo.
func (l *Lobby) cancelRoundTimerLocked() {
	if l.roundTimer != nil {
		l.roundTimer.Stop()
		l.roundTimer = nil
	}
}

func (l *Lobby) scheduleAdvanceLocked(d time.Duration) {
	l.cancelAdvanceTimerLocked()
	l.advanceTimer = time.AfterFunc(d, l.advance)
}

// scheduleStartRetryLocked reintenta armar la ronda n más tarde,
// mientras el lobby siga esperando esa ronda
func (l *Lobby) scheduleStartRetryLocked(n int) {
	l.cancelAdvanceTimerLocked()
	l.advanceTimer = time.AfterFunc(l.settings.RetryInterval, func() {
		l.mu.Lock()
		defer l.mu.Unlock()

		if l.stopped {
			return
		}
		if l.state.Status != models.StatusCountdown && l.state.Status != models.StatusRoundEnded {
			return
		}
		if err := l.startRoundLocked(n); err != nil {
			log.Printf("❌ Error reintentando ronda %d en %s: %v", n, l.state.Code, err)
		}
	})
}

func (l *Lobby) cancelAdvanceTimerLocked() {
	if l.advanceTimer != nil {
		l.advanceTimer.Stop()
		l.advanceTimer = nil
	}
}

func (l *Lobby) persistLocked() error {
	return l.store.SaveState(l.state)
}
