package game

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/backsoul/trivia/pkg/config"
	"github.com/backsoul/trivia/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore persistencia en memoria para los tests. Guarda blobs JSON
// igual que Redis, así la rehidratación es realista.
type fakeStore struct {
	mu      sync.Mutex
	states  map[string][]byte
	saves   int
	failing bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{states: make(map[string][]byte)}
}

func (f *fakeStore) SaveState(state *models.LobbyState) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failing {
		return fmt.Errorf("%w: redis caído", ErrPersistence)
	}

	blob, err := json.Marshal(state)
	if err != nil {
		return err
	}
	f.states[state.Code] = blob
	f.saves++
	return nil
}

func (f *fakeStore) LoadState(code string) (*models.LobbyState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	blob, ok := f.states[code]
	if !ok {
		return nil, ErrNotInitialized
	}

	var state models.LobbyState
	if err := json.Unmarshal(blob, &state); err != nil {
		return nil, err
	}
	// Igual que el StateService real: las conexiones no sobreviven
	for _, p := range state.Players {
		p.Connected = false
	}
	return &state, nil
}

func (f *fakeStore) DeleteState(code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.states, code)
	return nil
}

func (f *fakeStore) setFailing(failing bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = failing
}

func (f *fakeStore) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves
}

// fakeSource siempre entrega la misma pregunta
type fakeSource struct{}

func (fakeSource) RandomQuestion() (*models.TriviaQuestion, error) {
	return &models.TriviaQuestion{
		ID:         1,
		Prompt:     "¿Cuál es la capital de Francia?",
		Category:   "geografía",
		Answer:     "Paris",
		Alternates: []string{"París"},
	}, nil
}

// flakySource falla las primeras consultas y después entrega
// preguntas con normalidad
type flakySource struct {
	mu       sync.Mutex
	failures int
	calls    int
}

func (s *flakySource) RandomQuestion() (*models.TriviaQuestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls <= s.failures {
		return nil, fmt.Errorf("banco de preguntas no disponible")
	}
	return fakeSource{}.RandomQuestion()
}

// fakeHub captura los broadcasts del coordinador
type fakeHub struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	Type string
	Data map[string]interface{}
}

func (h *fakeHub) Broadcast(eventType string, data interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	payload, _ := data.(map[string]interface{})
	h.events = append(h.events, recordedEvent{Type: eventType, Data: payload})
}

func (h *fakeHub) count(eventType string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, e := range h.events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

func (h *fakeHub) last(eventType string) (map[string]interface{}, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := len(h.events) - 1; i >= 0; i-- {
		if h.events[i].Type == eventType {
			return h.events[i].Data, true
		}
	}
	return nil, false
}

// fakeWSConn conexión WebSocket falsa
type fakeWSConn struct{}

func (fakeWSConn) WriteMessage(messageType int, data []byte) error { return nil }
func (fakeWSConn) Close() error                                    { return nil }

func fastSettings() Settings {
	return Settings{
		TotalRounds:       3,
		RoundDuration:     60 * time.Millisecond,
		CountdownTicks:    1,
		CountdownInterval: time.Millisecond,
		RoundResultDelay:  15 * time.Millisecond,
		RoundEndPolicy:    config.PolicyConnected,
		RetryInterval:     10 * time.Millisecond,
	}
}

func slowSettings() Settings {
	s := fastSettings()
	// Las rondas no cierran solas: estos tests las cierran a mano
	s.RoundDuration = time.Minute
	s.RoundResultDelay = time.Minute
	return s
}

// newTestLobby crea un lobby con host + un segundo jugador, ambos
// conectados, con un hub espía
func newTestLobby(t *testing.T, settings Settings) (*Lobby, *fakeStore, *fakeHub) {
	t.Helper()

	store := newFakeStore()
	directory := NewDirectory(settings, store, fakeSource{})

	lobby, err := directory.Create("SALA1", "host", "Ana", 0)
	require.NoError(t, err)

	hub := &fakeHub{}
	lobby.hub = hub

	require.NoError(t, lobby.Join("p2", "Beto"))
	require.NoError(t, lobby.Connect("host", fakeWSConn{}))
	require.NoError(t, lobby.Connect("p2", fakeWSConn{}))

	return lobby, store, hub
}

func waitForStatus(t *testing.T, lobby *Lobby, status models.LobbyStatus) {
	t.Helper()
	require.Eventually(t, func() bool {
		return lobby.Snapshot().Status == status
	}, 2*time.Second, time.Millisecond, "esperando estado %s", status)
}

func totalOf(lobby *Lobby, playerID string) float64 {
	for _, p := range lobby.Snapshot().Players {
		if p.ID == playerID {
			return p.TotalScore
		}
	}
	return -1
}

func TestDirectoryCreateDuplicado(t *testing.T) {
	store := newFakeStore()
	directory := NewDirectory(fastSettings(), store, fakeSource{})

	_, err := directory.Create("SALA1", "host", "Ana", 0)
	require.NoError(t, err)

	_, err = directory.Create("SALA1", "otro", "Beto", 0)
	assert.ErrorIs(t, err, ErrAlreadyInitialized)

	// También cuenta si el lobby solo existe en Redis
	directory.Evict("SALA1")
	_, err = directory.Create("SALA1", "otro", "Beto", 0)
	assert.ErrorIs(t, err, ErrAlreadyInitialized)
}

func TestDirectoryGetInexistente(t *testing.T) {
	directory := NewDirectory(fastSettings(), newFakeStore(), fakeSource{})

	_, err := directory.Get("NOEXISTE")
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestJoinYRejoin(t *testing.T) {
	lobby, _, hub := newTestLobby(t, slowSettings())

	require.NoError(t, lobby.Join("p3", "Carla"))
	joined := hub.count(EventPlayerJoined)

	// Rejoin: no duplica al jugador ni vuelve a anunciar
	require.NoError(t, lobby.Join("p3", "Carla"))
	assert.Equal(t, joined, hub.count(EventPlayerJoined))
	assert.Len(t, lobby.Snapshot().Players, 3)
}

func TestConnectJugadorDesconocido(t *testing.T) {
	lobby, _, _ := newTestLobby(t, slowSettings())

	err := lobby.Connect("fantasma", fakeWSConn{})
	assert.ErrorIs(t, err, ErrUnknownPlayer)
}

func TestStartIdempotente(t *testing.T) {
	lobby, _, hub := newTestLobby(t, slowSettings())

	require.NoError(t, lobby.Start())
	require.NoError(t, lobby.Start())
	require.NoError(t, lobby.Start())

	waitForStatus(t, lobby, models.StatusPlaying)

	// Una sola cuenta regresiva (ticks + "go") y una sola ronda 1
	assert.Equal(t, 2, hub.count(EventCountdownTick))
	assert.Equal(t, 1, hub.count(EventRoundStarted))
	assert.Equal(t, 1, lobby.Snapshot().CurrentRound)
}

func TestRondaCierraCuandoTodosResponden(t *testing.T) {
	lobby, _, hub := newTestLobby(t, slowSettings())

	require.NoError(t, lobby.Start())
	waitForStatus(t, lobby, models.StatusPlaying)

	start := time.Now()
	require.NoError(t, lobby.SubmitAnswer("host", "Paris", start.Add(time.Second)))
	assert.Equal(t, models.StatusPlaying, lobby.Snapshot().Status)

	// Con la última respuesta la ronda cierra sin esperar al timer
	require.NoError(t, lobby.SubmitAnswer("p2", "Londres", start.Add(2*time.Second)))
	assert.Equal(t, models.StatusRoundEnded, lobby.Snapshot().Status)
	assert.Equal(t, 1, hub.count(EventRoundResult))

	// Correcto suma, incorrecto queda en cero
	assert.Greater(t, totalOf(lobby, "host"), 0.0)
	assert.Equal(t, 0.0, totalOf(lobby, "p2"))
}

func TestEndRoundIdempotente(t *testing.T) {
	lobby, _, hub := newTestLobby(t, slowSettings())

	require.NoError(t, lobby.Start())
	waitForStatus(t, lobby, models.StatusPlaying)

	require.NoError(t, lobby.SubmitAnswer("host", "Paris", time.Now()))

	// Simula el timer disparando después del cierre anticipado
	lobby.endRoundFromTimer()
	lobby.endRoundFromTimer()

	assert.Equal(t, 1, hub.count(EventRoundResult))

	// Nadie cobra dos veces
	total := totalOf(lobby, "host")
	require.Greater(t, total, 0.0)
	lobby.endRoundFromTimer()
	assert.Equal(t, total, totalOf(lobby, "host"))
}

func TestRespuestaDuplicadaYTardia(t *testing.T) {
	lobby, _, _ := newTestLobby(t, slowSettings())

	require.NoError(t, lobby.Start())
	waitForStatus(t, lobby, models.StatusPlaying)

	start := time.Now()
	require.NoError(t, lobby.SubmitAnswer("host", "Roma", start))
	// La segunda respuesta del mismo jugador se ignora: vale la primera
	require.NoError(t, lobby.SubmitAnswer("host", "Paris", start.Add(time.Second)))

	lobby.endRoundFromTimer()
	assert.Equal(t, 0.0, totalOf(lobby, "host"))

	// Respuesta tardía sobre la ronda ya cerrada: ignorada
	require.NoError(t, lobby.SubmitAnswer("p2", "Paris", time.Now()))
	assert.Equal(t, 0.0, totalOf(lobby, "p2"))
}

func TestProgresionTresRondasHastaElFinal(t *testing.T) {
	lobby, _, hub := newTestLobby(t, fastSettings())

	require.NoError(t, lobby.Start())

	// Las tres rondas cierran por timer (nadie responde) y la partida
	// termina exactamente una vez
	waitForStatus(t, lobby, models.StatusFinished)

	assert.Equal(t, 3, hub.count(EventRoundStarted))
	assert.Equal(t, 3, hub.count(EventRoundResult))
	assert.Equal(t, 1, hub.count(EventGameEnded))
	assert.Equal(t, 3, lobby.Snapshot().CurrentRound)

	// Los números de ronda salieron 1, 2, 3 sin repetirse
	hub.mu.Lock()
	var rounds []int
	for _, e := range hub.events {
		if e.Type == EventRoundStarted {
			rounds = append(rounds, e.Data["round"].(int))
		}
	}
	hub.mu.Unlock()
	assert.Equal(t, []int{1, 2, 3}, rounds)

	// Un start tardío sobre la partida terminada no la resucita
	require.NoError(t, lobby.Start())
	assert.Equal(t, models.StatusFinished, lobby.Snapshot().Status)
}

func TestGanadorEnElBroadcastFinal(t *testing.T) {
	lobby, _, hub := newTestLobby(t, slowSettings())

	require.NoError(t, lobby.Start())
	waitForStatus(t, lobby, models.StatusPlaying)

	require.NoError(t, lobby.SubmitAnswer("p2", "Paris", time.Now()))
	lobby.endRoundFromTimer()

	lobby.mu.Lock()
	require.NoError(t, lobby.endGameLocked())
	lobby.mu.Unlock()

	data, ok := hub.last(EventGameEnded)
	require.True(t, ok)
	winner := data["winner"].(models.LeaderboardEntry)
	assert.Equal(t, "p2", winner.PlayerID)
	assert.Equal(t, 1, winner.Rank)
}

func TestReconexionConservaPuntaje(t *testing.T) {
	lobby, _, _ := newTestLobby(t, slowSettings())

	// Primera ronda: p2 acierta y cobra
	require.NoError(t, lobby.Start())
	waitForStatus(t, lobby, models.StatusPlaying)
	require.NoError(t, lobby.SubmitAnswer("p2", "Paris", time.Now()))
	lobby.endRoundFromTimer()
	earned := totalOf(lobby, "p2")
	require.Greater(t, earned, 0.0)

	// Segunda ronda: p2 se desconecta a mitad de ronda y vuelve
	lobby.mu.Lock()
	require.NoError(t, lobby.startRoundLocked(2))
	lobby.mu.Unlock()

	conn := fakeWSConn{}
	require.NoError(t, lobby.Disconnect("p2", nil))
	assert.Equal(t, earned, totalOf(lobby, "p2"))

	require.NoError(t, lobby.Connect("p2", conn))

	// Puede responder exactamente una vez en la ronda en curso
	require.NoError(t, lobby.SubmitAnswer("p2", "Paris", time.Now()))
	require.NoError(t, lobby.SubmitAnswer("p2", "Paris", time.Now()))

	lobby.endRoundFromTimer()
	assert.Greater(t, totalOf(lobby, "p2"), earned)
}

func TestPoliticaDeCierreAnticipado(t *testing.T) {
	t.Run("connected ignora desconectados", func(t *testing.T) {
		lobby, _, _ := newTestLobby(t, slowSettings())
		require.NoError(t, lobby.Join("p3", "Carla")) // nunca se conecta

		require.NoError(t, lobby.Start())
		waitForStatus(t, lobby, models.StatusPlaying)

		require.NoError(t, lobby.SubmitAnswer("host", "Paris", time.Now()))
		require.NoError(t, lobby.SubmitAnswer("p2", "Paris", time.Now()))

		// Los dos conectados respondieron: la ronda cierra aunque
		// Carla no haya respondido
		assert.Equal(t, models.StatusRoundEnded, lobby.Snapshot().Status)
	})

	t.Run("all espera al roster entero", func(t *testing.T) {
		settings := slowSettings()
		settings.RoundEndPolicy = config.PolicyAll

		lobby, _, _ := newTestLobby(t, settings)
		require.NoError(t, lobby.Join("p3", "Carla"))

		require.NoError(t, lobby.Start())
		waitForStatus(t, lobby, models.StatusPlaying)

		require.NoError(t, lobby.SubmitAnswer("host", "Paris", time.Now()))
		require.NoError(t, lobby.SubmitAnswer("p2", "Paris", time.Now()))

		// Falta Carla: el cierre queda en manos del timer
		assert.Equal(t, models.StatusPlaying, lobby.Snapshot().Status)
	})
}

func TestPersistenciaFallaAbortaSinBroadcast(t *testing.T) {
	lobby, store, hub := newTestLobby(t, slowSettings())

	store.setFailing(true)

	err := lobby.Join("p9", "Zoe")
	assert.ErrorIs(t, err, ErrPersistence)

	// Nada se anunció (solo quedó el join de p2 del setup) y el
	// roster quedó como estaba
	assert.Equal(t, 1, hub.count(EventPlayerJoined))
	assert.Len(t, lobby.Snapshot().Players, 2)

	// Start tampoco avanza si no puede persistir
	err = lobby.Start()
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Equal(t, models.StatusWaiting, lobby.Snapshot().Status)

	store.setFailing(false)
	require.NoError(t, lobby.Join("p9", "Zoe"))
	assert.Len(t, lobby.Snapshot().Players, 3)
}

func TestRehidratacionDesdeElStore(t *testing.T) {
	settings := slowSettings()
	store := newFakeStore()
	directory := NewDirectory(settings, store, fakeSource{})

	lobby, err := directory.Create("SALA1", "host", "Ana", 0)
	require.NoError(t, err)
	lobby.hub = &fakeHub{}

	require.NoError(t, lobby.Join("p2", "Beto"))
	require.NoError(t, lobby.Connect("p2", fakeWSConn{}))

	require.NoError(t, lobby.Start())
	waitForStatus(t, lobby, models.StatusPlaying)
	require.NoError(t, lobby.SubmitAnswer("p2", "Paris", time.Now()))
	lobby.endRoundFromTimer()
	earned := totalOf(lobby, "p2")
	require.Greater(t, earned, 0.0)

	// Expulsar de memoria y volver a cargar: todo el estado mutable
	// vuelve desde el store, menos las conexiones
	directory.Evict("SALA1")

	revived, err := directory.Get("SALA1")
	require.NoError(t, err)
	require.NotSame(t, lobby, revived)

	snapshot := revived.Snapshot()
	assert.Equal(t, models.StatusRoundEnded, snapshot.Status)
	assert.Equal(t, lobby.SessionID(), revived.SessionID())
	assert.Equal(t, earned, totalOf(revived, "p2"))
	for _, p := range snapshot.Players {
		assert.False(t, p.Connected)
	}
}

func TestEvictCancelaElAvancePendiente(t *testing.T) {
	settings := slowSettings()
	settings.RoundResultDelay = 30 * time.Millisecond

	store := newFakeStore()
	directory := NewDirectory(settings, store, fakeSource{})

	lobby, err := directory.Create("SALA1", "host", "Ana", 0)
	require.NoError(t, err)
	lobby.hub = &fakeHub{}

	require.NoError(t, lobby.Connect("host", fakeWSConn{}))
	require.NoError(t, lobby.Start())
	waitForStatus(t, lobby, models.StatusPlaying)

	require.NoError(t, lobby.SubmitAnswer("host", "Paris", time.Now()))
	require.Equal(t, models.StatusRoundEnded, lobby.Snapshot().Status)

	// Expulsado con el avance de ronda pendiente: la instancia vieja
	// no debe seguir manejando la sesión ni escribiendo en el store
	directory.Evict("SALA1")
	saves := store.saveCount()

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, saves, store.saveCount())

	state, err := store.LoadState("SALA1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRoundEnded, state.Status)
	assert.Equal(t, 1, state.Round.Number)
}

func TestEvictDetieneLaCuentaRegresiva(t *testing.T) {
	settings := slowSettings()
	settings.CountdownTicks = 3
	settings.CountdownInterval = 30 * time.Millisecond

	store := newFakeStore()
	directory := NewDirectory(settings, store, fakeSource{})

	lobby, err := directory.Create("SALA1", "host", "Ana", 0)
	require.NoError(t, err)
	hub := &fakeHub{}
	lobby.hub = hub

	require.NoError(t, lobby.Start())
	directory.Evict("SALA1")

	time.Sleep(200 * time.Millisecond)

	// La goroutine expulsada abandona sin abrir la primera ronda
	assert.Equal(t, 0, hub.count(EventRoundStarted))

	state, err := store.LoadState("SALA1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCountdown, state.Status)
}

func TestFuenteDePreguntasCaidaSeReintenta(t *testing.T) {
	settings := fastSettings()
	source := &flakySource{failures: 2}

	store := newFakeStore()
	directory := NewDirectory(settings, store, source)

	lobby, err := directory.Create("SALA1", "host", "Ana", 0)
	require.NoError(t, err)
	hub := &fakeHub{}
	lobby.hub = hub

	require.NoError(t, lobby.Start())

	// Las dos primeras consultas fallan: el lobby no queda varado en
	// la cuenta regresiva, la ronda arranca cuando la fuente vuelve
	// y la partida termina sola
	waitForStatus(t, lobby, models.StatusFinished)
	assert.Equal(t, 3, hub.count(EventRoundStarted))
	assert.Equal(t, 1, hub.count(EventGameEnded))
}

func TestRehidratacionReprogramaElTimer(t *testing.T) {
	settings := fastSettings()
	settings.RoundDuration = 80 * time.Millisecond

	store := newFakeStore()
	directory := NewDirectory(settings, store, fakeSource{})

	lobby, err := directory.Create("SALA1", "host", "Ana", 0)
	require.NoError(t, err)
	lobby.hub = &fakeHub{}

	require.NoError(t, lobby.Start())
	waitForStatus(t, lobby, models.StatusPlaying)

	// Expulsado a mitad de ronda: al revivir, el timer pendiente se
	// reprograma por el tiempo restante y la partida sigue sola
	directory.Evict("SALA1")

	revived, err := directory.Get("SALA1")
	require.NoError(t, err)

	waitForStatus(t, revived, models.StatusFinished)
}
