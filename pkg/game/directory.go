package game

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/backsoul/trivia/pkg/models"
	"github.com/google/uuid"
)

// Directory es el directorio de lobbies del proceso, indexado por
// código de invitación. Los lobbies viven en memoria mientras se
// usan; uno que no está en memoria pero sí en Redis se rehidrata
// de forma transparente.
type Directory struct {
	mu        sync.Mutex
	settings  Settings
	store     StateStore
	questions QuestionSource
	lobbies   map[string]*Lobby
}

// NewDirectory crea el directorio de lobbies
func NewDirectory(settings Settings, store StateStore, questions QuestionSource) *Directory {
	return &Directory{
		settings:  settings,
		store:     store,
		questions: questions,
		lobbies:   make(map[string]*Lobby),
	}
}

// Create crea un lobby nuevo con el host como primer jugador.
// totalRounds <= 0 usa el valor configurado por defecto.
func (d *Directory) Create(code, hostID, hostName string, totalRounds int) (*Lobby, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.lobbies[code]; exists {
		return nil, ErrAlreadyInitialized
	}

	// El código también puede existir solo en Redis (lobby expulsado
	// de memoria): crear encima lo pisaría
	if _, err := d.store.LoadState(code); err == nil {
		return nil, ErrAlreadyInitialized
	} else if !errors.Is(err, ErrNotInitialized) {
		return nil, err
	}

	if totalRounds <= 0 {
		totalRounds = d.settings.TotalRounds
	}

	now := time.Now()
	state := &models.LobbyState{
		SessionID:   uuid.New().String(),
		Code:        code,
		HostID:      hostID,
		Status:      models.StatusWaiting,
		TotalRounds: totalRounds,
		Players: map[string]*models.Player{
			hostID: {
				ID:       hostID,
				Name:     hostName,
				JoinedAt: now,
			},
		},
		CreatedAt: now,
	}

	if err := d.store.SaveState(state); err != nil {
		return nil, err
	}

	lobby := NewLobby(state, d.settings, d.store, d.questions)
	d.lobbies[code] = lobby

	log.Printf("🎲 Lobby %s creado (sesión %s, host %s)", code, state.SessionID, hostName)
	return lobby, nil
}

// Get obtiene un lobby por código, rehidratándolo desde Redis si no
// está en memoria. Devuelve ErrNotInitialized si nunca se creó.
func (d *Directory) Get(code string) (*Lobby, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if lobby, ok := d.lobbies[code]; ok {
		return lobby, nil
	}

	state, err := d.store.LoadState(code)
	if err != nil {
		return nil, err
	}

	lobby := NewLobby(state, d.settings, d.store, d.questions)
	d.lobbies[code] = lobby
	lobby.Resume()

	log.Printf("♻️ Lobby %s rehidratado desde Redis", code)
	return lobby, nil
}

// Evict saca un lobby de memoria cancelando sus trabajos pendientes.
// El estado persiste en Redis; un Get posterior lo rehidrata.
func (d *Directory) Evict(code string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if lobby, ok := d.lobbies[code]; ok {
		lobby.shutdown()
		delete(d.lobbies, code)
	}
}
