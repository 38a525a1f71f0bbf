package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/backsoul/trivia/pkg/game"
	"github.com/backsoul/trivia/pkg/models"
	"github.com/backsoul/trivia/pkg/redis"
)

const (
	lobbyKeyPrefix = "trivia:lobby:"
	activeLobbyKey = "trivia:active_lobbies"
	lobbyStateTTL  = 24 * time.Hour
)

// StateService persiste el estado completo de cada lobby en Redis.
// Es el contrato de durabilidad del coordinador: después de cada
// mutación se guarda el blob entero, y un lobby expulsado de memoria
// se reconstruye solo a partir de lo que hay acá.
type StateService struct {
	redisClient *redis.RedisClient
}

// NewStateService crea una nueva instancia del servicio de estado
func NewStateService(redisClient *redis.RedisClient) *StateService {
	return &StateService{
		redisClient: redisClient,
	}
}

// SaveState guarda el estado de un lobby
func (s *StateService) SaveState(state *models.LobbyState) error {
	state.UpdatedAt = time.Now()

	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("%w: error serializando lobby %s: %v", game.ErrPersistence, state.Code, err)
	}

	if err := s.redisClient.Set(lobbyKeyPrefix+state.Code, string(stateJSON), lobbyStateTTL); err != nil {
		return fmt.Errorf("%w: error guardando lobby %s: %v", game.ErrPersistence, state.Code, err)
	}

	if err := s.redisClient.AddToSet(activeLobbyKey, state.Code); err != nil {
		return fmt.Errorf("%w: error registrando lobby activo %s: %v", game.ErrPersistence, state.Code, err)
	}

	return nil
}

// LoadState carga el estado de un lobby por código de invitación
func (s *StateService) LoadState(code string) (*models.LobbyState, error) {
	stateJSON, err := s.redisClient.Get(lobbyKeyPrefix + code)
	if err != nil {
		if errors.Is(err, redis.ErrNotFound) {
			return nil, game.ErrNotInitialized
		}
		return nil, fmt.Errorf("%w: error cargando lobby %s: %v", game.ErrPersistence, code, err)
	}

	var state models.LobbyState
	if err := json.Unmarshal([]byte(stateJSON), &state); err != nil {
		return nil, fmt.Errorf("%w: error parsing lobby %s: %v", game.ErrPersistence, code, err)
	}

	// Las conexiones nunca se persisten: al rehidratar, todos los
	// jugadores arrancan desconectados hasta que vuelvan a conectarse
	for _, player := range state.Players {
		player.Connected = false
	}

	return &state, nil
}

// DeleteState elimina el estado de un lobby
func (s *StateService) DeleteState(code string) error {
	if err := s.redisClient.Delete(lobbyKeyPrefix + code); err != nil {
		return fmt.Errorf("%w: error eliminando lobby %s: %v", game.ErrPersistence, code, err)
	}
	return s.redisClient.RemoveFromSet(activeLobbyKey, code)
}

// ActiveLobbies devuelve los códigos de los lobbies con estado guardado
func (s *StateService) ActiveLobbies() ([]string, error) {
	codes, err := s.redisClient.GetSetMembers(activeLobbyKey)
	if err != nil {
		return nil, fmt.Errorf("error obteniendo lobbies activos: %v", err)
	}
	return codes, nil
}
