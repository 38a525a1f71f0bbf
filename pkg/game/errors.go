package game

import "errors"

// Errores del coordinador. Las operaciones que son carreras esperadas
// entre actores (doble start, respuesta tardía o duplicada, doble
// cierre de ronda) NO son errores: se ignoran en silencio.
var (
	// ErrNotInitialized operación sobre un lobby que nunca se creó
	ErrNotInitialized = errors.New("el lobby no existe")
	// ErrAlreadyInitialized create llamado dos veces con el mismo código
	ErrAlreadyInitialized = errors.New("el lobby ya existe")
	// ErrUnknownPlayer connect/disconnect de una identidad que nunca se unió
	ErrUnknownPlayer = errors.New("jugador desconocido")
	// ErrPersistence fallo guardando el estado; la operación se aborta
	// antes de cualquier broadcast para no divergir de Redis
	ErrPersistence = errors.New("error de persistencia")
)
