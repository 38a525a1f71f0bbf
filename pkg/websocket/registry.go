package websocket

import "sync"

// Conn es lo mínimo que el registro necesita de una conexión
// WebSocket. *websocket.Conn de fasthttp/websocket lo satisface.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// client una conexión registrada. El protocolo admite un solo
// escritor a la vez sobre la misma conexión, así que toda escritura
// (broadcasts y envíos directos) pasa por el mutex del client.
type client struct {
	writeMu sync.Mutex
	conn    Conn
}

func (c *client) write(messageType int, payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(messageType, payload)
}

// Registry mapea identidad de jugador → conexión viva de un lobby.
// Vive solo en memoria: las conexiones no se persisten y el cliente
// debe reconectarse después de una expulsión del proceso.
type Registry struct {
	mutex sync.RWMutex
	conns map[string]*client
}

// NewRegistry crea un registro de conexiones vacío
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]*client),
	}
}

// Attach registra la conexión de un jugador. Si ya había una conexión
// para esa identidad, gana la última: la anterior se cierra. Volver a
// registrar la misma conexión no la reenvuelve, así las escrituras en
// curso siguen serializadas por el mismo mutex.
func (r *Registry) Attach(playerID string, conn Conn) {
	r.mutex.Lock()
	old, existed := r.conns[playerID]
	if existed && old.conn == conn {
		r.mutex.Unlock()
		return
	}
	r.conns[playerID] = &client{conn: conn}
	r.mutex.Unlock()

	if existed {
		old.conn.Close()
	}
}

// Detach elimina la conexión de un jugador si es la registrada.
// Un Detach de una conexión ya reemplazada no toca a la nueva.
func (r *Registry) Detach(playerID string, conn Conn) {
	r.mutex.Lock()
	if current, ok := r.conns[playerID]; ok && (conn == nil || current.conn == conn) {
		delete(r.conns, playerID)
	}
	r.mutex.Unlock()
}

// Get obtiene la conexión de un jugador
func (r *Registry) Get(playerID string) (Conn, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	c, ok := r.conns[playerID]
	if !ok {
		return nil, false
	}
	return c.conn, true
}

// clients devuelve una copia del mapa identidad → client para
// iterar sin retener el lock del registro
func (r *Registry) clients() map[string]*client {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	snapshot := make(map[string]*client, len(r.conns))
	for id, c := range r.conns {
		snapshot[id] = c
	}
	return snapshot
}

// Count cantidad de conexiones vivas
func (r *Registry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.conns)
}
