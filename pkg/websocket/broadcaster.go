package websocket

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/fasthttp/websocket"
)

// Message sobre que viaja por el canal WebSocket
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Broadcaster envía eventos a todas las conexiones de un registro.
// El envío es best-effort: una conexión que falla se registra en el
// log, se cierra y se saca del registro, sin afectar al resto ni a
// la operación que disparó el broadcast. Las escrituras sobre cada
// conexión se serializan con su mutex: nunca hay dos escritores
// concurrentes sobre la misma conexión.
type Broadcaster struct {
	registry *Registry
}

// NewBroadcaster crea un broadcaster sobre un registro de conexiones
func NewBroadcaster(registry *Registry) *Broadcaster {
	return &Broadcaster{registry: registry}
}

// Broadcast serializa el evento una sola vez y lo escribe en cada
// conexión viva del registro
func (b *Broadcaster) Broadcast(eventType string, data interface{}) {
	payload, err := marshalMessage(eventType, data)
	if err != nil {
		log.Printf("Error serializando mensaje %s: %v", eventType, err)
		return
	}

	for playerID, c := range b.registry.clients() {
		if err := c.write(websocket.TextMessage, payload); err != nil {
			log.Printf("Error enviando mensaje WebSocket a %s: %v", playerID, err)
			b.registry.Detach(playerID, c.conn)
			c.conn.Close()
		}
	}
}

// Send escribe un evento a la conexión registrada de un jugador (por
// ejemplo el snapshot inicial al conectarse), serializado con los
// broadcasts sobre esa misma conexión
func (r *Registry) Send(playerID, eventType string, data interface{}) error {
	payload, err := marshalMessage(eventType, data)
	if err != nil {
		return err
	}

	r.mutex.RLock()
	c, ok := r.conns[playerID]
	r.mutex.RUnlock()
	if !ok {
		return fmt.Errorf("el jugador %s no tiene conexión registrada", playerID)
	}

	return c.write(websocket.TextMessage, payload)
}

func marshalMessage(eventType string, data interface{}) ([]byte, error) {
	return json.Marshal(Message{Type: eventType, Data: data})
}
