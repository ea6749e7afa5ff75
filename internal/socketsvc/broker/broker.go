package broker

import (
	"encoding/json"

	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/quizroom/quiz-services/internal/comm"
)

type Broker struct {
	Conn            *nats.Conn
	GetConnection   func(string) (*websocket.Conn, bool)
	WatchingSockets func() []string
}

func NewBroker(conn *nats.Conn, fncGetConnection func(string) (*websocket.Conn, bool), fncWatchingSockets func() []string) *Broker {
	return &Broker{
		Conn:            conn,
		GetConnection:   fncGetConnection,
		WatchingSockets: fncWatchingSockets,
	}
}

// Subscribe consumes messages from the score service.
func (b *Broker) Subscribe(topic string) (*nats.Subscription, error) {
	sub, err := b.Conn.Subscribe(topic, b.handleMessages)
	if err != nil {
		return nil, err
	}

	return sub, nil
}

// handleMessages receives leaderboard events from the score service.
func (b *Broker) handleMessages(msgNats *nats.Msg) {
	message := &comm.WSMessage{}
	err := json.Unmarshal(msgNats.Data, &message)
	if err != nil {
		log.Errorf("Error %s", err)
		return
	}

	switch message.Type {
	case "leaderboard-updated":
		b.broadcast(message)
	default:
		log.Error("Unknown message")
	}
}

// broadcast pushes the update to every watching web client.
func (b *Broker) broadcast(m *comm.WSMessage) {
	for _, socketId := range b.WatchingSockets() {
		conn, ok := b.GetConnection(socketId)
		if !ok {
			continue
		}
		if err := conn.WriteJSON(m); err != nil {
			log.Errorf("failed to push update to socket %s: %v", socketId, err)
		}
	}
}
