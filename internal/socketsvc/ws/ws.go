package ws

import (
	"sync"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/quizroom/quiz-services/internal/comm"
)

// Ws tracks websocket connections and which of them asked for
// leaderboard updates. Only sockets that sent a watch message receive
// broadcasts.
type Ws struct {
	connMap  sync.Map // socketId -> *websocket.Conn
	watchMap sync.Map // socketId -> struct{} (watching sockets)
}

func NewWs() *Ws {
	return &Ws{}
}

// SocketMessage handles a message from a web client.
func (s *Ws) SocketMessage(socketId string, message *comm.WSMessage) {
	switch message.Type {
	case "watch":
		s.watchMap.Store(socketId, struct{}{})
		log.Infof("socket %s is watching leaderboard updates", socketId)
	default:
		log.Warnf("unknown event received: %s", message.Type)
	}
}

func (s *Ws) StoreConnection(socketId string, conn *websocket.Conn) {
	s.connMap.Store(socketId, conn)
}

func (s *Ws) GetConnection(socketId string) (*websocket.Conn, bool) {
	conn, ok := s.connMap.Load(socketId)
	if !ok {
		return nil, false
	}
	return conn.(*websocket.Conn), true
}

// WatchingSockets returns every socket that subscribed via a watch
// message.
func (s *Ws) WatchingSockets() []string {
	var sockets []string

	s.watchMap.Range(func(key, value interface{}) bool {
		sockets = append(sockets, key.(string))
		return true // continue iterating
	})

	return sockets
}

// HandleDisconnect drops all state for a closed socket.
func (s *Ws) HandleDisconnect(socketId string) {
	s.connMap.Delete(socketId)
	s.watchMap.Delete(socketId)
}
