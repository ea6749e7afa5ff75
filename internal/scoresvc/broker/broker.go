package broker

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/quizroom/quiz-services/internal/comm"
)

// TopicLeaderboard carries leaderboard refresh notifications to the
// socket service.
const TopicLeaderboard = "score.leaderboard"

type Broker struct {
	Conn *nats.Conn
}

func NewBroker(nc *nats.Conn) *Broker {
	return &Broker{Conn: nc}
}

// PublishLeaderboardUpdated tells listeners that the ranking caches
// were refreshed. Best effort: a failed publish is logged, not
// surfaced, since the caches themselves are already committed.
func (b *Broker) PublishLeaderboardUpdated(kinds []string, at time.Time) {
	data, err := json.Marshal(comm.LeaderboardUpdate{Kinds: kinds, UpdatedAt: at})
	if err != nil {
		log.Errorf("error marshaling leaderboard update: %v", err)
		return
	}

	msg := &comm.WSMessage{
		Type: "leaderboard-updated",
		Data: data,
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("error marshaling WSMessage: %v", err)
		return
	}

	if err := b.Conn.Publish(TopicLeaderboard, payload); err != nil {
		log.Errorf("error publishing to topic %s: %v", TopicLeaderboard, err)
	}
}
