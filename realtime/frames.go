package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/wmoralesdev/ues-live-go/domain"
)

// События realtime-канала платформы
const (
	eventJoin          = "join"
	eventJoinOK        = "join_ok"
	eventLeave         = "leave"
	eventHeartbeat     = "heartbeat"
	eventHeartbeatOK   = "heartbeat_ok"
	eventInsert        = "insert"         // новая строка по фильтру канала
	eventPresenceState = "presence_state" // полный снапшот присутствия
	eventPresenceDiff  = "presence_diff"  // joins/leaves с прошлого снапшота
	eventTrack         = "track"          // объявить своё присутствие
	eventError         = "error"
)

// служебный topic для heartbeat
const topicSystem = "system"

type frame struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Ref     string          `json:"ref,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func newFrame(topic, event, ref string, payload any) (frame, error) {
	fr := frame{Topic: topic, Event: event, Ref: ref}
	if payload == nil {
		return fr, nil
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return frame{}, fmt.Errorf("encode %s payload: %w", event, err)
	}
	fr.Payload = b

	return fr, nil
}

// MessagesTopic — канал вставок сообщений события
func MessagesTopic(eventID string) string {
	return "events:" + eventID + ":messages"
}

// PresenceTopic — канал присутствия события
func PresenceTopic(eventID string) string {
	return "events:" + eventID + ":presence"
}

type PresenceState map[string]domain.PresenceEntry

type PresenceDiff struct {
	Joins  PresenceState `json:"joins"`
	Leaves PresenceState `json:"leaves"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func decodeInsert(fr frame) (Event, error) {
	var m domain.ChatMessage
	if err := json.Unmarshal(fr.Payload, &m); err != nil {
		return Event{}, err
	}

	return Event{Type: EventMessage, Topic: fr.Topic, Message: &m}, nil
}
