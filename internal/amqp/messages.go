package amqp

import (
	"context"
	"encoding/json"
	"time"
)

// Entity names the kind of record a mutation touched.
type Entity string

// Operation names what happened to it.
type Operation string

const (
	EntityExpense  Entity = "expense"
	EntityBudget   Entity = "budget"
	EntityGoal     Entity = "goal"
	EntitySettings Entity = "settings"

	OpCreated     Operation = "created"
	OpUpdated     Operation = "updated"
	OpDeleted     Operation = "deleted"
	OpContributed Operation = "contributed"
)

// MutationEvent is published after the backend accepted a change.
// It carries no record body; consumers fetch what they need.
type MutationEvent struct {
	Entity    Entity    `json:"entity"`
	Operation Operation `json:"operation"`
	ID        int64     `json:"id,omitempty"`
	At        time.Time `json:"at"`
}

// NewMutationEvent creates an event stamped with the current time
func NewMutationEvent(entity Entity, op Operation, id int64) MutationEvent {
	return MutationEvent{Entity: entity, Operation: op, ID: id, At: time.Now().UTC()}
}

// RoutingKey is "<entity>.<operation>".
func (m MutationEvent) RoutingKey() string {
	return string(m.Entity) + "." + string(m.Operation)
}

// ToJSON converts the event to JSON bytes
func (m MutationEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MutationEventFromJSON parses an event body.
func MutationEventFromJSON(data []byte) (MutationEvent, error) {
	var msg MutationEvent
	err := json.Unmarshal(data, &msg)
	return msg, err
}

// Publisher sends mutation events somewhere.
type Publisher interface {
	Publish(ctx context.Context, event MutationEvent) error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, MutationEvent) error { return nil }
