package storage

import "mercadolp/internal/model"

// EventSink is a durable destination for engine events.
type EventSink interface {
	PutEvents(events []model.Event) error
}
