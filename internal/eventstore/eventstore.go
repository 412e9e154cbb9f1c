package eventstore

import (
	"context"
	"errors"
	"time"

	"github.com/Athul-Krishna/ProjectTransac/internal/core"
)

// ErrVersionConflict is returned when an append races a concurrent writer:
// the stream has moved past the expected version and the command must be
// retried against the reloaded history.
var ErrVersionConflict = errors.New("event stream version conflict")

// Event is an immutable fact recorded on an aggregate's stream. Sequence
// numbers start at 0 and order events within one aggregate id only;
// cross-aggregate ordering is not guaranteed.
type Event struct {
	AggregateID string
	Sequence    int64
	Type        string
	Payload     core.EventPayload
	Timestamp   time.Time
}

// Store is the append-only event log. Append succeeds only when
// expectedVersion equals the current stream length (the replayed event
// count), which gives optimistic concurrency per aggregate id.
type Store interface {
	Load(ctx context.Context, aggregateID string) ([]Event, error)
	Append(ctx context.Context, aggregateID string, expectedVersion int64, payloads []core.EventPayload) ([]Event, error)
}
