package fact

import (
	"fmt"
	"time"

	"factored/internal/ingesterr"

	"github.com/google/uuid"
)

// Clock supplies the server-assigned ingest timestamp. Tests inject a
// fixed clock; production uses RealClock.
type Clock func() time.Time

// RealClock returns the wall-clock time truncated to millisecond
// resolution — the server-assigned ingest timestamp, and the basis for
// $$NOW's millisecond-resolution evaluation elsewhere in this service.
func RealClock() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// Normalize builds the canonical Fact document for an inbound message.
// It assigns a fresh, time-sortable id (UUIDv7 — time-sortable high bits
// are acceptable), sets T from the message, and stamps C from now.
//
// The payload's field names are assumed already canonical — the caller
// (internal/orchestrator) is responsible for rewriting field names via
// internal/fieldmap before calling Normalize.
func Normalize(msg InboundMessage, now Clock) (*Fact, error) {
	if msg.D == nil {
		return nil, fmt.Errorf("%w: payload d is required", ingesterr.ErrBadRequest)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate fact id: %w", err)
	}

	if now == nil {
		now = RealClock
	}

	return &Fact{
		ID: id,
		T:  msg.T,
		C:  now(),
		D:  msg.D,
	}, nil
}
