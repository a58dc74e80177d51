// Package persist writes whole-store snapshots into durable key-value slots
// and reads them back at startup.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
)

// Slot names, one per store.
const (
	SlotAgents  = "openclaw-storage"
	SlotMetrics = "openclaw-api-metrics"
	SlotSkills  = "openclaw-skills-storage"
)

// ErrSlotNotFound is returned by a Backend when nothing was ever saved under a slot.
var ErrSlotNotFound = errors.New("slot not found")

// Backend stores encoded snapshots under fixed slot names.
type Backend interface {
	Load(ctx context.Context, slot string) ([]byte, error)
	Save(ctx context.Context, slot string, data []byte) error
	Close() error
}

// Saver accepts the latest state of a store after each mutation. Saving is
// fire-and-forget: implementations log failures and never report them back.
type Saver interface {
	Save(slot string, state any)
}

type discard struct{}

func (discard) Save(string, any) {}

// Discard is a Saver that drops every snapshot.
var Discard Saver = discard{}

// Load decodes the snapshot stored under slot. It returns the zero value and
// false when the slot is missing, unreadable or does not decode, so callers
// start from their default state.
func Load[T any](ctx context.Context, b Backend, slot string) (T, bool) {
	var zero T

	data, err := b.Load(ctx, slot)
	if err != nil {
		if !errors.Is(err, ErrSlotNotFound) {
			slog.Warn("failed to read state slot, using defaults", "slot", slot, "error", err)
		}
		return zero, false
	}

	var state T
	if err := json.Unmarshal(data, &state); err != nil {
		slog.Warn("failed to decode state slot, using defaults", "slot", slot, "error", err)
		return zero, false
	}
	return state, true
}

// Encode produces the slot encoding of a state object.
func Encode(state any) ([]byte, error) {
	return json.Marshal(state)
}
