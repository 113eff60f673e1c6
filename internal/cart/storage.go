package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

const snapshotVersion = 1

// ErrInvalidSnapshot marks stored cart data that cannot be trusted.
var ErrInvalidSnapshot = errors.New("invalid cart snapshot")

// Storage persists serialized carts under a key. Load returns nil data and a
// nil error when nothing is stored for key.
type Storage interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
}

// PersistenceError reports a failed read or write of the cart snapshot.
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("cart %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

type snapshot struct {
	Version int           `json:"version"`
	State   snapshotState `json:"state"`
}

type snapshotState struct {
	Items []LineItem `json:"items"`
}

// EncodeSnapshot serializes items into the versioned envelope.
func EncodeSnapshot(items []LineItem) ([]byte, error) {
	if items == nil {
		items = []LineItem{}
	}
	return json.Marshal(snapshot{Version: snapshotVersion, State: snapshotState{Items: items}})
}

// DecodeSnapshot parses and validates a stored envelope. Duplicate variants,
// quantities below one and bad amounts are all rejected.
func DecodeSnapshot(data []byte) ([]LineItem, error) {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidSnapshot, snap.Version)
	}
	seen := make(map[string]struct{}, len(snap.State.Items))
	for _, item := range snap.State.Items {
		if err := item.validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
		}
		if _, dup := seen[item.VariantID]; dup {
			return nil, fmt.Errorf("%w: duplicate variant %s", ErrInvalidSnapshot, item.VariantID)
		}
		seen[item.VariantID] = struct{}{}
	}
	if snap.State.Items == nil {
		return []LineItem{}, nil
	}
	return snap.State.Items, nil
}
