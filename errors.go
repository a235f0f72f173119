package understory

import "errors"

var (
	// ErrNoSymbolAtCursor is returned by PrepareItem when neither the
	// provider nor the extractor can name a definition at the requested
	// position. Unlike batch failures, this one is meant for the user.
	ErrNoSymbolAtCursor = errors.New("no symbol found at cursor position")

	// ErrNoSnapshotStore is returned by snapshot operations on an Engine
	// built without WithSnapshotStore.
	ErrNoSnapshotStore = errors.New("no snapshot store configured")
)
