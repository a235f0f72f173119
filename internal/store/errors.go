package store

import "errors"

// ErrNoSnapshot is returned when a project has never been snapshotted.
var ErrNoSnapshot = errors.New("no snapshot for project")
