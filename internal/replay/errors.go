package replay

import (
	"errors"
	"fmt"
)

var (
	// ErrInitialization is returned when the engine rejects the replay's
	// seed or map configuration. Nothing was generated.
	ErrInitialization = errors.New("oracle initialization failed")
	// ErrMalformedReplay is matched by *MalformedReplayError.
	ErrMalformedReplay = errors.New("malformed replay")
	// ErrAlreadyStarted is returned when Generate is called twice on one
	// Generator.
	ErrAlreadyStarted = errors.New("generation already started")
)

// MalformedReplayError reports a turn with no recorded command entry.
// Generation cannot continue past it.
type MalformedReplayError struct {
	Turn int
}

func (e *MalformedReplayError) Error() string {
	return fmt.Sprintf("malformed replay: no commands recorded for turn %d", e.Turn)
}

func (e *MalformedReplayError) Is(target error) bool {
	return target == ErrMalformedReplay
}
