package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage denotes the lifecycle milestone an Event represents.
type Stage string

// Supported progress stages.
const (
	StageRunStart    Stage = "RUN_START"
	StageTaskStart   Stage = "TASK_START"
	StageTaskDone    Stage = "TASK_DONE"
	StageTaskSkipped Stage = "TASK_SKIPPED"
	StageTaskError   Stage = "TASK_ERROR"
	StageRunDone     Stage = "RUN_DONE"
)

// Event captures one milestone of a sync run.
type Event struct {
	// RunID identifies the run in 16-byte UUID form.
	RunID [16]byte
	// TS is the UTC timestamp recorded by the emitter.
	TS    time.Time
	Stage Stage
	// Kind and Query identify the task for TASK_* stages.
	Kind  string
	Query string
	// Docs is the number of canonical documents extracted for the task.
	Docs     int64
	Upserted int64
	Modified int64
	Matched  int64
	// Dur is the task or run wall time.
	Dur time.Duration
	// Note carries short context such as an error message.
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == [16]byte{} {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRunStart, StageRunDone:
	case StageTaskStart, StageTaskDone, StageTaskSkipped, StageTaskError:
		if e.Query == "" {
			return fmt.Errorf("%s requires query", e.Stage)
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// RunUUID converts the binary run ID back to uuid.UUID.
func (e Event) RunUUID() uuid.UUID {
	return uuid.UUID(e.RunID)
}

// UUIDToBytes encodes a uuid.UUID into the Event form.
func UUIDToBytes(id uuid.UUID) [16]byte {
	var dest [16]byte
	copy(dest[:], id[:])
	return dest
}
