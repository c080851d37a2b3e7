// pkg/core/replay.go
package core

import "time"

// CommandEntry is one raw agent command recorded in the replay log.
type CommandEntry struct {
	Command string `json:"command"`
	AgentID int    `json:"agentID"`
}

// Replay is a parsed replay log. AllCommands is indexed by turn; a nil
// entry means the turn is missing from the log.
type Replay struct {
	Seed        int64            `json:"seed"`
	MapType     string           `json:"mapType"`
	Width       int              `json:"width"`
	Height      int              `json:"height"`
	AllCommands [][]CommandEntry `json:"allCommands"`
}

// Commands returns the commands recorded for turn and whether the turn
// exists in the log.
func (r *Replay) Commands(turn int) ([]CommandEntry, bool) {
	if turn < 0 || turn >= len(r.AllCommands) {
		return nil, false
	}
	cmds := r.AllCommands[turn]
	if cmds == nil {
		return nil, false
	}
	return cmds, true
}

// ReplayMeta describes one replay session for persistence and export.
type ReplayMeta struct {
	ID        uint
	Name      string
	Seed      int64
	MapType   string
	Width     int
	Height    int
	MaxTurns  int
	StartedAt time.Time
	Tag       string
}

// UploadMetadata contains the replay metadata needed for uploading an
// exported file to the viewer.
type UploadMetadata struct {
	ReplayName string
	MapType    string
	Width      int
	Height     int
	Turns      int
	Tag        string
}

// NewReplayMeta describes r under name. MaxTurns is the last recorded turn;
// the engine may end the match earlier.
func NewReplayMeta(name string, r *Replay, startedAt time.Time) *ReplayMeta {
	return &ReplayMeta{
		Name:      name,
		Seed:      r.Seed,
		MapType:   r.MapType,
		Width:     r.Width,
		Height:    r.Height,
		MaxTurns:  max(len(r.AllCommands)-1, 0),
		StartedAt: startedAt,
	}
}
