package domain

import "strings"

// LoopMode decides what happens to the current track when it ends.
type LoopMode int

const (
	LoopModeNone  LoopMode = iota // advance to the next upcoming track
	LoopModeTrack                 // replay the current track
	LoopModeQueue                 // re-append the finished track to the upcoming tracks
)

var loopModeNames = map[LoopMode]string{
	LoopModeNone:  "none",
	LoopModeTrack: "track",
	LoopModeQueue: "queue",
}

// loopModeAliases maps accepted user input to modes.
var loopModeAliases = map[string]LoopMode{
	"none":  LoopModeNone,
	"off":   LoopModeNone,
	"track": LoopModeTrack,
	"song":  LoopModeTrack,
	"queue": LoopModeQueue,
	"all":   LoopModeQueue,
}

func (m LoopMode) String() string {
	if name, ok := loopModeNames[m]; ok {
		return name
	}
	return loopModeNames[LoopModeNone]
}

// Next returns the mode that follows m in the none, track, queue cycle.
func (m LoopMode) Next() LoopMode {
	switch m {
	case LoopModeNone:
		return LoopModeTrack
	case LoopModeTrack:
		return LoopModeQueue
	default:
		return LoopModeNone
	}
}

// ParseLoopMode parses a mode name or alias, ignoring case and surrounding
// space. Unknown input yields LoopModeNone and false.
func ParseLoopMode(s string) (LoopMode, bool) {
	mode, ok := loopModeAliases[strings.ToLower(strings.TrimSpace(s))]
	return mode, ok
}
