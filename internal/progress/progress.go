// Package progress carries research progress events from the loop to
// whatever front end is watching: the CLI bar, the websocket stream, or
// nothing at all.
package progress

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
)

// Stage identifies what the research loop is currently doing.
type Stage string

const (
	StageCardLookup Stage = "card_lookup"
	StagePlanning   Stage = "planning"
	StageRetrieving Stage = "retrieving"
	StageScoring    Stage = "scoring"
	StageCompiling  Stage = "compiling"
	StageDone       Stage = "done"
)

// Event is one progress notification.
type Event struct {
	Stage   Stage  `json:"stage"`
	Round   int    `json:"round"`
	Total   int    `json:"total_rounds"`
	Message string `json:"message,omitempty"`
}

// Func receives events. A nil Func is always safe to call through Notify.
type Func func(Event)

// Notify invokes fn if it is non-nil.
func Notify(fn Func, e Event) {
	if fn != nil {
		fn(e)
	}
}

// Bar returns a Func that renders events on a terminal progress bar, one
// step per round.
func Bar(maxRounds int) Func {
	bar := progressbar.NewOptions(maxRounds,
		progressbar.OptionSetDescription("researching"),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionShowCount(),
	)
	lastRound := 0
	return func(e Event) {
		if e.Message != "" {
			bar.Describe(fmt.Sprintf("round %d: %s", e.Round, e.Message))
		}
		if e.Round > lastRound {
			bar.Set(e.Round)
			lastRound = e.Round
		}
		if e.Stage == StageDone {
			bar.Finish()
		}
	}
}
