package main

const (
	raceFinishLine   = 100.0
	raceBuzzAdvance  = 10.0
	raceTideSetback  = 1.5
	raceWinnerCount  = 2
	raceWinnerPoints = 50
)

// boatRace is the pre-game warm-up: players mash the buzzer to push their
// boat toward the finish line while the tide drags everyone back. It stays
// active from room creation until the first question starts or the host ends
// it, and never reactivates.
type boatRace struct {
	active    bool
	positions map[string]float64
	finished  []string
	tideStop  chan struct{}
}

func newBoatRace() *boatRace {
	return &boatRace{
		active:    true,
		positions: make(map[string]float64),
	}
}

// enter seeds a newly joined player at the starting line.
func (b *boatRace) enter(playerID string) {
	if !b.active {
		return
	}
	if _, ok := b.positions[playerID]; !ok {
		b.positions[playerID] = 0
	}
}

func (b *boatRace) hasFinished(playerID string) bool {
	for _, id := range b.finished {
		if id == playerID {
			return true
		}
	}
	return false
}

// buzz advances a player's boat. It reports whether the player crossed the
// finish line on this buzz and, if so, their 1-based finish position. Buzzes
// from already-finished players are consumed without effect.
func (b *boatRace) buzz(playerID string) (finishedNow bool, finishPosition int) {
	if !b.active || b.hasFinished(playerID) {
		return false, 0
	}

	pos := b.positions[playerID] + raceBuzzAdvance
	if pos > raceFinishLine {
		pos = raceFinishLine
	}
	b.positions[playerID] = pos

	if pos >= raceFinishLine {
		b.finished = append(b.finished, playerID)
		return true, len(b.finished)
	}

	return false, 0
}

// tideTick drags every non-finished boat back toward the start, clamped at
// zero. Reports whether any position actually moved, so idle rooms stay
// quiet.
func (b *boatRace) tideTick() bool {
	if !b.active {
		return false
	}

	changed := false
	for playerID, pos := range b.positions {
		if b.hasFinished(playerID) {
			continue
		}
		next := pos - raceTideSetback
		if next < 0 {
			next = 0
		}
		if next != pos {
			b.positions[playerID] = next
			changed = true
		}
	}

	return changed
}

// winners returns the first finishers, at most raceWinnerCount of them.
func (b *boatRace) winners() []string {
	n := len(b.finished)
	if n > raceWinnerCount {
		n = raceWinnerCount
	}

	w := make([]string, n)
	copy(w, b.finished[:n])

	return w
}

// stop deactivates the race for the rest of the room's lifetime and cancels
// the tide task. Safe to call more than once.
func (b *boatRace) stop() {
	b.active = false
	if b.tideStop != nil {
		close(b.tideStop)
		b.tideStop = nil
	}
}

type miniGamePosition struct {
	Name     string  `json:"name"`
	Position float64 `json:"position"`
	Finished bool    `json:"finished"`
}

type miniGameState struct {
	Positions map[string]miniGamePosition `json:"positions"`
	Winners   []string                    `json:"winners"`
}

// snapshot builds the broadcastable state, skipping players no longer in the
// room (kicked boats vanish rather than drifting unmanned).
func (b *boatRace) snapshot(names map[string]string) miniGameState {
	positions := make(map[string]miniGamePosition, len(b.positions))
	for playerID, pos := range b.positions {
		name, ok := names[playerID]
		if !ok {
			continue
		}
		positions[playerID] = miniGamePosition{
			Name:     name,
			Position: pos,
			Finished: b.hasFinished(playerID),
		}
	}

	return miniGameState{
		Positions: positions,
		Winners:   b.winners(),
	}
}
