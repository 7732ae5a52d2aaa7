package main

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// questionSource is the narrow view of the question bank a room session
// needs: category names for the host's init payload. Question payloads
// themselves travel through start_question messages.
type questionSource interface {
	CategoryNames() []string
}

type player struct {
	id        string
	name      string
	score     int
	client    *client
	connected bool
}

// Room is one live trivia session: a single host display plus any number of
// phone players. It owns all game truth and is the unit of concurrency
// isolation; every mutation, including timer and tide ticks, runs under mu.
type Room struct {
	id       string
	code     string
	hostName string
	cfg      *Config
	source   questionSource

	mu        sync.Mutex
	host      *client
	players   map[string]*player
	joinOrder []string

	currentCategory string
	currentQuestion *Question
	questionActive  bool
	submissions     map[string]submission
	submissionOrder []string
	timerSeconds    int
	timerStop       chan struct{}

	race *boatRace
}

func newRoom(cfg *Config, id, code, hostName string, source questionSource) *Room {
	return &Room{
		id:           id,
		code:         code,
		hostName:     hostName,
		cfg:          cfg,
		source:       source,
		players:      make(map[string]*player),
		submissions:  make(map[string]submission),
		timerSeconds: cfg.timerSeconds,
		race:         newBoatRace(),
	}
}

// Connection registry. Delivery is best-effort: trySend results are
// discarded, and absent or saturated connections are skipped. Disconnect
// bookkeeping happens explicitly in PlayerClosed/HostClosed, never as a side
// effect of a failed send.

func (r *Room) sendToHostLocked(msg any) {
	if r.host != nil {
		_ = r.host.trySend(msg)
	}
}

func (r *Room) sendToPlayerLocked(playerID string, msg any) {
	if p, ok := r.players[playerID]; ok && p.client != nil {
		_ = p.client.trySend(msg)
	}
}

func (r *Room) sendToPlayersLocked(msg any) {
	for _, p := range r.players {
		if p.client != nil && p.connected {
			_ = p.client.trySend(msg)
		}
	}
}

func (r *Room) sendToEveryoneLocked(msg any) {
	r.sendToHostLocked(msg)
	r.sendToPlayersLocked(msg)
}

func (r *Room) leaderboardLocked() []leaderboardRow {
	rows := make([]leaderboardRow, 0, len(r.joinOrder))
	for _, playerID := range r.joinOrder {
		p, ok := r.players[playerID]
		if !ok {
			continue
		}
		rows = append(rows, leaderboardRow{
			ID:        p.id,
			Name:      p.name,
			Score:     p.score,
			Connected: p.connected,
		})
	}
	return projectLeaderboard(rows)
}

func (r *Room) namesLocked() map[string]string {
	names := make(map[string]string, len(r.players))
	for playerID, p := range r.players {
		names[playerID] = p.name
	}
	return names
}

func (r *Room) connectedCountLocked() int {
	count := 0
	for _, p := range r.players {
		if p.connected {
			count++
		}
	}
	return count
}

func (r *Room) miniGameUpdateLocked() miniGameUpdateMessage {
	state := r.race.snapshot(r.namesLocked())
	return miniGameUpdateMessage{
		Type:      "mini_game_update",
		Positions: state.Positions,
		Winners:   state.Winners,
	}
}

// SetHost attaches the host connection, replacing any previous one, and
// sends the host's init payload.
func (r *Room) SetHost(c *client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.host != nil && r.host != c {
		r.host.shutdown()
	}
	r.host = c

	_ = c.trySend(hostInitMessage{
		Type:           "init",
		RoomID:         r.id,
		RoomCode:       r.code,
		Players:        r.leaderboardLocked(),
		Categories:     r.source.CategoryNames(),
		TimerSeconds:   r.timerSeconds,
		MiniGame:       r.race.snapshot(r.namesLocked()),
		MiniGameActive: r.race.active,
	})
}

// HostClosed detaches the host connection if it is still the current one.
func (r *Room) HostClosed(c *client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.host == c {
		r.host = nil
	}
}

// PlayerJoin adds a player under the given display name, or reattaches a
// returning one. Names are the reconnection key: an existing player with the
// same name gets this connection swapped in, keeping score, race position,
// and submission history. Returns the stable player id.
func (r *Room) PlayerJoin(name string, c *client) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var joined *player
	for _, playerID := range r.joinOrder {
		if p, ok := r.players[playerID]; ok && p.name == name {
			joined = p
			break
		}
	}

	if joined != nil {
		if joined.client != nil && joined.client != c {
			joined.client.shutdown()
		}
		joined.client = c
		joined.connected = true
		logf(r.cfg, "GAMES: Player %q reconnected to room %s", name, r.code)
	} else {
		joined = &player{
			id:        uuid.NewString(),
			name:      name,
			client:    c,
			connected: true,
		}
		r.players[joined.id] = joined
		r.joinOrder = append(r.joinOrder, joined.id)
		logf(r.cfg, "GAMES: Player %q joined room %s", name, r.code)
	}

	if r.race.active {
		r.race.enter(joined.id)
		if r.race.tideStop == nil {
			r.race.tideStop = make(chan struct{})
			go r.runTide(r.race.tideStop)
		}
	}

	leaderboard := r.leaderboardLocked()
	position := len(leaderboard)
	for _, row := range leaderboard {
		if row.ID == joined.id {
			position = row.Position
			break
		}
	}

	_ = c.trySend(playerInitMessage{
		Type:           "init",
		PlayerID:       joined.id,
		Name:           joined.name,
		Score:          joined.score,
		Position:       position,
		BuzzerActive:   r.questionActive,
		Leaderboard:    leaderboard,
		MiniGame:       r.race.snapshot(r.namesLocked()),
		MiniGameActive: r.race.active,
	})

	r.sendToHostLocked(playerJoinedMessage{
		Type:        "player_joined",
		PlayerID:    joined.id,
		Name:        joined.name,
		Leaderboard: leaderboard,
	})

	return joined.id
}

// PlayerClosed records a disconnect. The player record survives for
// reconnection; only the connection reference and flag change.
func (r *Room) PlayerClosed(playerID string, c *client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[playerID]
	if !ok || p.client != c {
		return
	}

	p.client = nil
	p.connected = false

	r.sendToHostLocked(playerDisconnectedMessage{
		Type:        "player_disconnected",
		PlayerID:    playerID,
		Name:        p.name,
		Leaderboard: r.leaderboardLocked(),
	})
}

// HandleHostCommand applies one host command as an atomic critical section.
func (r *Room) HandleHostCommand(cmd hostCommand) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch cmd := cmd.(type) {
	case selectCategoryCommand:
		r.currentCategory = cmd.Category
		r.sendToHostLocked(categorySelectedMessage{
			Type:     "category_selected",
			Category: cmd.Category,
		})

	case startQuestionCommand:
		r.startQuestionLocked(cmd.Question)

	case stopQuestionCommand:
		r.questionActive = false
		r.cancelTimerLocked()
		r.sendToEveryoneLocked(buzzerLockedMessage{Type: "buzzer_locked"})

	case revealAnswerCommand:
		r.revealAnswerLocked()

	case awardPointsCommand:
		if p, ok := r.players[cmd.PlayerID]; ok {
			p.score += cmd.Points
			r.sendToEveryoneLocked(leaderboardUpdateMessage{
				Type:          "leaderboard_update",
				Leaderboard:   r.leaderboardLocked(),
				AwardedPlayer: cmd.PlayerID,
				Points:        cmd.Points,
			})
		}

	case adjustScoreCommand:
		if p, ok := r.players[cmd.PlayerID]; ok {
			p.score = cmd.Score
			r.sendToEveryoneLocked(leaderboardUpdateMessage{
				Type:        "leaderboard_update",
				Leaderboard: r.leaderboardLocked(),
			})
		}

	case setTimerCommand:
		seconds := r.cfg.timerSeconds
		if cmd.Seconds != nil && *cmd.Seconds >= 0 {
			seconds = *cmd.Seconds
		}
		r.timerSeconds = seconds
		r.sendToHostLocked(timerUpdatedMessage{
			Type:    "timer_updated",
			Seconds: seconds,
		})

	case nextQuestionCommand:
		r.currentQuestion = nil
		r.questionActive = false
		r.cancelTimerLocked()
		r.submissions = make(map[string]submission)
		r.submissionOrder = nil
		r.sendToEveryoneLocked(questionClearedMessage{Type: "question_cleared"})

	case endMiniGameCommand:
		if r.race.active {
			r.stopMiniGameLocked()
		}

	case kickPlayerCommand:
		r.kickPlayerLocked(cmd.PlayerID)
	}
}

func (r *Room) startQuestionLocked(question *Question) {
	if question == nil {
		return
	}

	// The warm-up ends for good once real questions begin.
	if r.race.active {
		r.stopMiniGameLocked()
	}

	// A fresh round always cancels a leftover countdown, even when the new
	// question will not start one of its own.
	r.cancelTimerLocked()

	r.currentQuestion = question
	r.questionActive = true
	r.submissions = make(map[string]submission)
	r.submissionOrder = nil

	r.sendToHostLocked(questionStartedMessage{
		Type:     "question_started",
		Question: question,
		Timer:    r.timerSeconds,
	})

	// Players only learn that a round started; the question body stays on
	// the host display and the correct answer never crosses this channel.
	r.sendToPlayersLocked(questionStartedMessage{
		Type:  "question_started",
		Timer: r.timerSeconds,
	})

	// Music questions have no countdown; the host controls playback.
	if !question.isMusic() {
		r.timerStop = make(chan struct{})
		go r.runTimer(r.timerStop, r.timerSeconds)
	}

	logf(r.cfg, "GAMES: Question started in room %s (%d points)", r.code, question.basePoints())
}

func (r *Room) revealAnswerLocked() {
	if r.currentQuestion == nil {
		return
	}

	connected := make(map[string]bool, len(r.players))
	for playerID, p := range r.players {
		connected[playerID] = p.connected
	}

	results := scoreQuestion(r.currentQuestion, r.submissions, r.submissionOrder, r.namesLocked(), connected)

	for _, result := range results {
		if p, ok := r.players[result.PlayerID]; ok {
			p.score += result.Points
		}
	}

	r.questionActive = false
	r.cancelTimerLocked()

	var correctLetter *string
	if letter := r.currentQuestion.correctLetter(); letter != "" {
		correctLetter = &letter
	}

	r.sendToEveryoneLocked(answerRevealedMessage{
		Type:           "answer_revealed",
		CorrectAnswer:  r.currentQuestion.CorrectAnswer,
		CorrectLetter:  correctLetter,
		ScoringResults: results,
		Leaderboard:    r.leaderboardLocked(),
	})

	logf(r.cfg, "GAMES: Answer revealed in room %s (%d submissions)", r.code, len(r.submissionOrder))
}

func (r *Room) kickPlayerLocked(playerID string) {
	p, ok := r.players[playerID]
	if !ok {
		return
	}

	if p.client != nil {
		_ = p.client.trySend(kickedMessage{Type: "kicked"})
		p.client.shutdown()
	}

	delete(r.players, playerID)
	for i, id := range r.joinOrder {
		if id == playerID {
			r.joinOrder = append(r.joinOrder[:i], r.joinOrder[i+1:]...)
			break
		}
	}
	delete(r.race.positions, playerID)

	r.sendToEveryoneLocked(playerLeftMessage{
		Type:        "player_left",
		PlayerID:    playerID,
		Leaderboard: r.leaderboardLocked(),
	})

	logf(r.cfg, "GAMES: Player %q kicked from room %s", p.name, r.code)
}

// HandlePlayerCommand applies one player command as an atomic critical
// section. Commands from kicked players are dropped even if their old
// connection is still delivering.
func (r *Room) HandlePlayerCommand(playerID string, cmd playerCommand) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.players[playerID]; !ok {
		return
	}

	switch cmd := cmd.(type) {
	case buzzCommand:
		// Mini-game handling wins while the race is on; afterwards buzzes
		// have no question-phase meaning and are dropped.
		if r.race.active && !r.questionActive {
			r.handleRaceBuzzLocked(playerID)
		}

	case submitAnswerCommand:
		r.submitAnswerLocked(playerID, cmd.Answer)
	}
}

func (r *Room) submitAnswerLocked(playerID, answer string) {
	if !r.questionActive {
		return
	}
	if _, already := r.submissions[playerID]; already {
		// First submission wins; retries and double-taps are dropped.
		return
	}

	position := len(r.submissionOrder) + 1
	r.submissions[playerID] = submission{
		Answer:    answer,
		Position:  position,
		Timestamp: time.Now(),
	}
	r.submissionOrder = append(r.submissionOrder, playerID)

	r.sendToPlayerLocked(playerID, answerConfirmedMessage{
		Type:     "answer_confirmed",
		Position: position,
		Answer:   answer,
	})

	// The host sees a running count only, never the answers.
	r.sendToHostLocked(answerCountUpdateMessage{
		Type:         "answer_count_update",
		Count:        len(r.submissions),
		TotalPlayers: r.connectedCountLocked(),
	})
}

func (r *Room) handleRaceBuzzLocked(playerID string) {
	if r.race.hasFinished(playerID) {
		return
	}

	finishedNow, finishPosition := r.race.buzz(playerID)
	if finishedNow && finishPosition <= raceWinnerCount {
		if p, ok := r.players[playerID]; ok {
			p.score += raceWinnerPoints
			r.sendToPlayerLocked(playerID, miniGameBonusMessage{
				Type:           "mini_game_bonus",
				Points:         raceWinnerPoints,
				FinishPosition: finishPosition,
			})
			r.sendToEveryoneLocked(leaderboardUpdateMessage{
				Type:          "leaderboard_update",
				Leaderboard:   r.leaderboardLocked(),
				AwardedPlayer: playerID,
				Points:        raceWinnerPoints,
			})
		}
	}

	r.sendToEveryoneLocked(r.miniGameUpdateLocked())
}

// stopMiniGameLocked permanently deactivates the race, cancels the tide
// task, and announces the winners.
func (r *Room) stopMiniGameLocked() {
	r.race.stop()
	r.sendToEveryoneLocked(miniGameEndedMessage{
		Type:    "mini_game_ended",
		Winners: r.race.winners(),
	})
	logf(r.cfg, "GAMES: Mini-game ended in room %s", r.code)
}

func (r *Room) cancelTimerLocked() {
	if r.timerStop != nil {
		close(r.timerStop)
		r.timerStop = nil
	}
}

// runTimer counts down once per second from seconds to zero inclusive,
// broadcasting each tick. It checks room state before every emission and
// backs out as soon as the round leaves the active state or the stop channel
// closes. Natural expiry locks the round and reports the submission count;
// it never auto-reveals.
func (r *Room) runTimer(stop chan struct{}, seconds int) {
	for remaining := seconds; remaining >= 0; remaining-- {
		r.mu.Lock()
		if stopped(stop) || !r.questionActive {
			r.mu.Unlock()
			return
		}
		r.sendToEveryoneLocked(timerTickMessage{
			Type:      "timer_tick",
			Remaining: remaining,
		})
		r.mu.Unlock()

		if remaining == 0 {
			break
		}

		select {
		case <-stop:
			return
		case <-time.After(time.Second):
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if stopped(stop) || !r.questionActive {
		return
	}

	r.questionActive = false
	r.sendToEveryoneLocked(timerExpiredMessage{
		Type:             "timer_expired",
		SubmissionsCount: len(r.submissions),
	})
}

// runTide applies the periodic pull-back to all racing boats. One instance
// runs per room, started on the first player join and cancelled when the
// race deactivates. Snapshots broadcast only when something moved.
func (r *Room) runTide(stop chan struct{}) {
	ticker := time.NewTicker(r.cfg.tidePeriod)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.mu.Lock()
			if !r.race.active {
				r.mu.Unlock()
				return
			}
			if r.race.tideTick() {
				r.sendToEveryoneLocked(r.miniGameUpdateLocked())
			}
			r.mu.Unlock()
		}
	}
}

func stopped(stop chan struct{}) bool {
	select {
	case <-stop:
		return true
	default:
		return false
	}
}

// PlayerCount reports the number of players ever joined (connected or not).
func (r *Room) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.players)
}
