package main

import (
	"testing"
	"time"
)

type bankStub struct {
	categories []string
}

func (b bankStub) CategoryNames() []string {
	return b.categories
}

// The tide stays parked in most tests so buzz arithmetic is deterministic;
// the tide test shortens the period itself.
func testConfig(tidePeriod time.Duration) *Config {
	return &Config{
		timerSeconds: 15,
		tidePeriod:   tidePeriod,
	}
}

func testRoom() *Room {
	return testRoomWithTide(time.Hour)
}

func testRoomWithTide(tidePeriod time.Duration) *Room {
	return newRoom(testConfig(tidePeriod), "11111111-2222-3333-4444-555555555555", "ROOM01", "Host", bankStub{categories: []string{"History", "Music"}})
}

func fakeClient() *client {
	return &client{send: make(chan any, 64)}
}

// waitForType drains a client's outbound channel until a message of the
// wanted type arrives, ignoring everything else.
func waitForType[T any](t *testing.T, c *client) T {
	t.Helper()

	deadline := time.After(time.Second)
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				var zero T
				t.Fatalf("channel closed while waiting for %T", zero)
				return zero
			}
			if typed, isWanted := msg.(T); isWanted {
				return typed
			}
		case <-deadline:
			var zero T
			t.Fatalf("timed out waiting for %T", zero)
			return zero
		}
	}
}

// expectNoType asserts that no message of the given type is buffered.
func expectNoType[T any](t *testing.T, c *client) {
	t.Helper()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if _, isUnwanted := msg.(T); isUnwanted {
				t.Fatalf("unexpected %T: %+v", msg, msg)
			}
		default:
			return
		}
	}
}

func intPtr(v int) *int {
	return &v
}

func TestPlayerJoinSendsInitAndNotifiesHost(t *testing.T) {
	room := testRoom()
	host := fakeClient()
	room.SetHost(host)

	init := waitForType[hostInitMessage](t, host)
	if init.RoomCode != "ROOM01" || len(init.Categories) != 2 {
		t.Errorf("unexpected host init: %+v", init)
	}
	if !init.MiniGameActive {
		t.Error("mini-game should be active from room creation")
	}

	alice := fakeClient()
	room.PlayerJoin("Alice", alice)

	playerInit := waitForType[playerInitMessage](t, alice)
	if playerInit.Name != "Alice" || playerInit.Score != 0 || playerInit.Position != 1 {
		t.Errorf("unexpected player init: %+v", playerInit)
	}

	joined := waitForType[playerJoinedMessage](t, host)
	if joined.Name != "Alice" {
		t.Errorf("expected host notified of Alice, got %+v", joined)
	}
}

func TestSubmissionPositionsFollowArrivalOrder(t *testing.T) {
	room := testRoom()
	host := fakeClient()
	room.SetHost(host)

	clients := map[string]*client{}
	ids := map[string]string{}
	for _, name := range []string{"Alice", "Bob", "Charlie"} {
		c := fakeClient()
		clients[name] = c
		ids[name] = room.PlayerJoin(name, c)
	}

	room.HandleHostCommand(startQuestionCommand{Question: &Question{
		Options:       []string{"3", "4", "5", "6"},
		CorrectAnswer: "4",
		Type:          "music", // no countdown noise
	}})

	room.HandlePlayerCommand(ids["Bob"], submitAnswerCommand{Answer: "B"})
	room.HandlePlayerCommand(ids["Alice"], submitAnswerCommand{Answer: "A"})
	room.HandlePlayerCommand(ids["Charlie"], submitAnswerCommand{Answer: "C"})

	if confirmed := waitForType[answerConfirmedMessage](t, clients["Bob"]); confirmed.Position != 1 {
		t.Errorf("Bob expected position 1, got %d", confirmed.Position)
	}
	if confirmed := waitForType[answerConfirmedMessage](t, clients["Alice"]); confirmed.Position != 2 {
		t.Errorf("Alice expected position 2, got %d", confirmed.Position)
	}
	if confirmed := waitForType[answerConfirmedMessage](t, clients["Charlie"]); confirmed.Position != 3 {
		t.Errorf("Charlie expected position 3, got %d", confirmed.Position)
	}

	// Host only ever sees counts, never answers.
	count := waitForType[answerCountUpdateMessage](t, host)
	if count.Count != 1 || count.TotalPlayers != 3 {
		t.Errorf("unexpected first count update: %+v", count)
	}
}

func TestDuplicateSubmissionKeepsFirstAnswer(t *testing.T) {
	room := testRoom()

	alice := fakeClient()
	aliceID := room.PlayerJoin("Alice", alice)

	room.HandleHostCommand(startQuestionCommand{Question: &Question{
		Options:       []string{"3", "4"},
		CorrectAnswer: "4",
		Type:          "music",
	}})

	room.HandlePlayerCommand(aliceID, submitAnswerCommand{Answer: "A"})
	room.HandlePlayerCommand(aliceID, submitAnswerCommand{Answer: "B"})

	if len(room.submissionOrder) != 1 {
		t.Fatalf("expected 1 submission, got %d", len(room.submissionOrder))
	}
	if room.submissions[aliceID].Answer != "A" {
		t.Errorf("expected first answer retained, got %q", room.submissions[aliceID].Answer)
	}
}

func TestSubmissionOutsideActiveStateIgnored(t *testing.T) {
	room := testRoom()

	alice := fakeClient()
	aliceID := room.PlayerJoin("Alice", alice)

	room.HandlePlayerCommand(aliceID, submitAnswerCommand{Answer: "A"})
	if len(room.submissions) != 0 {
		t.Fatal("submission accepted with no active question")
	}

	room.HandleHostCommand(startQuestionCommand{Question: &Question{
		Options: []string{"3", "4"}, CorrectAnswer: "4", Type: "music",
	}})
	room.HandleHostCommand(stopQuestionCommand{})

	room.HandlePlayerCommand(aliceID, submitAnswerCommand{Answer: "A"})
	if len(room.submissions) != 0 {
		t.Fatal("submission accepted after stop_question")
	}

	if msg := waitForType[buzzerLockedMessage](t, alice); msg.Type != "buzzer_locked" {
		t.Errorf("unexpected lock broadcast: %+v", msg)
	}
}

func TestRevealAppliesScoresAndBroadcasts(t *testing.T) {
	room := testRoom()
	host := fakeClient()
	room.SetHost(host)

	alice := fakeClient()
	bob := fakeClient()
	charlie := fakeClient()
	aliceID := room.PlayerJoin("Alice", alice)
	bobID := room.PlayerJoin("Bob", bob)
	charlieID := room.PlayerJoin("Charlie", charlie)

	room.HandleHostCommand(startQuestionCommand{Question: &Question{
		Options:       []string{"3", "4", "5", "6"},
		CorrectAnswer: "4",
		Points:        100,
		Type:          "music",
	}})

	room.HandlePlayerCommand(aliceID, submitAnswerCommand{Answer: "B"}) // correct, first
	room.HandlePlayerCommand(bobID, submitAnswerCommand{Answer: "A"})   // wrong, second

	room.HandleHostCommand(revealAnswerCommand{})

	revealed := waitForType[answerRevealedMessage](t, host)
	if revealed.CorrectLetter == nil || *revealed.CorrectLetter != "B" {
		t.Errorf("expected correct letter B, got %+v", revealed.CorrectLetter)
	}
	if len(revealed.ScoringResults) != 3 {
		t.Fatalf("expected 3 scoring results, got %d", len(revealed.ScoringResults))
	}

	if got := room.players[aliceID].score; got != 100 {
		t.Errorf("Alice: expected 100, got %d", got)
	}
	if got := room.players[bobID].score; got != -37 {
		t.Errorf("Bob: expected -37, got %d", got)
	}
	if got := room.players[charlieID].score; got != -25 {
		t.Errorf("Charlie: expected -25, got %d", got)
	}

	if room.questionActive {
		t.Error("question still active after reveal")
	}
}

func TestRevealWithoutQuestionIsNoop(t *testing.T) {
	room := testRoom()
	host := fakeClient()
	room.SetHost(host)

	room.HandleHostCommand(revealAnswerCommand{})

	expectNoType[answerRevealedMessage](t, host)
}

func TestNextQuestionClearsState(t *testing.T) {
	room := testRoom()

	alice := fakeClient()
	aliceID := room.PlayerJoin("Alice", alice)

	room.HandleHostCommand(startQuestionCommand{Question: &Question{
		Options: []string{"3", "4"}, CorrectAnswer: "4", Type: "music",
	}})
	room.HandlePlayerCommand(aliceID, submitAnswerCommand{Answer: "A"})

	room.HandleHostCommand(nextQuestionCommand{})

	if room.currentQuestion != nil || room.questionActive {
		t.Error("question state not cleared")
	}
	if len(room.submissions) != 0 || len(room.submissionOrder) != 0 {
		t.Error("submission ledger not cleared")
	}

	if msg := waitForType[questionClearedMessage](t, alice); msg.Type != "question_cleared" {
		t.Errorf("unexpected clear broadcast: %+v", msg)
	}
}

func TestTimerNaturalExpiry(t *testing.T) {
	room := testRoom()
	host := fakeClient()
	room.SetHost(host)

	room.HandleHostCommand(setTimerCommand{Seconds: intPtr(0)})
	if updated := waitForType[timerUpdatedMessage](t, host); updated.Seconds != 0 {
		t.Fatalf("expected timer 0, got %d", updated.Seconds)
	}

	room.HandleHostCommand(startQuestionCommand{Question: &Question{
		Options: []string{"3", "4"}, CorrectAnswer: "4",
	}})

	tick := waitForType[timerTickMessage](t, host)
	if tick.Remaining != 0 {
		t.Errorf("expected final tick 0, got %d", tick.Remaining)
	}

	expired := waitForType[timerExpiredMessage](t, host)
	if expired.SubmissionsCount != 0 {
		t.Errorf("expected expiry with 0 submissions, got %d", expired.SubmissionsCount)
	}

	room.mu.Lock()
	active := room.questionActive
	room.mu.Unlock()
	if active {
		t.Error("question still active after natural expiry")
	}
}

func TestMusicQuestionSkipsTimer(t *testing.T) {
	room := testRoom()
	host := fakeClient()
	room.SetHost(host)

	room.HandleHostCommand(setTimerCommand{Seconds: intPtr(0)})
	room.HandleHostCommand(startQuestionCommand{Question: &Question{
		Options: []string{"3", "4"}, CorrectAnswer: "4", Type: "music",
	}})

	time.Sleep(50 * time.Millisecond)

	expectNoType[timerTickMessage](t, host)

	room.mu.Lock()
	stop := room.timerStop
	room.mu.Unlock()
	if stop != nil {
		t.Error("timer task started for a music question")
	}
}

func TestSetTimerDefaultsWhenMissing(t *testing.T) {
	room := testRoom()
	host := fakeClient()
	room.SetHost(host)

	room.HandleHostCommand(setTimerCommand{Seconds: intPtr(30)})
	waitForType[timerUpdatedMessage](t, host)

	room.HandleHostCommand(setTimerCommand{})
	updated := waitForType[timerUpdatedMessage](t, host)
	if updated.Seconds != 15 {
		t.Errorf("expected fallback to configured default 15, got %d", updated.Seconds)
	}
}

func TestReconnectKeepsScoreAndIdentity(t *testing.T) {
	room := testRoom()

	first := fakeClient()
	aliceID := room.PlayerJoin("Alice", first)

	room.HandleHostCommand(awardPointsCommand{PlayerID: aliceID, Points: 40})
	room.PlayerClosed(aliceID, first)

	if room.players[aliceID].connected {
		t.Fatal("player still marked connected after close")
	}

	second := fakeClient()
	returnedID := room.PlayerJoin("Alice", second)

	if returnedID != aliceID {
		t.Errorf("reconnect created a new identity: %q vs %q", returnedID, aliceID)
	}

	init := waitForType[playerInitMessage](t, second)
	if init.Score != 40 {
		t.Errorf("expected score 40 preserved across reconnect, got %d", init.Score)
	}
}

func TestSameNameJoinReplacesConnection(t *testing.T) {
	room := testRoom()

	first := fakeClient()
	aliceID := room.PlayerJoin("Alice", first)

	second := fakeClient()
	if id := room.PlayerJoin("Alice", second); id != aliceID {
		t.Errorf("duplicate-name join duplicated the player: %q vs %q", id, aliceID)
	}

	// The replaced connection's channel is closed by the swap.
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-first.send:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("old connection was not shut down")
		}
	}
}

func TestKickRemovesPlayerEverywhere(t *testing.T) {
	room := testRoom()
	host := fakeClient()
	room.SetHost(host)

	alice := fakeClient()
	bob := fakeClient()
	aliceID := room.PlayerJoin("Alice", alice)
	room.PlayerJoin("Bob", bob)

	room.HandleHostCommand(kickPlayerCommand{PlayerID: aliceID})

	left := waitForType[playerLeftMessage](t, host)
	if left.PlayerID != aliceID {
		t.Errorf("expected player_left for Alice, got %+v", left)
	}
	for _, row := range left.Leaderboard {
		if row.ID == aliceID {
			t.Error("kicked player still in leaderboard projection")
		}
	}

	// Commands from the kicked player's stale connection are dropped.
	room.HandleHostCommand(startQuestionCommand{Question: &Question{
		Options: []string{"3", "4"}, CorrectAnswer: "4", Type: "music",
	}})
	room.HandlePlayerCommand(aliceID, submitAnswerCommand{Answer: "A"})
	room.HandlePlayerCommand(aliceID, buzzCommand{})

	if len(room.submissions) != 0 {
		t.Error("kicked player submitted an answer")
	}

	// Kicking an unknown id is a no-op.
	room.HandleHostCommand(kickPlayerCommand{PlayerID: "nope"})
}

func TestAwardAndAdjustUnknownPlayerNoop(t *testing.T) {
	room := testRoom()
	host := fakeClient()
	room.SetHost(host)
	waitForType[hostInitMessage](t, host)

	room.HandleHostCommand(awardPointsCommand{PlayerID: "ghost", Points: 10})
	room.HandleHostCommand(adjustScoreCommand{PlayerID: "ghost", Score: 10})

	expectNoType[leaderboardUpdateMessage](t, host)
}

func TestAdjustScoreSetsAbsoluteValue(t *testing.T) {
	room := testRoom()

	alice := fakeClient()
	aliceID := room.PlayerJoin("Alice", alice)

	room.HandleHostCommand(awardPointsCommand{PlayerID: aliceID, Points: 70})
	room.HandleHostCommand(adjustScoreCommand{PlayerID: aliceID, Score: 12})

	if got := room.players[aliceID].score; got != 12 {
		t.Errorf("expected absolute score 12, got %d", got)
	}
}

func TestMiniGameBonusForFirstTwoFinishers(t *testing.T) {
	room := testRoom()
	host := fakeClient()
	room.SetHost(host)

	clients := map[string]*client{}
	ids := []string{}
	for _, name := range []string{"Alice", "Bob", "Charlie"} {
		c := fakeClient()
		clients[name] = c
		ids = append(ids, room.PlayerJoin(name, c))
	}

	for _, id := range ids {
		for i := 0; i < 10; i++ {
			room.HandlePlayerCommand(id, buzzCommand{})
		}
	}

	bonus := waitForType[miniGameBonusMessage](t, clients["Alice"])
	if bonus.Points != 50 || bonus.FinishPosition != 1 {
		t.Errorf("unexpected Alice bonus: %+v", bonus)
	}
	bonus = waitForType[miniGameBonusMessage](t, clients["Bob"])
	if bonus.Points != 50 || bonus.FinishPosition != 2 {
		t.Errorf("unexpected Bob bonus: %+v", bonus)
	}
	expectNoType[miniGameBonusMessage](t, clients["Charlie"])

	if got := room.players[ids[0]].score; got != 50 {
		t.Errorf("Alice: expected 50, got %d", got)
	}
	if got := room.players[ids[2]].score; got != 0 {
		t.Errorf("Charlie: expected no bonus, got %d", got)
	}
}

func TestStartQuestionEndsMiniGameForGood(t *testing.T) {
	room := testRoom()
	host := fakeClient()
	room.SetHost(host)

	alice := fakeClient()
	aliceID := room.PlayerJoin("Alice", alice)

	room.HandleHostCommand(startQuestionCommand{Question: &Question{
		Options: []string{"3", "4"}, CorrectAnswer: "4", Type: "music",
	}})

	ended := waitForType[miniGameEndedMessage](t, host)
	if len(ended.Winners) != 0 {
		t.Errorf("expected no winners, got %v", ended.Winners)
	}

	if room.race.active {
		t.Fatal("mini-game still active after first question")
	}
	if room.race.tideStop != nil {
		t.Error("tide task not cancelled")
	}

	// Buzzes no longer move boats.
	room.HandleHostCommand(nextQuestionCommand{})
	room.HandlePlayerCommand(aliceID, buzzCommand{})
	if room.race.positions[aliceID] != 0 {
		t.Errorf("boat moved after deactivation: %v", room.race.positions[aliceID])
	}
}

func TestEndMiniGameCommandBroadcastsOnce(t *testing.T) {
	room := testRoom()
	host := fakeClient()
	room.SetHost(host)
	waitForType[hostInitMessage](t, host)

	room.HandleHostCommand(endMiniGameCommand{})
	waitForType[miniGameEndedMessage](t, host)

	room.HandleHostCommand(endMiniGameCommand{})
	expectNoType[miniGameEndedMessage](t, host)
}

func TestTidePullsBoatsBack(t *testing.T) {
	room := testRoomWithTide(10 * time.Millisecond)
	host := fakeClient()
	room.SetHost(host)

	alice := fakeClient()
	aliceID := room.PlayerJoin("Alice", alice)

	room.HandlePlayerCommand(aliceID, buzzCommand{})
	update := waitForType[miniGameUpdateMessage](t, host)
	if update.Positions[aliceID].Position != 10 {
		t.Fatalf("expected position 10 after buzz, got %v", update.Positions[aliceID].Position)
	}

	// The 10ms test tide should drag the boat back shortly.
	deadline := time.After(time.Second)
	for {
		select {
		case msg, ok := <-host.send:
			if !ok {
				t.Fatal("host channel closed")
			}
			if update, isUpdate := msg.(miniGameUpdateMessage); isUpdate {
				if pos := update.Positions[aliceID].Position; pos < 10 {
					if pos < 0 {
						t.Fatalf("position went negative: %v", pos)
					}
					return
				}
			}
		case <-deadline:
			t.Fatal("tide never moved the boat")
		}
	}
}

func TestHostReplacedInPlace(t *testing.T) {
	room := testRoom()

	first := fakeClient()
	room.SetHost(first)

	second := fakeClient()
	room.SetHost(second)

	waitForType[hostInitMessage](t, second)

	// Old host channel is shut down by the replacement.
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-first.send:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("old host connection was not shut down")
		}
	}
}

func TestHostClosedDetachesOnlyCurrentConnection(t *testing.T) {
	room := testRoom()

	first := fakeClient()
	room.SetHost(first)

	second := fakeClient()
	room.SetHost(second)

	// A late close notice from the replaced connection must not detach the
	// new host.
	room.HostClosed(first)
	if room.host != second {
		t.Error("stale close detached the current host")
	}

	room.HostClosed(second)
	if room.host != nil {
		t.Error("host not detached")
	}
}
