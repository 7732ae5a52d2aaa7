package main

import (
	"encoding/json"
	"fmt"
)

// Inbound traffic arrives as {"type": ..., ...} JSON. Each channel has a
// closed set of command variants, decoded into concrete structs up front so
// the room session can match on them exhaustively instead of comparing
// string tags at every call site.

type hostCommand interface {
	isHostCommand()
}

type selectCategoryCommand struct {
	Category string `json:"category"`
}

type startQuestionCommand struct {
	Question *Question `json:"question"`
}

type stopQuestionCommand struct{}

type revealAnswerCommand struct{}

type awardPointsCommand struct {
	PlayerID string `json:"player_id"`
	Points   int    `json:"points"`
}

type adjustScoreCommand struct {
	PlayerID string `json:"player_id"`
	Score    int    `json:"score"`
}

type setTimerCommand struct {
	Seconds *int `json:"seconds"`
}

type nextQuestionCommand struct{}

type endMiniGameCommand struct{}

type kickPlayerCommand struct {
	PlayerID string `json:"player_id"`
}

func (selectCategoryCommand) isHostCommand() {}
func (startQuestionCommand) isHostCommand()  {}
func (stopQuestionCommand) isHostCommand()   {}
func (revealAnswerCommand) isHostCommand()   {}
func (awardPointsCommand) isHostCommand()    {}
func (adjustScoreCommand) isHostCommand()    {}
func (setTimerCommand) isHostCommand()       {}
func (nextQuestionCommand) isHostCommand()   {}
func (endMiniGameCommand) isHostCommand()    {}
func (kickPlayerCommand) isHostCommand()     {}

type playerCommand interface {
	isPlayerCommand()
}

type buzzCommand struct{}

type submitAnswerCommand struct {
	Answer string `json:"answer"`
}

func (buzzCommand) isPlayerCommand()         {}
func (submitAnswerCommand) isPlayerCommand() {}

type envelope struct {
	Type string `json:"type"`
}

func decodeHostCommand(data []byte) (hostCommand, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}

	switch env.Type {
	case "select_category":
		var cmd selectCategoryCommand
		err := json.Unmarshal(data, &cmd)
		return cmd, err
	case "start_question":
		var cmd startQuestionCommand
		err := json.Unmarshal(data, &cmd)
		return cmd, err
	case "stop_question":
		return stopQuestionCommand{}, nil
	case "reveal_answer":
		return revealAnswerCommand{}, nil
	case "award_points":
		var cmd awardPointsCommand
		err := json.Unmarshal(data, &cmd)
		return cmd, err
	case "adjust_score":
		var cmd adjustScoreCommand
		err := json.Unmarshal(data, &cmd)
		return cmd, err
	case "set_timer":
		var cmd setTimerCommand
		err := json.Unmarshal(data, &cmd)
		return cmd, err
	case "next_question":
		return nextQuestionCommand{}, nil
	case "end_mini_game":
		return endMiniGameCommand{}, nil
	case "kick_player":
		var cmd kickPlayerCommand
		err := json.Unmarshal(data, &cmd)
		return cmd, err
	default:
		return nil, fmt.Errorf("unknown host message type %q", env.Type)
	}
}

func decodePlayerCommand(data []byte) (playerCommand, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}

	switch env.Type {
	case "buzz":
		return buzzCommand{}, nil
	case "submit_answer":
		var cmd submitAnswerCommand
		err := json.Unmarshal(data, &cmd)
		return cmd, err
	default:
		return nil, fmt.Errorf("unknown player message type %q", env.Type)
	}
}

// Outbound messages, shared vocabulary for host and player channels.

type hostInitMessage struct {
	Type           string           `json:"type"` // "init"
	RoomID         string           `json:"room_id"`
	RoomCode       string           `json:"room_code"`
	Players        []leaderboardRow `json:"players"`
	Categories     []string         `json:"categories"`
	TimerSeconds   int              `json:"timer_seconds"`
	MiniGame       miniGameState    `json:"mini_game"`
	MiniGameActive bool             `json:"mini_game_active"`
}

type playerInitMessage struct {
	Type           string           `json:"type"` // "init"
	PlayerID       string           `json:"player_id"`
	Name           string           `json:"name"`
	Score          int              `json:"score"`
	Position       int              `json:"position"`
	BuzzerActive   bool             `json:"buzzer_active"`
	Leaderboard    []leaderboardRow `json:"leaderboard"`
	MiniGame       miniGameState    `json:"mini_game"`
	MiniGameActive bool             `json:"mini_game_active"`
}

type categorySelectedMessage struct {
	Type     string `json:"type"` // "category_selected"
	Category string `json:"category"`
}

type questionStartedMessage struct {
	Type     string    `json:"type"`               // "question_started"
	Question *Question `json:"question,omitempty"` // host only; players never see the answer
	Timer    int       `json:"timer"`
}

type buzzerLockedMessage struct {
	Type string `json:"type"` // "buzzer_locked"
}

type answerRevealedMessage struct {
	Type           string           `json:"type"` // "answer_revealed"
	CorrectAnswer  string           `json:"correct_answer"`
	CorrectLetter  *string          `json:"correct_letter"`
	ScoringResults []scoringResult  `json:"scoring_results"`
	Leaderboard    []leaderboardRow `json:"leaderboard"`
}

type leaderboardUpdateMessage struct {
	Type          string           `json:"type"` // "leaderboard_update"
	Leaderboard   []leaderboardRow `json:"leaderboard"`
	AwardedPlayer string           `json:"awarded_player,omitempty"`
	Points        int              `json:"points,omitempty"`
}

type timerUpdatedMessage struct {
	Type    string `json:"type"` // "timer_updated"
	Seconds int    `json:"seconds"`
}

type questionClearedMessage struct {
	Type string `json:"type"` // "question_cleared"
}

type miniGameEndedMessage struct {
	Type    string   `json:"type"` // "mini_game_ended"
	Winners []string `json:"winners"`
}

type playerJoinedMessage struct {
	Type        string           `json:"type"` // "player_joined"
	PlayerID    string           `json:"player_id"`
	Name        string           `json:"name"`
	Leaderboard []leaderboardRow `json:"leaderboard"`
}

type playerDisconnectedMessage struct {
	Type        string           `json:"type"` // "player_disconnected"
	PlayerID    string           `json:"player_id"`
	Name        string           `json:"name"`
	Leaderboard []leaderboardRow `json:"leaderboard"`
}

type playerLeftMessage struct {
	Type        string           `json:"type"` // "player_left"
	PlayerID    string           `json:"player_id"`
	Leaderboard []leaderboardRow `json:"leaderboard"`
}

type timerTickMessage struct {
	Type      string `json:"type"` // "timer_tick"
	Remaining int    `json:"remaining"`
}

type timerExpiredMessage struct {
	Type             string `json:"type"` // "timer_expired"
	SubmissionsCount int    `json:"submissions_count"`
}

type answerConfirmedMessage struct {
	Type     string `json:"type"` // "answer_confirmed"
	Position int    `json:"position"`
	Answer   string `json:"answer"`
}

type answerCountUpdateMessage struct {
	Type         string `json:"type"` // "answer_count_update"
	Count        int    `json:"count"`
	TotalPlayers int    `json:"total_players"`
}

type miniGameUpdateMessage struct {
	Type      string                      `json:"type"` // "mini_game_update"
	Positions map[string]miniGamePosition `json:"positions"`
	Winners   []string                    `json:"winners"`
}

type miniGameBonusMessage struct {
	Type           string `json:"type"` // "mini_game_bonus"
	Points         int    `json:"points"`
	FinishPosition int    `json:"finish_position"`
}

type kickedMessage struct {
	Type string `json:"type"` // "kicked"
}
