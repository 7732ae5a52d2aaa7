package main

import "testing"

func TestDecodeHostCommandVariants(t *testing.T) {
	tests := []struct {
		name string
		data string
		want any
	}{
		{
			name: "select_category",
			data: `{"type":"select_category","category":"History"}`,
			want: selectCategoryCommand{Category: "History"},
		},
		{
			name: "stop_question",
			data: `{"type":"stop_question"}`,
			want: stopQuestionCommand{},
		},
		{
			name: "reveal_answer",
			data: `{"type":"reveal_answer"}`,
			want: revealAnswerCommand{},
		},
		{
			name: "award_points",
			data: `{"type":"award_points","player_id":"p1","points":-10}`,
			want: awardPointsCommand{PlayerID: "p1", Points: -10},
		},
		{
			name: "adjust_score",
			data: `{"type":"adjust_score","player_id":"p1","score":42}`,
			want: adjustScoreCommand{PlayerID: "p1", Score: 42},
		},
		{
			name: "next_question",
			data: `{"type":"next_question"}`,
			want: nextQuestionCommand{},
		},
		{
			name: "end_mini_game",
			data: `{"type":"end_mini_game"}`,
			want: endMiniGameCommand{},
		},
		{
			name: "kick_player",
			data: `{"type":"kick_player","player_id":"p2"}`,
			want: kickPlayerCommand{PlayerID: "p2"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := decodeHostCommand([]byte(tc.data))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got != tc.want {
				t.Errorf("expected %#v, got %#v", tc.want, got)
			}
		})
	}
}

func TestDecodeHostCommandStartQuestion(t *testing.T) {
	data := `{"type":"start_question","question":{"question":"?","options":["a","b"],"correct_answer":"b","points":200,"type":"music"}}`

	got, err := decodeHostCommand([]byte(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	cmd, ok := got.(startQuestionCommand)
	if !ok {
		t.Fatalf("expected startQuestionCommand, got %T", got)
	}
	if cmd.Question == nil || cmd.Question.Points != 200 || !cmd.Question.isMusic() {
		t.Errorf("unexpected question payload: %+v", cmd.Question)
	}
}

func TestDecodeHostCommandSetTimerDistinguishesMissing(t *testing.T) {
	got, err := decodeHostCommand([]byte(`{"type":"set_timer","seconds":0}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cmd := got.(setTimerCommand); cmd.Seconds == nil || *cmd.Seconds != 0 {
		t.Errorf("explicit zero lost: %+v", cmd)
	}

	got, err = decodeHostCommand([]byte(`{"type":"set_timer"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cmd := got.(setTimerCommand); cmd.Seconds != nil {
		t.Errorf("missing seconds should decode as nil, got %+v", cmd)
	}
}

func TestDecodeHostCommandRejectsUnknownType(t *testing.T) {
	if _, err := decodeHostCommand([]byte(`{"type":"launch_missiles"}`)); err == nil {
		t.Error("expected error for unknown host message type")
	}
	if _, err := decodeHostCommand([]byte(`{"type":"buzz"}`)); err == nil {
		t.Error("player vocabulary must not decode on the host channel")
	}
	if _, err := decodeHostCommand([]byte(`not json`)); err == nil {
		t.Error("expected error for malformed payload")
	}
}

func TestDecodePlayerCommandVariants(t *testing.T) {
	got, err := decodePlayerCommand([]byte(`{"type":"buzz"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := got.(buzzCommand); !ok {
		t.Errorf("expected buzzCommand, got %T", got)
	}

	got, err = decodePlayerCommand([]byte(`{"type":"submit_answer","answer":"C"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cmd, ok := got.(submitAnswerCommand); !ok || cmd.Answer != "C" {
		t.Errorf("expected submit with answer C, got %#v", got)
	}

	if _, err := decodePlayerCommand([]byte(`{"type":"kick_player","player_id":"p1"}`)); err == nil {
		t.Error("host vocabulary must not decode on the player channel")
	}
}
