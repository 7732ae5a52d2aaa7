package main

import "time"

const (
	noAnswerPenalty    = 25
	wrongAnswerDivisor = 2
)

// positionMultipliers rewards fast answers; everyone from the fourth
// submission onward shares the bottom tier.
var positionMultipliers = [...]float64{1.0, 0.75, 0.5, 0.25}

type submission struct {
	Answer    string
	Position  int
	Timestamp time.Time
}

type scoringResult struct {
	PlayerID   string   `json:"player_id"`
	Name       string   `json:"name"`
	Answer     *string  `json:"answer"`
	IsCorrect  bool     `json:"is_correct"`
	Position   *int     `json:"position"`
	Multiplier *float64 `json:"multiplier"`
	Points     int      `json:"points"`
}

// scoreQuestion computes per-player point deltas for a revealed question.
// Submitters come first in submission order; connected players who never
// answered follow with a flat penalty. Disconnected non-submitters are
// exempt. The function is pure: applying the deltas is the caller's job.
func scoreQuestion(
	question *Question,
	submissions map[string]submission,
	submissionOrder []string,
	names map[string]string,
	connected map[string]bool,
) []scoringResult {
	correctLetter := question.correctLetter()
	basePoints := question.basePoints()

	results := make([]scoringResult, 0, len(submissionOrder))

	for _, playerID := range submissionOrder {
		name, ok := names[playerID]
		if !ok {
			continue
		}
		sub := submissions[playerID]

		tier := sub.Position - 1
		if tier >= len(positionMultipliers) {
			tier = len(positionMultipliers) - 1
		}
		multiplier := positionMultipliers[tier]

		isCorrect := correctLetter != "" && sub.Answer == correctLetter

		var points int
		if isCorrect {
			points = int(float64(basePoints) * multiplier)
		} else {
			points = -int(float64(basePoints) / wrongAnswerDivisor * multiplier)
		}

		answer := sub.Answer
		position := sub.Position
		results = append(results, scoringResult{
			PlayerID:   playerID,
			Name:       name,
			Answer:     &answer,
			IsCorrect:  isCorrect,
			Position:   &position,
			Multiplier: &multiplier,
			Points:     points,
		})
	}

	for playerID, isConnected := range connected {
		if !isConnected {
			continue
		}
		if _, answered := submissions[playerID]; answered {
			continue
		}
		name, ok := names[playerID]
		if !ok {
			continue
		}
		results = append(results, scoringResult{
			PlayerID: playerID,
			Name:     name,
			Points:   -noAnswerPenalty,
		})
	}

	return results
}
