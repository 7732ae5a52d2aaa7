package main

import "sort"

type leaderboardRow struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Score     int    `json:"score"`
	Connected bool   `json:"connected"`
	Position  int    `json:"position"`
}

// projectLeaderboard ranks players by score, highest first. Ties keep their
// relative order in the input, so callers passing players in join order get
// an earliest-join tie-break. Positions are dense 1-based ranks by sorted
// index; equal scores still receive distinct successive positions.
func projectLeaderboard(players []leaderboardRow) []leaderboardRow {
	ranked := make([]leaderboardRow, len(players))
	copy(ranked, players)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	for i := range ranked {
		ranked[i].Position = i + 1
	}

	return ranked
}
