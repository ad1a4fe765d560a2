package domain

import "sort"

// AppendHighScore appends entry, re-sorts descending by score and truncates to
// HighScoreCap. Ties keep insertion order, so an equal new score lands after
// older equal scores.
func AppendHighScore(entries []HighScoreEntry, entry HighScoreEntry) []HighScoreEntry {
	out := make([]HighScoreEntry, 0, len(entries)+1)
	out = append(out, entries...)
	out = append(out, entry)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	if len(out) > HighScoreCap {
		out = out[:HighScoreCap]
	}
	return out
}
