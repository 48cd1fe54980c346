package game

import "time"

// TypingState tracks one player's progress through the target text.
// Only the correct next character advances the prefix: a deviating
// keystroke is counted as an error event and otherwise discarded, so no
// provisional incorrect characters ever persist.
type TypingState struct {
	target   []rune
	position int
	errors   int
}

func NewTypingState(target string) *TypingState {
	return &TypingState{target: []rune(target)}
}

// ApplyKey feeds one keystroke. Returns true if the prefix advanced.
func (ts *TypingState) ApplyKey(key rune) bool {
	if ts.Finished() {
		return false
	}

	if key == ts.target[ts.position] {
		ts.position++
		return true
	}

	ts.errors++
	return false
}

func (ts *TypingState) Position() int {
	return ts.position
}

func (ts *TypingState) Errors() int {
	return ts.errors
}

// Keystrokes is the total number of key events seen, right or wrong.
func (ts *TypingState) Keystrokes() int {
	return ts.position + ts.errors
}

func (ts *TypingState) Finished() bool {
	return ts.position == len(ts.target)
}

// Progress is the completed share of the target, 0 to 100.
func (ts *TypingState) Progress() float64 {
	if len(ts.target) == 0 {
		return 100
	}
	return float64(ts.position) / float64(len(ts.target)) * 100
}

// ValidPrefix is the part of the target the player has correctly typed.
func (ts *TypingState) ValidPrefix() string {
	return string(ts.target[:ts.position])
}

// WPM uses the usual 5-characters-per-word convention.
func WPM(position int, elapsed time.Duration) float64 {
	minutes := elapsed.Minutes()
	if minutes <= 0 {
		return 0
	}
	return (float64(position) / 5) / minutes
}

// Accuracy is (position - errors) / position, clamped to [0, 1].
// With nothing typed yet it reports 1 so a fresh race doesn't show 0%.
func Accuracy(position, errors int) float64 {
	if position == 0 {
		return 1
	}
	acc := float64(position-errors) / float64(position)
	if acc < 0 {
		return 0
	}
	return acc
}
