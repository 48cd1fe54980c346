package domain

import "time"

type User struct {
	Id           string
	Username     string
	PasswordHash string
	Guest        bool
	CreatedAt    time.Time
}

// UserStats aggregates a player's finished races. Updated once per race,
// read by the profile endpoint and the achievements evaluator.
type UserStats struct {
	UserId          string  `json:"userId"`
	RacesPlayed     int     `json:"racesPlayed"`
	RacesWon        int     `json:"racesWon"`
	BestWPM         float64 `json:"bestWpm"`
	AvgWPM          float64 `json:"avgWpm"`
	AvgAccuracy     float64 `json:"avgAccuracy"`
	TotalKeystrokes int     `json:"totalKeystrokes"`
}

type Achievement struct {
	Code       string    `json:"code"`
	UnlockedAt time.Time `json:"unlockedAt"`
}

// RaceText is one target text for a race, picked by language and difficulty.
type RaceText struct {
	Id         string
	Language   string
	Difficulty string
	Content    string
}

// RaceResult is what a room reports for one player when a race ends.
type RaceResult struct {
	UserId     string
	Won        bool
	WPM        float64
	Accuracy   float64
	Keystrokes int
	FinishedAt time.Time
}
