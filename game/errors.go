package game

import "errors"

var (
	ErrRoomNotFound     = errors.New("room-not-found")
	ErrRoomFull         = errors.New("room-full")
	ErrRoomStarted      = errors.New("room-already-started")
	ErrAlreadyInRoom    = errors.New("already-in-room")
	ErrNoMatchableRoom  = errors.New("no-matchable-room")
	ErrMatchmakingDown  = errors.New("matchmaking-unavailable")
	ErrPlayerGone       = errors.New("player-gone")
)
