package game

import "time"

type RoomStatus string

const (
	StatusWaiting   RoomStatus = "waiting"
	StatusCountdown RoomStatus = "countdown"
	StatusPlaying   RoomStatus = "playing"
	StatusFinished  RoomStatus = "finished"
)

const (
	// Quick matches auto-start, players get a long countdown to notice.
	quickMatchCountdown = 15 * time.Second
	// Private rooms start on an explicit host action, 3 seconds is enough.
	privateCountdown = 3 * time.Second

	// Matchmaking never seats a player in a room older than this.
	maxMatchableRoomAge = 5 * time.Minute

	// Sweep backstop, rooms are normally deleted when the last player leaves.
	maxRoomAge = 30 * time.Minute

	minPlayersToStart = 2
)

type RoomSettings struct {
	MinPlayers int    `json:"minPlayers"`
	MaxPlayers int    `json:"maxPlayers"`
	GameMode   string `json:"gameMode"`
	Difficulty string `json:"difficulty"`
	IsPublic   bool   `json:"isPublic"`
	Language   string `json:"language"`
}

// roomDescription is the lobby's read-only view of a room, refreshed by the
// room actor whenever membership or status changes.
type roomDescription struct {
	id           string
	code         string
	status       RoomStatus
	settings     RoomSettings
	playersCount int
	playerIds    []string
	createdAt    time.Time
}

type roomJoinRequest struct {
	roomId  string
	player  Player
	errChan chan error
}

func NewRoomJoinRequest(roomId string, player Player) roomJoinRequest {
	return roomJoinRequest{roomId: roomId, player: player, errChan: make(chan error, 1)}
}

// clientEvent is one JSON message read off a player's websocket.
type clientEvent struct {
	Type  string `json:"type"`
	Key   string `json:"key,omitempty"`
	Ready bool   `json:"ready,omitempty"`
}

const (
	eventKeystroke = "keystroke"
	eventReady     = "ready"
	eventStart     = "start"
	eventLeave     = "leave"
)

type clientEventEnvelope struct {
	event clientEvent
	from  Player
}

// Serialized player state, embedded in room snapshots and progress frames.
type playerView struct {
	Id         string  `json:"id"`
	Name       string  `json:"name"`
	IsHost     bool    `json:"isHost"`
	IsReady    bool    `json:"isReady"`
	Position   int     `json:"position"`
	Errors     int     `json:"errors"`
	Progress   float64 `json:"progress"`
	WPM        float64 `json:"wpm"`
	Accuracy   float64 `json:"accuracy"`
	Finished   bool    `json:"finished"`
	FinishTime int64   `json:"finishTime,omitempty"` // unix millis, 0 until finished
	Rank       int     `json:"rank,omitempty"`
}

type serverMessage struct {
	Type      string       `json:"type"`
	RoomId    string       `json:"roomId,omitempty"`
	Code      string       `json:"code,omitempty"`
	Status    RoomStatus   `json:"status,omitempty"`
	Settings  *RoomSettings `json:"settings,omitempty"`
	Players   []playerView `json:"players,omitempty"`
	Text      string       `json:"text,omitempty"`
	StartTime int64        `json:"startTime,omitempty"` // unix millis
	Countdown int          `json:"countdown,omitempty"` // seconds left
	Winner    string       `json:"winner,omitempty"`
	Error     string       `json:"error,omitempty"`
}

const (
	msgState     = "state"
	msgCountdown = "countdown"
	msgStarted   = "started"
	msgProgress  = "progress"
	msgFinished  = "finished"
	msgClosed    = "closed"
	msgError     = "error"
)
