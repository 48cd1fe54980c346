package game

import (
	"context"
	"time"

	"github.com/niedraa/typevision-server/domain"
)

type NetworkSession interface {
	Close(errCode string)
	Write(data []byte) error
	Read() ([]byte, error)
	Ping() error
}

type Player interface {
	Id() string
	Username() string
	Send(data []byte) error
	Ping()
	SetRoom(r Room)
	CancelAndRelease()
}

type Room interface {
	Send(ctx context.Context, e clientEventEnvelope)
	RequestJoin(jreq roomJoinRequest)
	RemoveMe(ctx context.Context, p Player)
	Tick(now time.Time)
	PingPlayers()
	GameLoop()
	CloseAndRelease()
	Description() roomDescription
	SetParentLobby(l Lobby)
	SetIdentity(id, code string)
}

type Lobby interface {
	RequestAddAndRunRoom(ctx context.Context, r Room)
	ForwardPlayerJoinRequestToRoom(ctx context.Context, jreq roomJoinRequest)
	RequestUpdateDescription(desc roomDescription)
	RemoveRoom(roomId string)
}

type UniqueIdGenerator interface {
	Generate() string
	GenerateCode() string
	Dispose(id string)
	DisposeCode(code string)
}

type PeriodicTickerChannelCreator interface {
	Create(duration time.Duration) <-chan time.Time
}

// TextSource provides the target text for a race.
type TextSource interface {
	GetRandomText(ctx context.Context, language, difficulty string) (domain.RaceText, error)
}

// ResultsRecorder receives the per-player outcome of a finished race.
type ResultsRecorder interface {
	RecordRace(ctx context.Context, results []domain.RaceResult)
}

// PresenceMarker flags players as being in a multiplayer race so the
// presence sweeper leaves their records alone.
type PresenceMarker interface {
	SetInMultiplayer(ctx context.Context, playerId string, in bool)
}
