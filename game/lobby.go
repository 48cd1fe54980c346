package game

import (
	"context"
	"time"

	"github.com/niedraa/typevision-server/logger"
)

type quickMatchRequest struct {
	playerId   string
	difficulty string
	respChan   chan quickMatchResponse
}

type quickMatchResponse struct {
	roomId string
	err    error
}

type lobby struct {
	rooms                map[string]Room
	descriptions         map[string]roomDescription
	pubRoomsDescriptions map[string]roomDescription
	roomIdsByCode        map[string]string

	addAndRunRoomChan chan Room
	removeRoomChan    chan string
	pubGamesReq       chan chan []roomDescription
	roomDescUpdate    chan roomDescription
	roomJoinReqs      chan roomJoinRequest
	codeJoinReqs      chan roomJoinRequest
	quickMatchReqs    chan quickMatchRequest

	idGenerator   UniqueIdGenerator
	tickerCreator PeriodicTickerChannelCreator
	clock         func() time.Time
}

func NewLobby(idgen UniqueIdGenerator, tickerCreator PeriodicTickerChannelCreator) *lobby {
	return &lobby{
		rooms:                map[string]Room{},
		descriptions:         map[string]roomDescription{},
		pubRoomsDescriptions: map[string]roomDescription{},
		roomIdsByCode:        map[string]string{},
		addAndRunRoomChan:    make(chan Room, 32),
		removeRoomChan:       make(chan string, 32),
		pubGamesReq:          make(chan chan []roomDescription, 256),
		roomDescUpdate:       make(chan roomDescription, 256),
		roomJoinReqs:         make(chan roomJoinRequest, 256),
		codeJoinReqs:         make(chan roomJoinRequest, 256),
		quickMatchReqs:       make(chan quickMatchRequest, 256),
		idGenerator:          idgen,
		tickerCreator:        tickerCreator,
		clock:                time.Now,
	}
}

func (l *lobby) RequestUpdateDescription(desc roomDescription) {
	select {
	case l.roomDescUpdate <- desc:
	default:
	}
}

func (l *lobby) RequestAddAndRunRoom(ctx context.Context, r Room) {
	select {
	case l.addAndRunRoomChan <- r:
	case <-ctx.Done():
	}
}

func (l *lobby) ForwardPlayerJoinRequestToRoom(ctx context.Context, jreq roomJoinRequest) {
	select {
	case <-ctx.Done():
	case l.roomJoinReqs <- jreq:
	}
}

func (l *lobby) ForwardPlayerJoinRequestByCode(ctx context.Context, jreq roomJoinRequest) {
	select {
	case <-ctx.Done():
	case l.codeJoinReqs <- jreq:
	}
}

func (l *lobby) RemoveRoom(roomId string) {
	l.removeRoomChan <- roomId
}

func (l *lobby) GetPublicGames(ctx context.Context) []roomDescription {
	respChan := make(chan []roomDescription, 1)
	select {
	case l.pubGamesReq <- respChan:
		select {
		case resp := <-respChan:
			return resp
		case <-ctx.Done():
			return nil
		}
	case <-ctx.Done():
		return nil
	}
}

// FindQuickMatch returns the id of an open public room matching the
// requested difficulty, or ErrNoMatchableRoom if the caller should host a
// fresh one.
func (l *lobby) FindQuickMatch(ctx context.Context, playerId, difficulty string) (string, error) {
	respChan := make(chan quickMatchResponse, 1)
	req := quickMatchRequest{playerId: playerId, difficulty: difficulty, respChan: respChan}

	select {
	case l.quickMatchReqs <- req:
	case <-ctx.Done():
		return "", ErrMatchmakingDown
	}

	select {
	case resp := <-respChan:
		return resp.roomId, resp.err
	case <-ctx.Done():
		return "", ErrMatchmakingDown
	}
}

func (l *lobby) LobbyActor(started chan struct{}) {
	ticker := l.tickerCreator.Create(time.Second)
	pingTicker := l.tickerCreator.Create(time.Second * 30)
	sweepTicker := l.tickerCreator.Create(time.Minute * 2)

	close(started)

	for {
		select {
		case now := <-ticker:
			for _, r := range l.rooms {
				r.Tick(now)
			}
		case <-pingTicker:
			for _, r := range l.rooms {
				r.PingPlayers()
			}

		case <-sweepTicker:
			l.sweepStaleRooms()

		case room := <-l.addAndRunRoomChan:
			l.handleAddAndRunRoom(room)

		case roomId := <-l.removeRoomChan:
			l.handleRemoveRoom(roomId)

		case desc := <-l.roomDescUpdate:
			l.handleDescriptionUpdate(desc)

		case pubGamesReq := <-l.pubGamesReq:
			l.handleGetPublicRoomsDescription(pubGamesReq)

		case joinReq := <-l.roomJoinReqs:
			l.handleJoinReq(joinReq)

		case joinReq := <-l.codeJoinReqs:
			l.handleCodeJoinReq(joinReq)

		case matchReq := <-l.quickMatchReqs:
			l.handleQuickMatchReq(matchReq)
		}
	}
}

func (l *lobby) handleAddAndRunRoom(r Room) {
	id := l.idGenerator.Generate()
	code := l.idGenerator.GenerateCode()
	r.SetParentLobby(l)
	r.SetIdentity(id, code)

	l.rooms[id] = r
	l.roomIdsByCode[code] = id

	rDesc := r.Description()
	l.descriptions[id] = rDesc
	go r.GameLoop()

	logger.Infof("room %s created (code %s, public=%v)", id, code, rDesc.settings.IsPublic)

	if !rDesc.settings.IsPublic {
		return
	}
	l.pubRoomsDescriptions[id] = rDesc
}

func (l *lobby) handleRemoveRoom(toRemoveId string) {
	room, ok := l.rooms[toRemoveId]
	if !ok {
		return
	}
	desc := l.descriptions[toRemoveId]

	delete(l.rooms, toRemoveId)
	delete(l.descriptions, toRemoveId)
	delete(l.pubRoomsDescriptions, toRemoveId)
	delete(l.roomIdsByCode, desc.code)

	room.CloseAndRelease()
	l.idGenerator.Dispose(toRemoveId)
	l.idGenerator.DisposeCode(desc.code)

	logger.Infof("room %s removed", toRemoveId)
}

func (l *lobby) handleDescriptionUpdate(desc roomDescription) {
	if _, ok := l.rooms[desc.id]; !ok {
		return
	}
	l.descriptions[desc.id] = desc
	if desc.settings.IsPublic {
		l.pubRoomsDescriptions[desc.id] = desc
	}
}

func (l *lobby) handleGetPublicRoomsDescription(req chan []roomDescription) {
	x := make([]roomDescription, 0, len(l.pubRoomsDescriptions))
	for _, description := range l.pubRoomsDescriptions {
		x = append(x, description)
	}

	req <- x
}

func (l *lobby) handleJoinReq(joinReq roomJoinRequest) {
	room, ok := l.rooms[joinReq.roomId]
	if !ok {
		joinReq.errChan <- ErrRoomNotFound
		return
	}
	room.RequestJoin(joinReq)
}

func (l *lobby) handleCodeJoinReq(joinReq roomJoinRequest) {
	roomId, ok := l.roomIdsByCode[joinReq.roomId]
	if !ok {
		joinReq.errChan <- ErrRoomNotFound
		return
	}
	joinReq.roomId = roomId
	l.handleJoinReq(joinReq)
}

// handleQuickMatchReq is the matchmaking scan: a plain pass over the open
// public rooms, first acceptable one wins.
func (l *lobby) handleQuickMatchReq(req quickMatchRequest) {
	now := l.clock()

	for id, desc := range l.pubRoomsDescriptions {
		if desc.status != StatusWaiting {
			continue
		}
		if desc.settings.Difficulty != req.difficulty {
			continue
		}
		if desc.playersCount >= desc.settings.MaxPlayers {
			continue
		}
		if now.Sub(desc.createdAt) >= maxMatchableRoomAge {
			continue
		}
		if containsId(desc.playerIds, req.playerId) {
			continue
		}

		req.respChan <- quickMatchResponse{roomId: id}
		return
	}

	req.respChan <- quickMatchResponse{err: ErrNoMatchableRoom}
}

// sweepStaleRooms is best-effort garbage collection. Rooms normally delete
// themselves when their last player leaves, this catches the ones that
// never got there.
func (l *lobby) sweepStaleRooms() {
	now := l.clock()
	for id, desc := range l.descriptions {
		if now.Sub(desc.createdAt) > maxRoomAge {
			logger.Warningf("sweeping stale room %s (age %v)", id, now.Sub(desc.createdAt))
			l.handleRemoveRoom(id)
		}
	}
}

func containsId(ids []string, id string) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
