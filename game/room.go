package game

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/niedraa/typevision-server/domain"
	"github.com/niedraa/typevision-server/logger"
)

// Races still run if the texts table is unreachable.
const fallbackText = "The quick brown fox jumps over the lazy dog."

type playerSlot struct {
	conn       Player
	isHost     bool
	isReady    bool
	joinedAt   time.Time
	typing     *TypingState
	finishTime time.Time
	rank       int
}

type room struct {
	id       string
	code     string
	settings RoomSettings
	status   RoomStatus
	hostId   string
	players  []*playerSlot // join order

	text            string
	startTime       time.Time
	countdownEndsAt time.Time
	winnerId        string
	createdAt       time.Time
	lastActivity    time.Time

	parentLobby Lobby
	textSource  TextSource
	results     ResultsRecorder
	presence    PresenceMarker
	clock       func() time.Time

	inbox       chan clientEventEnvelope
	ticks       chan time.Time
	pingPlayers chan struct{}
	joinReqs    chan roomJoinRequest
	removals    chan Player
	textReady   chan string
	closed      chan struct{}
}

func NewRoom(host Player, settings RoomSettings, textSource TextSource, results ResultsRecorder, presence PresenceMarker, clock func() time.Time) *room {
	if clock == nil {
		clock = time.Now
	}
	if settings.MinPlayers < minPlayersToStart {
		settings.MinPlayers = minPlayersToStart
	}
	if settings.Language == "" {
		settings.Language = "en"
	}
	if settings.Difficulty == "" {
		settings.Difficulty = "medium"
	}

	now := clock()
	r := &room{
		settings:     settings,
		status:       StatusWaiting,
		hostId:       host.Id(),
		players:      make([]*playerSlot, 0, settings.MaxPlayers),
		createdAt:    now,
		lastActivity: now,
		textSource:   textSource,
		results:      results,
		presence:     presence,
		clock:        clock,
		inbox:        make(chan clientEventEnvelope, 1024),
		ticks:        make(chan time.Time, 24),
		pingPlayers:  make(chan struct{}, 4),
		joinReqs:     make(chan roomJoinRequest),
		removals:     make(chan Player, 64),
		textReady:    make(chan string, 1),
		closed:       make(chan struct{}),
	}

	r.players = append(r.players, &playerSlot{conn: host, isHost: true, joinedAt: now})
	return r
}

func (r *room) SetIdentity(id, code string) {
	r.id = id
	r.code = code
}

func (r *room) SetParentLobby(l Lobby) {
	r.parentLobby = l
}

func (r *room) Description() roomDescription {
	ids := make([]string, 0, len(r.players))
	for _, slot := range r.players {
		ids = append(ids, slot.conn.Id())
	}
	return roomDescription{
		id:           r.id,
		code:         r.code,
		status:       r.status,
		settings:     r.settings,
		playersCount: len(r.players),
		playerIds:    ids,
		createdAt:    r.createdAt,
	}
}

func (r *room) Send(ctx context.Context, e clientEventEnvelope) {
	select {
	case r.inbox <- e:
	case <-r.closed:
	case <-ctx.Done():
	}
}

func (r *room) RequestJoin(jreq roomJoinRequest) {
	select {
	case r.joinReqs <- jreq:
	case <-r.closed:
		jreq.errChan <- ErrRoomNotFound
	}
}

func (r *room) RemoveMe(ctx context.Context, p Player) {
	select {
	case r.removals <- p:
	case <-r.closed:
	case <-ctx.Done():
	}
}

func (r *room) Tick(now time.Time) {
	select {
	case r.ticks <- now:
	default:
	}
}

func (r *room) PingPlayers() {
	select {
	case r.pingPlayers <- struct{}{}:
	default:
	}
}

// CloseAndRelease is called from the lobby actor, the room goroutine does
// the actual teardown so player state is never touched from two goroutines.
func (r *room) CloseAndRelease() {
	close(r.closed)
}

func (r *room) GameLoop() {
	// The host's socket only starts relaying once the room runs.
	r.players[0].conn.SetRoom(r)
	r.markPresence(r.players[0].conn.Id(), true)
	r.sendState()

	for {
		select {
		case <-r.closed:
			r.teardown()
			return
		case jreq := <-r.joinReqs:
			r.handleJoin(jreq)
		case p := <-r.removals:
			r.handleRemoval(p)
		case env := <-r.inbox:
			r.handleEvent(env)
		case now := <-r.ticks:
			r.handleTick(now)
		case text := <-r.textReady:
			r.text = text
		case <-r.pingPlayers:
			for _, slot := range r.players {
				slot.conn.Ping()
			}
		}
	}
}

func (r *room) teardown() {
	msg, _ := json.Marshal(serverMessage{Type: msgClosed, RoomId: r.id})
	for _, slot := range r.players {
		slot.conn.Send(msg)
		r.markPresence(slot.conn.Id(), false)
		slot.conn.CancelAndRelease()
	}
	r.players = nil
}

func (r *room) handleJoin(jreq roomJoinRequest) {
	if r.status != StatusWaiting {
		jreq.errChan <- ErrRoomStarted
		return
	}
	if len(r.players) >= r.settings.MaxPlayers {
		jreq.errChan <- ErrRoomFull
		return
	}
	if r.findSlot(jreq.player.Id()) != nil {
		jreq.errChan <- ErrAlreadyInRoom
		return
	}

	now := r.clock()
	r.players = append(r.players, &playerSlot{conn: jreq.player, joinedAt: now})
	jreq.player.SetRoom(r)
	jreq.errChan <- nil

	r.markPresence(jreq.player.Id(), true)
	r.lastActivity = now
	r.publishDescription()
	r.sendState()

	// Quick matches skip ready-up, the countdown arms as soon as enough
	// players are seated.
	if r.settings.IsPublic && len(r.players) >= r.settings.MinPlayers {
		r.beginCountdown(quickMatchCountdown)
	}
}

func (r *room) handleRemoval(p Player) {
	slot := r.findSlot(p.Id())
	if slot == nil {
		return
	}

	remaining := r.players[:0]
	for _, s := range r.players {
		if s != slot {
			remaining = append(remaining, s)
		}
	}
	r.players = remaining

	r.markPresence(p.Id(), false)
	p.CancelAndRelease()

	if len(r.players) == 0 {
		// Empty rooms are deleted immediately, not left for the sweeper.
		r.parentLobby.RemoveRoom(r.id)
		return
	}

	if slot.isHost {
		oldest := r.players[0]
		oldest.isHost = true
		r.hostId = oldest.conn.Id()
	}

	if r.status == StatusCountdown && len(r.players) < r.settings.MinPlayers {
		r.cancelCountdown()
	}

	if r.status == StatusPlaying && r.allFinished() {
		r.finishRace()
	}

	r.lastActivity = r.clock()
	r.publishDescription()
	r.sendState()
}

func (r *room) handleEvent(env clientEventEnvelope) {
	slot := r.findSlot(env.from.Id())
	if slot == nil {
		return
	}

	r.lastActivity = r.clock()

	switch env.event.Type {
	case eventKeystroke:
		r.handleKeystroke(slot, env.event.Key)
	case eventReady:
		r.handleReady(slot, env.event.Ready)
	case eventStart:
		r.handleStart(slot)
	}
}

func (r *room) handleKeystroke(slot *playerSlot, key string) {
	if r.status != StatusPlaying || slot.typing == nil || slot.typing.Finished() {
		return
	}

	runes := []rune(key)
	if len(runes) != 1 {
		return
	}

	slot.typing.ApplyKey(runes[0])

	if slot.typing.Finished() {
		slot.finishTime = r.clock()
		if r.winnerId == "" {
			r.winnerId = slot.conn.Id()
		}
		if r.allFinished() {
			r.finishRace()
			return
		}
	}

	r.sendProgress()
}

func (r *room) handleReady(slot *playerSlot, ready bool) {
	// Quick matches have no ready-up phase.
	if r.status != StatusWaiting || r.settings.IsPublic {
		return
	}

	slot.isReady = ready
	r.sendState()
}

func (r *room) handleStart(slot *playerSlot) {
	if r.status != StatusWaiting || !slot.isHost || r.settings.IsPublic {
		r.sendError(slot, "cannot-start")
		return
	}
	if len(r.players) < r.settings.MinPlayers {
		r.sendError(slot, "not-enough-players")
		return
	}
	for _, s := range r.players {
		if !s.isHost && !s.isReady {
			r.sendError(slot, "players-not-ready")
			return
		}
	}

	r.beginCountdown(privateCountdown)
}

func (r *room) beginCountdown(d time.Duration) {
	if r.status != StatusWaiting {
		return
	}

	now := r.clock()
	r.status = StatusCountdown
	r.countdownEndsAt = now.Add(d)
	r.publishDescription()
	r.broadcast(serverMessage{
		Type:      msgCountdown,
		RoomId:    r.id,
		Countdown: int(d.Seconds()),
	})

	// The text is fetched during the countdown so the race starts without
	// a database round-trip.
	go func(language, difficulty string) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		text, err := r.textSource.GetRandomText(ctx, language, difficulty)
		if err != nil {
			logger.Warningf("race text fetch failed, using fallback: %v", err)
			r.deliverText(fallbackText)
			return
		}
		r.deliverText(text.Content)
	}(r.settings.Language, r.settings.Difficulty)
}

func (r *room) deliverText(text string) {
	select {
	case r.textReady <- text:
	case <-r.closed:
	}
}

func (r *room) cancelCountdown() {
	r.status = StatusWaiting
	r.countdownEndsAt = time.Time{}
	r.publishDescription()
}

func (r *room) handleTick(now time.Time) {
	switch r.status {
	case StatusCountdown:
		if len(r.players) < r.settings.MinPlayers {
			r.cancelCountdown()
			r.sendState()
			return
		}
		left := r.countdownEndsAt.Sub(now)
		if left <= 0 {
			r.startRace(now)
			return
		}
		r.broadcast(serverMessage{
			Type:      msgCountdown,
			RoomId:    r.id,
			Countdown: int(left.Seconds() + 0.5),
		})
	case StatusPlaying:
		// Elapsed time moves WPM even between keystrokes.
		r.sendProgress()
	}
}

func (r *room) startRace(now time.Time) {
	if r.text == "" {
		select {
		case text := <-r.textReady:
			r.text = text
		default:
			r.text = fallbackText
		}
	}

	r.status = StatusPlaying
	r.startTime = now
	for _, slot := range r.players {
		slot.typing = NewTypingState(r.text)
		slot.isReady = false
	}

	r.publishDescription()
	r.broadcast(serverMessage{
		Type:      msgStarted,
		RoomId:    r.id,
		Text:      r.text,
		StartTime: now.UnixMilli(),
	})
}

func (r *room) finishRace() {
	r.status = StatusFinished
	r.rankPlayers()

	results := make([]domain.RaceResult, 0, len(r.players))
	now := r.clock()
	for _, slot := range r.players {
		elapsed := now.Sub(r.startTime)
		if !slot.finishTime.IsZero() {
			elapsed = slot.finishTime.Sub(r.startTime)
		}
		results = append(results, domain.RaceResult{
			UserId:     slot.conn.Id(),
			Won:        slot.conn.Id() == r.winnerId,
			WPM:        WPM(slot.typing.Position(), elapsed),
			Accuracy:   Accuracy(slot.typing.Position(), slot.typing.Errors()),
			Keystrokes: slot.typing.Keystrokes(),
			FinishedAt: now,
		})
	}

	if r.results != nil {
		go r.results.RecordRace(context.Background(), results)
	}

	r.publishDescription()
	msg := r.snapshot(msgFinished)
	msg.Winner = r.winnerId
	r.broadcast(msg)
}

// rankPlayers orders finishers by completion time, ties broken by higher
// WPM, then by join order. Players who never finished rank after all
// finishers, ordered by how far they got.
func (r *room) rankPlayers() {
	ranked := make([]*playerSlot, len(r.players))
	copy(ranked, r.players)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		aDone, bDone := !a.finishTime.IsZero(), !b.finishTime.IsZero()

		if aDone != bDone {
			return aDone
		}
		if aDone && bDone {
			if !a.finishTime.Equal(b.finishTime) {
				return a.finishTime.Before(b.finishTime)
			}
			aWPM := WPM(a.typing.Position(), a.finishTime.Sub(r.startTime))
			bWPM := WPM(b.typing.Position(), b.finishTime.Sub(r.startTime))
			if aWPM != bWPM {
				return aWPM > bWPM
			}
			return a.joinedAt.Before(b.joinedAt)
		}
		if a.typing.Position() != b.typing.Position() {
			return a.typing.Position() > b.typing.Position()
		}
		return a.joinedAt.Before(b.joinedAt)
	})

	for i, slot := range ranked {
		slot.rank = i + 1
	}
}

func (r *room) allFinished() bool {
	for _, slot := range r.players {
		if slot.typing == nil || !slot.typing.Finished() {
			return false
		}
	}
	return len(r.players) > 0
}

func (r *room) findSlot(playerId string) *playerSlot {
	for _, slot := range r.players {
		if slot.conn.Id() == playerId {
			return slot
		}
	}
	return nil
}

func (r *room) playerViews() []playerView {
	now := r.clock()
	views := make([]playerView, 0, len(r.players))
	for _, slot := range r.players {
		view := playerView{
			Id:      slot.conn.Id(),
			Name:    slot.conn.Username(),
			IsHost:  slot.isHost,
			IsReady: slot.isReady,
			Rank:    slot.rank,
		}
		if slot.typing != nil {
			elapsed := now.Sub(r.startTime)
			if !slot.finishTime.IsZero() {
				elapsed = slot.finishTime.Sub(r.startTime)
				view.FinishTime = slot.finishTime.UnixMilli()
			}
			view.Position = slot.typing.Position()
			view.Errors = slot.typing.Errors()
			view.Progress = slot.typing.Progress()
			view.WPM = WPM(slot.typing.Position(), elapsed)
			view.Accuracy = Accuracy(slot.typing.Position(), slot.typing.Errors())
			view.Finished = slot.typing.Finished()
		}
		views = append(views, view)
	}
	return views
}

func (r *room) snapshot(msgType string) serverMessage {
	settings := r.settings
	return serverMessage{
		Type:     msgType,
		RoomId:   r.id,
		Code:     r.code,
		Status:   r.status,
		Settings: &settings,
		Players:  r.playerViews(),
	}
}

func (r *room) sendState() {
	r.broadcast(r.snapshot(msgState))
}

func (r *room) sendProgress() {
	r.broadcast(serverMessage{
		Type:    msgProgress,
		RoomId:  r.id,
		Players: r.playerViews(),
	})
}

func (r *room) sendError(slot *playerSlot, code string) {
	msg, _ := json.Marshal(serverMessage{Type: msgError, RoomId: r.id, Error: code})
	slot.conn.Send(msg)
}

func (r *room) broadcast(msg serverMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		logger.Criticalf("broadcast marshal failed: %v", err)
		return
	}
	for _, slot := range r.players {
		slot.conn.Send(data)
	}
}

func (r *room) publishDescription() {
	if r.parentLobby != nil {
		r.parentLobby.RequestUpdateDescription(r.Description())
	}
}

func (r *room) markPresence(playerId string, in bool) {
	if r.presence == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		r.presence.SetInMultiplayer(ctx, playerId, in)
	}()
}
