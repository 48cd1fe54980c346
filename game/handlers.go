package game

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/niedraa/typevision-server/domain"
	"github.com/niedraa/typevision-server/logger"
)

type UserGetter interface {
	GetUserById(ctx context.Context, id string) (domain.User, error)
}

// LobbyService is what the HTTP layer needs from the lobby actor.
type LobbyService interface {
	RequestAddAndRunRoom(ctx context.Context, r Room)
	ForwardPlayerJoinRequestToRoom(ctx context.Context, jreq roomJoinRequest)
	ForwardPlayerJoinRequestByCode(ctx context.Context, jreq roomJoinRequest)
	GetPublicGames(ctx context.Context) []roomDescription
	FindQuickMatch(ctx context.Context, playerId, difficulty string) (string, error)
}

type createRoomRequest struct {
	MinPlayers int    `form:"minPlayers"`
	MaxPlayers int    `form:"maxPlayers"`
	GameMode   string `form:"gameMode"`
	Difficulty string `form:"difficulty"`
	Public     bool   `form:"public"`
	Language   string `form:"language"`
}

// RoomSummary is the public listing entry for the room browser.
type RoomSummary struct {
	Id           string     `json:"id"`
	Code         string     `json:"code"`
	Status       RoomStatus `json:"status"`
	PlayersCount int        `json:"playersCount"`
	MaxPlayers   int        `json:"maxPlayers"`
	Difficulty   string     `json:"difficulty"`
	Language     string     `json:"language"`
	CreatedAt    time.Time  `json:"createdAt"`
}

type GameHandler struct {
	lobby      LobbyService
	userGetter UserGetter
	textSource TextSource
	results    ResultsRecorder
	presence   PresenceMarker
	joinWait   time.Duration
}

func NewGameHandler(lobby LobbyService, userGetter UserGetter, textSource TextSource, results ResultsRecorder, presence PresenceMarker) *GameHandler {
	return &GameHandler{
		lobby:      lobby,
		userGetter: userGetter,
		textSource: textSource,
		results:    results,
		presence:   presence,
		joinWait:   10 * time.Second,
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are already enforced by the router middleware.
	CheckOrigin: func(r *http.Request) bool { return true },
}

func validDifficulty(d string) bool {
	return d == "easy" || d == "medium" || d == "hard"
}

func (req *createRoomRequest) validate() string {
	if req.MaxPlayers < 2 {
		return "maxPlayers must be at least 2"
	}
	if req.MaxPlayers > 10 {
		return "maxPlayers cannot exceed 10"
	}
	if req.MinPlayers > req.MaxPlayers {
		return "minPlayers cannot exceed maxPlayers"
	}
	if req.Difficulty != "" && !validDifficulty(req.Difficulty) {
		return "difficulty must be easy, medium or hard"
	}
	return ""
}

func (req *createRoomRequest) settings() RoomSettings {
	return RoomSettings{
		MinPlayers: req.MinPlayers,
		MaxPlayers: req.MaxPlayers,
		GameMode:   req.GameMode,
		Difficulty: req.Difficulty,
		IsPublic:   req.Public,
		Language:   req.Language,
	}
}

func (h *GameHandler) authedUser(ctx *gin.Context) (domain.User, bool) {
	id := ctx.GetString("id")
	if id == "" {
		logger.Criticalf("missing user id after auth middleware, ip=%s", ctx.ClientIP())
		ctx.String(http.StatusUnauthorized, "unauthenticated")
		ctx.Abort()
		return domain.User{}, false
	}

	user, err := h.userGetter.GetUserById(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			ctx.String(http.StatusUnauthorized, "unauthenticated")
		} else {
			ctx.String(http.StatusInternalServerError, "unknown-error")
		}
		ctx.Abort()
		return domain.User{}, false
	}
	return user, true
}

func (h *GameHandler) upgrade(ctx *gin.Context) (*WebsocketConnection, bool) {
	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		logger.Warningf("ws upgrade failed: %v", err)
		return nil, false
	}
	return NewWebsocketConnection(conn), true
}

func (h *GameHandler) CreateGameHandler(ctx *gin.Context) {
	user, ok := h.authedUser(ctx)
	if !ok {
		return
	}

	var req createRoomRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		ctx.String(http.StatusBadRequest, "invalid-request-format")
		return
	}
	if msg := req.validate(); msg != "" {
		ctx.String(http.StatusBadRequest, msg)
		return
	}

	socket, ok := h.upgrade(ctx)
	if !ok {
		return
	}

	p := NewPlayer(user.Id, user.Username, socket)
	go p.ReadPump()
	go p.WritePump()

	room := NewRoom(p, req.settings(), h.textSource, h.results, h.presence, nil)
	h.lobby.RequestAddAndRunRoom(ctx.Request.Context(), room)
}

func (h *GameHandler) JoinGameHandler(ctx *gin.Context) {
	user, ok := h.authedUser(ctx)
	if !ok {
		return
	}
	roomId := ctx.Param("roomid")

	socket, ok := h.upgrade(ctx)
	if !ok {
		return
	}

	p := NewPlayer(user.Id, user.Username, socket)
	go p.ReadPump()
	go p.WritePump()

	jreq := NewRoomJoinRequest(roomId, p)
	h.lobby.ForwardPlayerJoinRequestToRoom(ctx.Request.Context(), jreq)
	h.awaitJoin(jreq, socket)
}

func (h *GameHandler) JoinByCodeHandler(ctx *gin.Context) {
	user, ok := h.authedUser(ctx)
	if !ok {
		return
	}
	code := ctx.Param("code")

	socket, ok := h.upgrade(ctx)
	if !ok {
		return
	}

	p := NewPlayer(user.Id, user.Username, socket)
	go p.ReadPump()
	go p.WritePump()

	jreq := NewRoomJoinRequest(code, p)
	h.lobby.ForwardPlayerJoinRequestByCode(ctx.Request.Context(), jreq)
	h.awaitJoin(jreq, socket)
}

// QuickMatchHandler seats the player in an open public room of the wanted
// difficulty, or makes them host of a fresh one. Any failure collapses to a
// single generic error, the client just retries.
func (h *GameHandler) QuickMatchHandler(ctx *gin.Context) {
	user, ok := h.authedUser(ctx)
	if !ok {
		return
	}

	difficulty := ctx.DefaultQuery("difficulty", "medium")
	if !validDifficulty(difficulty) {
		ctx.String(http.StatusBadRequest, "difficulty must be easy, medium or hard")
		return
	}

	socket, ok := h.upgrade(ctx)
	if !ok {
		return
	}

	p := NewPlayer(user.Id, user.Username, socket)
	go p.ReadPump()
	go p.WritePump()

	roomId, err := h.lobby.FindQuickMatch(ctx.Request.Context(), user.Id, difficulty)
	if err == nil {
		jreq := NewRoomJoinRequest(roomId, p)
		h.lobby.ForwardPlayerJoinRequestToRoom(ctx.Request.Context(), jreq)

		select {
		case joinErr := <-jreq.errChan:
			if joinErr == nil {
				return
			}
			// The room filled or died between the scan and the join,
			// fall through to hosting a new one.
		case <-time.After(h.joinWait):
			socket.Close("cannot-find-or-create-room")
			return
		}
	} else if !errors.Is(err, ErrNoMatchableRoom) {
		socket.Close("cannot-find-or-create-room")
		return
	}

	settings := RoomSettings{
		MinPlayers: minPlayersToStart,
		MaxPlayers: 6,
		GameMode:   "race",
		Difficulty: difficulty,
		IsPublic:   true,
		Language:   "en",
	}
	room := NewRoom(p, settings, h.textSource, h.results, h.presence, nil)
	h.lobby.RequestAddAndRunRoom(ctx.Request.Context(), room)
}

func (h *GameHandler) awaitJoin(jreq roomJoinRequest, socket *WebsocketConnection) {
	select {
	case err := <-jreq.errChan:
		if err != nil {
			socket.Close(err.Error())
		}
	case <-time.After(h.joinWait):
		socket.Close("join-timeout")
	}
}

func (h *GameHandler) GetPublicGamesHandler(ctx *gin.Context) {
	descriptions := h.lobby.GetPublicGames(ctx.Request.Context())

	summaries := make([]RoomSummary, 0, len(descriptions))
	for _, desc := range descriptions {
		summaries = append(summaries, RoomSummary{
			Id:           desc.id,
			Code:         desc.code,
			Status:       desc.status,
			PlayersCount: desc.playersCount,
			MaxPlayers:   desc.settings.MaxPlayers,
			Difficulty:   desc.settings.Difficulty,
			Language:     desc.settings.Language,
			CreatedAt:    desc.createdAt,
		})
	}

	ctx.JSON(http.StatusOK, summaries)
}
