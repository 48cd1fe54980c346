package game

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/niedraa/typevision-server/domain"
	"github.com/stretchr/testify/mock"
)

// --- UniqueIdGenerator ---

type MockUniqueIdGenerator struct {
	mock.Mock
}

func (m *MockUniqueIdGenerator) Generate() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockUniqueIdGenerator) GenerateCode() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockUniqueIdGenerator) Dispose(id string) {
	m.Called(id)
}

func (m *MockUniqueIdGenerator) DisposeCode(code string) {
	m.Called(code)
}

// --- PeriodicTickerChannelCreator ---

type MockPeriodicTickerChannelCreator struct {
	mock.Mock
}

func (m *MockPeriodicTickerChannelCreator) Create(duration time.Duration) <-chan time.Time {
	args := m.Called(duration)
	return args.Get(0).(chan time.Time)
}

// --- TextSource ---

type MockTextSource struct {
	mock.Mock
}

func (m *MockTextSource) GetRandomText(ctx context.Context, language, difficulty string) (domain.RaceText, error) {
	args := m.Called(ctx, language, difficulty)
	return args.Get(0).(domain.RaceText), args.Error(1)
}

// --- ResultsRecorder ---

type MockResultsRecorder struct {
	mock.Mock
}

func (m *MockResultsRecorder) RecordRace(ctx context.Context, results []domain.RaceResult) {
	m.Called(ctx, results)
}

// --- UserGetter ---

type MockUserGetter struct {
	mock.Mock
}

func (m *MockUserGetter) GetUserById(ctx context.Context, id string) (domain.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.User), args.Error(1)
}

// --- NetworkSession ---

type MockNetworkSession struct {
	mock.Mock
}

func (m *MockNetworkSession) Close(errCode string) {
	m.Called(errCode)
}

func (m *MockNetworkSession) Write(data []byte) error {
	args := m.Called(data)
	return args.Error(0)
}

func (m *MockNetworkSession) Read() ([]byte, error) {
	args := m.Called()
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockNetworkSession) Ping() error {
	args := m.Called()
	return args.Error(0)
}

// --- LobbyService ---

type MockLobbyService struct {
	mock.Mock
}

func (m *MockLobbyService) RequestAddAndRunRoom(ctx context.Context, r Room) {
	m.Called(ctx, r)
}

func (m *MockLobbyService) ForwardPlayerJoinRequestToRoom(ctx context.Context, jreq roomJoinRequest) {
	m.Called(ctx, jreq)
}

func (m *MockLobbyService) ForwardPlayerJoinRequestByCode(ctx context.Context, jreq roomJoinRequest) {
	m.Called(ctx, jreq)
}

func (m *MockLobbyService) GetPublicGames(ctx context.Context) []roomDescription {
	args := m.Called(ctx)
	return args.Get(0).([]roomDescription)
}

func (m *MockLobbyService) FindQuickMatch(ctx context.Context, playerId, difficulty string) (string, error) {
	args := m.Called(ctx, playerId, difficulty)
	return args.String(0), args.Error(1)
}

// --- Room ---

type MockRoom struct {
	mock.Mock
}

func (m *MockRoom) Send(ctx context.Context, e clientEventEnvelope) {
	m.Called(ctx, e)
}

func (m *MockRoom) RequestJoin(jreq roomJoinRequest) {
	m.Called(jreq)
}

func (m *MockRoom) RemoveMe(ctx context.Context, p Player) {
	m.Called(ctx, p)
}

func (m *MockRoom) Tick(now time.Time) {
	m.Called(now)
}

func (m *MockRoom) PingPlayers() {
	m.Called()
}

func (m *MockRoom) GameLoop() {
	m.Called()
}

func (m *MockRoom) CloseAndRelease() {
	m.Called()
}

func (m *MockRoom) Description() roomDescription {
	args := m.Called()
	return args.Get(0).(roomDescription)
}

func (m *MockRoom) SetParentLobby(l Lobby) {
	m.Called(l)
}

func (m *MockRoom) SetIdentity(id, code string) {
	m.Called(id, code)
}

// --- hand-rolled fakes for actor tests ---

// fakePlayer records every frame the room sends it.
type fakePlayer struct {
	id       string
	username string

	mu       sync.Mutex
	frames   []serverMessage
	room     Room
	released bool
	pings    int
}

func newFakePlayer(id, username string) *fakePlayer {
	return &fakePlayer{id: id, username: username}
}

func (p *fakePlayer) Id() string       { return p.id }
func (p *fakePlayer) Username() string { return p.username }

func (p *fakePlayer) Send(data []byte) error {
	var msg serverMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return err
	}
	p.mu.Lock()
	p.frames = append(p.frames, msg)
	p.mu.Unlock()
	return nil
}

func (p *fakePlayer) Ping() {
	p.mu.Lock()
	p.pings++
	p.mu.Unlock()
}

func (p *fakePlayer) SetRoom(r Room) {
	p.mu.Lock()
	p.room = r
	p.mu.Unlock()
}

func (p *fakePlayer) CancelAndRelease() {
	p.mu.Lock()
	p.released = true
	p.mu.Unlock()
}

func (p *fakePlayer) lastOfType(msgType string) (serverMessage, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.frames) - 1; i >= 0; i-- {
		if p.frames[i].Type == msgType {
			return p.frames[i], true
		}
	}
	return serverMessage{}, false
}

func (p *fakePlayer) wasReleased() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.released
}

// fakeClock is a settable clock for driving countdowns deterministically.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// fakeTextSource avoids mock bookkeeping in room tests.
type fakeTextSource struct {
	text string
	err  error
}

func (f *fakeTextSource) GetRandomText(ctx context.Context, language, difficulty string) (domain.RaceText, error) {
	if f.err != nil {
		return domain.RaceText{}, f.err
	}
	return domain.RaceText{Content: f.text, Language: language, Difficulty: difficulty}, nil
}

// fakeRecorder captures race results across goroutines.
type fakeRecorder struct {
	mu      sync.Mutex
	results [][]domain.RaceResult
}

func (f *fakeRecorder) RecordRace(ctx context.Context, results []domain.RaceResult) {
	f.mu.Lock()
	f.results = append(f.results, results)
	f.mu.Unlock()
}

func (f *fakeRecorder) recorded() [][]domain.RaceResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]domain.RaceResult, len(f.results))
	copy(out, f.results)
	return out
}

// fakeLobby only needs to observe RemoveRoom and description updates.
type fakeLobby struct {
	mu      sync.Mutex
	removed []string
	descs   []roomDescription
}

func (f *fakeLobby) RequestAddAndRunRoom(ctx context.Context, r Room) {}

func (f *fakeLobby) ForwardPlayerJoinRequestToRoom(ctx context.Context, jreq roomJoinRequest) {}

func (f *fakeLobby) RequestUpdateDescription(desc roomDescription) {
	f.mu.Lock()
	f.descs = append(f.descs, desc)
	f.mu.Unlock()
}

func (f *fakeLobby) RemoveRoom(roomId string) {
	f.mu.Lock()
	f.removed = append(f.removed, roomId)
	f.mu.Unlock()
}

func (f *fakeLobby) removedRooms() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.removed))
	copy(out, f.removed)
	return out
}
