package game

import (
	"context"
	"encoding/json"
	"sync"

	"golang.org/x/time/rate"
)

type player struct {
	id          string
	username    string
	rateLimiter *rate.Limiter
	socket      NetworkSession
	outbox      chan []byte
	pingChan    chan struct{}
	done        chan struct{}
	closeOnce   sync.Once

	roomMu sync.RWMutex
	room   Room
}

// NewPlayer wraps an accepted connection. The rate limit bounds keystroke
// events per second, generous for human typing and stingy for bots.
func NewPlayer(id, username string, socket NetworkSession) *player {
	return &player{
		id:          id,
		username:    username,
		rateLimiter: rate.NewLimiter(30, 60),
		socket:      socket,
		outbox:      make(chan []byte, 256),
		pingChan:    make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
}

func (p *player) Id() string {
	return p.id
}

func (p *player) Username() string {
	return p.username
}

func (p *player) SetRoom(r Room) {
	p.roomMu.Lock()
	p.room = r
	p.roomMu.Unlock()
}

func (p *player) currentRoom() Room {
	p.roomMu.RLock()
	defer p.roomMu.RUnlock()
	return p.room
}

// Send enqueues a frame for the write pump. A full outbox means the client
// stopped reading, the frame is dropped rather than stalling the room actor.
func (p *player) Send(data []byte) error {
	select {
	case <-p.done:
		return ErrPlayerGone
	case p.outbox <- data:
		return nil
	default:
		return nil
	}
}

func (p *player) Ping() {
	select {
	case p.pingChan <- struct{}{}:
	default:
	}
}

func (p *player) CancelAndRelease() {
	p.closeOnce.Do(func() {
		close(p.done)
		p.socket.Close("")
	})
}

func (p *player) ReadPump() {
	for {
		data, err := p.socket.Read()
		if err != nil {
			break
		}

		if !p.rateLimiter.Allow() {
			continue
		}

		var event clientEvent
		if err := json.Unmarshal(data, &event); err != nil {
			continue
		}

		room := p.currentRoom()
		if room == nil {
			continue
		}

		if event.Type == eventLeave {
			break
		}

		room.Send(context.Background(), clientEventEnvelope{event: event, from: p})
	}

	if room := p.currentRoom(); room != nil {
		room.RemoveMe(context.Background(), p)
	}
	p.CancelAndRelease()
}

func (p *player) WritePump() {
loop:
	for {
		select {
		case <-p.done:
			break loop
		case data := <-p.outbox:
			if err := p.socket.Write(data); err != nil {
				break loop
			}
		case <-p.pingChan:
			if err := p.socket.Ping(); err != nil {
				break loop
			}
		}
	}
	p.CancelAndRelease()
}
