package game

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"
)

// Idgen hands out room ids and human-readable 6-digit join codes.
// Codes are few enough to collide, so issued ones are tracked until the
// room is disposed.
type Idgen struct {
	codes  map[string]struct{}
	locker sync.Mutex
}

func NewIdGen() Idgen {
	return Idgen{codes: make(map[string]struct{})}
}

func (ig *Idgen) Generate() string {
	return uuid.NewString()
}

func (ig *Idgen) Dispose(id string) {
	// uuids are not recycled
}

func (ig *Idgen) GenerateCode() string {
	ig.locker.Lock()
	defer ig.locker.Unlock()

	for {
		code := fmt.Sprintf("%06d", rand.IntN(1000000))
		if _, taken := ig.codes[code]; !taken {
			ig.codes[code] = struct{}{}
			return code
		}
	}
}

func (ig *Idgen) DisposeCode(code string) {
	ig.locker.Lock()
	defer ig.locker.Unlock()
	delete(ig.codes, code)
}
