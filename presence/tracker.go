package presence

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/niedraa/typevision-server/logger"
	"github.com/redis/go-redis/v9"
)

const (
	StateOnline  = "online"
	StateOffline = "offline"

	keyPrefix = "presence:"
)

var ErrNotTracked = errors.New("presence-not-tracked")

// Record mirrors the per-player presence entry the mobile clients used to
// keep in the realtime database.
type Record struct {
	State         string    `json:"state"`
	LastSeen      time.Time `json:"lastSeen"`
	InMultiplayer bool      `json:"inMultiplayer"`
}

// Tracker stores presence records in Redis and garbage-collects the stale
// ones. Deletion is best-effort: ghosts can linger until the next sweep.
type Tracker struct {
	rdb        redis.UniversalClient
	staleAfter time.Duration
	sweepEvery time.Duration
	clock      func() time.Time
}

func NewTracker(rdb redis.UniversalClient) *Tracker {
	return &Tracker{
		rdb:        rdb,
		staleAfter: 10 * time.Minute,
		sweepEvery: 2 * time.Minute,
		clock:      time.Now,
	}
}

func key(playerId string) string {
	return keyPrefix + playerId
}

func (t *Tracker) set(ctx context.Context, playerId, state string) error {
	return t.rdb.HSet(ctx, key(playerId),
		"state", state,
		"lastSeen", t.clock().UnixMilli(),
	).Err()
}

func (t *Tracker) Online(ctx context.Context, playerId string) error {
	return t.set(ctx, playerId, StateOnline)
}

func (t *Tracker) Offline(ctx context.Context, playerId string) error {
	return t.set(ctx, playerId, StateOffline)
}

// Heartbeat refreshes lastSeen without touching the state field.
func (t *Tracker) Heartbeat(ctx context.Context, playerId string) error {
	return t.rdb.HSet(ctx, key(playerId), "lastSeen", t.clock().UnixMilli()).Err()
}

// SetInMultiplayer shields a player's record from the sweeper while they
// are seated in a room.
func (t *Tracker) SetInMultiplayer(ctx context.Context, playerId string, in bool) {
	err := t.rdb.HSet(ctx, key(playerId), "inMultiplayer", strconv.FormatBool(in)).Err()
	if err != nil {
		logger.Warningf("presence inMultiplayer update failed for %s: %v", playerId, err)
	}
}

func (t *Tracker) Get(ctx context.Context, playerId string) (Record, error) {
	fields, err := t.rdb.HGetAll(ctx, key(playerId)).Result()
	if err != nil {
		return Record{}, err
	}
	if len(fields) == 0 {
		return Record{}, ErrNotTracked
	}
	return recordFromFields(fields), nil
}

func recordFromFields(fields map[string]string) Record {
	rec := Record{State: fields["state"]}
	if ms, err := strconv.ParseInt(fields["lastSeen"], 10, 64); err == nil {
		rec.LastSeen = time.UnixMilli(ms)
	}
	rec.InMultiplayer = fields["inMultiplayer"] == "true"
	return rec
}

// Sweep deletes records older than the staleness threshold that are not
// flagged inMultiplayer. Returns how many records were removed.
func (t *Tracker) Sweep(ctx context.Context) (int, error) {
	deleted := 0
	cutoff := t.clock().Add(-t.staleAfter)

	iter := t.rdb.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		k := iter.Val()
		fields, err := t.rdb.HGetAll(ctx, k).Result()
		if err != nil || len(fields) == 0 {
			continue
		}
		rec := recordFromFields(fields)
		if rec.InMultiplayer || rec.LastSeen.After(cutoff) {
			continue
		}
		if err := t.rdb.Del(ctx, k).Err(); err == nil {
			deleted++
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, err
	}
	return deleted, nil
}

// Run sweeps on an interval until the context is cancelled.
func (t *Tracker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := t.Sweep(ctx)
			if err != nil {
				logger.Warningf("presence sweep failed: %v", err)
				continue
			}
			if deleted > 0 {
				logger.Infof("presence sweep removed %d stale records", deleted)
			}
		}
	}
}
