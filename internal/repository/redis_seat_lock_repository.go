package repository

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	pkgredis "github.com/unnisamohammad/cinehub-backend/pkg/redis"
	"github.com/unnisamohammad/cinehub-backend/pkg/telemetry"
)

//go:embed scripts/release_seat.lua
var releaseSeatScript string

var releaseSeat = redis.NewScript(releaseSeatScript)

// RedisSeatLockRepository implements SeatLockRepository on Redis. A lock is
// a string key holding the owner's user id with the hold TTL; a per-user set
// indexes the seats a user holds on a show so bulk release does not scan.
type RedisSeatLockRepository struct {
	client *pkgredis.Client
}

// NewRedisSeatLockRepository creates a new RedisSeatLockRepository
func NewRedisSeatLockRepository(client *pkgredis.Client) *RedisSeatLockRepository {
	return &RedisSeatLockRepository{client: client}
}

func seatLockKey(showID, seatID int64) string {
	return fmt.Sprintf("seat:lock:%d:%d", showID, seatID)
}

func userSeatsKey(showID, userID int64) string {
	return fmt.Sprintf("user:seats:%d:%d", showID, userID)
}

// Acquire takes the seat lock with SETNX semantics. The per-user index is
// maintained best-effort after the lock is held and carries the same TTL so
// it never outlives the locks it indexes.
func (r *RedisSeatLockRepository) Acquire(ctx context.Context, showID, seatID, userID int64, ttl time.Duration) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.seat_lock.acquire")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("show_id", showID),
		attribute.Int64("seat_id", seatID),
		attribute.Int64("user_id", userID),
	)

	ok, err := r.client.SetNX(ctx, seatLockKey(showID, seatID), strconv.FormatInt(userID, 10), ttl).Result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("failed to acquire seat lock: %w", err)
	}
	if !ok {
		span.SetAttributes(attribute.Bool("acquired", false))
		span.SetStatus(codes.Ok, "")
		return false, nil
	}

	indexKey := userSeatsKey(showID, userID)
	if err := r.client.SAdd(ctx, indexKey, seatID).Err(); err != nil {
		// The lock is already held but the caller sees a failure and will
		// never roll this seat back; undo the take before reporting
		r.client.Del(ctx, seatLockKey(showID, seatID))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("failed to index seat lock: %w", err)
	}
	if err := r.client.Expire(ctx, indexKey, ttl).Err(); err != nil {
		r.client.Del(ctx, seatLockKey(showID, seatID))
		r.client.SRem(ctx, indexKey, seatID)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("failed to expire seat index: %w", err)
	}

	span.SetAttributes(attribute.Bool("acquired", true))
	span.SetStatus(codes.Ok, "")
	return true, nil
}

// Release deletes the lock only when the stored owner matches, in a single
// scripted round trip. A plain read-then-delete would race the TTL.
func (r *RedisSeatLockRepository) Release(ctx context.Context, showID, seatID, userID int64) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.seat_lock.release")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("show_id", showID),
		attribute.Int64("seat_id", seatID),
		attribute.Int64("user_id", userID),
	)

	keys := []string{seatLockKey(showID, seatID), userSeatsKey(showID, userID)}
	err := releaseSeat.Run(ctx, r.client, keys,
		strconv.FormatInt(userID, 10),
		strconv.FormatInt(seatID, 10),
	).Err()
	if err != nil && err != redis.Nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to release seat lock: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// ReleaseAll releases every lock indexed for the user on the show
func (r *RedisSeatLockRepository) ReleaseAll(ctx context.Context, showID, userID int64) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.seat_lock.release_all")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("show_id", showID),
		attribute.Int64("user_id", userID),
	)

	seatIDs, err := r.ListOwned(ctx, showID, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	for _, seatID := range seatIDs {
		if err := r.Release(ctx, showID, seatID, userID); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	}

	span.SetAttributes(attribute.Int("released", len(seatIDs)))
	span.SetStatus(codes.Ok, "")
	return nil
}

// ForceRelease deletes a seat lock regardless of owner, removing the index
// entry if the lock existed
func (r *RedisSeatLockRepository) ForceRelease(ctx context.Context, showID, seatID int64) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.seat_lock.force_release")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("show_id", showID),
		attribute.Int64("seat_id", seatID),
	)

	key := seatLockKey(showID, seatID)
	owner, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		span.SetStatus(codes.Ok, "")
		return nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to read seat lock: %w", err)
	}

	if err := r.client.Del(ctx, key).Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to delete seat lock: %w", err)
	}

	if ownerID, perr := strconv.ParseInt(owner, 10, 64); perr == nil {
		if err := r.client.SRem(ctx, userSeatsKey(showID, ownerID), seatID).Err(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("failed to unindex seat lock: %w", err)
		}
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// ListLocked scans the show's lock keyspace and returns the locked seat ids
func (r *RedisSeatLockRepository) ListLocked(ctx context.Context, showID int64) ([]int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.seat_lock.list_locked")
	defer span.End()

	span.SetAttributes(attribute.Int64("show_id", showID))

	pattern := fmt.Sprintf("seat:lock:%d:*", showID)
	prefix := fmt.Sprintf("seat:lock:%d:", showID)

	var seatIDs []int64
	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		seatID, err := strconv.ParseInt(iter.Val()[len(prefix):], 10, 64)
		if err != nil {
			continue
		}
		seatIDs = append(seatIDs, seatID)
	}
	if err := iter.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to scan seat locks: %w", err)
	}

	span.SetAttributes(attribute.Int("locked", len(seatIDs)))
	span.SetStatus(codes.Ok, "")
	return seatIDs, nil
}

// ListOwned returns the seat ids in the user's index set. Entries whose lock
// already expired are filtered out so callers never release stale members.
func (r *RedisSeatLockRepository) ListOwned(ctx context.Context, showID, userID int64) ([]int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.seat_lock.list_owned")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("show_id", showID),
		attribute.Int64("user_id", userID),
	)

	members, err := r.client.SMembers(ctx, userSeatsKey(showID, userID)).Result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to read user seat index: %w", err)
	}

	owner := strconv.FormatInt(userID, 10)
	var seatIDs []int64
	for _, member := range members {
		seatID, perr := strconv.ParseInt(member, 10, 64)
		if perr != nil {
			continue
		}
		val, gerr := r.client.Get(ctx, seatLockKey(showID, seatID)).Result()
		if gerr == redis.Nil || (gerr == nil && val != owner) {
			continue
		}
		if gerr != nil {
			span.RecordError(gerr)
			span.SetStatus(codes.Error, gerr.Error())
			return nil, fmt.Errorf("failed to read seat lock: %w", gerr)
		}
		seatIDs = append(seatIDs, seatID)
	}

	span.SetStatus(codes.Ok, "")
	return seatIDs, nil
}

// IsAvailable reports whether no live lock exists on the seat
func (r *RedisSeatLockRepository) IsAvailable(ctx context.Context, showID, seatID int64) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.seat_lock.is_available")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("show_id", showID),
		attribute.Int64("seat_id", seatID),
	)

	n, err := r.client.Exists(ctx, seatLockKey(showID, seatID)).Result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("failed to check seat lock: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return n == 0, nil
}
