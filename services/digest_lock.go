package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Locker takes a non-blocking named lock. ok is false when someone else holds
// it; release must be called exactly once when ok is true.
type Locker interface {
	TryLock(ctx context.Context, key string) (release func(), ok bool, err error)
}

func digestLockName(userID uint) string {
	return fmt.Sprintf("taskboard:digest:user:%d", userID)
}

// MySQLLocker uses GET_LOCK. MySQL named locks belong to a session, so lock
// and release run on the same pinned connection.
type MySQLLocker struct {
	db *sql.DB
}

func NewMySQLLocker(db *sql.DB) *MySQLLocker {
	return &MySQLLocker{db: db}
}

func (l *MySQLLocker) TryLock(ctx context.Context, key string) (func(), bool, error) {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return nil, false, err
	}

	var ok sql.NullInt64
	if err := conn.QueryRowContext(ctx, "SELECT GET_LOCK(?, 0)", key).Scan(&ok); err != nil {
		conn.Close()
		return nil, false, err
	}
	if !ok.Valid || ok.Int64 != 1 {
		conn.Close()
		return nil, false, nil
	}

	release := func() {
		defer conn.Close()
		var released sql.NullInt64
		if err := conn.QueryRowContext(context.Background(), "SELECT RELEASE_LOCK(?)", key).Scan(&released); err != nil {
			logrus.WithField("lock", key).Warnf("release lock failed: %v", err)
			return
		}
		if !released.Valid || released.Int64 != 1 {
			logrus.WithField("lock", key).Warnf("release lock returned %v", released)
		}
	}
	return release, true, nil
}

var redisUnlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLocker uses SET NX with a TTL. The token check on release keeps an
// expired holder from deleting someone else's lock.
type RedisLocker struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisLocker(rdb *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisLocker{rdb: rdb, ttl: ttl}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	release := func() {
		if err := redisUnlockScript.Run(context.Background(), l.rdb, []string{key}, token).Err(); err != nil && err != redis.Nil {
			logrus.WithField("lock", key).Warnf("release lock failed: %v", err)
		}
	}
	return release, true, nil
}
