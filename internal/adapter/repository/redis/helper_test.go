package redis

import (
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	redislib "github.com/redis/go-redis/v9"
)

// newTestRedisClient starts a miniredis server that lives as long as the test.
// Closing the returned server early simulates an outage.
func newTestRedisClient(t *testing.T) (*redislib.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redislib.NewClient(&redislib.Options{
		Addr:       mr.Addr(),
		MaxRetries: -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	return client, mr
}

// rawList returns the stored payloads of a list key, oldest first.
func rawList(t *testing.T, mr *miniredis.Miniredis, key string) []string {
	t.Helper()

	if !mr.Exists(key) {
		return nil
	}
	items, err := mr.List(key)
	if err != nil {
		t.Fatalf("read list %s: %v", key, err)
	}
	return items
}
