package redis

import "github.com/redis/rueidis"

// NewStoreForTest wraps a mock client.
func NewStoreForTest(c rueidis.Client) *Store {
	return &Store{client: c}
}
