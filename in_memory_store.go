package pvec

import (
	"context"
	"fmt"
	"sync"
)

type inMemoryStore struct {
	entries map[string][]byte
	l       sync.Mutex
	stores  int
}

// NewInMemoryStore provides a Persist that keeps encoded nodes in a map,
// usually for testing.
func NewInMemoryStore() Persist {
	return &inMemoryStore{entries: map[string][]byte{}}
}

func (ims *inMemoryStore) Store(ctx context.Context, name string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ims.l.Lock()
	ims.entries[name] = value
	ims.stores++
	ims.l.Unlock()
	return nil
}

func (ims *inMemoryStore) Load(ctx context.Context, name string) ([]byte, error) {
	ims.l.Lock()
	value, ok := ims.entries[name]
	ims.l.Unlock()
	if !ok {
		return nil, fmt.Errorf("inMemoryStore entry not found for %s", name)
	}
	return value, nil
}

// counts returns how many distinct nodes are held and how many Store calls
// were made.
func (ims *inMemoryStore) counts() (entries, stores int) {
	ims.l.Lock()
	defer ims.l.Unlock()
	return len(ims.entries), ims.stores
}
