package repofake

import (
	"sync"

	"github.com/ctrlcompliance/admin-console/devicetrust"
)

var _ devicetrust.Store = (*FakeStore)(nil)

// FakeStore is an in-memory Store for tests.
type FakeStore struct {
	mu     sync.Mutex
	marker *devicetrust.Marker
}

func NewFakeStore() *FakeStore {
	return &FakeStore{}
}

func (fs *FakeStore) Get() (*devicetrust.Marker, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.marker == nil {
		return nil, nil
	}
	m := *fs.marker
	return &m, nil
}

func (fs *FakeStore) Set(m devicetrust.Marker) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.marker = &m
	return nil
}

func (fs *FakeStore) Clear() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.marker = nil
	return nil
}
