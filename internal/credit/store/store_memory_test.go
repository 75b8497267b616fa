package store

import "testing"

func TestInMemoryStore(t *testing.T) {
	runStoreContract(t, func(*testing.T) creditStore {
		return NewInMemory()
	})
}
