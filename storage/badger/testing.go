package badger

import "github.com/poiesic/pinmatch/storage"

// NewMemoryCatalogRepository creates an in-memory catalog repository for testing.
// Closing the repository closes the underlying database.
func NewMemoryCatalogRepository() (storage.CatalogRepository, error) {
	backend, err := OpenBackend("", InMemory())
	if err != nil {
		return nil, err
	}
	repo := newCatalogRepository(backend)
	repo.ownsStore = true
	return repo, nil
}
