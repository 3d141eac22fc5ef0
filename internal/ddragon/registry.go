package ddragon

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"
)

// Registry maps numeric champion IDs (as used by the League client) to
// catalog entries of the latest game version
type Registry struct {
	client    *Client
	champions map[int]Champion
	version   string
	mu        sync.RWMutex
	loaded    bool
}

// NewRegistry creates an empty registry backed by client
func NewRegistry(client *Client) *Registry {
	return &Registry{
		client:    client,
		champions: make(map[int]Champion),
	}
}

// Load fetches the latest version and its champion catalog
func (r *Registry) Load(ctx context.Context) error {
	versions, err := r.client.FetchVersions(ctx)
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		return fmt.Errorf("no versions available")
	}

	list, err := r.client.FetchChampions(ctx, versions[0])
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.champions = make(map[int]Champion, len(list.Data))
	for id, champ := range list.Data {
		key, err := strconv.Atoi(champ.Key)
		if err != nil {
			continue
		}
		if champ.ID == "" {
			champ.ID = id
		}
		r.champions[key] = champ
	}

	r.version = versions[0]
	r.loaded = true
	log.Printf("[DataDragon] Loaded %d champions (v%s)", len(r.champions), r.version)
	return nil
}

// Lookup returns the catalog entry for a numeric champion ID
func (r *Registry) Lookup(key int) (Champion, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	champ, ok := r.champions[key]
	return champ, ok
}

// Version returns the loaded game version
func (r *Registry) Version() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// IsLoaded returns whether the registry has been loaded
func (r *Registry) IsLoaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}
