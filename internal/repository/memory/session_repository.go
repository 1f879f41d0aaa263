package memory

import (
	"sync"
	"time"

	"intelligencehub-console/internal/repository/contract"

	"github.com/patrickmn/go-cache"
)

// ConsoleRepository keeps one console per browser, evicting idle ones after ttl.
type ConsoleRepository struct {
	cache *cache.Cache
	// createMu makes GetOrCreate atomic; reads go straight to the cache.
	createMu sync.Mutex
}

func NewConsoleRepository(ttl time.Duration) *ConsoleRepository {
	if ttl <= 0 {
		ttl = 1 * time.Hour
	}
	// Purge expired items every 10 minutes, or faster for short TTLs
	cleanup := 10 * time.Minute
	if ttl < cleanup {
		cleanup = ttl / 2
	}
	c := cache.New(ttl, cleanup)
	c.OnEvicted(func(_ string, v interface{}) {
		if console, ok := v.(*contract.Console); ok && console.Release != nil {
			console.Release()
		}
	})
	return &ConsoleRepository{
		cache: c,
	}
}

func (r *ConsoleRepository) GetOrCreate(id string, create func() *contract.Console) (*contract.Console, bool) {
	if console, ok := r.Get(id); ok {
		return console, false
	}

	r.createMu.Lock()
	defer r.createMu.Unlock()

	if console, ok := r.Get(id); ok {
		return console, false
	}
	console := create()
	r.cache.Set(id, console, cache.DefaultExpiration)
	return console, true
}

// Get slides the idle expiry of the console it returns.
func (r *ConsoleRepository) Get(id string) (*contract.Console, bool) {
	x, found := r.cache.Get(id)
	if !found {
		return nil, false
	}
	console := x.(*contract.Console)
	r.cache.Set(id, console, cache.DefaultExpiration)
	return console, true
}

func (r *ConsoleRepository) Delete(id string) {
	r.cache.Delete(id)
}

func (r *ConsoleRepository) Count() int {
	return r.cache.ItemCount()
}
