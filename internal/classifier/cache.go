package classifier

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	cache "github.com/patrickmn/go-cache"

	"github.com/yourusername/hoopcal/internal/models"
)

// CacheKey identifies a cached raw prediction
type CacheKey struct {
	GameID       uuid.UUID
	ModelVersion string
}

// String returns the string representation of the cache key
func (k CacheKey) String() string {
	return fmt.Sprintf("%s:%s", k.GameID, k.ModelVersion)
}

// PredictionCache provides in-memory caching for raw classifier predictions.
// Raw probabilities for a given game and model version never change, so
// entries only expire to bound memory.
type PredictionCache struct {
	cache   *cache.Cache
	ttl     time.Duration
	maxSize int

	mu        sync.RWMutex
	hitCount  uint64
	missCount uint64
}

// NewPredictionCache creates a prediction cache with the given TTL and size limit
func NewPredictionCache(ttl time.Duration, maxSize int) *PredictionCache {
	return &PredictionCache{
		cache:   cache.New(ttl, ttl*2),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// Get retrieves a cached prediction, or nil on a miss
func (pc *PredictionCache) Get(key CacheKey) *models.RawPrediction {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if result, found := pc.cache.Get(key.String()); found {
		if pred, ok := result.(*models.RawPrediction); ok {
			pc.hitCount++
			return pred
		}
	}

	pc.missCount++
	return nil
}

// Set stores a prediction, evicting expired entries when the size limit is hit
func (pc *PredictionCache) Set(key CacheKey, prediction *models.RawPrediction) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if pc.cache.ItemCount() >= pc.maxSize {
		pc.cache.DeleteExpired()
	}
	pc.cache.Set(key.String(), prediction, pc.ttl)
}

// InvalidateVersion removes all entries produced by a given model version.
// Called when the classifier is redeployed with a new model.
func (pc *PredictionCache) InvalidateVersion(modelVersion string) int {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	suffix := ":" + modelVersion
	removed := 0
	for key := range pc.cache.Items() {
		if strings.HasSuffix(key, suffix) {
			pc.cache.Delete(key)
			removed++
		}
	}
	return removed
}

// Stats returns cumulative hit and miss counts
func (pc *PredictionCache) Stats() (hits, misses uint64) {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.hitCount, pc.missCount
}

// Len returns the number of cached entries
func (pc *PredictionCache) Len() int {
	return pc.cache.ItemCount()
}
