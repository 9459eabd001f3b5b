package render

import (
	"container/list"
	"sync"
)

// presetCache is an LRU of render presets keyed by collection id.
type presetCache struct {
	capacity int
	entries  map[string]*list.Element
	lru      *list.List
	mu       sync.Mutex
}

type presetEntry struct {
	collection string
	presets    []Preset
}

func newPresetCache(capacity int) *presetCache {
	return &presetCache{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		lru:      list.New(),
	}
}

func (c *presetCache) get(collection string) ([]Preset, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[collection]; ok {
		c.lru.MoveToFront(elem)
		return elem.Value.(*presetEntry).presets, true
	}
	return nil, false
}

func (c *presetCache) set(collection string, presets []Preset) {
	if c.capacity <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[collection]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*presetEntry).presets = presets
		return
	}
	c.entries[collection] = c.lru.PushFront(&presetEntry{collection: collection, presets: presets})
	if c.lru.Len() > c.capacity {
		oldest := c.lru.Back()
		c.lru.Remove(oldest)
		delete(c.entries, oldest.Value.(*presetEntry).collection)
	}
}
