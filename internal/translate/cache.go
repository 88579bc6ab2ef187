package translate

import (
	"container/list"
	"sync"
	"unicode/utf8"
)

// Cache is an LRU translation cache with fuzzy lookup. OCR output for
// the same on-screen text jitters between frames, so an exact-match
// cache would keep re-translating near-identical strings; lookups fall
// back to the most recently used entry within the similarity threshold.
type Cache struct {
	mu         sync.Mutex
	size       int
	similarity float64
	order      *list.List
	entries    map[string]*list.Element
}

type cacheEntry struct {
	source      string
	translation string
}

// NewCache creates a cache holding at most size entries. similarity is
// the minimum Levenshtein similarity (0.0-1.0) for a fuzzy hit; 1.0
// disables fuzzy matching.
func NewCache(size int, similarity float64) *Cache {
	if size <= 0 {
		size = 1000
	}
	return &Cache{
		size:       size,
		similarity: similarity,
		order:      list.New(),
		entries:    make(map[string]*list.Element),
	}
}

// Get looks up a translation, exact match first, then fuzzy in MRU
// order. A hit refreshes the entry's recency.
func (c *Cache) Get(source string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[source]; ok {
		c.order.MoveToFront(el)
		return el.Value.(*cacheEntry).translation, true
	}

	if c.similarity >= 1.0 {
		return "", false
	}

	for el := c.order.Front(); el != nil; el = el.Next() {
		entry := el.Value.(*cacheEntry)
		if Similarity(source, entry.source) >= c.similarity {
			c.order.MoveToFront(el)
			return entry.translation, true
		}
	}
	return "", false
}

// Put stores a translation, evicting the least recently used entry
// when the cache is full.
func (c *Cache) Put(source, translation string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[source]; ok {
		el.Value.(*cacheEntry).translation = translation
		c.order.MoveToFront(el)
		return
	}

	el := c.order.PushFront(&cacheEntry{source: source, translation: translation})
	c.entries[source] = el

	for c.order.Len() > c.size {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).source)
	}
}

// Len returns the number of cached entries
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Similarity returns the normalized Levenshtein similarity of two
// strings: 1.0 for identical, 0.0 for completely different.
func Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la == 0 || lb == 0 {
		return 0.0
	}

	longest := la
	if lb > longest {
		longest = lb
	}
	return 1.0 - float64(levenshtein(a, b))/float64(longest)
}

// levenshtein computes edit distance over runes with a two-row table
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
