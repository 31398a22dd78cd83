package cache

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var ErrKeyExists = errors.New("key already exists in cache")

// Cache is a weight-bounded LRU cache. Entries optionally expire after a
// fixed time to live.
type Cache interface {
	SetVerbose(verbose bool)
	GetWeight() int
	GetBudget() int
	Insert(key string, value interface{}, weight int) error
	Upsert(key string, value interface{}, weight int)
	Retrieve(key string) (interface{}, bool)
	Delete(key string) bool
	Clear()
}

type cacheNode struct {
	next      *cacheNode
	prev      *cacheNode
	key       string
	value     interface{}
	weight    int
	expiresAt time.Time
}

type cache struct {
	log *logrus.Entry

	mutex   sync.Mutex
	head    *cacheNode
	tail    *cacheNode
	lookup  map[string]*cacheNode
	weight  int
	budget  int
	ttl     time.Duration
	verbose bool

	now func() time.Time
}

// NewCache returns a cache whose entries never expire
func NewCache(budget int) Cache {
	return NewCacheWithTTL(budget, 0)
}

// NewCacheWithTTL returns a cache whose entries expire ttl after they were
// written. A zero ttl disables expiry.
func NewCacheWithTTL(budget int, ttl time.Duration) Cache {
	return &cache{
		log:    logrus.StandardLogger().WithField("type", "cache"),
		lookup: make(map[string]*cacheNode),
		budget: budget,
		ttl:    ttl,
		now:    time.Now,
	}
}

func (c *cache) SetVerbose(verbose bool) {
	c.mutex.Lock()
	c.verbose = verbose
	c.mutex.Unlock()
}

func (c *cache) GetWeight() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.weight
}

func (c *cache) GetBudget() int {
	return c.budget
}

// Insert adds a new item, failing with ErrKeyExists if a live entry already
// exists for the key. Least recently used items are evicted until the cache
// is within budget.
func (c *cache) Insert(key string, value interface{}, weight int) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if node, found := c.lookup[key]; found {
		if !c.isExpired(node) {
			return ErrKeyExists
		}
		c.remove(node)
	}

	c.pushFront(key, value, weight)
	return nil
}

// Upsert adds or replaces the item for key
func (c *cache) Upsert(key string, value interface{}, weight int) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if node, found := c.lookup[key]; found {
		c.remove(node)
	}

	c.pushFront(key, value, weight)
}

// Retrieve returns the live item for key, marking it as recently used
func (c *cache) Retrieve(key string) (interface{}, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	node, found := c.lookup[key]
	if !found {
		return nil, false
	}
	if c.isExpired(node) {
		c.remove(node)
		return nil, false
	}

	if node != c.head {
		c.unlink(node)
		c.linkFront(node)
	}

	return node.value, true
}

// Delete removes the item for key, reporting whether it was present
func (c *cache) Delete(key string) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	node, found := c.lookup[key]
	if !found {
		return false
	}
	c.remove(node)
	return true
}

func (c *cache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.head = nil
	c.tail = nil
	c.lookup = make(map[string]*cacheNode)
	c.weight = 0
}

func (c *cache) isExpired(node *cacheNode) bool {
	return !node.expiresAt.IsZero() && !c.now().Before(node.expiresAt)
}

func (c *cache) pushFront(key string, value interface{}, weight int) {
	node := &cacheNode{
		key:    key,
		value:  value,
		weight: weight,
	}
	if c.ttl > 0 {
		node.expiresAt = c.now().Add(c.ttl)
	}

	c.linkFront(node)
	c.lookup[key] = node
	c.weight += weight

	for c.weight > c.budget && c.tail != nil {
		evicted := c.tail
		c.remove(evicted)

		if c.verbose {
			c.log.WithFields(logrus.Fields{
				"key":          evicted.key,
				"weight":       evicted.weight,
				"spare_weight": c.budget - c.weight,
			}).Debug("evicted cache entry")
		}
	}
}

func (c *cache) remove(node *cacheNode) {
	c.unlink(node)
	delete(c.lookup, node.key)
	c.weight -= node.weight
}

func (c *cache) linkFront(node *cacheNode) {
	node.prev = nil
	node.next = c.head
	if c.head != nil {
		c.head.prev = node
	}
	c.head = node
	if c.tail == nil {
		c.tail = node
	}
}

func (c *cache) unlink(node *cacheNode) {
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		c.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		c.tail = node.prev
	}
	node.next = nil
	node.prev = nil
}
