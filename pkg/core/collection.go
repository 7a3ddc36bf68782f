package core

import (
	"sync"

	"github.com/google/uuid"
)

// Collection owns every document the session has ever activated, keyed by a
// stable identifier. Documents that are no longer active stay here so the
// surrounding UI can offer them again.
type Collection struct {
	mu    sync.RWMutex
	docs  map[string]*Document
	order []string
}

// NewCollection creates an empty collection.
func NewCollection() *Collection {
	return &Collection{docs: make(map[string]*Document)}
}

// Add registers doc, assigning an identifier when it has none.
// It returns false if the document was already present.
func (c *Collection) Add(doc *Document) bool {
	if doc == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if _, ok := c.docs[doc.ID]; ok {
		return false
	}
	c.docs[doc.ID] = doc
	c.order = append(c.order, doc.ID)
	return true
}

// Get returns the document with the given identifier.
func (c *Collection) Get(id string) (*Document, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	doc, ok := c.docs[id]
	return doc, ok
}

// Contains reports whether id is owned by the collection.
func (c *Collection) Contains(id string) bool {
	_, ok := c.Get(id)
	return ok
}

// Remove drops a document from the collection.
func (c *Collection) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.docs[id]; !ok {
		return false
	}
	delete(c.docs, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// IDs returns identifiers in insertion order.
func (c *Collection) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.order...)
}

// Len returns the number of documents.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}
