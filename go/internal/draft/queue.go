package draft

import (
	"bytes"
	"sort"

	"github.com/google/uuid"
	"github.com/mcdev12/auctiondraft/go/internal/models"
)

// ItemQueue hands out the remaining catalog items of one league, most expensive first.
// It is owned by a single session actor and is not safe for concurrent use.
type ItemQueue struct {
	items []*models.Item
}

// NewItemQueue builds the queue from the league catalog. Items already on a roster, already
// sold, or already resolved in this session are left out so a restarted session resumes
// where the persisted state says it stopped.
func NewItemQueue(catalog []models.Item, assigned map[uuid.UUID]bool, resolved []uuid.UUID) *ItemQueue {
	skip := make(map[uuid.UUID]bool, len(assigned)+len(resolved))
	for id, ok := range assigned {
		if ok {
			skip[id] = true
		}
	}
	for _, id := range resolved {
		skip[id] = true
	}

	q := &ItemQueue{}
	for i := range catalog {
		item := catalog[i]
		if item.Sold || skip[item.ID] {
			continue
		}
		q.items = append(q.items, &item)
	}
	sort.SliceStable(q.items, func(i, j int) bool {
		return less(q.items[i], q.items[j])
	})
	return q
}

func less(a, b *models.Item) bool {
	if a.BasePrice != b.BasePrice {
		return a.BasePrice > b.BasePrice
	}
	if a.CatalogPosition != b.CatalogPosition {
		return a.CatalogPosition < b.CatalogPosition
	}
	return bytes.Compare(a.ID[:], b.ID[:]) < 0
}

// Peek returns the item Next would return without removing it.
func (q *ItemQueue) Peek() (*models.Item, bool) {
	if len(q.items) == 0 {
		return nil, false
	}
	return q.items[0], true
}

// Next removes and returns the highest priced remaining item.
func (q *ItemQueue) Next() (*models.Item, bool) {
	item, ok := q.Peek()
	if !ok {
		return nil, false
	}
	q.items = q.items[1:]
	return item, true
}

// Remove drops an item, e.g. the current item picked up on recovery.
func (q *ItemQueue) Remove(id uuid.UUID) (*models.Item, bool) {
	for i, item := range q.items {
		if item.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return item, true
		}
	}
	return nil, false
}

// Len returns the number of items still to be auctioned.
func (q *ItemQueue) Len() int {
	return len(q.items)
}
