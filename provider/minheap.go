// minheap.go adapts the teacher's generic min-heap (originally used for
// ristretto's policy eviction scoring) into the top-R directory-frequency
// selector used at startup (spec.md §4.6 "Persistence": "selects the
// top-R frequencies as the initial resident set").
package provider

// comparable is implemented by heap elements ordered by Less.
type comparable[T any] interface {
	Less(other *T) bool
}

// minHeap is a binary min-heap over *T, used here as a bounded top-R
// selector: entries are pushed one at a time until the heap holds a fixed
// capacity; after that a new entry replaces the minimum only if it is
// larger, leaving the R largest entries seen so far.
type minHeap[T comparable[T]] struct {
	items []*T
}

func newMinHeap[T comparable[T]]() *minHeap[T] {
	return &minHeap[T]{}
}

func (h *minHeap[T]) Insert(item *T) {
	h.items = append(h.items, item)
	h.heapifyUp(len(h.items) - 1)
}

func (h *minHeap[T]) Extract() (*T, bool) {
	if len(h.items) == 0 {
		return nil, false
	}

	min := h.items[0]
	last := len(h.items) - 1
	h.items[0] = h.items[last]
	h.items = h.items[:last]

	if len(h.items) > 0 {
		h.heapifyDown(0)
	}

	return min, true
}

func (h *minHeap[T]) Peek() (*T, bool) {
	if len(h.items) == 0 {
		return nil, false
	}
	return h.items[0], true
}

func (h *minHeap[T]) Size() int {
	return len(h.items)
}

func (h *minHeap[T]) heapifyUp(index int) {
	for index > 0 {
		parent := (index - 1) / 2
		if !(*h.items[index]).Less(h.items[parent]) {
			break
		}
		h.items[parent], h.items[index] = h.items[index], h.items[parent]
		index = parent
	}
}

func (h *minHeap[T]) heapifyDown(index int) {
	for {
		smallest := index
		left := 2*index + 1
		right := 2*index + 2

		if left < len(h.items) && (*h.items[left]).Less(h.items[smallest]) {
			smallest = left
		}
		if right < len(h.items) && (*h.items[right]).Less(h.items[smallest]) {
			smallest = right
		}
		if smallest == index {
			break
		}
		h.items[index], h.items[smallest] = h.items[smallest], h.items[index]
		index = smallest
	}
}
