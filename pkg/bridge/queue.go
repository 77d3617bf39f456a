// ABOUTME: FIFO of variable-length PCM chunks
// ABOUTME: Supports append at tail, pop and reinsert at head, and an O(1) byte total
package bridge

// compactThreshold is how many consumed head slots are tolerated before
// the backing slice is shifted down
const compactThreshold = 64

// chunkQueue holds PCM chunks in arrival order.
// size always equals the sum of the queued chunk lengths.
type chunkQueue struct {
	items [][]byte
	head  int
	size  int
}

// Len returns the number of queued chunks
func (q *chunkQueue) Len() int {
	return len(q.items) - q.head
}

// pushBack appends a chunk at the tail
func (q *chunkQueue) pushBack(chunk []byte) {
	if q.head >= compactThreshold && q.head*2 >= len(q.items) {
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
	q.items = append(q.items, chunk)
	q.size += len(chunk)
}

// popFront removes and returns the head chunk. The queue must not be empty.
func (q *chunkQueue) popFront() []byte {
	chunk := q.items[q.head]
	q.items[q.head] = nil
	q.head++
	q.size -= len(chunk)

	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	}
	return chunk
}

// pushFront reinserts a chunk at the head
func (q *chunkQueue) pushFront(chunk []byte) {
	if q.head > 0 {
		q.head--
		q.items[q.head] = chunk
	} else {
		q.items = append(q.items, nil)
		copy(q.items[1:], q.items)
		q.items[0] = chunk
	}
	q.size += len(chunk)
}
