package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queueSum(q *chunkQueue) int {
	total := 0
	for _, c := range q.items[q.head:] {
		total += len(c)
	}
	return total
}

func TestChunkQueueOrder(t *testing.T) {
	var q chunkQueue
	q.pushBack([]byte{1})
	q.pushBack([]byte{2, 2})
	q.pushBack([]byte{3, 3, 3})

	assert.Equal(t, 3, q.Len())
	assert.Equal(t, 6, q.size)

	assert.Equal(t, []byte{1}, q.popFront())
	assert.Equal(t, []byte{2, 2}, q.popFront())
	assert.Equal(t, 3, q.size)
	assert.Equal(t, []byte{3, 3, 3}, q.popFront())

	assert.Zero(t, q.Len())
	assert.Zero(t, q.size)
	assert.Zero(t, q.head)
}

func TestChunkQueuePushFront(t *testing.T) {
	var q chunkQueue

	// Empty queue with head at zero takes the prepend path
	q.pushFront([]byte{9})
	q.pushBack([]byte{1, 1})
	q.pushFront([]byte{8, 8})
	assert.Equal(t, []byte{8, 8}, q.popFront())
	assert.Equal(t, []byte{9}, q.popFront())

	// After a pop the freed head slot is reused
	q.pushBack([]byte{2})
	first := q.popFront()
	q.pushFront(first[1:])
	assert.Equal(t, []byte{1}, q.popFront())
	assert.Equal(t, []byte{2}, q.popFront())
	assert.Zero(t, q.size)
}

func TestChunkQueueCompacts(t *testing.T) {
	var q chunkQueue
	for i := 0; i < 200; i++ {
		q.pushBack([]byte{byte(i)})
	}
	for i := 0; i < 150; i++ {
		require.Equal(t, byte(i), q.popFront()[0])
	}
	require.Equal(t, 150, q.head)

	q.pushBack([]byte{200})

	assert.Zero(t, q.head)
	assert.Equal(t, 51, q.Len())
	assert.Equal(t, queueSum(&q), q.size)
	assert.Equal(t, byte(150), q.popFront()[0])
}
