package priority_queue_test

import (
	"testing"

	"github.com/parc-forge/athena/std/types/priority_queue"
	"github.com/stretchr/testify/assert"
)

// This function tests the basic operations of a priority queue by adding elements with varying priorities, verifying the queue length, and ensuring elements are popped in ascending priority order (lowest numerical priority first). 

// Example: Validates that a priority queue correctly adds, peeks, and removes elements based on their assigned priorities.
func TestBasics(t *testing.T) {
	q := priority_queue.New[int, int]()
	assert.Equal(t, 0, q.Len())
	q.Push(1, 1)
	q.Push(2, 3)
	q.Push(3, 2)
	assert.Equal(t, 3, q.Len())
	assert.Equal(t, 1, q.PeekPriority())
	assert.Equal(t, 1, q.Pop())
	assert.Equal(t, 2, q.PeekPriority())
	assert.Equal(t, 3, q.Pop())
	assert.Equal(t, 2, q.Pop())
	assert.Equal(t, 0, q.Len())
}

// Removing an item that hasn't reached the front yet must not disturb the
// relative order of the remaining items (mirrors retiring a PIT entry on
// cancellation before its expiration would naturally pop it).
func TestRemoveMidQueue(t *testing.T) {
	q := priority_queue.New[string, int]()
	a := q.Push("a", 1)
	_ = q.Push("b", 2)
	c := q.Push("c", 3)

	q.Remove(a)
	assert.Equal(t, 2, q.Len())
	assert.Equal(t, "b", q.Pop())
	assert.Equal(t, "c", q.Pop())

	// Removing twice is a safe no-op.
	q.Remove(a)
	q.Remove(c)
}
