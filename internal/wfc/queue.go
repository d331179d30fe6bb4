package wfc

import "container/heap"

// cellQueue orders live cells by ascending domain size. Ties go to the
// lowest arena index so a fixed seed always visits cells in the same order.
// Callers must Fix a cell after changing its domain.
type cellQueue struct {
	grid *Grid
	heap []int // arena indices in heap order
	pos  []int // arena index -> position in heap, -1 when absent
}

func newCellQueue(g *Grid) *cellQueue {
	q := &cellQueue{
		grid: g,
		heap: make([]int, 0, g.Len()),
		pos:  make([]int, g.Len()),
	}
	for i := range q.pos {
		q.pos[i] = -1
	}
	return q
}

// Push adds a cell; pushing a cell that is already queued re-keys it
func (q *cellQueue) Push(idx int) {
	if q.pos[idx] >= 0 {
		q.Fix(idx)
		return
	}
	heap.Push((*cellHeap)(q), idx)
}

// Peek returns the live cell with the smallest domain, or -1 if empty
func (q *cellQueue) Peek() int {
	if len(q.heap) == 0 {
		return -1
	}
	return q.heap[0]
}

// Pop removes and returns the smallest cell, or -1 if empty
func (q *cellQueue) Pop() int {
	if len(q.heap) == 0 {
		return -1
	}
	return heap.Pop((*cellHeap)(q)).(int)
}

// Fix restores ordering after the cell's domain changed
func (q *cellQueue) Fix(idx int) {
	if p := q.pos[idx]; p >= 0 {
		heap.Fix((*cellHeap)(q), p)
	}
}

// Contains reports whether the cell is still queued
func (q *cellQueue) Contains(idx int) bool {
	return q.pos[idx] >= 0
}

// Len returns the number of live cells
func (q *cellQueue) Len() int {
	return len(q.heap)
}

// cellHeap implements heap.Interface on top of cellQueue
type cellHeap cellQueue

func (h *cellHeap) Len() int { return len(h.heap) }

func (h *cellHeap) Less(i, j int) bool {
	a, b := h.heap[i], h.heap[j]
	la, lb := len(h.grid.Cells[a].Domain), len(h.grid.Cells[b].Domain)
	if la != lb {
		return la < lb
	}
	return a < b
}

func (h *cellHeap) Swap(i, j int) {
	h.heap[i], h.heap[j] = h.heap[j], h.heap[i]
	h.pos[h.heap[i]] = i
	h.pos[h.heap[j]] = j
}

func (h *cellHeap) Push(x any) {
	idx := x.(int)
	h.pos[idx] = len(h.heap)
	h.heap = append(h.heap, idx)
}

func (h *cellHeap) Pop() any {
	n := len(h.heap)
	idx := h.heap[n-1]
	h.heap = h.heap[:n-1]
	h.pos[idx] = -1
	return idx
}
