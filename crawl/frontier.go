package crawl

import (
	"container/heap"
	"sync"

	"github.com/fwojciec/siteqa/bloom"
)

// Frontier sizing for the run-local seen set.
const (
	frontierExpectedURLs      = 10000
	frontierFalsePositiveRate = 0.01
)

// Item is a URL waiting to be fetched.
type Item struct {
	URL   string
	Depth int
}

// Frontier is a breadth-first crawl queue: items pop in ascending depth,
// and in insertion order within a depth. Every URL is queued at most once
// per run. It is safe for concurrent use by multiple goroutines.
type Frontier struct {
	mu    sync.Mutex
	seen  *bloom.Set
	queue *itemHeap
	seq   uint64
}

// NewFrontier creates a new Frontier sized for n expected URLs
// with the given false positive rate for the Bloom pre-check.
func NewFrontier(n uint, fpRate float64) *Frontier {
	h := &itemHeap{}
	heap.Init(h)
	return &Frontier{
		seen:  bloom.NewSet(n, fpRate),
		queue: h,
	}
}

// Push queues an item. It returns false if the URL was already seen in
// this run. URLs must be normalized by the caller.
func (f *Frontier) Push(item Item) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.seen.Add(item.URL) {
		return false
	}
	f.seq++
	heap.Push(f.queue, queued{Item: item, seq: f.seq})
	return true
}

// MarkSeen records a URL as seen without queuing it.
func (f *Frontier) MarkSeen(url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen.Add(url)
}

// Pop returns the shallowest, oldest item.
// The bool result is false if the frontier is empty.
func (f *Frontier) Pop() (Item, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.queue.Len() == 0 {
		return Item{}, false
	}
	q, _ := heap.Pop(f.queue).(queued)
	return q.Item, true
}

// Len returns the number of queued items.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queue.Len()
}

// Seen returns true if the URL has been queued or marked in this run.
func (f *Frontier) Seen(url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seen.Contains(url)
}

type queued struct {
	Item
	seq uint64
}

// itemHeap orders queued items by depth, then insertion sequence.
type itemHeap []queued

func (h itemHeap) Len() int { return len(h) }

func (h itemHeap) Less(i, j int) bool {
	if h[i].Depth != h[j].Depth {
		return h[i].Depth < h[j].Depth
	}
	return h[i].seq < h[j].seq
}

func (h itemHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *itemHeap) Push(x any) {
	q, _ := x.(queued)
	*h = append(*h, q)
}

func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}
