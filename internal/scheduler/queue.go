package scheduler

import (
	"container/heap"

	"github.com/blueteamalpha/prospector/internal/domain"
)

// queueItem wraps a message with an enqueue sequence number. The sequence
// is the final ordering tie-break, which keeps the deferred set FIFO when
// pain scores and send times collide.
type queueItem struct {
	msg *domain.CampaignMessage
	seq uint64
}

// messageHeap orders by pain score descending, then scheduled send time
// ascending, then enqueue order.
type messageHeap []*queueItem

func (h messageHeap) Len() int { return len(h) }

func (h messageHeap) Less(i, j int) bool {
	if h[i].msg.PainScore != h[j].msg.PainScore {
		return h[i].msg.PainScore > h[j].msg.PainScore
	}
	if !h[i].msg.ScheduledSendAt.Equal(h[j].msg.ScheduledSendAt) {
		return h[i].msg.ScheduledSendAt.Before(h[j].msg.ScheduledSendAt)
	}
	return h[i].seq < h[j].seq
}

func (h messageHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *messageHeap) Push(x interface{}) {
	*h = append(*h, x.(*queueItem))
}

func (h *messageHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// priorityQueue is the scheduler's pending-message queue. Not safe for
// concurrent use; the scheduler holds its own mutex around it.
type priorityQueue struct {
	items messageHeap
	seq   uint64
}

func newPriorityQueue() *priorityQueue {
	pq := &priorityQueue{}
	heap.Init(&pq.items)
	return pq
}

func (pq *priorityQueue) push(msg *domain.CampaignMessage) {
	pq.seq++
	heap.Push(&pq.items, &queueItem{msg: msg, seq: pq.seq})
}

func (pq *priorityQueue) pop() *domain.CampaignMessage {
	if pq.items.Len() == 0 {
		return nil
	}
	return heap.Pop(&pq.items).(*queueItem).msg
}

func (pq *priorityQueue) peek() *domain.CampaignMessage {
	if pq.items.Len() == 0 {
		return nil
	}
	return pq.items[0].msg
}

func (pq *priorityQueue) len() int { return pq.items.Len() }
