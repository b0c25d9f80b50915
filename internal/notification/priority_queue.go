package notification

import (
	"container/heap"
	"sync"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
)

type queuedNotification struct {
	notification model.Notification
	seq          uint64
}

// notificationHeap min-куча: меньший приоритет раньше, при равенстве - порядок поступления
type notificationHeap []queuedNotification

func (h notificationHeap) Len() int { return len(h) }

func (h notificationHeap) Less(i, j int) bool {
	if h[i].notification.Priority != h[j].notification.Priority {
		return h[i].notification.Priority < h[j].notification.Priority
	}
	return h[i].seq < h[j].seq
}

func (h notificationHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *notificationHeap) Push(x any) {
	*h = append(*h, x.(queuedNotification))
}

func (h *notificationHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = queuedNotification{}
	*h = old[:n-1]
	return item
}

// PriorityQueue упорядоченная очередь доставки
type PriorityQueue struct {
	mu    sync.Mutex
	items notificationHeap
	seq   uint64
}

func NewPriorityQueue() *PriorityQueue {
	return &PriorityQueue{}
}

func (q *PriorityQueue) Push(n model.Notification) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.seq++
	heap.Push(&q.items, queuedNotification{notification: n, seq: q.seq})
}

// Pop извлекает самое срочное уведомление; false если очередь пуста
func (q *PriorityQueue) Pop() (model.Notification, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return model.Notification{}, false
	}
	item := heap.Pop(&q.items).(queuedNotification)
	return item.notification, true
}

func (q *PriorityQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
