package notification

import (
	"sync"
	"sync/atomic"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
)

type intakeNode struct {
	next  atomic.Pointer[intakeNode]
	value model.Notification
}

// IntakeQueue неупорядоченная очередь приёма: много писателей, один читатель.
// Push не берёт блокировок и никогда не ждёт.
type IntakeQueue struct {
	head atomic.Pointer[intakeNode] // сюда добавляют писатели
	tail *intakeNode                // отсюда читает читатель, под drainMu
	size atomic.Int64

	drainMu sync.Mutex
}

func NewIntakeQueue() *IntakeQueue {
	stub := &intakeNode{}
	q := &IntakeQueue{tail: stub}
	q.head.Store(stub)
	return q
}

// Push добавляет уведомление. Безопасен для вызова из любого числа горутин.
func (q *IntakeQueue) Push(n model.Notification) {
	node := &intakeNode{value: n}
	prev := q.head.Swap(node)
	prev.next.Store(node)
	q.size.Add(1)
}

// Drain забирает всё, что уже полностью добавлено, и передаёт в fn по одному.
// Элемент, чей писатель ещё не закончил Push, останется до следующего вызова.
func (q *IntakeQueue) Drain(fn func(model.Notification)) int {
	q.drainMu.Lock()
	defer q.drainMu.Unlock()

	drained := 0
	for {
		next := q.tail.next.Load()
		if next == nil {
			return drained
		}

		value := next.value
		next.value = model.Notification{}
		q.tail = next
		q.size.Add(-1)

		fn(value)
		drained++
	}
}

// Len приблизительный размер очереди
func (q *IntakeQueue) Len() int {
	if n := q.size.Load(); n > 0 {
		return int(n)
	}
	return 0
}
