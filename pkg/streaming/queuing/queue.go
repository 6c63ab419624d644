package queuing

// record is a queued chunk with the size it was accounted at.
type record[T any] struct {
	value T
	size  float64
}

// Queue is an ordered sequence of chunks with a running total size.
//
// Queue is not safe for concurrent use; it is owned by exactly one stream and
// guarded by that stream's lock.
type Queue[T any] struct {
	records []record[T]
	total   float64
}

// NewQueue creates an empty queue.
func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{}
}

// Enqueue appends value with the given size.
func (q *Queue[T]) Enqueue(value T, size float64) {
	q.records = append(q.records, record[T]{value: value, size: size})
	q.total += size
}

// Dequeue removes and returns the oldest value.
func (q *Queue[T]) Dequeue() (T, bool) {
	var zero T
	if len(q.records) == 0 {
		return zero, false
	}

	r := q.records[0]
	q.records[0] = record[T]{} // Clear reference
	q.records = q.records[1:]
	q.total -= r.size
	if len(q.records) == 0 || q.total < 0 {
		// Floating point drift must never leave a phantom size behind.
		q.total = 0
		for _, rest := range q.records {
			q.total += rest.size
		}
	}
	return r.value, true
}

// Peek returns the oldest value without removing it.
func (q *Queue[T]) Peek() (T, bool) {
	var zero T
	if len(q.records) == 0 {
		return zero, false
	}
	return q.records[0].value, true
}

// Len returns the number of queued values.
func (q *Queue[T]) Len() int {
	return len(q.records)
}

// TotalSize returns the sum of the sizes of all queued values.
func (q *Queue[T]) TotalSize() float64 {
	return q.total
}

// Reset drops every queued value and returns them in order.
func (q *Queue[T]) Reset() []T {
	values := make([]T, len(q.records))
	for i, r := range q.records {
		values[i] = r.value
	}
	q.records = nil
	q.total = 0
	return values
}
