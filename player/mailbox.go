// SPDX-License-Identifier: EPL-2.0

package player

// mailbox holds at most one pending value; a newer Put replaces an unread
// one.
type mailbox[T any] struct {
	ch chan T
}

func newMailbox[T any]() mailbox[T] {
	return mailbox[T]{ch: make(chan T, 1)}
}

func (m mailbox[T]) Put(v T) {
	for {
		select {
		case m.ch <- v:
			return
		default:
		}
		select {
		case <-m.ch:
		default:
		}
	}
}

func (m mailbox[T]) Take() (T, bool) {
	select {
	case v := <-m.ch:
		return v, true
	default:
		var zero T
		return zero, false
	}
}
