// stack.go provides a stack that holds elements of one type.
// The bottom element is the first entry into the stack, while the top is
// the last entry to be added to the stack.

package util

// Stack is a slice backed stack. A Stack is owned by a single lowering session and is not safe for concurrent use.
type Stack[T any] struct {
	elements []T // Entries of the stack, bottom first.
}

// Push adds a new element to the top of the stack.
func (s *Stack[T]) Push(e T) {
	s.elements = append(s.elements, e)
}

// Pop removes and returns the last inserted element on the stack.
// If the stack is empty the zero value and false are returned.
func (s *Stack[T]) Pop() (T, bool) {
	var zero T
	if len(s.elements) == 0 {
		return zero, false
	}
	e := s.elements[len(s.elements)-1]
	s.elements[len(s.elements)-1] = zero
	s.elements = s.elements[:len(s.elements)-1]
	return e, true
}

// Peek works just like Pop, but it does not remove the element from the stack.
func (s *Stack[T]) Peek() (T, bool) {
	var zero T
	if len(s.elements) == 0 {
		return zero, false
	}
	return s.elements[len(s.elements)-1], true
}

// Size returns the number of elements in the stack.
func (s *Stack[T]) Size() int {
	return len(s.elements)
}

// Get returns the nth element from the stack, top down, not zero indexed.
// Get(1) returns the first element on stack, and is similar to Peek.
// Get(Stack.Size()) returns the bottom element. If the index n is out of range
// the zero value and false are returned. Get does not remove elements from the stack.
func (s *Stack[T]) Get(n int) (T, bool) {
	var zero T
	if n < 1 || n > len(s.elements) {
		return zero, false
	}
	return s.elements[len(s.elements)-n], true
}
