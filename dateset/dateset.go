// Package dateset implements an immutable ordered set of calendar dates
// backed by a bit vector.
//
// Bit i of the vector is set when the date anchor+i days belongs to the set.
// The anchor is the minimum element, so a set spanning a few years of service
// costs a few hundred bytes and every neighbour query is a word scan.
//
//	s := dateset.New([]civil.Date{d3, d1, d2, d1})
//	s.Len()             // 3
//	first, _ := s.First() // d1
//	next, ok := s.Higher(d1)
//	for d := range s.Backward() { ... }
//
// The mutating half of the ordered-set contract exists only so that callers
// written against it fail loudly: Add, Remove, Clear, PollFirst and PollLast
// always return ErrUnsupportedOperation.
package dateset

import (
	"errors"
	"fmt"
	"iter"
	"math/bits"

	"cloud.google.com/go/civil"
)

var (
	// ErrEmptyCollection is returned by First and Last on an empty set.
	ErrEmptyCollection = errors.New("dateset: empty collection")
	// ErrUnsupportedOperation is returned by every mutating method.
	ErrUnsupportedOperation = errors.New("dateset: unsupported operation on immutable set")
)

const wordBits = 64

// DateSet is safe for concurrent use since it never changes after New.
type DateSet struct {
	anchor civil.Date
	words  []uint64
	n      int
}

var empty = &DateSet{}

// Empty returns the empty set.
func Empty() *DateSet { return empty }

// New builds a set from dates in any order. Duplicates are collapsed.
func New(dates []civil.Date) *DateSet {
	if len(dates) == 0 {
		return empty
	}
	lo, hi := dates[0], dates[0]
	for _, d := range dates[1:] {
		if d.Before(lo) {
			lo = d
		}
		if d.After(hi) {
			hi = d
		}
	}
	span := hi.DaysSince(lo) + 1
	s := &DateSet{anchor: lo, words: make([]uint64, (span+wordBits-1)/wordBits)}
	for _, d := range dates {
		off := d.DaysSince(lo)
		mask := uint64(1) << (off % wordBits)
		if s.words[off/wordBits]&mask == 0 {
			s.words[off/wordBits] |= mask
			s.n++
		}
	}
	return s
}

func (s *DateSet) Len() int      { return s.n }
func (s *DateSet) IsEmpty() bool { return s.n == 0 }

// BitSize is the number of bits backing the set.
func (s *DateSet) BitSize() int { return len(s.words) * wordBits }

func (s *DateSet) Contains(d civil.Date) bool {
	if s.n == 0 {
		return false
	}
	off := d.DaysSince(s.anchor)
	return s.test(off)
}

func (s *DateSet) ContainsAll(dates []civil.Date) bool {
	for _, d := range dates {
		if !s.Contains(d) {
			return false
		}
	}
	return true
}

// First returns the minimum date, or ErrEmptyCollection.
func (s *DateSet) First() (civil.Date, error) {
	i := s.nextSet(0)
	if i < 0 {
		return civil.Date{}, ErrEmptyCollection
	}
	return s.at(i), nil
}

// Last returns the maximum date, or ErrEmptyCollection.
func (s *DateSet) Last() (civil.Date, error) {
	i := s.prevSet(s.BitSize() - 1)
	if i < 0 {
		return civil.Date{}, ErrEmptyCollection
	}
	return s.at(i), nil
}

// Higher returns the least element strictly after d.
func (s *DateSet) Higher(d civil.Date) (civil.Date, bool) {
	return s.from(s.offset(d) + 1)
}

// Ceiling returns the least element on or after d.
func (s *DateSet) Ceiling(d civil.Date) (civil.Date, bool) {
	return s.from(s.offset(d))
}

// Lower returns the greatest element strictly before d.
func (s *DateSet) Lower(d civil.Date) (civil.Date, bool) {
	return s.upTo(s.offset(d) - 1)
}

// Floor returns the greatest element on or before d.
func (s *DateSet) Floor(d civil.Date) (civil.Date, bool) {
	return s.upTo(s.offset(d))
}

// SubSet returns the elements between from and to. Each bound is included
// when its flag is set. Bounds outside the set, or an inverted range, give
// an empty set.
func (s *DateSet) SubSet(from civil.Date, fromInclusive bool, to civil.Date, toInclusive bool) *DateSet {
	if s.n == 0 {
		return empty
	}
	var lo, hi civil.Date
	var ok bool
	if fromInclusive {
		lo, ok = s.Ceiling(from)
	} else {
		lo, ok = s.Higher(from)
	}
	if !ok {
		return empty
	}
	if toInclusive {
		hi, ok = s.Floor(to)
	} else {
		hi, ok = s.Lower(to)
	}
	if !ok || hi.Before(lo) {
		return empty
	}
	return s.slice(lo, hi)
}

// HeadSet returns the elements before to, including to when inclusive.
func (s *DateSet) HeadSet(to civil.Date, inclusive bool) *DateSet {
	first, err := s.First()
	if err != nil {
		return empty
	}
	return s.SubSet(first, true, to, inclusive)
}

// TailSet returns the elements after from, including from when inclusive.
func (s *DateSet) TailSet(from civil.Date, inclusive bool) *DateSet {
	last, err := s.Last()
	if err != nil {
		return empty
	}
	return s.SubSet(from, inclusive, last, true)
}

// All yields the dates in ascending order.
func (s *DateSet) All() iter.Seq[civil.Date] {
	return func(yield func(civil.Date) bool) {
		for i := s.nextSet(0); i >= 0; i = s.nextSet(i + 1) {
			if !yield(s.at(i)) {
				return
			}
		}
	}
}

// Backward yields the dates in descending order.
func (s *DateSet) Backward() iter.Seq[civil.Date] {
	return func(yield func(civil.Date) bool) {
		for i := s.prevSet(s.BitSize() - 1); i >= 0; i = s.prevSet(i - 1) {
			if !yield(s.at(i)) {
				return
			}
		}
	}
}

func (s *DateSet) Add(civil.Date) error    { return ErrUnsupportedOperation }
func (s *DateSet) Remove(civil.Date) error { return ErrUnsupportedOperation }
func (s *DateSet) Clear() error            { return ErrUnsupportedOperation }

func (s *DateSet) PollFirst() (civil.Date, error) { return civil.Date{}, ErrUnsupportedOperation }
func (s *DateSet) PollLast() (civil.Date, error)  { return civil.Date{}, ErrUnsupportedOperation }

func (s *DateSet) String() string {
	first, err := s.First()
	if err != nil {
		return "DateSet[]"
	}
	last, _ := s.Last()
	return fmt.Sprintf("DateSet[%s..%s, %d dates]", first, last, s.n)
}

func (s *DateSet) at(i int) civil.Date { return s.anchor.AddDays(i) }

// offset is only meaningful for a non-empty set; callers clamp the result.
func (s *DateSet) offset(d civil.Date) int {
	if s.n == 0 {
		return 0
	}
	return d.DaysSince(s.anchor)
}

func (s *DateSet) from(off int) (civil.Date, bool) {
	if off < 0 {
		off = 0
	}
	i := s.nextSet(off)
	if i < 0 {
		return civil.Date{}, false
	}
	return s.at(i), true
}

func (s *DateSet) upTo(off int) (civil.Date, bool) {
	i := s.prevSet(off)
	if i < 0 {
		return civil.Date{}, false
	}
	return s.at(i), true
}

func (s *DateSet) test(off int) bool {
	if off < 0 || off >= s.BitSize() {
		return false
	}
	return s.words[off/wordBits]&(uint64(1)<<(off%wordBits)) != 0
}

// nextSet returns the index of the first set bit at or after i, or -1.
func (s *DateSet) nextSet(i int) int {
	if i < 0 {
		i = 0
	}
	if i >= s.BitSize() {
		return -1
	}
	w := i / wordBits
	word := s.words[w] & (^uint64(0) << (i % wordBits))
	for {
		if word != 0 {
			return w*wordBits + bits.TrailingZeros64(word)
		}
		w++
		if w == len(s.words) {
			return -1
		}
		word = s.words[w]
	}
}

// prevSet returns the index of the last set bit at or before i, or -1.
func (s *DateSet) prevSet(i int) int {
	if i < 0 {
		return -1
	}
	if i >= s.BitSize() {
		i = s.BitSize() - 1
	}
	if i < 0 {
		return -1
	}
	w := i / wordBits
	word := s.words[w] & (^uint64(0) >> (wordBits - 1 - i%wordBits))
	for {
		if word != 0 {
			return w*wordBits + wordBits - 1 - bits.LeadingZeros64(word)
		}
		w--
		if w < 0 {
			return -1
		}
		word = s.words[w]
	}
}

// slice copies the bits for [lo, hi] into a new set anchored at lo.
// Both bounds must be members.
func (s *DateSet) slice(lo, hi civil.Date) *DateSet {
	a := lo.DaysSince(s.anchor)
	span := hi.DaysSince(lo) + 1
	out := make([]uint64, (span+wordBits-1)/wordBits)
	w, shift := a/wordBits, uint(a%wordBits)
	for i := range out {
		v := s.words[w+i] >> shift
		if shift != 0 && w+i+1 < len(s.words) {
			v |= s.words[w+i+1] << (wordBits - shift)
		}
		out[i] = v
	}
	if rem := span % wordBits; rem != 0 {
		out[len(out)-1] &= uint64(1)<<rem - 1
	}
	n := 0
	for _, v := range out {
		n += bits.OnesCount64(v)
	}
	return &DateSet{anchor: lo, words: out, n: n}
}
