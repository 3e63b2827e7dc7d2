package logger

import (
	"strconv"
	"strings"
	"sync"
)

// sampler lets num out of every den events through. A zero ratio lets
// everything through.
type sampler struct {
	mu       sync.Mutex
	num, den int
	seen     int
}

func (s *sampler) set(num, den int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if num <= 0 || den <= 0 {
		num, den = 0, 0
	}
	if num > den {
		num = den
	}
	s.num, s.den, s.seen = num, den, 0
}

func (s *sampler) allow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.den == 0 {
		return true
	}
	pos := s.seen % s.den
	s.seen++
	return pos < s.num
}

// parseRatio reads "num/den" or a bare "den" meaning one in den. "off",
// "all" and "0" disable sampling and yield 0, 0.
func parseRatio(raw string) (num, den int, ok bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	switch raw {
	case "":
		return 0, 0, false
	case "off", "all", "0":
		return 0, 0, true
	}
	if a, b, found := strings.Cut(raw, "/"); found {
		n, err1 := strconv.Atoi(strings.TrimSpace(a))
		d, err2 := strconv.Atoi(strings.TrimSpace(b))
		if err1 != nil || err2 != nil || n <= 0 || d <= 0 {
			return 0, 0, false
		}
		return n, d, true
	}
	d, err := strconv.Atoi(raw)
	if err != nil || d <= 0 {
		return 0, 0, false
	}
	return 1, d, true
}
