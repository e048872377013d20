package services

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/vsinha/storereq/pkg/domain/entities"
	"github.com/vsinha/storereq/pkg/domain/repositories"
)

// Reference is a parsed PREFIX-YYMM-NNN document code
type Reference struct {
	Prefix   string
	Year     int // full year, YY is read as 20YY
	Month    int
	Sequence int64
}

// Period returns the YYMM period of the reference
func (r Reference) Period() string {
	return formatPeriod(r.Year, r.Month)
}

// Key returns the counter key the reference was issued under
func (r Reference) Key() repositories.CounterKey {
	return repositories.CounterKey{Prefix: r.Prefix, Period: r.Period()}
}

// String formats the reference back into its code
func (r Reference) String() string {
	return fmt.Sprintf("%s-%s-%03d", r.Prefix, r.Period(), r.Sequence)
}

// SequencerOption configures a ReferenceSequencer
type SequencerOption func(*ReferenceSequencer)

// WithClock sets the clock used when Next is called with a zero date
func WithClock(now func() time.Time) SequencerOption {
	return func(s *ReferenceSequencer) {
		s.now = now
	}
}

// ReferenceSequencer issues and parses period-scoped document numbers.
// Counter values live in the injected store; the sequencer serializes
// read-increment-write per key
type ReferenceSequencer struct {
	store         repositories.CounterStore
	codePattern   *regexp.Regexp
	prefixPattern *regexp.Regexp
	now           func() time.Time

	mu       sync.Mutex
	keyLocks map[repositories.CounterKey]*sync.Mutex
}

// NewReferenceSequencer creates a sequencer backed by store
func NewReferenceSequencer(store repositories.CounterStore, opts ...SequencerOption) *ReferenceSequencer {
	s := &ReferenceSequencer{
		store: store,
		// Sequence grows past 999 without truncation, so no upper digit bound
		codePattern:   regexp.MustCompile(`^([A-Z]+)-(\d{2})(\d{2})-(\d{3,})$`),
		prefixPattern: regexp.MustCompile(`^[A-Z]+$`),
		now:           time.Now,
		keyLocks:      make(map[repositories.CounterKey]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Next returns the next code for prefix in the period of asOf.
// A zero asOf means the current date
func (s *ReferenceSequencer) Next(ctx context.Context, prefix string, asOf time.Time) (string, error) {
	if !s.prefixPattern.MatchString(prefix) {
		return "", fmt.Errorf("invalid document prefix %q: must be uppercase letters", prefix)
	}
	if asOf.IsZero() {
		asOf = s.now()
	}

	key := repositories.CounterKey{Prefix: prefix, Period: formatPeriod(asOf.Year(), int(asOf.Month()))}

	lock := s.lockFor(key)
	lock.Lock()
	seq, err := s.store.Increment(ctx, key)
	lock.Unlock()
	if err != nil {
		return "", fmt.Errorf("failed to increment counter %s: %w", key, err)
	}

	return fmt.Sprintf("%s-%s-%03d", prefix, key.Period, seq), nil
}

// Parse splits a code into its parts. Malformed codes yield an error wrapping
// entities.ErrMalformedReference; callers routinely try unknown formats
func (s *ReferenceSequencer) Parse(code string) (Reference, error) {
	matches := s.codePattern.FindStringSubmatch(code)
	if len(matches) != 5 {
		return Reference{}, fmt.Errorf("%w: %q", entities.ErrMalformedReference, code)
	}

	yy, _ := strconv.Atoi(matches[2])
	month, _ := strconv.Atoi(matches[3])
	if month < 1 || month > 12 {
		return Reference{}, fmt.Errorf("%w: %q has month %02d", entities.ErrMalformedReference, code, month)
	}

	seq, err := strconv.ParseInt(matches[4], 10, 64)
	if err != nil {
		return Reference{}, fmt.Errorf("%w: %q sequence out of range", entities.ErrMalformedReference, code)
	}

	return Reference{
		Prefix:   matches[1],
		Year:     2000 + yy,
		Month:    month,
		Sequence: seq,
	}, nil
}

// InitializeFrom raises every counter to at least the highest sequence found
// among codes. Codes that fail to parse are returned, not fatal
func (s *ReferenceSequencer) InitializeFrom(ctx context.Context, codes []string) ([]string, error) {
	var skipped []string
	highest := make(map[repositories.CounterKey]int64)

	for _, code := range codes {
		ref, err := s.Parse(code)
		if err != nil {
			skipped = append(skipped, code)
			continue
		}
		if ref.Sequence > highest[ref.Key()] {
			highest[ref.Key()] = ref.Sequence
		}
	}

	for key, value := range highest {
		lock := s.lockFor(key)
		lock.Lock()
		err := s.store.RaiseTo(ctx, key, value)
		lock.Unlock()
		if err != nil {
			return skipped, fmt.Errorf("failed to raise counter %s to %d: %w", key, value, err)
		}
	}

	return skipped, nil
}

// Compare orders codes by period, then sequence, then prefix.
// Returns: -1 if a < b, 0 if equal, 1 if a > b
func (s *ReferenceSequencer) Compare(a, b string) int {
	if a == b {
		return 0
	}

	refA, errA := s.Parse(a)
	refB, errB := s.Parse(b)

	// If either parsing fails, fall back to string comparison
	if errA != nil || errB != nil {
		return strings.Compare(a, b)
	}

	switch {
	case refA.Year != refB.Year:
		return compareInt(int64(refA.Year), int64(refB.Year))
	case refA.Month != refB.Month:
		return compareInt(int64(refA.Month), int64(refB.Month))
	case refA.Sequence != refB.Sequence:
		return compareInt(refA.Sequence, refB.Sequence)
	default:
		return strings.Compare(refA.Prefix, refB.Prefix)
	}
}

// Peek returns the highest sequence issued for prefix in period (YYMM)
func (s *ReferenceSequencer) Peek(ctx context.Context, prefix, period string) (int64, error) {
	return s.store.Current(ctx, repositories.CounterKey{Prefix: prefix, Period: period})
}

// Reset sets the counter for prefix in period (YYMM) back to zero.
// Administrative operation only; reissued numbers may collide with history
func (s *ReferenceSequencer) Reset(ctx context.Context, prefix, period string) error {
	key := repositories.CounterKey{Prefix: prefix, Period: period}

	lock := s.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	return s.store.Reset(ctx, key)
}

// lockFor returns the exclusive region guarding key
func (s *ReferenceSequencer) lockFor(key repositories.CounterKey) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.keyLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.keyLocks[key] = lock
	}
	return lock
}

func formatPeriod(year, month int) string {
	return fmt.Sprintf("%02d%02d", year%100, month)
}

func compareInt(a, b int64) int {
	if a < b {
		return -1
	} else if a > b {
		return 1
	}
	return 0
}
