package progress

import (
	"errors"
	"fmt"
)

// LessonCount is the fixed number of lesson slots in the curriculum.
const LessonCount = 5

// ProgressRecord is the persisted state for one participant. Every field is
// fixed size so the encoded record never changes shape.
type ProgressRecord struct {
	Owner            [20]byte
	CompletedLessons [LessonCount]bool
	NftsClaimed      [LessonCount]bool
	Bump             uint8
}

// LessonStatus is the per-slot view of the two flag arrays.
type LessonStatus uint8

const (
	LessonNotStarted LessonStatus = iota
	LessonCompleted
	LessonClaimed
)

func (s LessonStatus) String() string {
	switch s {
	case LessonNotStarted:
		return "not_started"
	case LessonCompleted:
		return "completed"
	case LessonClaimed:
		return "claimed"
	default:
		return "unknown"
	}
}

// ValidLessonID reports whether id addresses one of the lesson slots.
func ValidLessonID(id int) bool {
	return id >= 0 && id < LessonCount
}

func newRecord(owner [20]byte, bump uint8) *ProgressRecord {
	return &ProgressRecord{Owner: owner, Bump: bump}
}

// Status returns the slot state for lesson id.
func (r *ProgressRecord) Status(id int) (LessonStatus, error) {
	if r == nil {
		return LessonNotStarted, ErrNotInitialized
	}
	if !ValidLessonID(id) {
		return LessonNotStarted, ErrInvalidLessonID
	}
	switch {
	case r.NftsClaimed[id]:
		return LessonClaimed, nil
	case r.CompletedLessons[id]:
		return LessonCompleted, nil
	default:
		return LessonNotStarted, nil
	}
}

// CompletedCount returns the number of completed lessons.
func (r *ProgressRecord) CompletedCount() int {
	n := 0
	for _, done := range r.CompletedLessons {
		if done {
			n++
		}
	}
	return n
}

// ClaimedCount returns the number of lessons whose reward was issued.
func (r *ProgressRecord) ClaimedCount() int {
	n := 0
	for _, claimed := range r.NftsClaimed {
		if claimed {
			n++
		}
	}
	return n
}

// Validate checks that no reward is recorded for an incomplete lesson.
func (r *ProgressRecord) Validate() error {
	if r == nil {
		return errors.New("progress: record nil")
	}
	if r.Owner == ([20]byte{}) {
		return errors.New("progress: owner required")
	}
	for i := 0; i < LessonCount; i++ {
		if r.NftsClaimed[i] && !r.CompletedLessons[i] {
			return fmt.Errorf("progress: lesson %d claimed before completion", i)
		}
	}
	return nil
}

// Clone returns a copy of the record.
func (r *ProgressRecord) Clone() *ProgressRecord {
	if r == nil {
		return nil
	}
	out := *r
	return &out
}
