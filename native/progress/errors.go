package progress

import "errors"

var (
	// ErrUnauthorized marks calls whose signer does not own the target record.
	ErrUnauthorized = errors.New("progress: unauthorized")
	// ErrInvalidLessonID marks lesson ids outside the curriculum.
	ErrInvalidLessonID = errors.New("progress: invalid lesson id")
	// ErrAlreadyInitialized is returned when a record already exists for the participant.
	ErrAlreadyInitialized = errors.New("progress: already initialized")
	// ErrNotInitialized is returned when the target record does not exist.
	ErrNotInitialized = errors.New("progress: record not initialized")
	// ErrLessonAlreadyCompleted is returned when the completion flag is already set.
	ErrLessonAlreadyCompleted = errors.New("progress: lesson already completed")
	// ErrLessonNotCompleted is returned when minting a reward for an unfinished lesson.
	ErrLessonNotCompleted = errors.New("progress: lesson not completed yet")
	// ErrNftAlreadyClaimed is returned when the lesson reward was already issued.
	ErrNftAlreadyClaimed = errors.New("progress: nft already claimed for this lesson")
	// ErrIssuanceFailed wraps failures reported by the reward issuer.
	ErrIssuanceFailed = errors.New("progress: reward issuance failed")

	errNilState          = errors.New("progress engine: state not configured")
	errNilIssuer         = errors.New("progress engine: issuer not configured")
	errParticipantNeeded = errors.New("progress engine: participant required")
)

// IsStateConflict reports whether err signals that the record is already in
// (or not yet in) the state the call expected. Callers treat these as
// recoverable outcomes rather than system failures.
func IsStateConflict(err error) bool {
	return errors.Is(err, ErrAlreadyInitialized) ||
		errors.Is(err, ErrLessonAlreadyCompleted) ||
		errors.Is(err, ErrLessonNotCompleted) ||
		errors.Is(err, ErrNftAlreadyClaimed)
}
