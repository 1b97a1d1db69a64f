package progress

import (
	"strconv"

	"lessonchain/core/events"
	"lessonchain/core/types"
	"lessonchain/crypto"
)

const (
	// EventTypeUserInitialized is emitted when a progress record is created.
	EventTypeUserInitialized = "progress.userInitialized"
	// EventTypeLessonCompleted is emitted when a lesson is marked complete.
	EventTypeLessonCompleted = "progress.lessonCompleted"
	// EventTypeNftMinted is emitted when a lesson reward is issued.
	EventTypeNftMinted = "progress.nftMinted"
)

type eventEnvelope struct {
	evt *types.Event
}

func (e eventEnvelope) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e eventEnvelope) Event() *types.Event { return e.evt }

// WrapEvent converts a raw event payload into the emitter-friendly envelope.
func WrapEvent(evt *types.Event) events.Event { return eventEnvelope{evt: evt} }

func participantString(addr [20]byte) string {
	return crypto.FromRaw(crypto.ParticipantPrefix, addr).String()
}

func programString(addr [20]byte) string {
	return crypto.FromRaw(crypto.ProgramPrefix, addr).String()
}

// UserInitializedEvent returns the payload announcing a new progress record.
func UserInitializedEvent(user, record, payer [20]byte) *types.Event {
	return &types.Event{
		Type: EventTypeUserInitialized,
		Attributes: map[string]string{
			"user":   participantString(user),
			"record": programString(record),
			"payer":  participantString(payer),
		},
	}
}

// LessonCompletedEvent returns the payload for a completed lesson.
func LessonCompletedEvent(user [20]byte, lessonID int) *types.Event {
	return &types.Event{
		Type: EventTypeLessonCompleted,
		Attributes: map[string]string{
			"user":     participantString(user),
			"lessonId": strconv.Itoa(lessonID),
		},
	}
}

// NftMintedEvent returns the payload for an issued lesson reward.
func NftMintedEvent(user [20]byte, lessonID int, mint, metadata, payer [20]byte) *types.Event {
	return &types.Event{
		Type: EventTypeNftMinted,
		Attributes: map[string]string{
			"user":     participantString(user),
			"lessonId": strconv.Itoa(lessonID),
			"mint":     crypto.FromRaw(crypto.TokenPrefix, mint).String(),
			"metadata": programString(metadata),
			"payer":    participantString(payer),
		},
	}
}
