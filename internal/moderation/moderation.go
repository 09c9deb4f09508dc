package moderation

import (
	"fmt"
	"unicode/utf8"

	goaway "github.com/TwiN/go-away"
)

// MaxNarrationLength caps narration scripts to prevent TTS abuse.
const MaxNarrationLength = 1500

type Reason string

const (
	ReasonTextTooLong    Reason = "text_too_long"
	ReasonProfaneContent Reason = "profane_content"
)

// Rejection is returned when narration text fails moderation. It is fatal
// to the job's audio stage: narration was explicitly requested, so a reel
// without it would not be the reel the caller asked for.
type Rejection struct {
	Reason Reason
}

func (r *Rejection) Error() string {
	switch r.Reason {
	case ReasonTextTooLong:
		return fmt.Sprintf("text exceeds the maximum length of %d characters", MaxNarrationLength)
	case ReasonProfaneContent:
		return "inappropriate content detected in text"
	}
	return string(r.Reason)
}

// Moderator screens narration text before synthesis is attempted.
type Moderator struct {
	detector *goaway.ProfanityDetector
}

func New() *Moderator {
	return &Moderator{detector: goaway.NewProfanityDetector()}
}

// Check returns nil when text may be synthesized, or a *Rejection.
// Callers must not invoke Check for empty text: an empty script means the
// audio stage is skipped entirely, which is not a moderation concern.
func (m *Moderator) Check(text string) error {
	if utf8.RuneCountInString(text) > MaxNarrationLength {
		return &Rejection{Reason: ReasonTextTooLong}
	}
	if m.detector.IsProfane(text) {
		return &Rejection{Reason: ReasonProfaneContent}
	}
	return nil
}
