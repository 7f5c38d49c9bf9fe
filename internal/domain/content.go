package domain

import (
	"fmt"
	"strings"
)

// ValidationError represents a validation error
type ValidationError struct {
	message string
}

func (e *ValidationError) Error() string {
	return e.message
}

func NewValidationError(message string) error {
	return &ValidationError{message: message}
}

// Question sources.
const (
	SourceAI       = "ai_generated"
	SourceFallback = "fallback"
)

// Question is one multiple-choice item of a mock exam.
type Question struct {
	ID            string   `json:"id"`
	Topic         string   `json:"topic"`
	Question      string   `json:"question"`
	Snippet       string   `json:"snippet,omitempty"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	Type          string   `json:"type,omitempty"`
	Explanation   string   `json:"explanation,omitempty"`
	Source        string   `json:"source,omitempty"`
}

// Validate checks the shape the exam UI relies on.
func (q *Question) Validate() error {
	if strings.TrimSpace(q.Question) == "" {
		return NewValidationError("question text is required")
	}
	if len(q.Options) < 2 {
		return NewValidationError("at least two options are required")
	}
	if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
		return NewValidationError(fmt.Sprintf("correctAnswer %d out of range for %d options", q.CorrectAnswer, len(q.Options)))
	}
	return nil
}

type Flashcard struct {
	Type  string `json:"type,omitempty"`
	Front string `json:"front"`
	Back  string `json:"back"`
}

func (f *Flashcard) Validate() error {
	if strings.TrimSpace(f.Front) == "" || strings.TrimSpace(f.Back) == "" {
		return NewValidationError("flashcard needs both front and back")
	}
	return nil
}

// NoteBundle is the structured study-notes document for one topic.
type NoteBundle struct {
	Topic       string `json:"topic"`
	Orientation struct {
		ExaminerIntent string `json:"examinerIntent,omitempty"`
		PrimaryTrap    string `json:"primaryTrap,omitempty"`
		SecondaryTrap  string `json:"secondaryTrap,omitempty"`
		FailurePattern string `json:"failurePattern,omitempty"`
		TimeToMaster   string `json:"timeToMaster,omitempty"`
	} `json:"orientation"`
	AbsoluteFacts []string `json:"absoluteFacts"`
	Assumptions   []struct {
		Assumption string `json:"assumption"`
		Reality    string `json:"reality"`
	} `json:"assumptions,omitempty"`
	TrapZones []struct {
		Trap             string `json:"trap"`
		Why              string `json:"why"`
		Reality          string `json:"reality"`
		CCEEQuestion     string `json:"cceeQuestion,omitempty"`
		EliminationLogic string `json:"eliminationLogic,omitempty"`
	} `json:"trapZones,omitempty"`
	InternalMechanism []string `json:"internalMechanism,omitempty"`
	CodeTricks        []struct {
		Concept    string `json:"concept"`
		Snippet    string `json:"snippet"`
		Behavior   string `json:"behavior"`
		WhyFail    string `json:"whyFail,omitempty"`
		MemoryHook string `json:"memoryHook,omitempty"`
	} `json:"codeTricks,omitempty"`
	BinaryTables []struct {
		Title   string     `json:"title"`
		Headers []string   `json:"headers"`
		Rows    [][]string `json:"rows"`
	} `json:"binaryTables,omitempty"`
	KillShots  []string `json:"killShots,omitempty"`
	Checkpoint []string `json:"checkpoint,omitempty"`
}

func (n *NoteBundle) Validate() error {
	if len(n.AbsoluteFacts) == 0 && len(n.TrapZones) == 0 && len(n.KillShots) == 0 {
		return NewValidationError("notes contain no usable content")
	}
	return nil
}

// TopicNotes is one entry of a bulk notes run.
type TopicNotes struct {
	Topic   string      `json:"topic"`
	Notes   *NoteBundle `json:"data"`
	Success bool        `json:"success"`
}

// ExamMode selects the size of a mock exam.
type ExamMode string

const (
	ModePractice ExamMode = "PRACTICE"
	ModeCCEE     ExamMode = "CCEE"
)

// Module is one subject of the course catalog.
type Module struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Topics []string `json:"topics"`
}
