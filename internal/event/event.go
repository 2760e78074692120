// Package event normalizes NLS gateway messages into records the result
// consumer can display and count.
package event

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"
)

// Kind names the session signal an Event was produced from.
type Kind string

const (
	KindStart         Kind = "start"
	KindSentenceBegin Kind = "sentence_begin"
	KindResultChanged Kind = "result_changed"
	KindSentenceEnd   Kind = "sentence_end"
	KindCompleted     Kind = "completed"
	KindError         Kind = "error"
	KindClosed        Kind = "closed"
	KindUnparsed      Kind = "unparsed"
)

// RawPreviewLimit bounds the raw text kept on Unparsed events.
const RawPreviewLimit = 100

// ErrDecode marks a message that is not a header/payload JSON object.
var ErrDecode = errors.New("decode nls message")

type Header struct {
	Name       string `json:"name"`
	Namespace  string `json:"namespace"`
	Status     int    `json:"status"`
	StatusText string `json:"status_text"`
	MessageID  string `json:"message_id"`
	TaskID     string `json:"task_id"`
}

type Result struct {
	Text       string  `json:"result"`
	Confidence float64 `json:"confidence"`
	Type       string  `json:"type"`
	// TimeMS is the sentence offset reported by the service.
	TimeMS int64 `json:"time"`
}

type Event struct {
	Kind      Kind
	Timestamp time.Time
	Header    Header
	Result    Result

	// Message holds the full raw message for error events.
	Message string
	// Raw holds a truncated preview for unparsed events.
	Raw string
	// Signal is the signal an unparsed message arrived on, if any.
	Signal Kind
}

type envelope struct {
	Header  *Header `json:"header"`
	Payload *Result `json:"payload"`
}

// Decode extracts header and payload fields from a gateway message.
func Decode(raw []byte) (Header, Result, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Header{}, Result{}, fmt.Errorf("%w: not a JSON object", ErrDecode)
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return Header{}, Result{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	var header Header
	if env.Header != nil {
		header = *env.Header
	}
	var result Result
	if env.Payload != nil {
		result = *env.Payload
	}
	result.Confidence = clampConfidence(result.Confidence)
	return header, result, nil
}

// Parse builds an Event of the given kind from a raw message. It never
// fails: undecodable input yields an Unparsed event.
func Parse(kind Kind, raw []byte, at time.Time) Event {
	header, result, err := Decode(raw)
	if err != nil {
		return Unparsed(kind, raw, at)
	}
	return Event{
		Kind:      kind,
		Timestamp: at,
		Header:    header,
		Result:    result,
	}
}

// NewError builds an Error event. Header fields are filled when the
// message decodes; the raw message is always kept.
func NewError(raw []byte, at time.Time) Event {
	ev := Event{
		Kind:      KindError,
		Timestamp: at,
		Message:   string(raw),
	}
	if header, _, err := Decode(raw); err == nil {
		ev.Header = header
	}
	return ev
}

func NewClosed(at time.Time) Event {
	return Event{Kind: KindClosed, Timestamp: at}
}

// Unparsed keeps a bounded preview of a message that could not be decoded.
func Unparsed(signal Kind, raw []byte, at time.Time) Event {
	if signal == KindUnparsed {
		signal = ""
	}
	return Event{
		Kind:      KindUnparsed,
		Timestamp: at,
		Raw:       Truncate(string(raw), RawPreviewLimit),
		Signal:    signal,
	}
}

// HasText reports whether the event carries non-empty recognition text.
func (e Event) HasText() bool {
	return e.Result.Text != ""
}

// ErrorText returns the most specific description available for an
// error event.
func (e Event) ErrorText() string {
	switch {
	case e.Header.StatusText != "":
		return e.Header.StatusText
	case e.Message != "":
		return e.Message
	default:
		return "unknown session error"
	}
}

// Truncate returns at most limit characters of s. Invalid UTF-8 bytes
// count as one character each.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}

func clampConfidence(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
