package nls

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// TokenHeader carries the access token on the websocket handshake.
const TokenHeader = "X-NLS-Token"

const (
	Namespace = "SpeechTranscriber"

	NameStartTranscription = "StartTranscription"
	NameStopTranscription  = "StopTranscription"

	NameTranscriptionStarted       = "TranscriptionStarted"
	NameSentenceBegin              = "SentenceBegin"
	NameTranscriptionResultChanged = "TranscriptionResultChanged"
	NameSentenceEnd                = "SentenceEnd"
	NameTranscriptionCompleted     = "TranscriptionCompleted"
	NameTaskFailed                 = "TaskFailed"
)

type requestHeader struct {
	MessageID string `json:"message_id"`
	TaskID    string `json:"task_id"`
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
	AppKey    string `json:"appkey"`
}

type startPayload struct {
	Format                         string `json:"format"`
	SampleRate                     int    `json:"sample_rate"`
	EnableIntermediateResult       bool   `json:"enable_intermediate_result"`
	EnablePunctuationPrediction    bool   `json:"enable_punctuation_prediction"`
	EnableInverseTextNormalization bool   `json:"enable_inverse_text_normalization"`
}

type request struct {
	Header  requestHeader `json:"header"`
	Payload any           `json:"payload,omitempty"`
}

type inboundHeader struct {
	Header struct {
		Name string `json:"name"`
	} `json:"header"`
}

type failure struct {
	Header struct {
		Namespace  string `json:"namespace"`
		Name       string `json:"name"`
		Status     int    `json:"status"`
		StatusText string `json:"status_text"`
		TaskID     string `json:"task_id"`
	} `json:"header"`
}

// newID returns the 32 hex character identifier the gateway expects for
// task and message ids.
func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func startRequest(cfg Config, taskID string) request {
	return request{
		Header: requestHeader{
			MessageID: newID(),
			TaskID:    taskID,
			Namespace: Namespace,
			Name:      NameStartTranscription,
			AppKey:    cfg.AppKey,
		},
		Payload: startPayload{
			Format:                         cfg.Format,
			SampleRate:                     cfg.SampleRate,
			EnableIntermediateResult:       true,
			EnablePunctuationPrediction:    true,
			EnableInverseTextNormalization: true,
		},
	}
}

func stopRequest(cfg Config, taskID string) request {
	return request{
		Header: requestHeader{
			MessageID: newID(),
			TaskID:    taskID,
			Namespace: Namespace,
			Name:      NameStopTranscription,
			AppKey:    cfg.AppKey,
		},
	}
}

// messageName returns header.name, or false when raw is not an object
// with an object header.
func messageName(raw []byte) (string, bool) {
	var msg inboundHeader
	if err := json.Unmarshal(raw, &msg); err != nil {
		return "", false
	}
	return msg.Header.Name, true
}

// transportFailure renders a read error in TaskFailed shape so it decodes
// like a service-reported error.
func transportFailure(taskID string, err error) []byte {
	var msg failure
	msg.Header.Namespace = Namespace
	msg.Header.Name = NameTaskFailed
	msg.Header.StatusText = "transport: " + err.Error()
	msg.Header.TaskID = taskID
	b, marshalErr := json.Marshal(msg)
	if marshalErr != nil {
		return []byte(msg.Header.StatusText)
	}
	return b
}
