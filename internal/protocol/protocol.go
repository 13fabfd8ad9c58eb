// Package protocol defines the JSON request/response payloads carried inside
// the frame package's request and response envelopes, shared by the offline
// and streaming workers.
package protocol

const (
	ActionWarmup       = "warmup"
	ActionTranscribe   = "transcribe"
	ActionStreamReset  = "stream_reset"
	ActionStreamPush   = "stream_push"
	ActionStreamFlush  = "stream_flush"
	ActionStreamClose  = "stream_close"
	defaultSampleRate  = 16000
	unknownRequestID   = "unknown"
)

// Request is the decoded control-plane JSON accompanying a frame's audio
// payload. Field names are camelCase on the wire (SPEC_FULL.md §6).
type Request struct {
	ID          string `json:"id,omitempty"`
	Action      string `json:"action,omitempty"`
	Audio       string `json:"audio,omitempty"`
	AudioBase64 string `json:"audioBase64,omitempty"`
	SampleRate  int    `json:"sampleRate,omitempty"`
}

// ApplyDefaults fills in the request defaults specified in SPEC_FULL.md §3:
// id defaults to "unknown", action defaults to "transcribe", sampleRate
// defaults to 16000.
func (r *Request) ApplyDefaults() {
	if r.ID == "" {
		r.ID = unknownRequestID
	}
	if r.Action == "" {
		r.Action = ActionTranscribe
	}
	if r.SampleRate == 0 {
		r.SampleRate = defaultSampleRate
	}
}

// UnknownID is the literal id used when a request's JSON could not be parsed
// at all, so no id field could be recovered.
const UnknownID = unknownRequestID

// Response is the JSON reply body written inside a response frame.
type Response struct {
	ID     string `json:"id"`
	OK     bool   `json:"ok"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Success builds an ok:true response carrying result.
func Success(id string, result any) Response {
	return Response{ID: id, OK: true, Result: result}
}

// Failure builds an ok:false response carrying err's message.
func Failure(id string, err error) Response {
	return Response{ID: id, OK: false, Error: err.Error()}
}

// FailureMessage builds an ok:false response from a preformatted message.
func FailureMessage(id string, message string) Response {
	return Response{ID: id, OK: false, Error: message}
}

// TranscriptionResult is the result payload for a completed transcription
// (SPEC_FULL.md §3).
type TranscriptionResult struct {
	Text            string  `json:"text"`
	Language        string  `json:"language"`
	DurationSeconds float64 `json:"durationSeconds"`
}

// ReadyResult is the result payload for warmup / stream_reset.
type ReadyResult struct {
	Ready bool `json:"ready"`
}

// ClosedResult is the result payload for stream_close.
type ClosedResult struct {
	Closed bool `json:"closed"`
}

// StreamDeltaResult is the result payload for stream_push / stream_flush:
// only the newly committed delta text, never the full transcript
// (SPEC_FULL.md §4.3 "Reply shape").
type StreamDeltaResult struct {
	Text            string  `json:"text"`
	DurationSeconds float64 `json:"durationSeconds"`
}
