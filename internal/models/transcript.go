package models

// Transcript entry roles.
const (
	TranscriptRoleUser      = "user"
	TranscriptRoleAssistant = "assistant"
	TranscriptRoleSystem    = "system"
)

// TranscriptEntry is one utterance from a voice session. The ordered
// sequence of entries is the sole input to scoring; transcripts are not
// persisted.
type TranscriptEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
