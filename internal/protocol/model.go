package protocol

// DefaultModel is the backend model used when a caller-facing identifier is
// not recognized. It matches the backend launcher's own default.
const DefaultModel = "small"

var modelNames = map[string]string{
	"whisper-tiny":   "tiny",
	"whisper-base":   "base",
	"whisper-small":  "small",
	"whisper-medium": "medium",
	"whisper-large":  "large-v3",
}

// MapModel translates a caller-facing model identifier to the backend's
// model name. Unknown identifiers fall back to DefaultModel rather than
// failing.
func MapModel(name string) string {
	if mapped, ok := modelNames[name]; ok {
		return mapped
	}
	return DefaultModel
}
