package domain

import "strings"

// JobStatus tracks the lifecycle of a single batch job.
type JobStatus string

const (
	JobStatusIdle      JobStatus = "idle"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Terminal reports whether no further progress is expected for the status.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// Settings contains user-selectable runtime configuration.
type Settings struct {
	ServerURL             string `json:"serverUrl" yaml:"server_url"`
	Voice                 string `json:"voice" yaml:"voice"`
	Language              string `json:"language" yaml:"language"`
	OutputDir             string `json:"outputDir" yaml:"output_dir"`
	SplitMode             string `json:"splitMode" yaml:"split_mode"`
	CleanupParts          bool   `json:"cleanupParts" yaml:"cleanup_parts"`
	BatchFormat           string `json:"batchFormat,omitempty" yaml:"batch_format,omitempty"`
	PreviewText           string `json:"previewText" yaml:"preview_text"`
	RequestTimeoutSeconds int    `json:"requestTimeoutSeconds" yaml:"request_timeout_seconds"`
}

// Job stores the current job identity and lifecycle status. CancelRequested is
// set by Cancel; the status changes once the in-flight chunk finishes.
type Job struct {
	ID              string    `json:"id"`
	Status          JobStatus `json:"status"`
	InputPath       string    `json:"inputPath,omitempty"`
	Total           int       `json:"total"`
	Processed       int       `json:"processed"`
	Failed          int       `json:"failed"`
	CancelRequested bool      `json:"cancelRequested"`
}

// Voice is one entry of the server's speaker catalog.
type Voice struct {
	Name       string `json:"name"`
	VoiceID    string `json:"voice_id"`
	PreviewURL string `json:"preview_url,omitempty"`
}

// Audio is a synthesized payload as returned by the server.
type Audio struct {
	Data        []byte `json:"-"`
	ContentType string `json:"contentType"`
}

// IsEmpty reports whether no audio was produced.
func (a Audio) IsEmpty() bool {
	return len(a.Data) == 0
}

// Language is one display name / code pair of the language catalog.
type Language struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// LanguageCatalog keeps languages in the order the server listed them.
type LanguageCatalog []Language

// Code returns the code for a display name.
func (c LanguageCatalog) Code(name string) (string, bool) {
	for _, lang := range c {
		if lang.Name == name {
			return lang.Code, true
		}
	}
	return "", false
}

// Names returns display names in catalog order.
func (c LanguageCatalog) Names() []string {
	names := make([]string, 0, len(c))
	for _, lang := range c {
		names = append(names, lang.Name)
	}
	return names
}

// NormalizeServerURL trims whitespace and trailing slashes from a base URL.
func NormalizeServerURL(raw string) string {
	return strings.TrimRight(strings.TrimSpace(raw), "/")
}
