package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/mwhitford/ringlead/internal/pbx"
)

const (
	noteTitle = "Call Information"

	// maxShortNote caps the retried note body after a first note post fails.
	maxShortNote = 1000
)

// callNote renders the structured note attached to a lead after a call is
// reconciled.
func callNote(flow FlowKind, call pbx.CallRecord, ownerName, sourceName string) string {
	heading := "Call received at %s\n"
	if flow == FlowMissed {
		heading = "Missed call received at %s\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, heading, call.StartTime.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Direction: %s\n", call.Direction)
	fmt.Fprintf(&b, "Duration: %d seconds\n", call.Duration)
	fmt.Fprintf(&b, "Caller: %s\n", call.From.PhoneNumber)
	fmt.Fprintf(&b, "Extension: %s\n", sourceName)
	fmt.Fprintf(&b, "Owner: %s\n", ownerName)
	fmt.Fprintf(&b, "Call ID: %s", call.ID)
	return b.String()
}

func noRecordingNote(call pbx.CallRecord) string {
	return fmt.Sprintf("No recording was available for call at %s.",
		call.StartTime.Format("2006-01-02 15:04:05"))
}

func recordingFailureNote(recordingID string, call pbx.CallRecord, cause error) string {
	return fmt.Sprintf("Failed to attach recording %s at %s. Error: %v",
		recordingID, call.StartTime.Format("2006-01-02 15:04:05"), cause)
}

// truncateNote shortens a note body to the retry cap.
func truncateNote(body string) string {
	if len(body) <= maxShortNote {
		return body
	}
	return body[:maxShortNote]
}

// recordingFileName builds the attachment name, e.g.
// 20250102_150405_recording_rec-1.mp3.
func recordingFileName(callTime time.Time, recordingID, contentType string) string {
	return fmt.Sprintf("%s_recording_%s.%s",
		callTime.Format("20060102_150405"), recordingID, extensionForContentType(contentType))
}

// extensionForContentType maps a media content type to a file extension.
func extensionForContentType(contentType string) string {
	switch contentType {
	case "audio/mpeg":
		return "mp3"
	case "audio/wav":
		return "wav"
	}
	if i := strings.IndexByte(contentType, '/'); i >= 0 && i+1 < len(contentType) {
		return contentType[i+1:]
	}
	return "bin"
}
