package pbx

import "time"

// Call results reported by the platform.
const (
	ResultAccepted = "Accepted"
	ResultMissed   = "Missed"
)

// Party is one side of a call.
type Party struct {
	PhoneNumber string `json:"phoneNumber,omitempty"`
	ExtensionID string `json:"extensionId,omitempty"`
	Name        string `json:"name,omitempty"`
}

// Leg is a single routing hop in a detailed call record.
type Leg struct {
	Result string `json:"result"`
	To     Party  `json:"to"`
}

// Recording references call-recording media stored by the platform.
type Recording struct {
	ID string `json:"id"`
}

// CallRecord is one inbound call as reported by the platform's call log.
// Immutable once fetched.
type CallRecord struct {
	ID        string     `json:"id"`
	From      Party      `json:"from"`
	To        Party      `json:"to"`
	StartTime time.Time  `json:"startTime"`
	Duration  int        `json:"duration"`
	Direction string     `json:"direction"`
	Result    string     `json:"result"`
	Legs      []Leg      `json:"legs,omitempty"`
	Recording *Recording `json:"recording,omitempty"`
}

// callLogPage is one page of the call-log listing.
type callLogPage struct {
	Records []CallRecord `json:"records"`
	Paging  struct {
		Page       int `json:"page"`
		TotalPages int `json:"totalPages"`
	} `json:"paging"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}
