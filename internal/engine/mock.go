package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/mwhitford/ringlead/internal/crm"
	"github.com/mwhitford/ringlead/internal/pbx"
)

// MockNote is one recorded AddNote call.
type MockNote struct {
	LeadID string
	Title  string
	Body   string
}

// MockUpload is one recorded UploadAttachment call.
type MockUpload struct {
	LeadID      string
	FileName    string
	ContentType string
	Size        int
}

// MockCrmStore is an in-memory CrmStore for testing the reconciler. Leads
// are matched by exact phone string, mirroring the real CRM's search
// predicate. Creates register the new lead so later searches find it.
type MockCrmStore struct {
	// Configurable behavior
	FailNotes  int   // fail the first N AddNote calls
	FailSearch error // returned by every search when set
	FailUpload error // returned by every upload when set
	FailCreate error // returned by every create when set

	// State
	Leads       map[string]*crm.Lead // keyed by exact phone string
	Attachments map[string][]crm.Attachment

	// Recorded calls
	Searches      []string
	Created       []crm.LeadPayload
	StatusUpdates map[string]string
	Notes         []MockNote
	Uploads       []MockUpload

	nextID int
}

// NewMockCrmStore creates an empty mock store.
func NewMockCrmStore() *MockCrmStore {
	return &MockCrmStore{
		Leads:         make(map[string]*crm.Lead),
		Attachments:   make(map[string][]crm.Attachment),
		StatusUpdates: make(map[string]string),
	}
}

// AddLead seeds an existing lead reachable by the given phone string.
func (m *MockCrmStore) AddLead(phone string, lead *crm.Lead) {
	m.Leads[phone] = lead
}

func (m *MockCrmStore) SearchLeadByPhone(ctx context.Context, phoneVariant string) (*crm.Lead, error) {
	m.Searches = append(m.Searches, phoneVariant)
	if m.FailSearch != nil {
		return nil, m.FailSearch
	}
	return m.Leads[phoneVariant], nil
}

func (m *MockCrmStore) CreateLead(ctx context.Context, payload crm.LeadPayload) (string, error) {
	if m.FailCreate != nil {
		return "", m.FailCreate
	}
	m.nextID++
	id := fmt.Sprintf("lead-%d", m.nextID)
	m.Created = append(m.Created, payload)
	m.Leads[payload.Phone] = &crm.Lead{
		ID:      id,
		Phone:   payload.Phone,
		OwnerID: payload.OwnerID,
		Status:  payload.LeadStatus,
	}
	return id, nil
}

func (m *MockCrmStore) UpdateLeadStatus(ctx context.Context, leadID, status string) error {
	m.StatusUpdates[leadID] = status
	return nil
}

func (m *MockCrmStore) AddNote(ctx context.Context, leadID, title, body string) error {
	if m.FailNotes > 0 {
		m.FailNotes--
		return fmt.Errorf("note rejected")
	}
	m.Notes = append(m.Notes, MockNote{LeadID: leadID, Title: title, Body: body})
	return nil
}

func (m *MockCrmStore) ListAttachments(ctx context.Context, leadID string) ([]crm.Attachment, error) {
	return m.Attachments[leadID], nil
}

func (m *MockCrmStore) UploadAttachment(ctx context.Context, leadID, fileName string, content []byte, contentType string) error {
	if m.FailUpload != nil {
		return m.FailUpload
	}
	m.Uploads = append(m.Uploads, MockUpload{
		LeadID:      leadID,
		FileName:    fileName,
		ContentType: contentType,
		Size:        len(content),
	})
	m.Attachments[leadID] = append(m.Attachments[leadID], crm.Attachment{FileName: fileName})
	return nil
}

// MockCallSource serves canned call records and recording media.
type MockCallSource struct {
	// Configurable behavior
	Calls        map[string][]pbx.CallRecord // keyed by extension id
	FetchErr     error                       // returned alongside partial results
	Recording    []byte
	RecordingCT  string
	RecordingErr error

	// Recorded calls
	FetchedExtensions []string
	FetchedRecordings []string
}

// NewMockCallSource creates an empty mock source.
func NewMockCallSource() *MockCallSource {
	return &MockCallSource{Calls: make(map[string][]pbx.CallRecord)}
}

func (m *MockCallSource) FetchCalls(ctx context.Context, extensionID string, from, to time.Time) ([]pbx.CallRecord, error) {
	m.FetchedExtensions = append(m.FetchedExtensions, extensionID)
	return m.Calls[extensionID], m.FetchErr
}

func (m *MockCallSource) GetRecording(ctx context.Context, recordingID string) ([]byte, string, error) {
	m.FetchedRecordings = append(m.FetchedRecordings, recordingID)
	if m.RecordingErr != nil {
		return nil, "", m.RecordingErr
	}
	ct := m.RecordingCT
	if ct == "" {
		ct = "audio/mpeg"
	}
	return m.Recording, ct, nil
}

// Interface checks.
var (
	_ CrmStore   = (*MockCrmStore)(nil)
	_ CallSource = (*MockCallSource)(nil)
)
