// Package engine is the call-to-lead reconciliation core: it consumes call
// records, decides create/update/skip against the CRM, and aggregates per-run
// statistics. All network access goes through the two collaborator
// interfaces below.
package engine

import (
	"context"
	"time"

	"github.com/mwhitford/ringlead/internal/crm"
	"github.com/mwhitford/ringlead/internal/pbx"
)

// CallSource supplies call records and recording media from the call
// platform.
type CallSource interface {
	FetchCalls(ctx context.Context, extensionID string, from, to time.Time) ([]pbx.CallRecord, error)
	GetRecording(ctx context.Context, recordingID string) (content []byte, contentType string, err error)
}

// CrmStore is the narrow CRM surface the reconciler needs. The concrete
// client lives in internal/crm; dry-run wraps this interface.
type CrmStore interface {
	SearchLeadByPhone(ctx context.Context, phoneVariant string) (*crm.Lead, error)
	CreateLead(ctx context.Context, payload crm.LeadPayload) (string, error)
	UpdateLeadStatus(ctx context.Context, leadID, status string) error
	AddNote(ctx context.Context, leadID, title, body string) error
	ListAttachments(ctx context.Context, leadID string) ([]crm.Attachment, error)
	UploadAttachment(ctx context.Context, leadID, fileName string, content []byte, contentType string) error
}

// Extension is one configured PBX extension whose calls are synced.
type Extension struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Owner is one configured lead owner.
type Owner struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
