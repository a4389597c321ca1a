package engine

import (
	"context"
	"log/slog"

	"github.com/mwhitford/ringlead/internal/crm"
)

// dryRunLeadID is the synthetic id returned for leads that would have been
// created. ListAttachments never forwards it to the real CRM.
const dryRunLeadID = "dry-run-lead"

// dryRunStore short-circuits every mutating CRM call with a logged no-op
// that still reports success, so statistics stay representative without side
// effects. Reads pass through to the real store.
type dryRunStore struct {
	real   CrmStore
	logger *slog.Logger
}

func newDryRunStore(real CrmStore, logger *slog.Logger) *dryRunStore {
	return &dryRunStore{real: real, logger: logger}
}

func (s *dryRunStore) SearchLeadByPhone(ctx context.Context, phoneVariant string) (*crm.Lead, error) {
	return s.real.SearchLeadByPhone(ctx, phoneVariant)
}

func (s *dryRunStore) ListAttachments(ctx context.Context, leadID string) ([]crm.Attachment, error) {
	if leadID == dryRunLeadID {
		return nil, nil
	}
	return s.real.ListAttachments(ctx, leadID)
}

func (s *dryRunStore) CreateLead(ctx context.Context, payload crm.LeadPayload) (string, error) {
	s.logger.Info("[dry-run] would create lead",
		"phone", payload.Phone, "owner_id", payload.OwnerID, "lead_source", payload.LeadSource)
	return dryRunLeadID, nil
}

func (s *dryRunStore) UpdateLeadStatus(ctx context.Context, leadID, status string) error {
	s.logger.Info("[dry-run] would update lead status", "lead_id", leadID, "status", status)
	return nil
}

func (s *dryRunStore) AddNote(ctx context.Context, leadID, title, body string) error {
	s.logger.Info("[dry-run] would add note", "lead_id", leadID, "title", title)
	return nil
}

func (s *dryRunStore) UploadAttachment(ctx context.Context, leadID, fileName string, content []byte, contentType string) error {
	s.logger.Info("[dry-run] would upload attachment",
		"lead_id", leadID, "file_name", fileName, "bytes", len(content))
	return nil
}
