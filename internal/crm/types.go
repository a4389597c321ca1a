package crm

import "encoding/json"

// Lead is the CRM-side record this engine creates and updates. The engine
// never owns these; it only reads and writes them through the client.
type Lead struct {
	ID         string
	Phone      string
	OwnerID    string
	Status     string
	LeadSource string
	CreatedAt  string
}

// LeadPayload is the typed create-request body. Field names follow the CRM's
// wire schema.
type LeadPayload struct {
	FirstName  string
	LastName   string
	Phone      string
	OwnerID    string
	LeadSource string
	LeadStatus string
}

// Attachment is one file attached to a lead.
type Attachment struct {
	ID       string `json:"id"`
	FileName string `json:"File_Name"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// leadRecord is the wire shape of a lead in search responses.
type leadRecord struct {
	ID         string `json:"id"`
	Phone      string `json:"Phone"`
	LeadStatus string `json:"Lead_Status"`
	LeadSource string `json:"Lead_Source"`
	Owner      struct {
		ID string `json:"id"`
	} `json:"Owner"`
	CreatedTime string `json:"Created_Time"`
}

func (r leadRecord) toLead() *Lead {
	return &Lead{
		ID:         r.ID,
		Phone:      r.Phone,
		OwnerID:    r.Owner.ID,
		Status:     r.LeadStatus,
		LeadSource: r.LeadSource,
		CreatedAt:  r.CreatedTime,
	}
}

type searchResponse struct {
	Data []leadRecord `json:"data"`
}

// mutationResult is one entry of a write response. The CRM reports the new
// record id either under details.id or directly as id depending on the
// endpoint revision, so both shapes are decoded explicitly.
type mutationResult struct {
	Code    string `json:"code"`
	Status  string `json:"status"`
	Message string `json:"message"`
	ID      string `json:"id"`
	Details struct {
		ID string `json:"id"`
	} `json:"details"`
}

func (r mutationResult) recordID() string {
	if r.Details.ID != "" {
		return r.Details.ID
	}
	return r.ID
}

type mutationResponse struct {
	Data []mutationResult `json:"data"`
}

type attachmentsResponse struct {
	Data []Attachment `json:"data"`
}

// wireLead renders a LeadPayload into the CRM's field naming.
func wireLead(p LeadPayload) map[string]any {
	return map[string]any{
		"First_Name":  p.FirstName,
		"Last_Name":   p.LastName,
		"Phone":       p.Phone,
		"Owner":       map[string]any{"id": p.OwnerID},
		"Lead_Source": p.LeadSource,
		"Lead_Status": p.LeadStatus,
	}
}

func envelope(record any) ([]byte, error) {
	return json.Marshal(map[string]any{"data": []any{record}})
}
