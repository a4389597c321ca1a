package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/mwhitford/ringlead/internal/auth"
	"github.com/mwhitford/ringlead/internal/crm"
	"github.com/mwhitford/ringlead/internal/pbx"
	"github.com/mwhitford/ringlead/internal/phone"
)

// FlowKind selects which call population a run reconciles.
type FlowKind string

const (
	FlowAccepted FlowKind = "accepted"
	FlowMissed   FlowKind = "missed"
)

// Lead_Status values written per flow.
const (
	statusAcceptedCall = "Accepted Call"
	statusMissedCall   = "Missed Call"
)

const unknownSource = "Unknown"

// Reconciler drives one call record at a time through qualification, CRM
// search, create-or-update, and recording attachment.
type Reconciler struct {
	flow       FlowKind
	crm        CrmStore
	source     CallSource
	rotator    *OwnerRotator
	suppressor *Suppressor
	extensions map[string]string // extension id -> display name
	logger     *slog.Logger
	stats      *Statistics
}

// NewReconciler wires a reconciler for one run. stats is shared with the
// surrounding SyncRun.
func NewReconciler(flow FlowKind, store CrmStore, source CallSource, rotator *OwnerRotator,
	suppressor *Suppressor, extensions map[string]string, logger *slog.Logger, stats *Statistics) *Reconciler {
	return &Reconciler{
		flow:       flow,
		crm:        store,
		source:     source,
		rotator:    rotator,
		suppressor: suppressor,
		extensions: extensions,
		logger:     logger,
		stats:      stats,
	}
}

// qualification is the outcome of the per-call qualification rule.
type qualification struct {
	owner      Owner
	sourceName string
	reason     string // non-empty means disqualified
}

// Process runs one call through the full state machine. Per-call failures
// are recovered here: logged with the call id and owner context, counted,
// and swallowed so the batch continues. Only fatal conditions (auth
// exhaustion, cancellation) propagate.
func (r *Reconciler) Process(ctx context.Context, call pbx.CallRecord) error {
	if call.From.PhoneNumber == "" {
		r.logger.Warn("skipping call with no caller number", "call_id", call.ID)
		r.stats.SkippedCalls++
		return nil
	}

	q := r.qualify(call)
	if q.reason != "" {
		r.logger.Info("call disqualified", "call_id", call.ID, "reason", q.reason)
		r.stats.SkippedCalls++
		return nil
	}
	r.stats.QualifiedCalls++

	if err := r.reconcile(ctx, call, q); err != nil {
		if isFatal(err) {
			return err
		}
		r.logger.Error("call processing failed",
			"call_id", call.ID, "owner", q.owner.Name, "error", err)
		r.stats.APIErrors++
		r.stats.FailedCalls++
		return nil
	}

	r.stats.ProcessedCalls++
	return nil
}

// qualify applies the flow's qualification rule and picks the lead owner.
func (r *Reconciler) qualify(call pbx.CallRecord) qualification {
	switch r.flow {
	case FlowMissed:
		return r.qualifyMissed(call)
	default:
		return r.qualifyAccepted(call)
	}
}

// qualifyAccepted scans the call legs for the first accepted one. A leg
// answered by a configured owner (matched by display name) assigns that
// owner directly without advancing the rotator; otherwise the leg's
// extension qualifies the call under the next round-robin owner.
func (r *Reconciler) qualifyAccepted(call pbx.CallRecord) qualification {
	if len(call.Legs) == 0 {
		return qualification{reason: "no call legs"}
	}

	var accepted *pbx.Leg
	for i := range call.Legs {
		if call.Legs[i].Result == pbx.ResultAccepted {
			accepted = &call.Legs[i]
			break
		}
	}
	if accepted == nil {
		return qualification{reason: "no accepted leg"}
	}

	if owner, ok := r.rotator.Match(accepted.To.Name); ok {
		return qualification{owner: owner, sourceName: r.sourceName(accepted.To.ExtensionID, call)}
	}
	if accepted.To.ExtensionID != "" {
		return qualification{owner: r.rotator.Next(), sourceName: r.sourceName(accepted.To.ExtensionID, call)}
	}
	return qualification{reason: "no lead owner found for accepted call"}
}

// qualifyMissed requires the call result to be Missed. An exactly-Accepted
// result is tallied separately so the summary shows how many calls belong to
// the other flow.
func (r *Reconciler) qualifyMissed(call pbx.CallRecord) qualification {
	if !strings.EqualFold(call.Result, pbx.ResultMissed) {
		if call.Result == pbx.ResultAccepted {
			r.stats.AcceptedCalls++
		}
		return qualification{reason: "call result is not Missed"}
	}
	return qualification{owner: r.rotator.Next(), sourceName: r.sourceName(call.To.ExtensionID, call)}
}

func (r *Reconciler) sourceName(extensionID string, call pbx.CallRecord) string {
	if name, ok := r.extensions[extensionID]; ok && name != "" {
		return name
	}
	if name, ok := r.extensions[call.To.ExtensionID]; ok && name != "" {
		return name
	}
	return unknownSource
}

// reconcile performs the search / create-or-update / note / recording
// sequence for a qualified call.
func (r *Reconciler) reconcile(ctx context.Context, call pbx.CallRecord, q qualification) error {
	key := phone.Normalize(call.From.PhoneNumber)

	waited, err := r.suppressor.Gate(ctx, key)
	if err != nil {
		return err
	}
	if waited {
		r.stats.DuplicatesPrevented++
		r.logger.Info("cooldown elapsed for duplicate phone key", "call_id", call.ID, "phone_key", key)
	}

	lead, err := r.searchVariants(ctx, call.From.PhoneNumber)
	if err != nil {
		return err
	}

	if lead == nil {
		// Final verification right before create. This narrows the window
		// where a concurrent run creates the same lead between our search
		// and our create; it cannot close it without CRM-side uniqueness.
		lead, err = r.crm.SearchLeadByPhone(ctx, key)
		if err != nil {
			return err
		}
	}

	note := callNote(r.flow, call, q.owner.Name, q.sourceName)

	var leadID string
	if lead != nil {
		leadID = lead.ID
		if err := r.crm.UpdateLeadStatus(ctx, leadID, r.leadStatus()); err != nil {
			return err
		}
		r.addNote(ctx, call, leadID, note)
		r.stats.ExistingLeadsUpdated++
		r.logger.Info("existing lead updated", "call_id", call.ID, "lead_id", leadID)
	} else {
		leadID, err = r.crm.CreateLead(ctx, crm.LeadPayload{
			FirstName:  "Unknown",
			LastName:   "Caller",
			Phone:      key,
			OwnerID:    q.owner.ID,
			LeadSource: q.sourceName,
			LeadStatus: r.leadStatus(),
		})
		if err != nil {
			return err
		}
		r.addNote(ctx, call, leadID, note)
		r.stats.NewLeadsCreated++
		r.logger.Info("new lead created",
			"call_id", call.ID, "lead_id", leadID, "owner", q.owner.Name)
	}

	if r.flow == FlowAccepted {
		return r.handleRecording(ctx, call, leadID)
	}
	return nil
}

// searchVariants probes each phone representation in priority order and
// returns the first match.
func (r *Reconciler) searchVariants(ctx context.Context, rawPhone string) (*crm.Lead, error) {
	for _, variant := range phone.SearchVariants(rawPhone) {
		lead, err := r.crm.SearchLeadByPhone(ctx, variant)
		if err != nil {
			return nil, err
		}
		if lead != nil {
			return lead, nil
		}
	}
	return nil, nil
}

// addNote posts the structured note, retrying once with a truncated body on
// failure. A second failure is logged and counted but does not fail the call.
func (r *Reconciler) addNote(ctx context.Context, call pbx.CallRecord, leadID, body string) {
	if err := r.crm.AddNote(ctx, leadID, noteTitle, body); err != nil {
		r.logger.Warn("note post failed, retrying truncated",
			"call_id", call.ID, "lead_id", leadID, "error", err)
		if err := r.crm.AddNote(ctx, leadID, noteTitle, truncateNote(body)); err != nil {
			r.logger.Error("note post failed after truncated retry",
				"call_id", call.ID, "lead_id", leadID, "error", err)
			r.stats.APIErrors++
		}
	}
}

// handleRecording attaches the call's recording to the lead, skipping when a
// file for that recording id is already attached. Failures attach an
// explanatory note instead of failing the call.
func (r *Reconciler) handleRecording(ctx context.Context, call pbx.CallRecord, leadID string) error {
	if call.Recording == nil || call.Recording.ID == "" {
		r.addNote(ctx, call, leadID, noRecordingNote(call))
		return nil
	}
	recordingID := call.Recording.ID

	attachments, err := r.crm.ListAttachments(ctx, leadID)
	if err != nil {
		if isFatal(err) {
			return err
		}
		// Treat an unreadable listing as "not attached" and keep going.
		r.logger.Warn("attachment listing failed",
			"call_id", call.ID, "lead_id", leadID, "error", err)
	}
	for _, a := range attachments {
		if strings.Contains(a.FileName, recordingID) {
			r.logger.Info("recording already attached, skipping",
				"call_id", call.ID, "lead_id", leadID, "recording_id", recordingID)
			return nil
		}
	}

	content, contentType, err := r.source.GetRecording(ctx, recordingID)
	if err != nil {
		if isFatal(err) {
			return err
		}
		r.stats.RecordingFailures++
		r.addNote(ctx, call, leadID, recordingFailureNote(recordingID, call, err))
		return nil
	}

	fileName := recordingFileName(call.StartTime, recordingID, contentType)
	if err := r.crm.UploadAttachment(ctx, leadID, fileName, content, contentType); err != nil {
		if isFatal(err) {
			return err
		}
		r.stats.RecordingFailures++
		r.addNote(ctx, call, leadID, recordingFailureNote(recordingID, call, err))
		return nil
	}

	r.stats.RecordingsAttached++
	return nil
}

func (r *Reconciler) leadStatus() string {
	if r.flow == FlowMissed {
		return statusMissedCall
	}
	return statusAcceptedCall
}

// isFatal reports whether err must abort the whole run instead of being
// absorbed at the call boundary.
func isFatal(err error) bool {
	var aerr *auth.Error
	return errors.As(err, &aerr) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
