package dispatch

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Task types, namespaced by owning domain.
const (
	TypeInstantResponse      = "response.instant"
	TypeSequenceStep         = "response.sequence_step"
	TypeSequenceSweep        = "response.sequence_sweep"
	TypeEscalation           = "notification.escalation"
	TypeNotificationDispatch = "notification.dispatch"
	TypeSLAScan              = "notification.sla_scan"
	TypeCRMPush              = "sync.crm_push"
	TypeWebhookReplay        = "sync.webhook_replay"
	TypeAnalyticsEvent       = "analytics.event"
	TypeDailyRollup          = "analytics.daily_rollup"
)

// InstantResponsePayload drives the first-touch message for a new lead.
type InstantResponsePayload struct {
	LeadID string `json:"leadId"`
}

// SequenceStepPayload executes one drip-sequence step.
type SequenceStepPayload struct {
	SequenceID string `json:"sequenceId"`
	LeadID     string `json:"leadId"`
	Step       int    `json:"step"`
}

// EscalationPayload raises a manager escalation for an overdue lead.
type EscalationPayload struct {
	LeadID   string `json:"leadId"`
	Severity string `json:"severity"` // urgent or critical
}

// NotificationDispatchPayload fans a stored notification out to its channels.
type NotificationDispatchPayload struct {
	NotificationID string `json:"notificationId"`
}

// CRMPushPayload synchronizes one lead to the external CRM.
type CRMPushPayload struct {
	LeadID string `json:"leadId"`
}

// AnalyticsEventPayload records one analytics event.
type AnalyticsEventPayload struct {
	EventType string         `json:"eventType"`
	LeadID    string         `json:"leadId,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// DailyRollupPayload aggregates one calendar day. Day is "YYYY-MM-DD";
// empty means yesterday in the schedule timezone.
type DailyRollupPayload struct {
	Day string `json:"day,omitempty"`
}

func newTask(taskType string, payload any) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, data), nil
}

// NewInstantResponseTask builds the first-touch task for a lead.
func NewInstantResponseTask(leadID uuid.UUID) (*asynq.Task, error) {
	return newTask(TypeInstantResponse, InstantResponsePayload{LeadID: leadID.String()})
}

// ParseInstantResponsePayload decodes an instant-response task.
func ParseInstantResponsePayload(task *asynq.Task) (InstantResponsePayload, error) {
	var payload InstantResponsePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return InstantResponsePayload{}, err
	}
	return payload, nil
}

// NewSequenceStepTask builds a drip-step task.
func NewSequenceStepTask(payload SequenceStepPayload) (*asynq.Task, error) {
	return newTask(TypeSequenceStep, payload)
}

// ParseSequenceStepPayload decodes a drip-step task.
func ParseSequenceStepPayload(task *asynq.Task) (SequenceStepPayload, error) {
	var payload SequenceStepPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return SequenceStepPayload{}, err
	}
	return payload, nil
}

// NewSequenceSweepTask builds the periodic due-sequence sweep task.
func NewSequenceSweepTask() *asynq.Task {
	return asynq.NewTask(TypeSequenceSweep, nil)
}

// NewEscalationTask builds an escalation task.
func NewEscalationTask(leadID uuid.UUID, severity string) (*asynq.Task, error) {
	return newTask(TypeEscalation, EscalationPayload{LeadID: leadID.String(), Severity: severity})
}

// ParseEscalationPayload decodes an escalation task.
func ParseEscalationPayload(task *asynq.Task) (EscalationPayload, error) {
	var payload EscalationPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return EscalationPayload{}, err
	}
	return payload, nil
}

// NewNotificationDispatchTask builds a notification fan-out task.
func NewNotificationDispatchTask(notificationID uuid.UUID) (*asynq.Task, error) {
	return newTask(TypeNotificationDispatch, NotificationDispatchPayload{NotificationID: notificationID.String()})
}

// ParseNotificationDispatchPayload decodes a notification fan-out task.
func ParseNotificationDispatchPayload(task *asynq.Task) (NotificationDispatchPayload, error) {
	var payload NotificationDispatchPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return NotificationDispatchPayload{}, err
	}
	return payload, nil
}

// NewSLAScanTask builds the periodic SLA scan task.
func NewSLAScanTask() *asynq.Task {
	return asynq.NewTask(TypeSLAScan, nil)
}

// NewCRMPushTask builds an outbound CRM sync task.
func NewCRMPushTask(leadID uuid.UUID) (*asynq.Task, error) {
	return newTask(TypeCRMPush, CRMPushPayload{LeadID: leadID.String()})
}

// ParseCRMPushPayload decodes a CRM sync task.
func ParseCRMPushPayload(task *asynq.Task) (CRMPushPayload, error) {
	var payload CRMPushPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return CRMPushPayload{}, err
	}
	return payload, nil
}

// NewWebhookReplayTask builds the bounded webhook replay task.
func NewWebhookReplayTask() *asynq.Task {
	return asynq.NewTask(TypeWebhookReplay, nil)
}

// NewAnalyticsEventTask builds an analytics ingest task.
func NewAnalyticsEventTask(payload AnalyticsEventPayload) (*asynq.Task, error) {
	return newTask(TypeAnalyticsEvent, payload)
}

// ParseAnalyticsEventPayload decodes an analytics ingest task.
func ParseAnalyticsEventPayload(task *asynq.Task) (AnalyticsEventPayload, error) {
	var payload AnalyticsEventPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return AnalyticsEventPayload{}, err
	}
	return payload, nil
}

// NewDailyRollupTask builds the daily aggregation task.
func NewDailyRollupTask(day string) (*asynq.Task, error) {
	return newTask(TypeDailyRollup, DailyRollupPayload{Day: day})
}

// ParseDailyRollupPayload decodes a daily aggregation task.
func ParseDailyRollupPayload(task *asynq.Task) (DailyRollupPayload, error) {
	var payload DailyRollupPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return DailyRollupPayload{}, err
	}
	return payload, nil
}
