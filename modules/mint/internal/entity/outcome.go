package entity

// BatchOutcomeKind tags the result of a reveal pass over a session's items.
type BatchOutcomeKind string

const (
	BatchOutcomeCompleted        BatchOutcomeKind = "completed"
	BatchOutcomeCompletedPartial BatchOutcomeKind = "completed_partial"
	BatchOutcomeFailed           BatchOutcomeKind = "failed"
)

// BatchOutcome is the aggregate result of revealing a session's inscriptions.
type BatchOutcome struct {
	Kind      BatchOutcomeKind
	Succeeded int
	Failed    int
}

// NewBatchOutcome derives the outcome from per-item reveal counts.
func NewBatchOutcome(succeeded, failed int) BatchOutcome {
	kind := BatchOutcomeCompleted
	switch {
	case succeeded == 0:
		kind = BatchOutcomeFailed
	case failed > 0:
		kind = BatchOutcomeCompletedPartial
	}
	return BatchOutcome{
		Kind:      kind,
		Succeeded: succeeded,
		Failed:    failed,
	}
}

// SessionStatus maps the outcome to the session status it implies.
func (o BatchOutcome) SessionStatus() MintSessionStatus {
	switch o.Kind {
	case BatchOutcomeCompleted:
		return MintSessionStatusCompleted
	case BatchOutcomeCompletedPartial:
		return MintSessionStatusCompletedPartial
	default:
		return MintSessionStatusFailed
	}
}
