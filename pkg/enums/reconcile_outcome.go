package enums

// ReconcileOutcome classifies what applying a gateway observation did.
type ReconcileOutcome string

const (
	// ReconcileApplied means the observation produced a state transition.
	ReconcileApplied ReconcileOutcome = "applied"
	// ReconcileDuplicate means the transaction already left Pending; nothing changed.
	ReconcileDuplicate ReconcileOutcome = "duplicate"
	// ReconcileNotFound means no local transaction matches the invoice.
	ReconcileNotFound ReconcileOutcome = "not_found"
	// ReconcileRejected means the reported amount disagreed with the ledger.
	ReconcileRejected ReconcileOutcome = "rejected"
)

// String implements fmt.Stringer.
func (r ReconcileOutcome) String() string {
	return string(r)
}
