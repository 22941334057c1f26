package ledger

import (
	"github.com/osandoval-dev/storefront-backend/pkg/enums"
	pkgerrors "github.com/osandoval-dev/storefront-backend/pkg/errors"
)

// legalTransitions is the full transaction state machine. Anything absent
// here is rejected with CodeStateConflict so duplicate or out-of-order
// observations degrade to no-ops instead of corrupting the ledger.
var legalTransitions = map[enums.TransactionStatus][]enums.TransactionStatus{
	enums.TransactionStatusPending: {
		enums.TransactionStatusCompleted,
		enums.TransactionStatusFailed,
	},
	enums.TransactionStatusCompleted: {
		enums.TransactionStatusRefunded,
	},
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to enums.TransactionStatus) bool {
	for _, allowed := range legalTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CheckTransition returns a CodeStateConflict error when the move is illegal.
func CheckTransition(from, to enums.TransactionStatus) error {
	if !CanTransition(from, to) {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			"illegal transaction transition from "+from.String()+" to "+to.String())
	}
	return nil
}
