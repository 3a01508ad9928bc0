package model

import "time"

// CorrectionRecord captures one user correction of a transaction's
// category, keyed by the normalized description signature. Records are
// aggregated by the learning engine and never queried individually by
// other components.
type CorrectionRecord struct {
	CreatedAt     time.Time
	Signature     string
	Category      string
	TransactionID string
	ID            int
}
