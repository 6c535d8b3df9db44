package storage

import "daybook/models"

// Snapshot is the full persisted state: standalone events and recurring
// masters as two logical collections. Derived instances are never stored.
type Snapshot struct {
	Events          []models.Event `json:"events"`
	RecurringEvents []models.Event `json:"recurringEvents"`
}

// Store is the persistence collaborator. Load is called once at startup;
// Save receives the complete current state after every mutation. Failures
// are surfaced as-is -- no retries happen at this layer.
type Store interface {
	Load() (Snapshot, error)
	Save(Snapshot) error
}
