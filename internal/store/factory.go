package store

import "noiseguard.app/engine/core/db"

// Store bundles the relational stores behind one handle for injection.
type Store struct {
	Alerts         AlertStore
	Configurations AlertConfigurationStore
}

func New(database *db.DB) *Store {
	pool := database.Pool()
	return &Store{
		Alerts:         newAlertStore(pool),
		Configurations: newAlertConfigurationStore(pool),
	}
}
