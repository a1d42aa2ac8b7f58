package testfixtures

import (
	"github.com/example/call-scheduler/internal/adapters"
	"github.com/example/call-scheduler/internal/persistence"
	"github.com/example/call-scheduler/internal/persistence/memory"
)

// Repositories is satisfied by every storage backend that implements all
// persistence repositories.
type Repositories interface {
	persistence.ProfileRepository
	persistence.BlockedIntervalRepository
	persistence.ScheduleStateRepository
	persistence.CallAttemptRepository
}

// Stores bundles the application adapters over one storage backend.
type Stores struct {
	Profiles  *adapters.ProfileStore
	Intervals *adapters.BlockedIntervalStore
	States    *adapters.ScheduleStateStore
	Attempts  *adapters.CallAttemptLog
}

// NewStores wraps repos in application adapters.
func NewStores(repos Repositories) Stores {
	return Stores{
		Profiles:  adapters.NewProfileStore(repos),
		Intervals: adapters.NewBlockedIntervalStore(repos),
		States:    adapters.NewScheduleStateStore(repos),
		Attempts:  adapters.NewCallAttemptLog(repos),
	}
}

// NewMemoryStores returns adapters over a fresh in-memory storage together
// with the storage itself.
func NewMemoryStores() (Stores, *memory.Storage) {
	storage := memory.New()
	return NewStores(storage), storage
}
