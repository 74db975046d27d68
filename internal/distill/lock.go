package distill

import (
	"sync"

	"github.com/mnemoshq/mnemos/internal/memerr"
)

// scopeLocks serializes runs per scope (owner, or the all-owners scope
// keyed by the empty string). A run over all owners also conflicts with
// any per-owner run, since its work overlaps every scope.
type scopeLocks struct {
	mu     sync.Mutex
	active map[string]bool
}

func (l *scopeLocks) tryLock(scope string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active == nil {
		l.active = make(map[string]bool)
	}
	if l.active[scope] || l.active[""] {
		return false
	}
	if scope == "" && len(l.active) > 0 {
		return false
	}
	l.active[scope] = true
	return true
}

func (l *scopeLocks) unlock(scope string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.active, scope)
}

func errRunInProgress(scope string) error {
	if scope == "" {
		return memerr.New(memerr.CodeQuotaExceeded, "a distillation run is already in progress")
	}
	return memerr.Newf(memerr.CodeQuotaExceeded, "a distillation run is already in progress for owner %s", scope)
}
