package bot

import (
	"sync/atomic"

	"github.com/Proton-105/emerans-bots/pkg/config"
)

// Admins is the admin id set of one bot. It is swapped as a whole when the
// config file changes, so readers never see a partial list.
type Admins struct {
	ids atomic.Pointer[[]int64]
}

// NewAdmins creates a set holding ids.
func NewAdmins(ids []int64) *Admins {
	a := &Admins{}
	a.Set(ids)
	return a
}

// Set replaces the whole set.
func (a *Admins) Set(ids []int64) {
	cp := append([]int64(nil), ids...)
	a.ids.Store(&cp)
}

// Contains reports whether userID is an admin. A nil set has no admins.
func (a *Admins) Contains(userID int64) bool {
	if a == nil {
		return false
	}
	ids := a.ids.Load()
	if ids == nil {
		return false
	}
	return config.IsAdmin(*ids, userID)
}
