package emergency

import (
	"sync"

	"GuardianSOS/pkg/util"
)

const lockStripes = 64

// alertLocks serializes status writes per alert inside this process; the
// database row lock covers the multi-instance case.
type alertLocks struct {
	stripes [lockStripes]sync.Mutex
}

func (l *alertLocks) lock(alertID uint) func() {
	m := &l.stripes[util.GetCrc16(int64(alertID))%lockStripes]
	m.Lock()
	return m.Unlock
}
