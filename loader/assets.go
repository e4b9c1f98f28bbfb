// SPDX-License-Identifier: EPL-2.0

package loader

import (
	"sync"

	"github.com/ik5/audsched/audio"
)

// Assets holds every buffer loaded so far. Ids are handed out in load order
// starting from zero and are never reused.
type Assets struct {
	mu   sync.RWMutex
	bufs []*audio.Buffer
}

func (a *Assets) Add(buf *audio.Buffer) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.bufs = append(a.bufs, buf)

	return len(a.bufs) - 1
}

func (a *Assets) Get(id int) (*audio.Buffer, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if id < 0 || id >= len(a.bufs) {
		return nil, false
	}

	return a.bufs[id], true
}

func (a *Assets) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return len(a.bufs)
}
