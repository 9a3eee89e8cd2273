package extract

import (
	"math/rand"
	"sync"
)

// Assigner decides which extraction strategy a new session gets. The
// decision is made once at session creation and persisted with the
// session so a conversation never switches strategy midway.
type Assigner struct {
	def    Method
	abTest bool

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewAssigner creates an assigner with the configured default method.
// With abTest enabled, new sessions are split 50/50 between the two
// strategies regardless of the default.
func NewAssigner(def Method, abTest bool, seed int64) *Assigner {
	return &Assigner{
		def:    def,
		abTest: abTest,
		rnd:    rand.New(rand.NewSource(seed)),
	}
}

// Assign picks the strategy for a new session.
func (a *Assigner) Assign() Method {
	if !a.abTest {
		return a.def
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.rnd.Intn(2) == 0 {
		return MethodPattern
	}
	return MethodTranscript
}
