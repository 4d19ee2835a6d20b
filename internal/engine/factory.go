package engine

import (
	"regime-engine/internal/interfaces"
	"regime-engine/internal/memory"
)

// New builds the fusion engine. A nil mem uses process memory; a nil ns
// disables the news contribution.
func New(mem interfaces.RegimeMemory, ns interfaces.NewsSignals, fresh Freshness) interfaces.Engine {
	if mem == nil {
		mem = memory.NewInMemory()
	}
	return newEngine(mem, ns, fresh)
}
