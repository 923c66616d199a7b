package auth

import "sync"

// PromptGate makes sure at most one sign-in prompt is open per session.
// The zero value is ready to use.
type PromptGate struct {
	mu   sync.Mutex
	open map[string]struct{}
}

// TryAcquire reports whether the caller may open the prompt for session.
func (g *PromptGate) TryAcquire(session string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.open == nil {
		g.open = map[string]struct{}{}
	}
	if _, busy := g.open[session]; busy {
		return false
	}
	g.open[session] = struct{}{}
	return true
}

func (g *PromptGate) Release(session string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.open, session)
}
