package tui

import "sync/atomic"

// scrollState adapts the bubbles viewport to chatsync.Viewport. Sync calls
// it from feed goroutines, so it only flips flags; the model applies them on
// its next update.
type scrollState struct {
	atBottom   atomic.Bool
	wantBottom atomic.Bool
}

func newScrollState() *scrollState {
	s := &scrollState{}
	s.atBottom.Store(true)
	return s
}

func (s *scrollState) AtBottom() bool {
	return s.atBottom.Load()
}

func (s *scrollState) ScrollToBottom() {
	s.wantBottom.Store(true)
	s.atBottom.Store(true)
}

// takeScroll reports and clears a pending scroll request.
func (s *scrollState) takeScroll() bool {
	return s.wantBottom.Swap(false)
}
