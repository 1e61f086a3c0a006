package chatsync

import "sync"

// StaticViewport is a Viewport for headless use: it is either at the bottom or not.
type StaticViewport struct {
	mu      sync.Mutex
	Bottom  bool
	scrolls int
}

func (v *StaticViewport) AtBottom() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.Bottom
}

func (v *StaticViewport) ScrollToBottom() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Bottom = true
	v.scrolls++
}

// SetBottom moves the viewport to or away from the bottom.
func (v *StaticViewport) SetBottom(bottom bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Bottom = bottom
}

// Scrolls counts ScrollToBottom calls.
func (v *StaticViewport) Scrolls() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.scrolls
}

// PixelViewport tracks a scrollable element measured in pixels.
type PixelViewport struct {
	mu           sync.Mutex
	scrollHeight float64
	clientHeight float64
	scrollTop    float64
}

func NewPixelViewport(clientHeight float64) *PixelViewport {
	return &PixelViewport{clientHeight: clientHeight, scrollHeight: clientHeight}
}

// Measure records the latest element geometry.
func (v *PixelViewport) Measure(scrollHeight, clientHeight, scrollTop float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.scrollHeight, v.clientHeight, v.scrollTop = scrollHeight, clientHeight, scrollTop
}

func (v *PixelViewport) AtBottom() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return IsPinned(v.scrollHeight, v.clientHeight, v.scrollTop)
}

func (v *PixelViewport) ScrollToBottom() {
	v.mu.Lock()
	defer v.mu.Unlock()
	top := v.scrollHeight - v.clientHeight
	if top < 0 {
		top = 0
	}
	v.scrollTop = top
}
