package icon

import (
	"log"
	"sync"
	"time"
)

// Renderer draws a label onto the displayed icon.
type Renderer interface {
	Render(label string) error
	Restore() error
}

// Badge displays plain text when the icon cannot be rendered.
type Badge interface {
	SetBadge(text string) error
}

// Presenter maps remaining time to the icon, falling back to a text badge.
type Presenter struct {
	mu       sync.Mutex
	renderer Renderer
	badge    Badge
	current  string
	idle     bool
}

// NewPresenter creates a presenter. Either collaborator may be nil.
func NewPresenter(renderer Renderer, badge Badge) *Presenter {
	return &Presenter{renderer: renderer, badge: badge}
}

// Show displays the label for the remaining time.
func (presenter *Presenter) Show(remaining time.Duration) {
	label := Label(remaining)

	presenter.mu.Lock()
	defer presenter.mu.Unlock()
	if !presenter.idle && presenter.current == label {
		return
	}
	presenter.current = label
	presenter.idle = false

	if presenter.renderer != nil {
		err := presenter.renderer.Render(label)
		if err == nil {
			return
		}
		log.Printf("icon: render %q failed: %v", label, err)
	}
	presenter.setBadgeLocked(label)
}

// Reset restores the default icon.
func (presenter *Presenter) Reset() {
	presenter.mu.Lock()
	defer presenter.mu.Unlock()
	if presenter.idle {
		return
	}
	presenter.idle = true
	presenter.current = ""

	if presenter.renderer != nil {
		err := presenter.renderer.Restore()
		if err == nil {
			return
		}
		log.Printf("icon: restore default failed: %v", err)
	}
	presenter.setBadgeLocked("")
}

// Current returns the label last shown, or "" when idle.
func (presenter *Presenter) Current() string {
	presenter.mu.Lock()
	defer presenter.mu.Unlock()
	return presenter.current
}

func (presenter *Presenter) setBadgeLocked(text string) {
	if presenter.badge == nil {
		return
	}
	if err := presenter.badge.SetBadge(text); err != nil {
		log.Printf("icon: set badge %q failed: %v", text, err)
	}
}
