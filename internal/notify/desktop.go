package notify

import (
	"context"
	"fmt"

	"github.com/gen2brain/beeep"
)

// DesktopPresenter shows a native desktop notification.
type DesktopPresenter struct {
	notify func(title, message string) error
}

func NewDesktopPresenter() *DesktopPresenter {
	return &DesktopPresenter{
		notify: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
	}
}

func (p *DesktopPresenter) Present(_ context.Context, n Notification) error {
	if err := p.notify(n.Title, n.Body); err != nil {
		return fmt.Errorf("failed to show desktop notification: %w", err)
	}
	return nil
}
