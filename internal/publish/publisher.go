// Package publish notifies downstream consumers (the search indexer) that a
// rendered artifact has been stored.
package publish

import "context"

// Notification describes one stored artifact.
type Notification struct {
	IconName      string `json:"iconName"`
	ComponentType string `json:"componentType"`
	Size          string `json:"size"`
	ObjectURI     string `json:"objectUri"`
	ContentType   string `json:"contentType"`
	RenderedAt    string `json:"renderedAt"`
}

// Publisher emits artifact notifications.
type Publisher interface {
	// Publish sends the notification and returns the broker's message ID.
	Publish(ctx context.Context, n Notification) (string, error)
	// Close releases broker resources.
	Close() error
}

// NoOp drops every notification.
type NoOp struct{}

// Publish for NoOp does nothing.
func (NoOp) Publish(_ context.Context, _ Notification) (string, error) {
	return "", nil
}

// Close for NoOp does nothing.
func (NoOp) Close() error { return nil }
