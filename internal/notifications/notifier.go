// Package notifications delivers best-effort, fire-and-forget outcome
// notifications. Delivery failures are logged, never surfaced to callers.
package notifications

import (
	"github.com/containrrr/shoutrrr/pkg/router"
	"github.com/containrrr/shoutrrr/pkg/types"
	"github.com/sirupsen/logrus"
)

// Notifier handles sending notifications via Shoutrrr.
type Notifier struct {
	sr *router.ServiceRouter
}

// NewNotifier initializes a Notifier with the provided Shoutrrr URLs.
func NewNotifier(cfg *Config) (*Notifier, error) {
	sr, err := router.New(nil, cfg.ShoutrrrURLs...)
	if err != nil {
		return nil, err
	}
	return &Notifier{sr: sr}, nil
}

// Send sends a notification message to all configured services.
func (n *Notifier) Send(title, message string) {
	params := types.Params{
		"title": title,
	}
	errs := n.sr.Send(message, &params)
	for _, err := range errs {
		if err != nil {
			logrus.WithError(err).Error("Failed to send notification")
		}
	}
}

// LogNotifier writes notifications to the log. Used when no notification
// service is configured, so scan outcomes are still observable.
type LogNotifier struct{}

func (LogNotifier) Send(title, message string) {
	logrus.WithField("title", title).Info(message)
}
