package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"tagpay/internal/domain/ports/adapter"
	"tagpay/internal/infra/metrics"
)

// Multi fans a notice out to every channel. One failing channel does not
// stop the others.
type Multi struct {
	notifiers []adapter.Notifier
	log       *zerolog.Logger
}

var _ adapter.Notifier = (*Multi)(nil)

func NewMulti(logger *zerolog.Logger, notifiers ...adapter.Notifier) *Multi {
	var ns []adapter.Notifier
	for _, n := range notifiers {
		if n != nil {
			ns = append(ns, n)
		}
	}
	return &Multi{notifiers: ns, log: logger}
}

func (m *Multi) Name() string { return "multi" }

// Len reports how many channels are configured.
func (m *Multi) Len() int { return len(m.notifiers) }

func (m *Multi) NotifyActivation(ctx context.Context, n adapter.ActivationNotice) error {
	var errs []error
	for _, nt := range m.notifiers {
		err := nt.NotifyActivation(ctx, n)
		metrics.IncNotification(nt.Name(), err)
		if err != nil {
			m.log.Warn().Err(err).Str("channel", nt.Name()).Str("token", n.Token).Msg("notification failed")
			errs = append(errs, fmt.Errorf("%s: %w", nt.Name(), err))
		}
	}
	return errors.Join(errs...)
}
