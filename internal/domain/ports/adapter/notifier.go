package adapter

import (
	"context"
	"time"
)

// ActivationNotice is what operators and buyers are told after a tag goes live.
type ActivationNotice struct {
	Token       string
	UserName    string
	UserEmail   string
	Provider    string
	TargetURL   string
	ActivatedAt time.Time
}

type Notifier interface {
	NotifyActivation(ctx context.Context, n ActivationNotice) error
	Name() string
}
