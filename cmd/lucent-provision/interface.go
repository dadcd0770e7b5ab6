package main

import (
	"context"

	"github.com/lucent-labs/lucent-provision/internal/app"
)

type application interface {
	Run(ctx context.Context) error
	Close() error
}

var _ application = (*app.App)(nil)
