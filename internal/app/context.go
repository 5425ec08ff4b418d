package app

import (
	"context"

	"github.com/appcourier/appcourier/internal/domain"
	"github.com/appcourier/appcourier/internal/history"
	"github.com/appcourier/appcourier/internal/infra/config"
	"github.com/appcourier/appcourier/internal/infra/logger"
)

type Broker interface {
	// This allows the API layer to dispatch events without importing broker
	HandleEvent(ctx context.Context, ev domain.InboundEvent)
}

// Context holds the core environment and shared resources for the courier.
// It acts as the "Single Source of Truth" for the application state.
type Context struct {
	Config *config.Config
	Logger *logger.Logger

	// High-level interfaces for the API layer to use
	Broker  Broker
	History history.Store
}

// NewContext initializes the base environment.
func NewContext(cfg *config.Config, log *logger.Logger) *Context {
	return &Context{
		Config: cfg,
		Logger: log,
	}
}
