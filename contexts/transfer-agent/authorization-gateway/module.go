package authorizationgateway

import (
	"log/slog"
	"time"

	httpadapter "quill/contexts/transfer-agent/authorization-gateway/adapters/http"
	"quill/contexts/transfer-agent/authorization-gateway/adapters/memory"
	"quill/contexts/transfer-agent/authorization-gateway/application"
	"quill/contexts/transfer-agent/authorization-gateway/domain/entities"
	"quill/contexts/transfer-agent/authorization-gateway/ports"
)

type Module struct {
	Service *application.Service
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Repository         ports.Repository
	Invoker            ports.CommandInvoker
	Clock              ports.Clock
	IDGenerator        ports.IDGenerator
	SelfAddress        string
	HighValueThreshold uint64
	HoldDuration       time.Duration
	FreshnessWindow    time.Duration
	Logger             *slog.Logger
}

func NewModule(deps Dependencies) Module {
	service := &application.Service{
		Repo:               deps.Repository,
		Invoker:            deps.Invoker,
		Clock:              deps.Clock,
		IDGen:              deps.IDGenerator,
		Logger:             deps.Logger,
		SelfAddress:        deps.SelfAddress,
		HighValueThreshold: deps.HighValueThreshold,
		HoldDuration:       deps.HoldDuration,
		FreshnessWindow:    deps.FreshnessWindow,
	}
	return Module{
		Service: service,
		Handler: httpadapter.Handler{
			Service: service,
			Logger:  deps.Logger,
		},
	}
}

func NewInMemoryModule(roster entities.Roster, deps Dependencies, logger *slog.Logger) Module {
	store := memory.NewStore(roster)
	deps.Repository = store
	deps.Clock = store
	deps.IDGenerator = store
	deps.Logger = logger
	module := NewModule(deps)
	module.Store = store
	return module
}
