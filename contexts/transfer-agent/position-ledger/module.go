package positionledger

import (
	"log/slog"

	httpadapter "quill/contexts/transfer-agent/position-ledger/adapters/http"
	"quill/contexts/transfer-agent/position-ledger/adapters/memory"
	"quill/contexts/transfer-agent/position-ledger/application"
	"quill/contexts/transfer-agent/position-ledger/ports"
)

type Module struct {
	Service *application.Service
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Repository  ports.Repository
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

func NewModule(deps Dependencies) Module {
	service := &application.Service{
		Repo:   deps.Repository,
		Clock:  deps.Clock,
		IDGen:  deps.IDGenerator,
		Logger: deps.Logger,
	}
	return Module{
		Service: service,
		Handler: httpadapter.Handler{
			Service: service,
			Logger:  deps.Logger,
		},
	}
}

func NewInMemoryModule(admin ports.AdminState, logger *slog.Logger) Module {
	store := memory.NewStore(admin)
	module := NewModule(Dependencies{
		Repository:  store,
		Clock:       store,
		IDGenerator: store,
		Logger:      logger,
	})
	module.Store = store
	return module
}
