package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	authorizationgateway "quill/contexts/transfer-agent/authorization-gateway"
	gatewaypostgres "quill/contexts/transfer-agent/authorization-gateway/adapters/postgres"
	gatewayworkers "quill/contexts/transfer-agent/authorization-gateway/application/workers"
	gatewayentities "quill/contexts/transfer-agent/authorization-gateway/domain/entities"
	positionledger "quill/contexts/transfer-agent/position-ledger"
	ledgerpostgres "quill/contexts/transfer-agent/position-ledger/adapters/postgres"
	ledgerworkers "quill/contexts/transfer-agent/position-ledger/application/workers"
	ledgerentities "quill/contexts/transfer-agent/position-ledger/domain/entities"
	ledgerports "quill/contexts/transfer-agent/position-ledger/ports"
	"quill/internal/platform/config"
	"quill/internal/platform/db"
	"quill/internal/platform/httpserver"
	"quill/internal/platform/messaging"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres     *db.Postgres
	ledgerRelay  ledgerworkers.OutboxRelay
	gatewayRelay gatewayworkers.OutboxRelay
	pollInterval time.Duration
	logger       *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	ledgerRepo := ledgerpostgres.NewRepository(pg.DB, logger)
	if err := ledgerRepo.Migrate(seedAdminState(cfg)); err != nil {
		return nil, err
	}
	ledgerModule := positionledger.NewModule(positionledger.Dependencies{
		Repository:  ledgerRepo,
		Clock:       ledgerpostgres.SystemClock{},
		IDGenerator: ledgerpostgres.UUIDGenerator{},
		Logger:      logger,
	})

	gatewayRepo := gatewaypostgres.NewRepository(pg.DB, logger)
	if err := gatewayRepo.Migrate(seedRoster(cfg)); err != nil {
		return nil, err
	}
	invoker := &commandInvoker{
		ledger: ledgerModule.Service,
		self:   cfg.GatewaySelfAddress,
	}
	gatewayModule := authorizationgateway.NewModule(authorizationgateway.Dependencies{
		Repository:         gatewayRepo,
		Invoker:            invoker,
		Clock:              gatewaypostgres.SystemClock{},
		IDGenerator:        gatewaypostgres.UUIDGenerator{},
		SelfAddress:        cfg.GatewaySelfAddress,
		HighValueThreshold: cfg.HighValueThreshold,
		HoldDuration:       cfg.HoldDuration,
		FreshnessWindow:    cfg.FreshnessWindow,
		Logger:             logger,
	})
	invoker.gateway = gatewayModule.Service

	server := httpserver.New(ledgerModule, gatewayModule, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	kafka, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		return nil, err
	}

	ledgerRepo := ledgerpostgres.NewRepository(pg.DB, logger)
	gatewayRepo := gatewaypostgres.NewRepository(pg.DB, logger)
	return &WorkerApp{
		postgres: pg,
		ledgerRelay: ledgerworkers.OutboxRelay{
			Outbox:    ledgerRepo,
			Publisher: kafka,
			Clock:     ledgerpostgres.SystemClock{},
			BatchSize: 100,
			Logger:    logger,
		},
		gatewayRelay: gatewayworkers.OutboxRelay{
			Outbox:    gatewayRepo,
			Publisher: kafka,
			Clock:     gatewaypostgres.SystemClock{},
			BatchSize: 100,
			Logger:    logger,
		},
		pollInterval: 2 * time.Second,
		logger:       logger,
	}, nil
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	for {
		if err := w.ledgerRelay.RunOnce(ctx); err != nil {
			return err
		}
		if err := w.gatewayRelay.RunOnce(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

func seedAdminState(cfg config.Config) ledgerports.AdminState {
	return ledgerports.AdminState{
		Registrar: ledgerentities.RegistrarPrincipal{
			Kind:    ledgerentities.RegistrarKindDirect,
			Address: cfg.RegistrarAddress,
		},
		Issuer:    cfg.IssuerAddress,
		UnitAsset: cfg.UnitAsset,
		FeeAsset:  cfg.FeeAsset,
		FeePolicy: ledgerentities.FeePolicy{
			Mode:       ledgerentities.FeeMode(cfg.FeeMode),
			FlatAmount: cfg.FeeFlatAmount,
			RateBps:    cfg.FeeRateBps,
		},
	}
}

func seedRoster(cfg config.Config) gatewayentities.Roster {
	members := cfg.GatewayMembers
	if len(members) == 0 {
		members = []string{cfg.RegistrarAddress}
	}
	threshold := cfg.GatewayThreshold
	if threshold < 1 {
		threshold = 1
	}
	if threshold > len(members) {
		threshold = len(members)
	}
	return gatewayentities.Roster{Members: members, Threshold: threshold}
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}

// commandInvoker routes ratified gateway commands to their targets. Ledger
// kinds call the position ledger with the gateway identity as caller;
// self-governing kinds call back into the gateway service the same way.
type commandInvoker struct {
	ledger  ledgerService
	gateway gatewayService
	self    string
}

type ledgerService interface {
	Issue(ctx context.Context, caller, holder string, amount uint64, class string, date time.Time) error
	MoveExact(ctx context.Context, caller, from, to string, amount uint64, class string, date time.Time) error
	ForcedMove(ctx context.Context, caller, from, to string, amount uint64, evidence string) error
	SetFrozen(ctx context.Context, caller, address string, frozen bool) error
	SetBrokerApproved(ctx context.Context, caller, address string, approved bool) error
	SetFeePolicy(ctx context.Context, caller string, policy ledgerentities.FeePolicy) error
	ProcessRequest(ctx context.Context, caller string, requestID uint64, approve bool) error
	RejectRequest(ctx context.Context, caller string, requestID uint64, reasonCode string, refund bool) error
	WithdrawFees(ctx context.Context, caller, to string, amount uint64) error
	RecoverAsset(ctx context.Context, caller, asset, to string, amount uint64) error
	ChangeIssuer(ctx context.Context, caller, issuer string) error
}

type gatewayService interface {
	AddMember(ctx context.Context, caller, member string) error
	RemoveMember(ctx context.Context, caller, member string) error
	SetThreshold(ctx context.Context, caller string, threshold int) error
	AllowDestination(ctx context.Context, caller, destination string) error
	DisallowDestination(ctx context.Context, caller, destination string) error
}

func (inv *commandInvoker) Invoke(ctx context.Context, command gatewayentities.Command) error {
	switch command.Kind {
	case gatewayentities.KindIssue:
		return inv.ledger.Issue(ctx, inv.self, command.Holder, command.Amount, command.ExemptionClass, command.IssuanceDate)
	case gatewayentities.KindMoveExact:
		return inv.ledger.MoveExact(ctx, inv.self, command.From, command.To, command.Amount, command.ExemptionClass, command.IssuanceDate)
	case gatewayentities.KindForcedMove:
		return inv.ledger.ForcedMove(ctx, inv.self, command.From, command.To, command.Amount, command.Evidence)
	case gatewayentities.KindSetFrozen:
		return inv.ledger.SetFrozen(ctx, inv.self, command.Address, command.Flag)
	case gatewayentities.KindSetBrokerApproved:
		return inv.ledger.SetBrokerApproved(ctx, inv.self, command.Address, command.Flag)
	case gatewayentities.KindSetFeePolicy:
		return inv.ledger.SetFeePolicy(ctx, inv.self, ledgerentities.FeePolicy{
			Mode:         ledgerentities.FeeMode(command.FeeMode),
			FlatAmount:   command.FeeFlatAmount,
			RateBps:      command.FeeRateBps,
			OpaqueAmount: command.FeeOpaqueAmount,
		})
	case gatewayentities.KindProcessRequest:
		return inv.ledger.ProcessRequest(ctx, inv.self, command.RequestID, command.Flag)
	case gatewayentities.KindRejectRequest:
		return inv.ledger.RejectRequest(ctx, inv.self, command.RequestID, command.ReasonCode, command.Flag)
	case gatewayentities.KindWithdrawFees:
		return inv.ledger.WithdrawFees(ctx, inv.self, command.To, command.Amount)
	case gatewayentities.KindRecoverAsset:
		return inv.ledger.RecoverAsset(ctx, inv.self, command.Asset, command.To, command.Amount)
	case gatewayentities.KindChangeIssuer:
		return inv.ledger.ChangeIssuer(ctx, inv.self, command.Issuer)
	case gatewayentities.KindAddMember:
		return inv.gateway.AddMember(ctx, inv.self, command.Address)
	case gatewayentities.KindRemoveMember:
		return inv.gateway.RemoveMember(ctx, inv.self, command.Address)
	case gatewayentities.KindSetThreshold:
		return inv.gateway.SetThreshold(ctx, inv.self, command.Threshold)
	case gatewayentities.KindAllowDestination:
		return inv.gateway.AllowDestination(ctx, inv.self, command.Address)
	case gatewayentities.KindDisallowDestination:
		return inv.gateway.DisallowDestination(ctx, inv.self, command.Address)
	default:
		return fmt.Errorf("unroutable command kind %q", command.Kind)
	}
}
