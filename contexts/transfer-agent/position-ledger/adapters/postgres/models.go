package postgresadapter

import (
	"time"

	"quill/contexts/transfer-agent/position-ledger/domain/entities"
)

type batchModel struct {
	ID             uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	Holder         string    `gorm:"column:holder;index:idx_ledger_batches_key,unique,priority:1"`
	ExemptionClass string    `gorm:"column:exemption_class;index:idx_ledger_batches_key,unique,priority:2"`
	IssuanceDate   time.Time `gorm:"column:issuance_date;index:idx_ledger_batches_key,unique,priority:3"`
	Amount         uint64    `gorm:"column:amount"`
}

func (batchModel) TableName() string { return "ledger_batches" }

type requestModel struct {
	RequestID  uint64    `gorm:"column:request_id;primaryKey;autoIncrement"`
	FromHolder string    `gorm:"column:from_holder;index"`
	ToHolder   string    `gorm:"column:to_holder"`
	Amount     uint64    `gorm:"column:amount"`
	FeeAsset   string    `gorm:"column:fee_asset"`
	FeeAmount  uint64    `gorm:"column:fee_amount"`
	Requester  string    `gorm:"column:requester"`
	Status     string    `gorm:"column:status;index"`
	ReasonCode string    `gorm:"column:reason_code"`
	Refunded   bool      `gorm:"column:refunded"`
	CreatedAt  time.Time `gorm:"column:created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

func (requestModel) TableName() string { return "ledger_requests" }

func requestModelFromEntity(request entities.TransferRequest) requestModel {
	return requestModel{
		RequestID:  request.RequestID,
		FromHolder: request.From,
		ToHolder:   request.To,
		Amount:     request.Amount,
		FeeAsset:   request.FeeAsset,
		FeeAmount:  request.FeeAmount,
		Requester:  request.Requester,
		Status:     string(request.Status),
		ReasonCode: request.ReasonCode,
		Refunded:   request.Refunded,
		CreatedAt:  request.CreatedAt.UTC(),
		UpdatedAt:  request.UpdatedAt.UTC(),
	}
}

func (m requestModel) toEntity() entities.TransferRequest {
	return entities.TransferRequest{
		RequestID:  m.RequestID,
		From:       m.FromHolder,
		To:         m.ToHolder,
		Amount:     m.Amount,
		FeeAsset:   m.FeeAsset,
		FeeAmount:  m.FeeAmount,
		Requester:  m.Requester,
		Status:     entities.RequestStatus(m.Status),
		ReasonCode: m.ReasonCode,
		Refunded:   m.Refunded,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

type complianceModel struct {
	Address        string `gorm:"column:address;primaryKey"`
	Frozen         bool   `gorm:"column:frozen"`
	BrokerApproved bool   `gorm:"column:broker_approved"`
}

func (complianceModel) TableName() string { return "ledger_compliance" }

type adminModel struct {
	ID               int    `gorm:"column:id;primaryKey"`
	RegistrarKind    string `gorm:"column:registrar_kind"`
	RegistrarAddress string `gorm:"column:registrar_address"`
	Issuer           string `gorm:"column:issuer"`
	UnitAsset        string `gorm:"column:unit_asset"`
	FeeAsset         string `gorm:"column:fee_asset"`
	FeeMode          string `gorm:"column:fee_mode"`
	FeeFlatAmount    uint64 `gorm:"column:fee_flat_amount"`
	FeeRateBps       uint64 `gorm:"column:fee_rate_bps"`
	FeeOpaqueAmount  uint64 `gorm:"column:fee_opaque_amount"`
}

func (adminModel) TableName() string { return "ledger_admin" }

type feeAccountModel struct {
	Asset   string `gorm:"column:asset;primaryKey"`
	Address string `gorm:"column:address;primaryKey"`
	Balance uint64 `gorm:"column:balance"`
}

func (feeAccountModel) TableName() string { return "ledger_fee_accounts" }

type escrowModel struct {
	Asset   string `gorm:"column:asset;primaryKey"`
	Balance uint64 `gorm:"column:balance"`
}

func (escrowModel) TableName() string { return "ledger_escrow" }

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type;index"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status;index"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string { return "ledger_outbox" }
