package postgresadapter

import "time"

type operationModel struct {
	OperationID uint64    `gorm:"column:operation_id;primaryKey;autoIncrement"`
	Command     []byte    `gorm:"column:command"`
	Value       uint64    `gorm:"column:value"`
	Executed    bool      `gorm:"column:executed;index"`
	SubmittedAt time.Time `gorm:"column:submitted_at"`
}

func (operationModel) TableName() string { return "gateway_operations" }

type confirmationModel struct {
	OperationID uint64 `gorm:"column:operation_id;primaryKey"`
	Member      string `gorm:"column:member;primaryKey"`
	Position    int    `gorm:"column:position"`
}

func (confirmationModel) TableName() string { return "gateway_confirmations" }

type memberModel struct {
	Member   string `gorm:"column:member;primaryKey"`
	Position int    `gorm:"column:position"`
}

func (memberModel) TableName() string { return "gateway_members" }

type configModel struct {
	ID        int `gorm:"column:id;primaryKey"`
	Threshold int `gorm:"column:threshold"`
}

func (configModel) TableName() string { return "gateway_config" }

type allowListModel struct {
	Destination string `gorm:"column:destination;primaryKey"`
	Position    int    `gorm:"column:position"`
}

func (allowListModel) TableName() string { return "gateway_allowlist" }

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type;index"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status;index"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string { return "gateway_outbox" }
