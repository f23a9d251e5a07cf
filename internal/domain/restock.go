package domain

import (
	"time"

	"assetverse-backend/internal/ids"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	RestockPending = "pending"
	RestockApplied = "applied"
	RestockSkipped = "skipped"
)

// RestockTask is one durable +1 owed to an asset. Key is unique so the same return (or
// the same undone approval) can never be credited twice.
type RestockTask struct {
	TaskID    string         `gorm:"column:task_id;type:varchar(26);primaryKey" json:"task_id"`
	Key       string         `gorm:"column:task_key;not null;uniqueIndex" json:"key"`
	AssetID   uuid.UUID      `gorm:"column:asset_id;type:uuid;not null;index" json:"asset_id"`
	Status    string         `gorm:"column:status;type:varchar(20);not null;default:'pending';index" json:"status"`
	Attempts  int            `gorm:"column:attempts;not null;default:0" json:"attempts"`
	LastError string         `gorm:"column:last_error" json:"last_error"`
	Details   datatypes.JSON `gorm:"column:details" json:"details"`
	CreatedAt time.Time      `gorm:"column:createdAt" json:"createdAt"`
	AppliedAt *time.Time     `gorm:"column:applied_at" json:"applied_at"`
}

func (RestockTask) TableName() string {
	return "restock_tasks"
}

// BeforeCreate assigns a ULID so tasks sort by creation time.
func (t *RestockTask) BeforeCreate(tx *gorm.DB) error {
	if t.TaskID == "" {
		t.TaskID = ids.New()
	}
	return nil
}
