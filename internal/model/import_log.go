package model

import "time"

// ImportAction действие, попадающее в журнал
type ImportAction string

const (
	ActionImport ImportAction = "import"
	ActionExport ImportAction = "export"
	ActionSend   ImportAction = "send"
)

// ImportLog запись журнала загрузок
type ImportLog struct {
	ID        int64        `json:"id"`
	SessionID string       `json:"sessionId"`
	Action    ImportAction `json:"action"`
	FileName  string       `json:"fileName"`
	Rows      int          `json:"rows"`
	Errors    int          `json:"errors"`
	Recipient string       `json:"recipient,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
}
