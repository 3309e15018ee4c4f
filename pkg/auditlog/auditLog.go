package auditlog

import (
	"log"

	"toolroom/pkg/models"
)

type LogStore interface {
	PersistLog(auditlog models.AuditLog, auditLogData interface{}) error
}

type Auditlog struct {
	store LogStore
}

type Auditable interface {
	CreateLogView() models.AuditLog
}

func (a *Auditlog) Log(action string, data interface{}, item Auditable) {
	auditLog := item.CreateLogView()
	auditLog.Action = action

	err := a.store.PersistLog(auditLog, data)

	if err != nil {
		log.Println("Unable to create AuditLog entry for id ", auditLog.ResourceID)
		return
	}

	log.Println("Created AuditLog entry for id ", auditLog.ResourceID)
}

func NewAuditLog(store LogStore) *Auditlog {
	return &Auditlog{store: store}
}
