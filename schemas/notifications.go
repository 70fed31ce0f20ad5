package schemas

import (
	"time"
)

const (
	NOTIFICATION_KIND_ADMIN  = "admin"
	NOTIFICATION_KIND_SYSTEM = "system"
	NOTIFICATION_KIND_LEAD   = "lead"
)

const (
	DISPATCH_DELIVERED = "delivered"
	DISPATCH_FAILED    = "failed"
)

type DispatchRequest struct {
	Title            string   `json:"title"`
	Body             string   `json:"body"`
	Kind             string   `json:"kind"`
	TargetPartnerIDs []string `json:"target_partner_ids"`
}

// DispatchOutcome é o resultado de um parceiro. O mapa agregado sempre cobre
// todos os parceiros pedidos, mesmo em falha total.
type DispatchOutcome struct {
	Status         string `json:"status"`
	Reason         string `json:"reason,omitempty"`
	NotificationID string `json:"notification_id,omitempty"`
}

// Notification é o documento gravado na partição do parceiro.
type Notification struct {
	ID        string    `json:"id" bson:"_id"`
	Title     string    `json:"title" bson:"title"`
	Body      string    `json:"body" bson:"body"`
	Kind      string    `json:"kind" bson:"kind"`
	SentBy    string    `json:"sent_by" bson:"sent_by"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// NotificationMessage referencia a notificação na caixa de mensagens do
// parceiro. Faz parte da tripla atômica junto com o registro de auditoria.
type NotificationMessage struct {
	ID             string    `json:"id" bson:"_id"`
	NotificationID string    `json:"notification_id" bson:"notification_id"`
	PartnerID      string    `json:"partner_id" bson:"partner_id"`
	Title          string    `json:"title" bson:"title"`
	Body           string    `json:"body" bson:"body"`
	Read           bool      `json:"read" bson:"read"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
}

type DispatchAuditRecord struct {
	NotificationID string    `json:"notification_id" bson:"notification_id"`
	PartnerID      string    `json:"partner_id" bson:"partner_id"`
	Kind           string    `json:"kind" bson:"kind"`
	Title          string    `json:"title" bson:"title"`
	SentBy         string    `json:"sent_by" bson:"sent_by"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
}
