package schemas

import (
	"time"
)

const (
	LEAD_STATUS_NEW       = "new"
	LEAD_STATUS_CONTACTED = "contacted"
	LEAD_STATUS_QUALIFIED = "qualified"
	LEAD_STATUS_CONVERTED = "converted"
	LEAD_STATUS_DISCARDED = "discarded"
)

// Lead é o registro particionado por parceiro. O console só lê leads, nunca
// escreve: a escrita é do app de cada parceiro.
type Lead struct {
	ID          string    `json:"id" bson:"_id"`
	PartnerID   string    `json:"partner_id" bson:"partner_id"`
	Name        string    `json:"name,omitempty" bson:"name,omitempty"`
	Phone       string    `json:"phone,omitempty" bson:"phone,omitempty"`
	Status      string    `json:"status,omitempty" bson:"status,omitempty"`
	Source      string    `json:"source,omitempty" bson:"source,omitempty"`
	Notes       string    `json:"notes,omitempty" bson:"notes,omitempty"`
	LastUpdated time.Time `json:"last_updated" bson:"last_updated"`
}

// ViewEntry é uma linha da visão consolidada: o lead mais o parceiro dono.
type ViewEntry struct {
	PartnerID string `json:"partner_id"`
	Lead      Lead   `json:"lead"`
}

// MergedView é a visão consolidada publicada a cada atualização. Ordenada por
// last_updated decrescente, com desempate por (partner_id, lead_id), e no
// máximo uma entrada por (partner_id, lead_id). Parceiros com stream caído
// aparecem em Degraded mas mantêm as últimas entradas conhecidas.
type MergedView struct {
	Entries  []ViewEntry `json:"entries"`
	Degraded []string    `json:"degraded,omitempty"`
}
