package schemas

import (
	"time"
)

type Tier string

// Ordem estrita: none < basic < professional < enterprise. A ordem decide
// preço, cota e quando um downgrade exige confirmação.
const (
	TierNone         Tier = "none"
	TierBasic        Tier = "basic"
	TierProfessional Tier = "professional"
	TierEnterprise   Tier = "enterprise"
)

type TierChangeRequest struct {
	PartnerID            string `json:"partner_id"`
	FromTier             Tier   `json:"from_tier"`
	ToTier               Tier   `json:"to_tier"`
	RequiresConfirmation bool   `json:"requires_confirmation"`
	Confirmed            bool   `json:"confirmed"`
}

// SubscriptionHistoryEntry é imutável: uma entrada por transição efetivada,
// nunca alterada nem removida.
type SubscriptionHistoryEntry struct {
	ID        string    `json:"id" bson:"_id,omitempty"`
	PartnerID string    `json:"partner_id" bson:"partner_id"`
	FromTier  Tier      `json:"from_tier" bson:"from_tier"`
	ToTier    Tier      `json:"to_tier" bson:"to_tier"`
	ChangedBy string    `json:"changed_by" bson:"changed_by"`
	Reason    string    `json:"reason,omitempty" bson:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// TierChangeResult devolve o parceiro atualizado. Warning vem preenchido
// quando a troca valeu mas o registro de histórico falhou (auditoria é
// melhor-esforço, não parceiro transacional da troca).
type TierChangeResult struct {
	Partner Partner `json:"partner"`
	Warning string  `json:"warning,omitempty"`
}
