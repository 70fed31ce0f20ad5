package schemas

import (
	"time"
)

// Partner é um parceiro do console. A identidade (id, nome, ativo) vem do
// registro legado em MySQL; o estado de assinatura (tier, cota, uso) vive no
// MongoDB e é mantido pelo módulo de assinaturas.
type Partner struct {
	ID           string    `json:"id" bson:"_id"`
	DisplayName  string    `json:"display_name" bson:"display_name"`
	Active       bool      `json:"active" bson:"active"`
	Tier         Tier      `json:"tier" bson:"tier"`
	MaxQuota     int       `json:"max_quota" bson:"max_quota"`
	CurrentUsage int       `json:"current_usage" bson:"current_usage"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at,omitempty"`
}

// OverQuota informa quando o uso passou da cota (ex.: após downgrade).
// O uso nunca é cortado silenciosamente, apenas reportado.
func (p Partner) OverQuota() bool {
	return p.CurrentUsage > p.MaxQuota
}

type AdminUser struct {
	ID    int      `json:"id"`
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}
