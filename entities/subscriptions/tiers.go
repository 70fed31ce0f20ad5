package subscriptions

import (
	"console/schemas"
)

// Tabelas fixas de preço (R$/mês) e cota por tier. São funções puras do
// tier e pertencem a este módulo; ninguém mais recalcula cota.
var priceTable = map[schemas.Tier]int{
	schemas.TierNone:         0,
	schemas.TierBasic:        180,
	schemas.TierProfessional: 299,
	schemas.TierEnterprise:   499,
}

var quotaTable = map[schemas.Tier]int{
	schemas.TierNone:         10,
	schemas.TierBasic:        50,
	schemas.TierProfessional: 100,
	schemas.TierEnterprise:   500,
}

func TierPrice(tier schemas.Tier) int {
	return priceTable[tier]
}

func TierQuota(tier schemas.Tier) int {
	return quotaTable[tier]
}
