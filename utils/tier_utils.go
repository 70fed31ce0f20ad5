package utils

import (
	"console/schemas"
	"fmt"
)

var tierRank = map[schemas.Tier]int{
	schemas.TierNone:         0,
	schemas.TierBasic:        1,
	schemas.TierProfessional: 2,
	schemas.TierEnterprise:   3,
}

func ParseTier(raw string) (schemas.Tier, error) {
	tier := schemas.Tier(raw)
	if _, ok := tierRank[tier]; !ok {
		return "", fmt.Errorf("tier inválido: %q", raw)
	}
	return tier, nil
}

func TierRank(tier schemas.Tier) int {
	return tierRank[tier]
}

// IsDowngrade diz se a troca desce na ordem de tiers. Downgrades exigem
// confirmação explícita antes de executar.
func IsDowngrade(from, to schemas.Tier) bool {
	return tierRank[to] < tierRank[from]
}
