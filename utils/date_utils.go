package utils

import (
	"time"
)

// IsValidDate aceita os dois formatos do parâmetro updated_after: RFC3339
// ou data pura (AAAA-MM-DD).
func IsValidDate(dateStr string) bool {
	if dateStr == "" {
		return false
	}
	if _, err := time.Parse(time.RFC3339, dateStr); err == nil {
		return true
	}
	_, err := time.Parse("2006-01-02", dateStr)
	return err == nil
}
