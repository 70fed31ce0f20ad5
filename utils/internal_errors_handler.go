package utils

import "fmt"

const (
	CONSOLE_INVALID_REQUEST_DATA = iota + 1
	CANNOT_CONNECT_TO_MONGODB
	CANNOT_CONNECT_TO_MYSQL
	CANNOT_CONNECT_TO_REDIS
	CANNOT_FIND_PARTNERS
	CANNOT_FIND_LEADS
	CANNOT_FIND_HISTORY
	CANNOT_DISPATCH_NOTIFICATION
	CANNOT_UPDATE_SUBSCRIPTION
	INVALID_PARTNER_ID
	INVALID_TIER
)

func SendInternalError(internalErrorCode int) string {
	return fmt.Sprintf("Ocorreu um erro interno no servidor. Por favor, tente novamente mais tarde (Cod: %d)", internalErrorCode)
}
