package database

import (
	"console/utils"
	"fmt"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	MONGO_TIMEOUT = 20 * time.Second

	COLLECTION_PARTNERS             = "partners"
	COLLECTION_SUBSCRIPTION_HISTORY = "subscription_history"
	COLLECTION_ADMIN_AUDIT_LOG      = "admin_audit_log"

	COLLECTION_PARTNER_LEADS_PREFIX         = "partner_leads_"
	COLLECTION_PARTNER_NOTIFICATIONS_PREFIX = "partner_notifications_"
	COLLECTION_PARTNER_MESSAGES_PREFIX      = "partner_messages_"
)

// Coleções particionadas: uma coleção por parceiro, nome derivado do id.
func PartnerLeadsCollection(partnerID string) string {
	return COLLECTION_PARTNER_LEADS_PREFIX + partnerID
}

func PartnerNotificationsCollection(partnerID string) string {
	return COLLECTION_PARTNER_NOTIFICATIONS_PREFIX + partnerID
}

func PartnerMessagesCollection(partnerID string) string {
	return COLLECTION_PARTNER_MESSAGES_PREFIX + partnerID
}

func GetDB() string {
	environment := os.Getenv(utils.ENV)

	if environment == utils.ENV_RELEASE {
		return "production"
	}

	if environment == utils.ENV_HOMOLOG {
		return "homolog"
	}

	if environment == utils.ENV_DEVELOPMENT {
		return "development"
	}

	panic("[MongoDB] Invalid DB name")
}

// ConnectMongo abre o cliente compartilhado do processo. Diferente dos
// handlers antigos que conectavam por requisição, os change streams precisam
// de um cliente de vida longa.
func ConnectMongo() (*mongo.Client, error) {
	mongoURI := os.Getenv(utils.MONGODB_URI)
	opts := options.Client().ApplyURI(mongoURI)
	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("conectando ao MongoDB: %w", err)
	}
	return client, nil
}
