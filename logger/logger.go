package logger

import (
	"console/utils"
	"os"

	"go.uber.org/zap"
)

// New monta o logger do processo: JSON em produção, console no resto.
func New() *zap.Logger {
	var cfg zap.Config
	if os.Getenv(utils.ENV) == utils.ENV_RELEASE {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}

	log, err := cfg.Build()
	if err != nil {
		panic("[LOG] Erro ao criar o logger: " + err.Error())
	}
	return log
}
