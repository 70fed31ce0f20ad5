package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"console/config"
	"console/database"
	"console/entities/aggregation"
	"console/entities/history"
	"console/entities/notifications"
	"console/entities/partners"
	"console/entities/subscriptions"
	"console/logger"
	"console/metrics"
	"console/middlewares"
	"console/store"
	"console/utils"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	utils.LoadEnvVariables()

	env := os.Getenv(utils.ENV)
	if env == utils.ENV_RELEASE {
		fmt.Printf("\033[1;31;47m[ATENÇÃO] Rodando em ambiente de PRODUÇÃO!\033[0m\n")
	} else {
		fmt.Printf("[INFO] Ambiente atual: %s\n", env)
	}

	log := logger.New()
	defer log.Sync()

	cfg, err := config.Load(os.Getenv(utils.CONFIG_PATH))
	if err != nil {
		log.Fatal("configuração inválida", zap.Error(err))
	}

	mongoClient, err := database.ConnectMongo()
	if err != nil {
		log.Fatal("erro ao conectar no MongoDB", zap.Error(err))
	}

	legacyDB, err := database.ConnectLegacy()
	if err != nil {
		log.Fatal("erro ao conectar no MySQL legado", zap.Error(err))
	}

	redisClient, err := database.ConnectRedis()
	if err != nil {
		log.Fatal("erro ao conectar no Redis", zap.Error(err))
	}

	met := metrics.New()
	docs := store.NewMongo(mongoClient, database.GetDB(), log)
	registry := partners.NewLegacyRegistry(legacyDB)
	directory := partners.NewDirectory(registry, docs, redisClient, cfg.Directory.CacheTTL, log, met)

	aggregationService := aggregation.NewService(docs, directory, cfg.Aggregation, log, met)
	dispatcher := notifications.NewDispatcher(docs, directory, cfg.Dispatch, log, met)
	recorder := history.NewRecorder(docs, log)
	stateMachine := subscriptions.NewStateMachine(docs, directory, recorder, log, met)

	mux := http.NewServeMux()

	mux.Handle("GET /v1/console/partners", middlewares.AdminAuth(http.HandlerFunc(directory.GetAll)))
	mux.Handle("GET /v1/console/leads", middlewares.AdminAuth(http.HandlerFunc(aggregationService.GetAll)))
	mux.Handle("/v1/ws/console", middlewares.AdminAuth(http.HandlerFunc(aggregationService.ConsoleWebSocketHandler)))

	mux.Handle("POST /v1/console/notifications", middlewares.AdminAuth(http.HandlerFunc(dispatcher.CreateOne)))

	mux.Handle("POST /v1/console/subscriptions/request", middlewares.AdminAuth(http.HandlerFunc(stateMachine.RequestChangeHandler)))
	mux.Handle("POST /v1/console/subscriptions/execute", middlewares.AdminAuth(http.HandlerFunc(stateMachine.ExecuteHandler)))

	mux.Handle("GET /v1/console/history", middlewares.AdminAuth(http.HandlerFunc(recorder.GetAll)))

	mux.Handle("GET /metrics", promhttp.Handler())

	fmt.Printf("Servidor iniciado na porta %s às %s\n", os.Getenv(utils.PORT), time.Now().Format("2006-01-02 15:04:05"))
	http.ListenAndServe(fmt.Sprintf(":%s", os.Getenv(utils.PORT)), middlewares.SecurityHeaders(middlewares.Cors(mux)))
}
