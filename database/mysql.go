package database

import (
	"console/utils"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

const (
	MYSQL_CONN_MAX_LIFETIME = 5 * time.Minute
	MYSQL_MAX_OPEN_CONNS    = 10
	MYSQL_MAX_IDLE_CONNS    = 10
)

// ConnectLegacy abre o pool para o ERP legado, onde o cadastro de parceiros
// continua morando.
func ConnectLegacy() (*sql.DB, error) {
	mysqlURI := os.Getenv(utils.MYSQL_URI)

	db, err := sql.Open("mysql", mysqlURI)
	if err != nil {
		return nil, fmt.Errorf("conectando ao MySQL legado: %w", err)
	}

	db.SetConnMaxLifetime(MYSQL_CONN_MAX_LIFETIME)
	db.SetMaxOpenConns(MYSQL_MAX_OPEN_CONNS)
	db.SetMaxIdleConns(MYSQL_MAX_IDLE_CONNS)

	return db, nil
}
