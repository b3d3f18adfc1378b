package config

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

// Поддерживаемые драйверы OLAP базы
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// DSN собирает строку подключения для выбранного драйвера
func (c DatabaseConfig) DSN() (string, error) {
	switch c.Driver {
	case DriverMySQL:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			c.User,
			c.Password,
			c.Host,
			c.Port,
			c.DBName,
		), nil
	case DriverSQLite:
		if c.DBName == "" {
			return "", fmt.Errorf("для sqlite нужно указать путь к файлу в dbname")
		}
		return c.DBName, nil
	default:
		return "", fmt.Errorf("неподдерживаемый драйвер базы данных %q", c.Driver)
	}
}

// ConnectDatabase устанавливает подключение к OLAP базе данных
func ConnectDatabase(cfg DatabaseConfig) (*sql.DB, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к OLAP базе данных: %w", err)
	}

	if cfg.Driver == DriverSQLite {
		// SQLite допускает одного писателя
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось установить соединение с OLAP базой данных: %w", err)
	}

	log.Printf("✅ Успешное подключение к OLAP базе данных (%s)", cfg.Driver)
	return db, nil
}

// CloseDatabase закрывает подключение к базе данных
func CloseDatabase(db *sql.DB) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		log.Printf("❌ Ошибка при закрытии соединения с OLAP базой данных: %v", err)
		return
	}
	log.Println("Соединение с OLAP базой данных закрыто")
}
