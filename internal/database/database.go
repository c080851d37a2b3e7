package database

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/OCAP2/luxreplay/internal/model"
	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MemoryDSN is the shared in-memory SQLite database.
const MemoryDSN = "file::memory:?cache=shared"

// Manager handles database connections and operations.
type Manager struct {
	DB              *gorm.DB
	SqlDB           *sql.DB
	IsValid         bool
	ShouldSaveLocal bool
	SqliteFilePath  string
	Logger          zerolog.Logger
}

// NewManager creates a new database manager.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		Logger: log,
	}
}

// Connect opens the database selected by db.driver. A failing Postgres
// connection falls back to SQLite at db.path.
func (m *Manager) Connect() error {
	var err error

	switch viper.GetString("db.driver") {
	case "sqlite":
		m.ShouldSaveLocal = true
		m.DB, err = m.GetSqliteDB(viper.GetString("db.path"))
		if err != nil {
			return fmt.Errorf("failed to open SQLite DB: %w", err)
		}
	default:
		m.DB, err = m.GetPostgresDB()
		if err == nil {
			err = m.ping()
		}
		if err != nil {
			m.Logger.Error().Err(err).Msg("Failed to connect to Postgres DB, trying SQLite")
			m.ShouldSaveLocal = true
			m.DB, err = m.GetSqliteDB(viper.GetString("db.path"))
			if err != nil {
				m.IsValid = false
				return fmt.Errorf("failed to get local SQLite DB: %w", err)
			}
		}
	}

	if m.SqlDB, err = m.DB.DB(); err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	m.IsValid = true
	m.Logger.Info().Str("dialect", m.DB.Dialector.Name()).Msg("Connected to database")

	if !m.ShouldSaveLocal {
		m.SqlDB.SetMaxOpenConns(10)
	}
	return nil
}

func (m *Manager) ping() error {
	sqlDB, err := m.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// PostgresDSN builds the Postgres connection string from viper config.
func PostgresDSN() string {
	return fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		viper.GetString("db.host"),
		viper.GetString("db.port"),
		viper.GetString("db.username"),
		viper.GetString("db.password"),
		viper.GetString("db.database"),
	)
}

// GetPostgresDB returns a connection to the Postgres database.
func (m *Manager) GetPostgresDB() (*gorm.DB, error) {
	m.Logger.Debug().
		Str("host", viper.GetString("db.host")).
		Str("database", viper.GetString("db.database")).
		Msg("Connecting to Postgres DB")

	return OpenPostgres()
}

// OpenPostgres opens a Postgres connection using the db.* config keys.
func OpenPostgres() (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  PostgresDSN(),
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        10000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
}

// GetSqliteDB returns a connection to a SQLite database.
// If path is empty, uses an in-memory database.
func (m *Manager) GetSqliteDB(path string) (*gorm.DB, error) {
	db, err := OpenSqlite(path)
	if err != nil {
		m.IsValid = false
		return nil, err
	}
	if path != "" {
		m.Logger.Info().Str("path", path).Msg("Using local SQLite DB")
	} else {
		m.Logger.Info().Msg("Using local SQLite DB in memory with periodic disk dump")
	}
	return db, nil
}

// OpenSqlite opens a SQLite database at path, or the shared in-memory
// database when path is empty, and applies the write-heavy PRAGMAs.
func OpenSqlite(path string) (*gorm.DB, error) {
	dsn := path
	if dsn == "" {
		dsn = MemoryDSN
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		CreateBatchSize:        2000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	pragmas := []string{
		"PRAGMA user_version = 1;",
		"PRAGMA journal_mode = MEMORY;",
		"PRAGMA synchronous = OFF;",
		"PRAGMA cache_size = -32000;",
		"PRAGMA temp_store = MEMORY;",
		"PRAGMA foreign_keys = ON;",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}

	return db, nil
}

// Setup migrates tables and creates default settings if they don't exist.
func (m *Manager) Setup() error {
	if err := Migrate(m.DB); err != nil {
		m.IsValid = false
		return err
	}
	m.Logger.Info().Msg("Database setup complete")
	return nil
}

// Migrate creates the schema and the instance info row.
func Migrate(db *gorm.DB) error {
	if !db.Migrator().HasTable(&model.ReplayInfo{}) {
		if err := db.AutoMigrate(&model.ReplayInfo{}); err != nil {
			return fmt.Errorf("failed to create replay_info table: %w", err)
		}
		err := db.Create(&model.ReplayInfo{
			InstanceName: "luxreplay",
			Description:  "Lux AI replay frames",
		}).Error
		if err != nil {
			return fmt.Errorf("failed to create replay_info entry: %w", err)
		}
	}

	if db.Dialector.Name() == "postgres" {
		if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS postgis;`).Error; err != nil {
			return fmt.Errorf("failed to create PostGIS extension: %w", err)
		}
	}

	if err := db.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// DumpMemoryToDisk vacuums the in-memory database to a file.
func (m *Manager) DumpMemoryToDisk() error {
	start := time.Now()
	if err := DumpMemoryDBToDisk(m.DB, m.SqliteFilePath); err != nil {
		return err
	}
	m.Logger.Debug().Dur("duration", time.Since(start)).Msg("Dumped memory DB to disk")
	return nil
}

// DumpMemoryDBToDisk vacuums db into a disk file, replacing any existing one.
func DumpMemoryDBToDisk(db *gorm.DB, sqliteFilePath string) error {
	if sqliteFilePath == "" {
		return fmt.Errorf("sqlite file path not set")
	}

	if _, err := os.Stat(sqliteFilePath); err == nil {
		if err := os.Remove(sqliteFilePath); err != nil {
			return fmt.Errorf("error removing existing DB file: %w", err)
		}
	}

	if err := db.Exec("VACUUM INTO ?", "file:"+sqliteFilePath).Error; err != nil {
		return fmt.Errorf("error dumping memory DB to disk: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (m *Manager) Close() error {
	if m.SqlDB == nil {
		return nil
	}
	return m.SqlDB.Close()
}
