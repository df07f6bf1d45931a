package database

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/railtycoon/server/internal/model"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Manager owns the GORM connection shared by the snapshot backend and the
// performance monitor.
type Manager struct {
	DB       *gorm.DB
	SqlDB    *sql.DB
	Dialect  string
	InMemory bool
	Logger   zerolog.Logger
}

// NewManager creates a new database manager.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{Logger: log}
}

// Open connects to the database selected by dialect ("postgres" or
// "sqlite"). For sqlite an empty path opens a shared in-memory database.
func (m *Manager) Open(dialect, sqlitePath string) error {
	var err error

	switch dialect {
	case "postgres":
		m.Logger.Debug().Str("host", viper.GetString("db.host")).Str("database", viper.GetString("db.database")).Msg("Connecting to Postgres DB")
		m.DB, err = GetPostgresDBStandalone()
	case "sqlite":
		m.DB, err = GetSqliteDBStandalone(sqlitePath)
		m.InMemory = sqlitePath == ""
		if err == nil {
			if m.InMemory {
				m.Logger.Info().Msg("Using local SQLite DB in memory with periodic disk dump")
			} else {
				m.Logger.Info().Str("path", sqlitePath).Msg("Using local SQLite DB")
			}
		}
	default:
		return fmt.Errorf("unsupported database dialect: %s", dialect)
	}
	if err != nil {
		return fmt.Errorf("failed to open %s DB: %w", dialect, err)
	}
	m.Dialect = dialect

	m.SqlDB, err = m.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err := m.SqlDB.Ping(); err != nil {
		return fmt.Errorf("failed to validate connection: %w", err)
	}

	if dialect == "postgres" {
		m.SqlDB.SetMaxOpenConns(10)
		m.SqlDB.SetConnMaxIdleTime(5 * time.Minute)
	}

	m.Logger.Info().Str("dialect", dialect).Msg("Connected to database")
	return nil
}

// Setup migrates every table.
func (m *Manager) Setup() error {
	if m.DB == nil {
		return fmt.Errorf("database not open")
	}
	m.Logger.Info().Msg("Migrating schema")
	if err := m.DB.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	m.Logger.Info().Msg("Database setup complete")
	return nil
}

// DumpMemoryToDisk vacuums the in-memory database to path.
func (m *Manager) DumpMemoryToDisk(path string) error {
	start := time.Now()
	if err := DumpMemoryDBToDisk(m.DB, path); err != nil {
		return err
	}
	m.Logger.Debug().Dur("duration", time.Since(start)).Str("path", path).Msg("Dumped memory DB to disk")
	return nil
}

// Close releases the connection pool.
func (m *Manager) Close() error {
	if m.SqlDB == nil {
		return nil
	}
	return m.SqlDB.Close()
}

// PostgresDSN builds the connection string from the db.* settings.
func PostgresDSN() string {
	return fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		viper.GetString("db.host"),
		viper.GetString("db.port"),
		viper.GetString("db.username"),
		viper.GetString("db.password"),
		viper.GetString("db.database"),
	)
}

// GetPostgresDBStandalone returns a connection to the Postgres database using viper config.
func GetPostgresDBStandalone() (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  PostgresDSN(),
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        1000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
}

// GetSqliteDBStandalone returns a connection to a SQLite database.
// If path is empty, uses an in-memory database.
func GetSqliteDBStandalone(path string) (*gorm.DB, error) {
	dsn := path
	if dsn == "" {
		dsn = "file::memory:?cache=shared"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		CreateBatchSize:        500,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	pragmas := []string{
		"PRAGMA journal_mode = MEMORY;",
		"PRAGMA synchronous = OFF;",
		"PRAGMA cache_size = -32000;",
		"PRAGMA temp_store = MEMORY;",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}

	return db, nil
}

// DumpMemoryDBToDisk vacuums the in-memory database to a disk file,
// replacing any previous dump.
func DumpMemoryDBToDisk(db *gorm.DB, sqliteFilePath string) error {
	if sqliteFilePath == "" {
		return fmt.Errorf("sqlite file path not set")
	}

	if _, err := os.Stat(sqliteFilePath); err == nil {
		if err := os.Remove(sqliteFilePath); err != nil {
			return fmt.Errorf("error removing existing DB file: %w", err)
		}
	}

	quoted := "'" + strings.ReplaceAll(sqliteFilePath, "'", "''") + "'"
	if err := db.Exec("VACUUM INTO " + quoted + ";").Error; err != nil {
		return fmt.Errorf("error dumping memory DB to disk: %w", err)
	}

	return nil
}
