package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Entity failure policies for the loader.
const (
	OnErrorAbort    = "abort"
	OnErrorContinue = "continue"
)

type Config struct {
	Env      string `mapstructure:"ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`

	MongoURI      string `mapstructure:"MONGO_URI"`
	MongoDatabase string `mapstructure:"MONGO_DB"`

	DataDir        string `mapstructure:"DATA_DIR"`
	PatientsFile   string `mapstructure:"PATIENTS_FILE"`
	DictionaryFile string `mapstructure:"DICTIONARY_FILE"`
	AdmissionsFile string `mapstructure:"ADMISSIONS_FILE"`
	ICUStaysFile   string `mapstructure:"ICU_STAYS_FILE"`
	DiagnosesFile  string `mapstructure:"DIAGNOSES_FILE"`
	NotesFile      string `mapstructure:"NOTES_FILE"`

	ChunkSize     int    `mapstructure:"CHUNK_SIZE"`
	NoteChunkSize int    `mapstructure:"NOTE_CHUNK_SIZE"`
	DocBatchSize  int    `mapstructure:"DOC_BATCH_SIZE"`
	ICDVersion    string `mapstructure:"ICD_VERSION"`

	OnEntityError     string `mapstructure:"ON_ENTITY_ERROR"`
	MatchOpenICUStays bool   `mapstructure:"MATCH_OPEN_ICU_STAYS"`
}

var keys = []string{
	"ENV", "LOG_LEVEL",
	"DATABASE_URL", "DB_MAX_CONNS",
	"MONGO_URI", "MONGO_DB",
	"DATA_DIR", "PATIENTS_FILE", "DICTIONARY_FILE", "ADMISSIONS_FILE",
	"ICU_STAYS_FILE", "DIAGNOSES_FILE", "NOTES_FILE",
	"CHUNK_SIZE", "NOTE_CHUNK_SIZE", "DOC_BATCH_SIZE", "ICD_VERSION",
	"ON_ENTITY_ERROR", "MATCH_OPEN_ICU_STAYS",
}

// Load reads configuration from the environment and an optional .env file in
// the working directory. Flags applied by the commands override the result.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("ENV", "production")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_MAX_CONNS", 4)
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DB", "clinical")
	v.SetDefault("DATA_DIR", "./csv_files")
	v.SetDefault("PATIENTS_FILE", "PATIENTS_sorted.csv")
	v.SetDefault("DICTIONARY_FILE", "D_ICD_DIAGNOSES.csv")
	v.SetDefault("ADMISSIONS_FILE", "ADMISSIONS_sorted.csv")
	v.SetDefault("ICU_STAYS_FILE", "ICUSTAYS_sorted.csv")
	v.SetDefault("DIAGNOSES_FILE", "DIAGNOSES_ICD_sorted.csv")
	v.SetDefault("NOTES_FILE", "NOTEEVENTS_sorted.csv")
	v.SetDefault("CHUNK_SIZE", 1000)
	v.SetDefault("NOTE_CHUNK_SIZE", 500)
	v.SetDefault("DOC_BATCH_SIZE", 1000)
	v.SetDefault("ICD_VERSION", "9")
	v.SetDefault("ON_ENTITY_ERROR", OnErrorAbort)
	v.SetDefault("MATCH_OPEN_ICU_STAYS", false)

	// Unmarshal only sees env vars that are bound explicitly.
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// A missing .env file is not an error.
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.OnEntityError = strings.ToLower(strings.TrimSpace(cfg.OnEntityError))
	return cfg, nil
}

// ValidateLoader checks the settings the CSV loader depends on.
func (c *Config) ValidateLoader() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.ChunkSize <= 0 || c.NoteChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE and NOTE_CHUNK_SIZE must be positive, got %d and %d", c.ChunkSize, c.NoteChunkSize)
	}
	if c.ICDVersion == "" {
		return fmt.Errorf("ICD_VERSION must not be empty")
	}
	if c.OnEntityError != OnErrorAbort && c.OnEntityError != OnErrorContinue {
		return fmt.Errorf("ON_ENTITY_ERROR must be %q or %q, got %q", OnErrorAbort, OnErrorContinue, c.OnEntityError)
	}
	return nil
}

// ValidateMigrator checks the settings the document migrator depends on.
func (c *Config) ValidateMigrator() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.MongoURI == "" || c.MongoDatabase == "" {
		return fmt.Errorf("MONGO_URI and MONGO_DB are required")
	}
	if c.DocBatchSize <= 0 {
		return fmt.Errorf("DOC_BATCH_SIZE must be positive, got %d", c.DocBatchSize)
	}
	return nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Path joins a configured file name onto DATA_DIR unless it is already absolute.
func (c *Config) Path(file string) string {
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(c.DataDir, file)
}

// NewLogger builds the process logger: JSON on stderr, or a console writer
// in development.
func (c *Config) NewLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || c.LogLevel == "" {
		level = zerolog.InfoLevel
	}

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if c.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return logger.Level(level)
}
