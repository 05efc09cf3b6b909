package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// Drivers de almacenamiento soportados.
const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App       AppConfig
	Storage   StorageConfig
	DB        DBConfig
	JWT       JWTConfig
	Auth      AuthConfig
	HTTP      HTTPConfig
	Inventory InventoryConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	OTel      OTelConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	LogLevel string
}

// StorageConfig selección del backend de persistencia.
type StorageConfig struct {
	Driver string // postgres | memory
}

// DBConfig configuración de PostgreSQL.
// Si DatabaseURL no está vacío, se usa como connection string completo.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	Migrate     bool // aplica migraciones embebidas al arrancar
}

// ConnectionString devuelve el DSN a usar: DATABASE_URL si está definido, si no el construido con DSN().
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN devuelve el connection string para PostgreSQL con URL encoding para caracteres especiales.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// JWTConfig configuración de JWT.
type JWTConfig struct {
	Secret     string
	Expiration int // minutos
	Issuer     string
}

// AuthConfig secretos de registro y login del bot.
type AuthConfig struct {
	BotSecret string
	// AdminPasswordHash hash bcrypt de ADMIN_REGISTRATION_PASSWORD; vacío si no se configuró.
	AdminPasswordHash []byte
}

// HTTPConfig configuración del servidor HTTP.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// InventoryConfig parámetros del procesador de operaciones.
type InventoryConfig struct {
	NoteMaxLength int
}

// RedisConfig almacén de claves de idempotencia. Addr vacío usa el almacén en memoria.
type RedisConfig struct {
	Addr                string
	Password            string
	DB                  int
	IdempotencyTTLHours int
}

// KafkaConfig publicación de eventos de operación. Brokers vacío deshabilita la publicación.
type KafkaConfig struct {
	Brokers          []string
	OperationsTopic  string
	PublishTimeoutMS int
}

// OTelConfig exportador OTLP/HTTP de trazas. Endpoint vacío deshabilita el exportador.
type OTelConfig struct {
	Endpoint   string
	URLPath    string
	AuthHeader string
	Insecure   bool
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad. Nombres esperados: APP_ENV, DB_HOST, JWT_SECRET, etc.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Env:      getString(v, "APP_ENV", "development"),
			Name:     getString(v, "APP_NAME", "almacen-api"),
			LogLevel: getString(v, "LOG_LEVEL", "info"),
		},
		Storage: StorageConfig{
			Driver: strings.ToLower(getString(v, "STORAGE_DRIVER", StorageDriverPostgres)),
		},
		DB: DBConfig{
			DatabaseURL: getString(v, "DATABASE_URL", ""),
			Host:        getString(v, "DB_HOST", "localhost"),
			Port:        getInt(v, "DB_PORT", 5432),
			User:        getString(v, "DB_USER", "postgres"),
			Password:    getString(v, "DB_PASSWORD", ""),
			DBName:      getString(v, "DB_NAME", "almacen"),
			SSLMode:     getString(v, "DB_SSLMODE", "disable"),
			Migrate:     getBool(v, "DB_MIGRATE", true),
		},
		JWT: JWTConfig{
			Secret:     getString(v, "JWT_SECRET", ""),
			Expiration: getInt(v, "JWT_EXPIRATION_MINUTES", 60),
			Issuer:     getString(v, "JWT_ISSUER", "almacen-api"),
		},
		Auth: AuthConfig{
			BotSecret: getString(v, "BOT_SECRET", ""),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		Inventory: InventoryConfig{
			NoteMaxLength: getInt(v, "OPERATION_NOTE_MAX_LENGTH", 256),
		},
		Redis: RedisConfig{
			Addr:                getString(v, "REDIS_ADDR", ""),
			Password:            getString(v, "REDIS_PASSWORD", ""),
			DB:                  getInt(v, "REDIS_DB", 0),
			IdempotencyTTLHours: getInt(v, "IDEMPOTENCY_TTL_HOURS", 24),
		},
		Kafka: KafkaConfig{
			Brokers:          splitList(getString(v, "KAFKA_BROKERS", "")),
			OperationsTopic:  getString(v, "KAFKA_OPERATIONS_TOPIC", "inventory.operations"),
			PublishTimeoutMS: getInt(v, "KAFKA_PUBLISH_TIMEOUT_MS", 2000),
		},
		OTel: OTelConfig{
			Endpoint:   getString(v, "OTEL_ENDPOINT", ""),
			URLPath:    getString(v, "OTEL_URL_PATH", "/v1/traces"),
			AuthHeader: getString(v, "OTEL_AUTH_HEADER", ""),
			Insecure:   getBool(v, "OTEL_INSECURE", false),
		},
	}

	switch cfg.Storage.Driver {
	case StorageDriverPostgres, StorageDriverMemory:
	default:
		return nil, fmt.Errorf("config: STORAGE_DRIVER desconocido %q", cfg.Storage.Driver)
	}
	if cfg.JWT.Secret == "" && cfg.App.Env != "development" {
		return nil, fmt.Errorf("config: JWT_SECRET es obligatorio fuera de development")
	}
	if cfg.Inventory.NoteMaxLength <= 0 {
		return nil, fmt.Errorf("config: OPERATION_NOTE_MAX_LENGTH debe ser positivo")
	}
	if pw := getString(v, "ADMIN_REGISTRATION_PASSWORD", ""); pw != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("config: hash de ADMIN_REGISTRATION_PASSWORD: %w", err)
		}
		cfg.Auth.AdminPasswordHash = hash
	}
	return cfg, nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, err := strconv.Atoi(strings.TrimSpace(v.GetString(key)))
			if err != nil {
				return def
			}
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}

func getBool(v *viper.Viper, key string, def bool) bool {
	if v.IsSet(key) {
		b, err := strconv.ParseBool(strings.TrimSpace(v.GetString(key)))
		if err != nil {
			return def
		}
		return b
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
