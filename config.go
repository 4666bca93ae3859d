package keyguard

// Config holds the configuration for a keyguard deployment.
type Config struct {
	// Header is the request header carrying the API key (default x-api-key).
	Header string `json:"header,omitempty" yaml:"header,omitempty"`
	// Server configures the HTTP listener.
	Server ServerConfig `json:"server" yaml:"server"`
	// Admin configures the administration API.
	Admin AdminConfig `json:"admin" yaml:"admin"`
	// Logging configures the structured logger.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
	// Store selects and configures the key record backend.
	Store StoreConfig `json:"store" yaml:"store"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr        string   `json:"addr,omitempty" yaml:"addr,omitempty"`
	CORSOrigins []string `json:"cors_origins,omitempty" yaml:"cors_origins,omitempty"`
}

// AdminConfig configures the administration API.
type AdminConfig struct {
	// TokenEnv names the environment variable holding the admin bearer token.
	// When the variable is empty the admin API is not mounted.
	TokenEnv string `json:"token_env,omitempty" yaml:"token_env,omitempty"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty"`
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
	// File enables daily-rotated file output instead of stdout.
	File string `json:"file,omitempty" yaml:"file,omitempty"`
}

// StoreBackend names a ConfigStore implementation.
type StoreBackend string

// StoreBackend constants define the supported key record backends.
const (
	BackendMemory   StoreBackend = "memory"
	BackendSQLite   StoreBackend = "sqlite"
	BackendPostgres StoreBackend = "postgres"
	BackendRedis    StoreBackend = "redis"
	BackendMongo    StoreBackend = "mongo"
	BackendVault    StoreBackend = "vault"
	BackendDynamoDB StoreBackend = "dynamodb"
)

// StoreConfig selects and configures the key record backend.
type StoreConfig struct {
	Backend StoreBackend `json:"backend" yaml:"backend"`
	// DSN is used by the sqlite and postgres backends.
	DSN string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
	// Table overrides the SQL table or DynamoDB table name.
	Table    string         `json:"table,omitempty" yaml:"table,omitempty"`
	Redis    RedisConfig    `json:"redis,omitempty" yaml:"redis,omitempty"`
	Mongo    MongoConfig    `json:"mongo,omitempty" yaml:"mongo,omitempty"`
	Vault    VaultConfig    `json:"vault,omitempty" yaml:"vault,omitempty"`
	DynamoDB DynamoDBConfig `json:"dynamodb,omitempty" yaml:"dynamodb,omitempty"`
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	Addr     string `json:"addr,omitempty" yaml:"addr,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	DB       int    `json:"db,omitempty" yaml:"db,omitempty"`
	TLS      bool   `json:"tls,omitempty" yaml:"tls,omitempty"`
}

// MongoConfig configures the mongo backend.
type MongoConfig struct {
	URI        string `json:"uri,omitempty" yaml:"uri,omitempty"`
	Database   string `json:"database,omitempty" yaml:"database,omitempty"`
	Collection string `json:"collection,omitempty" yaml:"collection,omitempty"`
}

// VaultConfig configures the Vault KV v2 backend.
type VaultConfig struct {
	Address string `json:"address,omitempty" yaml:"address,omitempty"`
	// Token is optional; the Vault client falls back to VAULT_TOKEN.
	Token string `json:"token,omitempty" yaml:"token,omitempty"`
	Mount string `json:"mount,omitempty" yaml:"mount,omitempty"`
}

// DynamoDBConfig configures the DynamoDB backend.
type DynamoDBConfig struct {
	Region string `json:"region,omitempty" yaml:"region,omitempty"`
	// Endpoint overrides the service endpoint (e.g. DynamoDB Local).
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	// AccessKeyID and SecretAccessKey set static credentials. When both are
	// empty the default AWS credential chain is used.
	AccessKeyID     string `json:"access_key_id,omitempty" yaml:"access_key_id,omitempty"`
	SecretAccessKey string `json:"secret_access_key,omitempty" yaml:"secret_access_key,omitempty"`
}

// DefaultConfig returns an in-memory configuration listening on :8080.
func DefaultConfig() Config {
	return Config{
		Header: DefaultHeader,
		Server: ServerConfig{Addr: ":8080"},
		Admin:  AdminConfig{TokenEnv: "ADMIN_TOKEN"},
		Store:  StoreConfig{Backend: BackendMemory},
	}
}
