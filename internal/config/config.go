package config

import "github.com/caarlos0/env/v10"

// Config centraliza la configuración del servicio.
type Config struct {
	DiscordToken  string `env:"DISCORD_BOT_TOKEN,required"`
	HTTPPort      string `env:"HTTP_PORT" envDefault:"8080"`
	CommandPrefix string `env:"COMMAND_PREFIX" envDefault:"!"`

	StoreFile   string `env:"STORE_FILE" envDefault:"sorted_users.json"`
	DatabaseURL string `env:"DATABASE_URL"`

	RevealDelayMS       int `env:"REVEAL_DELAY_MS" envDefault:"2000"`
	ScanGuildIntervalMS int `env:"SCAN_GUILD_INTERVAL_MS" envDefault:"1000"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	JWTSecret            string `env:"JWT_SECRET"`
	JWTAccessTTLMinutes  int    `env:"JWT_ACCESS_TTL_MINUTES" envDefault:"15"`
	JWTRefreshTTLMinutes int    `env:"JWT_REFRESH_TTL_MINUTES" envDefault:"43200"`
	AdminPasswordHash    string `env:"ADMIN_PASSWORD_HASH"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
