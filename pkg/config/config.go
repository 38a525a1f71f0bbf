package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Políticas para decidir qué jugadores deben responder antes de
// cerrar una ronda anticipadamente.
const (
	// PolicyConnected la ronda cierra cuando todos los jugadores
	// conectados respondieron (los desconectados no bloquean el cierre)
	PolicyConnected = "connected"
	// PolicyAll la ronda solo cierra anticipadamente cuando responde
	// todo el roster; los desconectados dejan el cierre en manos del timer
	PolicyAll = "all"
)

// Config configuración del servidor, cargada desde variables de entorno
type Config struct {
	Addr          string `env:"ADDR" envDefault:":8080"`
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	QuestionsFile string `env:"QUESTIONS_FILE" envDefault:"questions.json"`

	TotalRounds       int           `env:"TOTAL_ROUNDS" envDefault:"3"`
	RoundDuration     time.Duration `env:"ROUND_DURATION" envDefault:"15s"`
	CountdownTicks    int           `env:"COUNTDOWN_TICKS" envDefault:"3"`
	CountdownInterval time.Duration `env:"COUNTDOWN_INTERVAL" envDefault:"1s"`
	RoundResultDelay  time.Duration `env:"ROUND_RESULT_DELAY" envDefault:"3s"`
	RoundEndPolicy    string        `env:"ROUND_END_POLICY" envDefault:"connected"`
	RetryInterval     time.Duration `env:"RETRY_INTERVAL" envDefault:"1s"`
}

// Load carga la configuración desde el entorno
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("error parseando variables de entorno: %w", err)
	}

	if cfg.TotalRounds < 1 {
		return nil, fmt.Errorf("TOTAL_ROUNDS debe ser positivo: %d", cfg.TotalRounds)
	}
	if cfg.RoundEndPolicy != PolicyConnected && cfg.RoundEndPolicy != PolicyAll {
		return nil, fmt.Errorf("ROUND_END_POLICY desconocida: %s", cfg.RoundEndPolicy)
	}

	return cfg, nil
}
