package instruments

import (
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Transport names accepted in Config.Transport.
const (
	TransportVISA   = "visa"
	TransportSerial = "serial"
)

// Config holds connection and timing settings read from the environment.
type Config struct {
	Transport      string        `env:"RIGOL_TRANSPORT" envDefault:"visa"`
	DL3000Resource string        `env:"RIGOL_DL3000_RESOURCE" envDefault:"DL3"`
	DP800Resource  string        `env:"RIGOL_DP800_RESOURCE" envDefault:"DP8"`
	SerialBaud     int           `env:"RIGOL_SERIAL_BAUD" envDefault:"9600"`
	SerialTimeout  time.Duration `env:"RIGOL_SERIAL_TIMEOUT" envDefault:"1s"`
	KeySettle      time.Duration `env:"RIGOL_KEY_SETTLE" envDefault:"1s"`
	PreludeSettle  time.Duration `env:"RIGOL_PRELUDE_SETTLE" envDefault:"2s"`
	ChannelSettle  time.Duration `env:"RIGOL_CHANNEL_SETTLE" envDefault:"500ms"`
}

// LoadConfig loads the given .env files, or ".env" when none are given, into
// the process environment and parses Config from it. Missing files are
// ignored; variables already set are not overridden.
func LoadConfig(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			return Config{}, errors.Wrapf(err, "loading %s failed", file)
		}
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "parse env")
	}
	switch cfg.Transport {
	case TransportVISA, TransportSerial:
	default:
		return Config{}, configErr("transport", cfg.Transport, "expected %s or %s", TransportVISA, TransportSerial)
	}
	return cfg, nil
}

// Apply sets the configured settle intervals on the wrappers that are non-nil.
func (cfg Config) Apply(dl *DL3000, ps *DP800) {
	if dl != nil {
		dl.keypad.KeySettle = cfg.KeySettle
		dl.keypad.PreludeSettle = cfg.PreludeSettle
	}
	if ps != nil {
		ps.Settle = cfg.ChannelSettle
	}
}
