package instruments

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var configVars = []string{
	"RIGOL_TRANSPORT",
	"RIGOL_DL3000_RESOURCE",
	"RIGOL_DP800_RESOURCE",
	"RIGOL_SERIAL_BAUD",
	"RIGOL_SERIAL_TIMEOUT",
	"RIGOL_KEY_SETTLE",
	"RIGOL_PRELUDE_SETTLE",
	"RIGOL_CHANNEL_SETTLE",
}

// clearConfigEnv unsets every config variable for the duration of the test.
func clearConfigEnv(t *testing.T) {
	for _, name := range configVars {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearConfigEnv(t)
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	want := Config{
		Transport:      TransportVISA,
		DL3000Resource: DL3000ResourceID,
		DP800Resource:  DP800ResourceID,
		SerialBaud:     9600,
		SerialTimeout:  time.Second,
		KeySettle:      time.Second,
		PreludeSettle:  2 * time.Second,
		ChannelSettle:  500 * time.Millisecond,
	}
	if cfg != want {
		t.Errorf("got %+v, want %+v", cfg, want)
	}
}

func TestLoadConfigFile(t *testing.T) {
	clearConfigEnv(t)
	file := filepath.Join(t.TempDir(), "bench.env")
	content := "RIGOL_TRANSPORT=serial\nRIGOL_DP800_RESOURCE=/dev/ttyUSB1\nRIGOL_KEY_SETTLE=250ms\n"
	if err := os.WriteFile(file, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RIGOL_SERIAL_BAUD", "115200")

	cfg, err := LoadConfig(file)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if cfg.Transport != TransportSerial {
		t.Errorf("Transport = %q", cfg.Transport)
	}
	if cfg.DP800Resource != "/dev/ttyUSB1" {
		t.Errorf("DP800Resource = %q", cfg.DP800Resource)
	}
	if cfg.KeySettle != 250*time.Millisecond {
		t.Errorf("KeySettle = %s", cfg.KeySettle)
	}
	if cfg.SerialBaud != 115200 {
		t.Errorf("SerialBaud = %d", cfg.SerialBaud)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("RIGOL_TRANSPORT", "gpib")
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env")); !IsConfigurationError(err) {
		t.Errorf("unknown transport error = %v", err)
	}

	t.Setenv("RIGOL_TRANSPORT", "visa")
	t.Setenv("RIGOL_KEY_SETTLE", "soon")
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Error("expected a parse error for a malformed duration")
	}
}

func TestConfigApply(t *testing.T) {
	cfg := Config{KeySettle: 10 * time.Millisecond, PreludeSettle: 20 * time.Millisecond, ChannelSettle: 0}
	dl := NewDL3000(newFakeSession(nil))
	ps := NewDP800(newFakeSession(nil))
	cfg.Apply(dl, ps)
	if dl.Keypad().KeySettle != 10*time.Millisecond || dl.Keypad().PreludeSettle != 20*time.Millisecond {
		t.Errorf("keypad settle not applied: %+v", dl.Keypad())
	}
	if ps.Settle != 0 {
		t.Errorf("channel settle = %s", ps.Settle)
	}
	cfg.Apply(nil, nil)
}
