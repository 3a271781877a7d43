package instruments

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// KeyCode identifies a DL3000 front-panel key for ":SYST:KEY".
type KeyCode int

// Front-panel keys
const (
	KeyUtility          KeyCode = 9
	KeyApp              KeyCode = 13
	KeyBatteryCurrent   KeyCode = 14
	KeyBatteryCutoff    KeyCode = 16
	KeyDigit0           KeyCode = 20 // digit d is KeyDigit0 + d
	KeyDecimalPoint     KeyCode = 30
	KeyKnobCounterClock KeyCode = 35
	KeyDownArrow        KeyCode = 40
	KeyEnter            KeyCode = 41
)

var keyNames = map[KeyCode]string{
	KeyUtility:          "Utility",
	KeyApp:              "App",
	KeyBatteryCurrent:   "Battery current",
	KeyBatteryCutoff:    "Battery cutoff",
	KeyDecimalPoint:     "Decimal point",
	KeyKnobCounterClock: "Knob counter-clockwise",
	KeyDownArrow:        "Down arrow",
	KeyEnter:            "Enter",
}

func (k KeyCode) String() string {
	if k >= KeyDigit0 && k <= KeyDigit0+9 {
		return fmt.Sprintf("Digit %d", int(k-KeyDigit0))
	}
	if name, ok := keyNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Key %d", int(k))
}

func (k KeyCode) command() string {
	return fmt.Sprintf(":SYST:KEY %d", int(k))
}

// NumericEntry is a value to be typed on the keypad. The integral flag
// matters: whole numbers above 9.999 get one extra key press.
type NumericEntry struct {
	text      string
	magnitude float64
	integral  bool
}

// IntEntry makes an entry from a whole number.
func IntEntry(v int) NumericEntry {
	return NumericEntry{text: strconv.Itoa(v), magnitude: math.Abs(float64(v)), integral: true}
}

// FloatEntry makes an entry from a floating point number. The rendering
// always carries a fractional part ("5.0") and switches to exponent form
// below 1e-4 and from 1e16 on, which the keypad cannot type.
func FloatEntry(v float64) NumericEntry {
	return NumericEntry{text: formatFloat(v), magnitude: math.Abs(v)}
}

// ParseEntry makes an entry from user input, integral when s has no
// fractional part or exponent.
func ParseEntry(s string) (NumericEntry, error) {
	s = strings.TrimSpace(s)
	if i, err := strconv.Atoi(s); err == nil {
		return IntEntry(i), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return NumericEntry{}, errors.Wrapf(err, "\"%s\" is not a number", s)
	}
	return FloatEntry(f), nil
}

func formatFloat(v float64) string {
	abs := math.Abs(v)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}

func (e NumericEntry) String() string { return e.text }

// Value returns the entry as a float64.
func (e NumericEntry) Value() float64 {
	v, _ := strconv.ParseFloat(e.text, 64)
	return v
}

// Integral reports whether the entry was made from a whole number.
func (e NumericEntry) Integral() bool { return e.integral }

// ActionKind is the kind of a KeyAction.
type ActionKind int

// Key action kinds
const (
	ActionDigit ActionKind = iota
	ActionDecimalPoint
	ActionCommit
)

// KeyAction is one simulated key press of a numeric entry.
type KeyAction struct {
	Kind  ActionKind
	Digit int
}

// Digit returns the action pressing digit d.
func Digit(d int) KeyAction { return KeyAction{Kind: ActionDigit, Digit: d} }

// Actions that carry no digit.
var (
	DecimalPoint = KeyAction{Kind: ActionDecimalPoint}
	Commit       = KeyAction{Kind: ActionCommit}
)

func (a KeyAction) String() string {
	switch a.Kind {
	case ActionDigit:
		return strconv.Itoa(a.Digit)
	case ActionDecimalPoint:
		return "."
	case ActionCommit:
		return "commit"
	default:
		return "?"
	}
}

// EncodingPolicy parameterizes how a NumericEntry becomes key presses.
type EncodingPolicy struct {
	MaxEntries    int
	DecimalMarker byte
	EntryKeyBase  KeyCode
	DecimalKey    KeyCode
	CommitKey     KeyCode

	// Prelude keys open the entry field before the first digit.
	Prelude []KeyCode
}

// DefaultPolicy returns the DL3000 keypad policy with the given prelude.
func DefaultPolicy(prelude ...KeyCode) EncodingPolicy {
	return EncodingPolicy{
		MaxEntries:    5,
		DecimalMarker: '.',
		EntryKeyBase:  KeyDigit0,
		DecimalKey:    KeyDecimalPoint,
		CommitKey:     KeyEnter,
		Prelude:       prelude,
	}
}

// Key maps an action to the key pressed for it under p.
func (p EncodingPolicy) Key(a KeyAction) KeyCode {
	switch a.Kind {
	case ActionDigit:
		return p.EntryKeyBase + KeyCode(a.Digit)
	case ActionDecimalPoint:
		return p.DecimalKey
	default:
		return p.CommitKey
	}
}

// KeyPresses returns how many characters of e the policy consumes.
func (p EncodingPolicy) KeyPresses(e NumericEntry) int {
	maxEntries := p.MaxEntries
	if e.integral && e.magnitude > 9.999 {
		maxEntries++
	}
	if n := len(e.text); n < maxEntries {
		return n
	}
	return maxEntries
}

// Encode turns e into key actions. Characters are consumed left to right up
// to the policy budget; only the first decimal marker is pressed, later ones
// are skipped. The sequence always ends with Commit.
func Encode(e NumericEntry, p EncodingPolicy) ([]KeyAction, error) {
	if e.text == "" {
		return nil, errors.New("cannot type an empty entry on the keypad")
	}
	keyPresses := p.KeyPresses(e)
	actions := make([]KeyAction, 0, keyPresses+1)
	pointSeen := false
	for i := 0; i < keyPresses; i++ {
		c := e.text[i]
		if c == p.DecimalMarker {
			if !pointSeen {
				pointSeen = true
				actions = append(actions, DecimalPoint)
			}
			continue
		}
		if c < '0' || c > '9' {
			return nil, errors.Errorf("cannot type %q of \"%s\" on the keypad", c, e.text)
		}
		actions = append(actions, Digit(int(c-'0')))
	}
	return append(actions, Commit), nil
}

// Keypad simulates front-panel key presses over a session. Every press is
// followed by a settle interval so the firmware registers it.
type Keypad struct {
	session Session

	// KeySettle follows each digit, decimal point and single key press.
	KeySettle time.Duration

	// PreludeSettle separates consecutive prelude presses.
	PreludeSettle time.Duration

	// Sleep waits out a settle interval. Tests replace it.
	Sleep func(time.Duration)
}

// NewKeypad returns a keypad with the DL3000 settle intervals.
func NewKeypad(s Session) *Keypad {
	return &Keypad{
		session:       s,
		KeySettle:     time.Second,
		PreludeSettle: 2 * time.Second,
		Sleep:         time.Sleep,
	}
}

func (k *Keypad) settle(d time.Duration) {
	if d > 0 && k.Sleep != nil {
		k.Sleep(d)
	}
}

// uncheckedWriter is implemented by sessions that can skip the error queue
// query after a write.
type uncheckedWriter interface {
	WriteWithoutCheck(cmd string) error
}

func (k *Keypad) write(key KeyCode) error {
	logger.Printf("key %d (%s)", int(key), key)
	write := k.session.Write
	if w, ok := k.session.(uncheckedWriter); ok {
		write = w.WriteWithoutCheck
	}
	if err := write(key.command()); err != nil {
		return errors.Wrapf(err, "key press %d failed", int(key))
	}
	return nil
}

// Press presses one key and waits for it to settle.
func (k *Keypad) Press(key KeyCode) error {
	if err := k.write(key); err != nil {
		return err
	}
	k.settle(k.KeySettle)
	return nil
}

// Drive presses the prelude keys then every action in order.
func (k *Keypad) Drive(p EncodingPolicy, actions []KeyAction) error {
	for i, key := range p.Prelude {
		if i > 0 {
			k.settle(k.PreludeSettle)
		}
		if err := k.write(key); err != nil {
			return err
		}
	}
	for _, a := range actions {
		if err := k.write(p.Key(a)); err != nil {
			return err
		}
		if a.Kind != ActionCommit {
			k.settle(k.KeySettle)
		}
	}
	return nil
}

// EnterNumber types e on the keypad. When guard is set and rejects the
// request it returns false without touching the session.
func (k *Keypad) EnterNumber(e NumericEntry, p EncodingPolicy, guard func() bool) (bool, error) {
	if guard != nil && !guard() {
		logger.Printf("entry %s rejected", e)
		return false, nil
	}
	actions, err := Encode(e, p)
	if err != nil {
		return false, err
	}
	if err := k.Drive(p, actions); err != nil {
		return false, errors.Wrapf(err, "entry of %s failed", e)
	}
	return true, nil
}
