// Управление электронной нагрузкой Rigol DL3000
// https://www.rigolna.com/products/dc-electronic-loads/dl3000/

package instruments

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// DL3000ResourceID matches DL3000 series resource names during auto-connect.
const DL3000ResourceID = "DL3"

const (
	// Максимальный ток разряда батареи, А
	maxDischargeCurrent = 40
	// Число нажатий "вниз" до пункта Sense в меню Utility
	senseMenuDepth = 5
	appKeyStates   = 3
)

// Mode is the regulation mode of the load.
type Mode string

// Regulation modes
const (
	ModeCC Mode = "CC"
	ModeCV Mode = "CV"
	ModeCR Mode = "CR"
	ModeCP Mode = "CP"
)

// ParseMode converts a mode name such as "cc" into a Mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToUpper(strings.TrimSpace(s))); m {
	case ModeCC, ModeCV, ModeCR, ModeCP:
		return m, nil
	default:
		return "", configErr("mode", s, "expected one of CC, CV, CR, CP")
	}
}

type DL3000 struct {
	instr    Session
	keypad   *Keypad
	appState int
}

// NewDL3000 wraps an open session to a DL3000 load.
func NewDL3000(instr Session) *DL3000 {
	return &DL3000{instr: instr, keypad: NewKeypad(instr)}
}

// Keypad returns the key press simulator, whose settle intervals may be
// adjusted.
func (dl *DL3000) Keypad() *Keypad {
	return dl.keypad
}

// Close closes the underlying session.
func (dl *DL3000) Close() error {
	return dl.instr.Close()
}

// Измеренное напряжение, В.
func (dl *DL3000) Voltage() (float64, error) {
	return queryFloat(dl.instr, ":MEAS:VOLT?")
}

// Измеренный ток, А.
func (dl *DL3000) Current() (float64, error) {
	return queryFloat(dl.instr, ":MEAS:CURR?")
}

// Измеренная мощность, Вт.
func (dl *DL3000) Power() (float64, error) {
	return queryFloat(dl.instr, ":MEAS:POW?")
}

// Измеренное сопротивление, Ом.
func (dl *DL3000) Resistance() (float64, error) {
	return queryFloat(dl.instr, ":MEAS:RES?")
}

func (dl *DL3000) write(cmd string, errContext string) error {
	if err := dl.instr.Write(cmd); err != nil {
		return errors.Wrap(err, errContext)
	}
	return nil
}

// Скорость нарастания тока в режиме CC, А/мкс.
func (dl *DL3000) SetCCSlewRate(slew float64) error {
	return dl.write(fmt.Sprintf(":SOURCE:CURRENT:SLEW %g", slew), "slew rate setup fail")
}

// Включен ли вход нагрузки.
func (dl *DL3000) IsEnabled() (bool, error) {
	state, err := queryString(dl.instr, ":SOURCE:INPUT:STAT?")
	if err != nil {
		return false, err
	}
	return state == "1", nil
}

func (dl *DL3000) Enable() error {
	return dl.write(":SOURCE:INPUT:STAT ON", "input enable fail")
}

func (dl *DL3000) Disable() error {
	return dl.write(":SOURCE:INPUT:STAT OFF", "input disable fail")
}

func (dl *DL3000) SetMode(mode Mode) error {
	return dl.write(fmt.Sprintf(":SOURCE:FUNCTION %s", mode), "mode setup fail")
}

func (dl *DL3000) Mode() (Mode, error) {
	mode, err := queryString(dl.instr, ":SOURCE:FUNCTION?")
	if err != nil {
		return "", err
	}
	return Mode(mode), nil
}

// Ток в режиме постоянного тока.
func (dl *DL3000) SetCCCurrent(current float64) error {
	return dl.write(fmt.Sprintf(":SOURCE:CURRENT:LEV:IMM %g", current), "cc current setup fail")
}

// Мощность в режиме постоянной мощности.
func (dl *DL3000) SetCPPower(power float64) error {
	return dl.write(fmt.Sprintf(":SOURCE:POWER:LEV:IMM %g", power), "cp power setup fail")
}

// Ограничение тока в режиме постоянной мощности.
func (dl *DL3000) SetCPCurrentLimit(limit float64) error {
	return dl.write(fmt.Sprintf(":SOURCE:POWER:ILIM %g", limit), "cp current limit setup fail")
}

func (dl *DL3000) SetVoltage(voltage float64) error {
	return dl.write(fmt.Sprintf(":SOURCE:VOLTAGE:LEV:IMM %g", voltage), "voltage setup fail")
}

// Режим постоянного тока; при activate включает вход.
func (dl *DL3000) SetCC(current float64, activate bool) error {
	if err := dl.SetMode(ModeCC); err != nil {
		return err
	}
	if err := dl.SetCCCurrent(current); err != nil {
		return err
	}
	if activate {
		return dl.Enable()
	}
	return nil
}

// Режим постоянной мощности; при activate включает вход.
func (dl *DL3000) SetCP(power float64, activate bool) error {
	if err := dl.SetMode(ModeCP); err != nil {
		return err
	}
	if err := dl.SetCPPower(power); err != nil {
		return err
	}
	if activate {
		return dl.Enable()
	}
	return nil
}

func (dl *DL3000) Reset() error {
	return dl.write("*RST", "reset fail")
}

// Нажатие клавиши на передней панели с паузой после него.
func (dl *DL3000) PressKey(key KeyCode) error {
	return dl.keypad.Press(key)
}

// Нажатие клавиши приложений; переключает состояние по кругу из трёх.
func (dl *DL3000) PressAppKey() error {
	if err := dl.keypad.write(KeyApp); err != nil {
		return err
	}
	dl.appState = (dl.appState + 1) % appKeyStates
	return nil
}

// AppState returns how far the app key has been cycled, 0 to 2.
func (dl *DL3000) AppState() int {
	return dl.appState
}

// Переключение измерения напряжения на удалённые клеммы Sense через меню Utility.
func (dl *DL3000) SetupSense() error {
	keys := []KeyCode{KeyUtility}
	for i := 0; i < senseMenuDepth; i++ {
		keys = append(keys, KeyDownArrow)
	}
	keys = append(keys, KeyKnobCounterClock, KeyUtility)
	for _, key := range keys {
		if err := dl.keypad.Press(key); err != nil {
			return errors.Wrap(err, "sense setup fail")
		}
	}
	return nil
}

// Ток разряда батареи, вводимый с клавиатуры. Возвращает false без обмена
// с прибором, если ток не меньше 40 А.
func (dl *DL3000) SetBatteryDischargeCurrent(current NumericEntry) (bool, error) {
	guard := func() bool { return current.Value() < maxDischargeCurrent }
	return dl.keypad.EnterNumber(current, DefaultPolicy(KeyBatteryCurrent), guard)
}

// Напряжение отсечки разряда батареи, вводимое с клавиатуры. Возвращает
// false без обмена с прибором, если напряжение батареи ниже отсечки.
func (dl *DL3000) SetBatteryCutoffVoltage(voltage float64, cutoff NumericEntry) (bool, error) {
	guard := func() bool { return voltage >= cutoff.Value() }
	return dl.keypad.EnterNumber(cutoff, DefaultPolicy(KeyBatteryCutoff, KeyBatteryCutoff), guard)
}
