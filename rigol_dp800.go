// Управление источником питания Rigol DP800
// https://www.rigolna.com/products/dc-power-loads/dp800/

package instruments

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// DP800ResourceID matches DP800 series resource names during auto-connect.
const DP800ResourceID = "DP8"

const (
	minChannel = 1
	maxChannel = 3
)

// Quantity is a value the supply can measure on a channel.
type Quantity string

// Measurable quantities
const (
	QuantityCurrent Quantity = "Current"
	QuantityVoltage Quantity = "Voltage"
	QuantityPower   Quantity = "Power"
)

var measureLUT = map[Quantity]string{
	QuantityCurrent: "CURR",
	QuantityVoltage: "VOLT",
	QuantityPower:   "POWE",
}

// Предельный ток каналов, А. Он же записывается при превышении.
var channelCurrentLimits = map[string]float64{"CH1": 5, "CH2": 2, "CH3": 2}

// Предельное напряжение каналов, В. CH3 отрицательный: ограничение снизу.
var channelVoltageLimits = map[string]float64{"CH1": 8, "CH2": 30, "CH3": -30}

type DP800 struct {
	instr Session

	// Settle follows every command that changes the supply state.
	Settle time.Duration

	// Sleep waits out Settle. Tests replace it.
	Sleep func(time.Duration)
}

// NewDP800 wraps an open session to a DP800 supply.
func NewDP800(instr Session) *DP800 {
	return &DP800{instr: instr, Settle: 500 * time.Millisecond, Sleep: time.Sleep}
}

// Close closes the underlying session.
func (ps *DP800) Close() error {
	return ps.instr.Close()
}

func (ps *DP800) write(cmd string, errContext string) error {
	if err := ps.instr.Write(cmd); err != nil {
		return errors.Wrap(err, errContext)
	}
	if ps.Settle > 0 && ps.Sleep != nil {
		ps.Sleep(ps.Settle)
	}
	return nil
}

// Номер выбранного канала.
func (ps *DP800) Channel() (int, error) {
	response, err := queryString(ps.instr, ":INST?")
	if err != nil {
		return 0, err
	}
	name := firstLine(response)
	if len(name) < 3 || !strings.HasPrefix(name, "CH") {
		return 0, errors.Errorf("unexpected channel response \"%s\"", name)
	}
	id, err := strconv.Atoi(name[2:3])
	if err != nil {
		return 0, errors.Wrapf(err, "unexpected channel response \"%s\"", name)
	}
	return id, nil
}

func (ps *DP800) channelName() (string, error) {
	id, err := ps.Channel()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("CH%d", id), nil
}

// Выбор канала. Команда не отправляется, если канал уже выбран.
func (ps *DP800) SelectChannel(id int) error {
	if id < minChannel || id > maxChannel {
		return configErr("channel id", id, "it should be in the range %d-%d", minChannel, maxChannel)
	}
	current, err := ps.Channel()
	if err != nil {
		return err
	}
	if current == id {
		return nil
	}
	return ps.write(fmt.Sprintf(":INST:NSEL %d", id), "channel select fail")
}

func (ps *DP800) setOutput(state string) error {
	name, err := ps.channelName()
	if err != nil {
		return err
	}
	return ps.write(fmt.Sprintf(":OUTP %s,%s", name, state), "output switch fail")
}

// Включить выход выбранного канала.
func (ps *DP800) EnableChannel() error {
	return ps.setOutput("ON")
}

// Выключить выход выбранного канала.
func (ps *DP800) DisableChannel() error {
	return ps.setOutput("OFF")
}

// Измерение на выбранном канале.
func (ps *DP800) Measure(q Quantity) (float64, error) {
	key, ok := measureLUT[q]
	if !ok {
		return 0, configErr("measurement", q, "expected one of Current, Voltage, Power")
	}
	name, err := ps.channelName()
	if err != nil {
		return 0, err
	}
	return queryFloat(ps.instr, fmt.Sprintf("MEAS:%s? %s", key, name))
}

func (ps *DP800) Reset() error {
	return ps.write("*RST", "reset fail")
}

// Установка тока выбранного канала. При превышении предела канала в прибор
// записывается сам предел, а вызывающему возвращается ошибка.
func (ps *DP800) SetCurrent(current float64) error {
	name, err := ps.channelName()
	if err != nil {
		return err
	}
	limit := channelCurrentLimits[name]
	if current > limit {
		logger.Printf("%s current %g exceeds limit %g, restoring %g", name, current, limit, limit)
		if err := ps.instr.Write(fmt.Sprintf(":CURR %g", limit)); err != nil {
			return errors.Wrap(err, "current restore fail")
		}
		return configErr("current", current, "exceeds the %s limit of %g A", name, limit)
	}
	return ps.write(fmt.Sprintf(":CURR %g", current), "current setup fail")
}

// Установка напряжения выбранного канала с проверкой предела.
func (ps *DP800) SetVoltage(voltage float64) error {
	name, err := ps.channelName()
	if err != nil {
		return err
	}
	limit := channelVoltageLimits[name]
	if limit >= 0 && voltage > limit {
		return configErr("voltage", voltage, "exceeds the %s limit of %g V", name, limit)
	}
	if limit < 0 && voltage < limit {
		return configErr("voltage", voltage, "is below the %s limit of %g V", name, limit)
	}
	return ps.write(fmt.Sprintf(":VOLT %g", voltage), "voltage setup fail")
}

// Защита от перенапряжения.
func (ps *DP800) SetOVP(voltage float64) error {
	if err := ps.write(fmt.Sprintf("VOLT:PROT %g", voltage), "ovp setup fail"); err != nil {
		return err
	}
	return ps.write("VOLT:PROT:STAT ON", "ovp enable fail")
}

// Защита от перегрузки по току.
func (ps *DP800) SetOCP(current float64) error {
	if err := ps.write(fmt.Sprintf("CURR:PROT %g", current), "ocp setup fail"); err != nil {
		return err
	}
	return ps.write("CURR:PROT:STAT ON", "ocp enable fail")
}

// Отключить обе защиты.
func (ps *DP800) DisableProtection() error {
	if err := ps.write("CURR:PROT:STAT OFF", "ocp disable fail"); err != nil {
		return err
	}
	return ps.write("VOLT:PROT:STAT OFF", "ovp disable fail")
}
