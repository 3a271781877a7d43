package serialport

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	c "github.com/smartystreets/goconvey/convey"

	"github.com/Electronic-Yoda/instruments"
)

// loopback answers every line written to it with the next canned response.
type loopback struct {
	sent      bytes.Buffer
	responses *strings.Reader
	closed    int
}

func (l *loopback) Write(p []byte) (int, error) { return l.sent.Write(p) }
func (l *loopback) Read(p []byte) (int, error)  { return l.responses.Read(p) }
func (l *loopback) Close() error {
	l.closed++
	return nil
}

func TestPort(t *testing.T) {
	c.Convey("Given a port over a loopback connection", t, func() {
		conn := &loopback{responses: strings.NewReader("CH2\n12.5000\n")}
		port := New("/dev/ttyUSB0", conn)

		c.Convey("Commands are terminated once", func() {
			c.So(port.Write(":OUTP CH1,ON"), c.ShouldBeNil)
			c.So(port.Write("*RST\n"), c.ShouldBeNil)
			c.So(conn.sent.String(), c.ShouldEqual, ":OUTP CH1,ON\n*RST\n")
		})

		c.Convey("Queries read one line each", func() {
			first, err := port.Query(":INST?")
			c.So(err, c.ShouldBeNil)
			c.So(first, c.ShouldEqual, "CH2\n")
			second, err := port.Query("MEAS:VOLT? CH2")
			c.So(err, c.ShouldBeNil)
			c.So(second, c.ShouldEqual, "12.5000\n")
			_, err = port.Query("MEAS:CURR? CH2")
			c.So(err, c.ShouldNotBeNil)
		})

		c.Convey("Close is idempotent and blocks further writes", func() {
			c.So(port.Close(), c.ShouldBeNil)
			c.So(port.Close(), c.ShouldBeNil)
			c.So(conn.closed, c.ShouldEqual, 1)
			c.So(port.Write("*RST"), c.ShouldNotBeNil)
		})

		c.Convey("The port drives a DP800", func() {
			ps := instruments.NewDP800(port)
			ps.Sleep = func(time.Duration) {}
			v, err := ps.Measure(instruments.QuantityVoltage)
			c.So(err, c.ShouldBeNil)
			c.So(v, c.ShouldEqual, 12.5)
			c.So(conn.sent.String(), c.ShouldEqual, ":INST?\nMEAS:VOLT? CH2\n")
		})
	})
}

func TestMakeSerConf(t *testing.T) {
	conf := makeSerConf(Config{Name: "/dev/ttyS0", ReadTimeout: time.Second})
	if conf.Baud != 9600 || conf.Size != 8 || conf.Name != "/dev/ttyS0" {
		t.Errorf("unexpected config %+v", conf)
	}
}

var _ io.ReadWriteCloser = (*loopback)(nil)
