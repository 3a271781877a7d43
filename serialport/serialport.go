/*
Package serialport talks SCPI to Rigol instruments over their RS-232 port.
*/
package serialport

import (
	"bufio"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/tarm/serial"
)

// Rigol DL3000 and DP800 default to 9600 baud, 8 data bits, no parity,
// 1 stop bit; commands and responses end in LF.
const terminator = "\n"

// Config selects the serial device and its line settings.
type Config struct {
	Name        string
	Baud        int
	ReadTimeout time.Duration
}

func makeSerConf(cfg Config) *serial.Config {
	baud := cfg.Baud
	if baud == 0 {
		baud = 9600
	}
	return &serial.Config{
		Name:        cfg.Name,
		Baud:        baud,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
		ReadTimeout: cfg.ReadTimeout,
	}
}

// Port is an instrument session over a serial line.
type Port struct {
	name   string
	conn   io.ReadWriteCloser
	reader *bufio.Reader
	closed bool
}

// Open opens the serial device named in cfg.
func Open(cfg Config) (*Port, error) {
	conn, err := serial.OpenPort(makeSerConf(cfg))
	if err != nil {
		return nil, errors.Wrapf(err, "open serial port \"%s\"", cfg.Name)
	}
	return New(cfg.Name, conn), nil
}

// New wraps an already open connection.
func New(name string, conn io.ReadWriteCloser) *Port {
	return &Port{name: name, conn: conn, reader: bufio.NewReader(conn)}
}

// Write sends a command terminated by LF.
func (p *Port) Write(cmd string) error {
	if p.closed {
		return errors.Errorf("write \"%s\" to closed port \"%s\"", cmd, p.name)
	}
	if !strings.HasSuffix(cmd, terminator) {
		cmd += terminator
	}
	if _, err := io.WriteString(p.conn, cmd); err != nil {
		return errors.Wrapf(err, "write \"%s\" to \"%s\"", strings.TrimSpace(cmd), p.name)
	}
	return nil
}

// Query sends a command and reads one response line.
func (p *Port) Query(cmd string) (string, error) {
	if err := p.Write(cmd); err != nil {
		return "", err
	}
	line, err := p.reader.ReadString('\n')
	if err != nil {
		return "", errors.Wrapf(err, "read response to \"%s\" from \"%s\"", cmd, p.name)
	}
	return line, nil
}

// Close closes the port. Closing twice is a no-op.
func (p *Port) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	return p.conn.Close()
}
