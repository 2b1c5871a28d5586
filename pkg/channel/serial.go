package channel

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"go.bug.st/serial"
)

// DefaultBaudRate for the robot's serial link.
const DefaultBaudRate = 115200

// Serial writes each command as one newline-terminated line to a serial port.
// The topic is not transmitted.
type Serial struct {
	mu   sync.Mutex
	port io.WriteCloser
	name string
}

// OpenSerial opens portName at baud.
func OpenSerial(portName string, baud int) (*Serial, error) {
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	port, err := serial.Open(portName, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", portName, err)
	}
	return NewSerial(portName, port), nil
}

// NewSerial wraps an already open port.
func NewSerial(name string, port io.WriteCloser) *Serial {
	return &Serial{port: port, name: name}
}

// Publish writes payload followed by a newline.
func (s *Serial) Publish(_ string, payload string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		return ErrNotConnected
	}
	line := strings.TrimRight(payload, "\r\n") + "\n"
	if _, err := io.WriteString(s.port, line); err != nil {
		return fmt.Errorf("write %s: %w", s.name, err)
	}
	return nil
}

// Close closes the port. Further publishes fail with ErrNotConnected.
func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	return err
}

// Ports lists the serial ports present on this machine.
func Ports() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list ports: %w", err)
	}
	return ports, nil
}
