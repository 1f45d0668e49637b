// Package device implements the line-oriented serial link to the Peak Pacer board.
//
// A background goroutine splits the incoming byte stream into lines and buffers
// them; Poll hands out one buffered line at a time without blocking. Summary
// completion lines are counted at the moment they are polled.
package device

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/DenisKhanov/PeakPacer/internal/tg_bot/constant"
	"github.com/DenisKhanov/PeakPacer/internal/tg_bot/models"
	"github.com/sirupsen/logrus"
	"github.com/tarm/serial"
)

// ErrNotConnected is returned by Send when the link has no open port.
var ErrNotConnected = errors.New("device is not connected")

const (
	lineBuffer  = 256                    // Unread lines kept in memory
	readTimeout = 200 * time.Millisecond // Idle read wake-up, lets the reader notice Close
	closeWait   = 2 * time.Second        // Upper bound for the reader to stop on Close
)

// SummaryRecorder receives the category of every completion line.
type SummaryRecorder interface {
	Increment(category models.SummaryCategory) error
}

// Mirror receives a copy of every polled line.
type Mirror interface {
	Publish(line string) error
}

// Link is a serial channel to the microcontroller. The zero value and a nil
// *Link behave as a disconnected device.
type Link struct {
	port     io.ReadWriteCloser
	lines    chan string
	recorder SummaryRecorder
	mirror   Mirror
	done     chan struct{}
	closing  chan struct{}
	idleEOF  bool // The port reports a read timeout as io.EOF

	closeOnce sync.Once
	mu        sync.Mutex // serialises writes
}

// Connect opens the serial port and waits settle for the board to reset.
func Connect(portName string, baud int, settle time.Duration, recorder SummaryRecorder) (*Link, error) {
	port, err := serial.OpenPort(&serial.Config{Name: portName, Baud: baud, ReadTimeout: readTimeout})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", portName, err)
	}
	time.Sleep(settle)
	logrus.Infof("Connected to device on %s at %d baud", portName, baud)
	return newLink(port, recorder, true), nil
}

// NewLink starts reading lines from an already open port. End of stream stops the reader.
func NewLink(port io.ReadWriteCloser, recorder SummaryRecorder) *Link {
	return newLink(port, recorder, false)
}

func newLink(port io.ReadWriteCloser, recorder SummaryRecorder, idleEOF bool) *Link {
	l := &Link{
		port:     port,
		lines:    make(chan string, lineBuffer),
		recorder: recorder,
		done:     make(chan struct{}),
		closing:  make(chan struct{}),
		idleEOF:  idleEOF,
	}
	go l.readLoop()
	return l
}

// Disabled returns a link that is permanently disconnected.
func Disabled() *Link {
	return &Link{}
}

// SetMirror installs a mirror for polled lines. It must be called before the link is used.
func (l *Link) SetMirror(mirror Mirror) {
	if l != nil {
		l.mirror = mirror
	}
}

// Connected reports whether the link has an open port.
func (l *Link) Connected() bool {
	return l != nil && l.port != nil
}

// Send writes text to the device as raw bytes.
func (l *Link) Send(text string) error {
	if !l.Connected() {
		logrus.Warnf("Device is not connected, dropping %q", text)
		return ErrNotConnected
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.port.Write([]byte(text)); err != nil {
		err = fmt.Errorf("write to device: %w", err)
		logrus.WithError(err).Error("Failed to send to device")
		return err
	}
	logrus.Debugf("Device << %s", text)
	return nil
}

// Poll returns one buffered line, or false when nothing is waiting.
func (l *Link) Poll() (string, bool) {
	if !l.Connected() {
		return "", false
	}
	select {
	case line := <-l.lines:
		logrus.Debugf("Device >> %s", line)
		l.record(line)
		if l.mirror != nil {
			if err := l.mirror.Publish(line); err != nil {
				logrus.WithError(err).Warn("Failed to mirror device line")
			}
		}
		return line, true
	default:
		return "", false
	}
}

// Close closes the port and waits a bounded time for the reader to stop.
func (l *Link) Close() error {
	if !l.Connected() {
		return nil
	}
	var err error
	l.closeOnce.Do(func() {
		close(l.closing)
		err = l.port.Close()
		select {
		case <-l.done:
		case <-time.After(closeWait):
			logrus.Warn("Device reader did not stop in time")
		}
	})
	return err
}

func (l *Link) isClosing() bool {
	select {
	case <-l.closing:
		return true
	default:
		return false
	}
}

func (l *Link) record(line string) {
	category, ok := ParseSummaryLine(line)
	if !ok || l.recorder == nil {
		return
	}
	if err := l.recorder.Increment(category); err != nil {
		logrus.WithError(err).Warnf("Ignoring summary line %q", line)
	}
}

func (l *Link) readLoop() {
	defer close(l.done)

	reader := bufio.NewReader(l.port)
	var buffer string
	for {
		chunk, err := reader.ReadString('\n')
		buffer += chunk
		if strings.HasSuffix(buffer, "\n") {
			l.deliver(strings.TrimSpace(buffer))
			buffer = ""
		}
		if err != nil {
			idle := errors.Is(err, io.ErrNoProgress) || (l.idleEOF && errors.Is(err, io.EOF))
			if idle && !l.isClosing() {
				continue
			}
			if !l.isClosing() && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) {
				logrus.WithError(err).Error("Device read loop stopped")
			}
			if buffer = strings.TrimSpace(buffer); buffer != "" {
				l.deliver(buffer)
			}
			return
		}
	}
}

func (l *Link) deliver(line string) {
	select {
	case l.lines <- line:
	default:
		logrus.Warnf("Device line buffer full, dropping %q", line)
	}
}

// ParseSummaryLine extracts the category from a completion line of the form
// "...Summary...(<Category>|...)...".
func ParseSummaryLine(line string) (models.SummaryCategory, bool) {
	if !strings.Contains(line, constant.DEVICE_SUMMARY_MARKER) {
		return "", false
	}
	start := strings.Index(line, "(")
	if start == -1 {
		return "", false
	}
	end := strings.Index(line[start+1:], "|")
	if end <= 0 {
		return "", false
	}
	return models.SummaryCategory(line[start+1 : start+1+end]), true
}
