package chat

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"dancavallaro.com/sppchat/pkg/serialport"
)

const (
	DefaultRemoteName = "Luna"
	exitCommand       = "exit"
)

// ErrInput wraps failures reading the operator's input, as opposed to
// faults on the serial link.
var ErrInput = errors.New("failed to read input")

// Exchange is one operator line and the device's reply to it.
type Exchange struct {
	Device string
	Sent   string
	Reply  string
	At     time.Time
}

// Observer is told about every completed exchange. Its errors are logged
// and never end the session.
type Observer interface {
	Observe(ex Exchange) error
}

type Logger interface {
	Println(v ...interface{})
	Printf(format string, v ...interface{})
}

type Session struct {
	In          io.Reader
	Out         io.Writer
	Link        io.ReadWriter
	Device      string
	ReadTimeout time.Duration
	RemoteName  string
	Observers   []Observer
	Logger      Logger
	Clock       func() time.Time
}

// Run prompts for lines until the operator types "exit" (any case) or
// input ends. Each line is sent newline-terminated and one reply line is
// printed. Transport faults end the session and are returned.
func (s *Session) Run() error {
	input := bufio.NewReader(s.In)
	replies := serialport.NewLineReader(s.Link, s.ReadTimeout)
	for {
		fmt.Fprint(s.Out, "You: ")
		text, err := input.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: %w", ErrInput, err)
		}
		if err != nil && text == "" {
			fmt.Fprintln(s.Out)
			return nil
		}
		text = strings.TrimRight(text, "\r\n")
		if strings.EqualFold(text, exitCommand) {
			return nil
		}

		if err := serialport.WriteLine(s.Link, text); err != nil {
			return fmt.Errorf("failed to write to %s: %w", s.Device, err)
		}
		reply, err := replies.ReadLine()
		if err != nil {
			return fmt.Errorf("failed to read from %s: %w", s.Device, err)
		}
		fmt.Fprintf(s.Out, "%s: %s\n", s.remoteName(), reply)

		s.notify(Exchange{Device: s.Device, Sent: text, Reply: reply, At: s.now()})
	}
}

func (s *Session) notify(ex Exchange) {
	for _, o := range s.Observers {
		if err := o.Observe(ex); err != nil && s.Logger != nil {
			s.Logger.Printf("Failed to publish exchange: %v\n", err)
		}
	}
}

func (s *Session) remoteName() string {
	if s.RemoteName == "" {
		return DefaultRemoteName
	}
	return s.RemoteName
}

func (s *Session) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock()
}
