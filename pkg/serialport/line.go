package serialport

import (
	"errors"
	"io"
	"strings"
	"time"
)

// LineReader reads newline-terminated replies from a device. A line ends at
// the first '\n', or when the read timeout elapses, whichever comes first.
// A timed-out line is returned as whatever arrived so far, with no error.
// io.EOF is only returned once the stream has ended with nothing buffered.
type LineReader struct {
	r       io.Reader
	timeout time.Duration
	now     func() time.Time
}

func NewLineReader(r io.Reader, timeout time.Duration) *LineReader {
	if timeout == 0 {
		timeout = DefaultReadTimeout
	}
	return &LineReader{r: r, timeout: timeout, now: time.Now}
}

func (lr *LineReader) ReadLine() (string, error) {
	var line []byte
	buf := make([]byte, 1)
	deadline := lr.now().Add(lr.timeout)
	for {
		n, err := lr.r.Read(buf)
		if n > 0 {
			line = append(line, buf[0])
			if buf[0] == '\n' {
				break
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) && len(line) == 0 {
				return "", io.EOF
			}
			if errors.Is(err, io.EOF) || isTimeout(err) {
				break
			}
			return "", err
		}
		// the port reports an expired read timeout as an empty read
		if n == 0 || !lr.now().Before(deadline) {
			break
		}
	}
	return decode(line), nil
}

// decode replaces invalid UTF-8 rather than failing the exchange.
func decode(b []byte) string {
	return strings.TrimSpace(strings.ToValidUTF8(string(b), "\uFFFD"))
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

func WriteLine(w io.Writer, text string) error {
	_, err := w.Write([]byte(text + "\n"))
	return err
}
