package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"

	"magnetctl/internal/session"
)

// lineTimeout bounds how long a line prompt waits between keystrokes.
const lineTimeout = time.Minute

const (
	keyEscape    = 0x1b
	keyBackspace = 0x7f
	keyCtrlH     = 0x08
	keyCtrlC     = 0x03
)

var errLineAbandoned = errors.New("line input abandoned")

// TerminalKeys reads keystrokes from a terminal in raw mode. A background
// goroutine decodes the byte stream; Next and ReadLine consume the decoded
// keys with a timeout so the caller is never blocked for good.
type TerminalKeys struct {
	in    *os.File
	out   io.Writer
	old   *term.State
	keys  chan session.Key
	once  sync.Once
	errMu sync.Mutex
	err   error
}

// OpenTerminal switches in to raw mode and starts decoding keys. Close
// restores the previous terminal state.
func OpenTerminal(in *os.File, out io.Writer) (*TerminalKeys, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("stdin is not a terminal")
	}
	old, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("enter raw mode: %w", err)
	}
	k := &TerminalKeys{
		in:   in,
		out:  out,
		old:  old,
		keys: make(chan session.Key, 64),
	}
	go k.read(bufio.NewReader(in), k.keys)
	return k, nil
}

// Size reports the terminal dimensions.
func (k *TerminalKeys) Size() (width, height int, err error) {
	return term.GetSize(int(k.in.Fd()))
}

func (k *TerminalKeys) Close() error {
	var err error
	k.once.Do(func() {
		err = term.Restore(int(k.in.Fd()), k.old)
	})
	return err
}

func (k *TerminalKeys) read(r *bufio.Reader, keys chan<- session.Key) {
	defer close(keys)
	for {
		key, err := decodeKey(r)
		if err != nil {
			k.errMu.Lock()
			k.err = err
			k.errMu.Unlock()
			return
		}
		if key == keyCtrlC {
			key = 'q'
		}
		keys <- key
	}
}

// decodeKey reads one keystroke. Arrow keys arrive as ESC [ A or ESC [ B.
func decodeKey(r *bufio.Reader) (session.Key, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	if b != keyEscape {
		return session.Key(b), nil
	}
	if r.Buffered() == 0 {
		return session.Key(b), nil
	}
	next, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	if next != '[' && next != 'O' {
		return session.Key(next), nil
	}
	code, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	switch code {
	case 'A':
		return session.KeyUp, nil
	case 'B':
		return session.KeyDown, nil
	}
	return session.Key(keyEscape), nil
}

// Next waits for a key. Once the input is closed it keeps honouring the
// timeout so the caller's tick rate is unchanged.
func (k *TerminalKeys) Next(timeout time.Duration) (session.Key, bool) {
	if timeout <= 0 {
		select {
		case key, ok := <-k.keys:
			return k.received(key, ok)
		default:
			return 0, false
		}
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	for {
		select {
		case key, ok := <-k.keys:
			if key, ok := k.received(key, ok); ok {
				return key, true
			}
		case <-t.C:
			return 0, false
		}
	}
}

func (k *TerminalKeys) received(key session.Key, ok bool) (session.Key, bool) {
	if !ok {
		// a nil channel is never ready
		k.keys = nil
		return 0, false
	}
	return key, true
}

// ReadLine echoes keystrokes until enter. Escape or a minute without input
// abandons the line.
func (k *TerminalKeys) ReadLine(prompt string) (string, error) {
	fmt.Fprint(k.out, newline+prompt)
	var line []rune
	for {
		key, ok := k.Next(lineTimeout)
		if !ok {
			fmt.Fprint(k.out, newline)
			if err := k.inputErr(); err != nil {
				return "", err
			}
			return "", errLineAbandoned
		}
		switch key {
		case '\r', '\n':
			fmt.Fprint(k.out, newline)
			return string(line), nil
		case keyEscape:
			fmt.Fprint(k.out, newline)
			return "", errLineAbandoned
		case keyBackspace, keyCtrlH:
			if len(line) > 0 {
				line = line[:len(line)-1]
				fmt.Fprint(k.out, "\b \b")
			}
		case session.KeyUp, session.KeyDown:
		default:
			if key >= ' ' {
				line = append(line, rune(key))
				fmt.Fprint(k.out, string(rune(key)))
			}
		}
	}
}

func (k *TerminalKeys) inputErr() error {
	k.errMu.Lock()
	defer k.errMu.Unlock()
	if k.err == nil || errors.Is(k.err, io.EOF) {
		return nil
	}
	return k.err
}

var _ session.KeySource = (*TerminalKeys)(nil)
