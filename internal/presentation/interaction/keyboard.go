package interaction

import (
	"os"

	"golang.org/x/sys/unix"
)

// KeyType represents the kind of key pressed.
type KeyType int

const (
	KeyChar KeyType = iota
	KeyEscape
	KeyArrowUp
	KeyArrowDown
	KeyArrowLeft
	KeyArrowRight
)

// KeyEvent represents a single keyboard event.
type KeyEvent struct {
	Key  rune
	Type KeyType
}

// KeyboardReader reads stdin in raw mode and delivers parsed key events on a
// channel. It is the only consumer of pointer/keyboard input in the viewer.
type KeyboardReader struct {
	oldState *unix.Termios
	input    chan KeyEvent
	stop     chan struct{}
}

// NewKeyboardReader switches the terminal to raw mode and starts reading.
func NewKeyboardReader() (*KeyboardReader, error) {
	kr := &KeyboardReader{
		input: make(chan KeyEvent, 16),
		stop:  make(chan struct{}),
	}
	if err := kr.enableRawMode(); err != nil {
		return nil, err
	}
	go kr.readInput()
	return kr, nil
}

func (kr *KeyboardReader) readInput() {
	buf := make([]byte, 8)
	for {
		select {
		case <-kr.stop:
			return
		default:
			n, err := os.Stdin.Read(buf)
			if err != nil || n == 0 {
				continue
			}
			for _, event := range parseInput(buf[:n]) {
				select {
				case kr.input <- event:
				case <-kr.stop:
					return
				}
			}
		}
	}
}

// parseInput decodes a raw read into key events, handling CSI arrow
// sequences and plain characters.
func parseInput(buf []byte) []KeyEvent {
	var events []KeyEvent
	for i := 0; i < len(buf); i++ {
		b := buf[i]
		if b != 27 {
			events = append(events, KeyEvent{Key: rune(b), Type: KeyChar})
			continue
		}
		if i+2 < len(buf) && buf[i+1] == '[' {
			var kt KeyType
			switch buf[i+2] {
			case 'A':
				kt = KeyArrowUp
			case 'B':
				kt = KeyArrowDown
			case 'C':
				kt = KeyArrowRight
			case 'D':
				kt = KeyArrowLeft
			default:
				i += 2
				continue
			}
			events = append(events, KeyEvent{Type: kt})
			i += 2
			continue
		}
		events = append(events, KeyEvent{Key: 27, Type: KeyEscape})
	}
	return events
}

// Events returns the keyboard event channel.
func (kr *KeyboardReader) Events() <-chan KeyEvent {
	return kr.input
}

// Close stops the reader and restores the terminal.
func (kr *KeyboardReader) Close() error {
	close(kr.stop)
	return kr.disableRawMode()
}
