package memory

import (
	"github.com/valerio/go-dotmatrix/dotmatrix/bit"
)

// JoypadKey represents a key on the Game Boy joypad.
type JoypadKey uint8

const (
	JoypadRight JoypadKey = iota
	JoypadLeft
	JoypadUp
	JoypadDown
	JoypadA
	JoypadB
	JoypadSelect
	JoypadStart
)

// Joypad models the P1 register: bits 5-4 select the button group, the low
// nibble reflects the selected group active-low. Bits 7-6 always read as 1.
type Joypad struct {
	selection uint8 // last written bits 5-4
	buttons   uint8 // A/B/Select/Start, active-low
	dpad      uint8 // Right/Left/Up/Down, active-low

	interruptRequester func()
}

// NewJoypad creates a joypad with all keys released.
func NewJoypad(irq func()) *Joypad {
	return &Joypad{
		selection:          0x30,
		buttons:            0x0F,
		dpad:               0x0F,
		interruptRequester: irq,
	}
}

// Read computes the P1 register from the selection bits and key state.
func (j *Joypad) Read() uint8 {
	result := uint8(0xC0) | j.selection

	selectDpad := !bit.IsSet(4, j.selection)
	selectButtons := !bit.IsSet(5, j.selection)

	switch {
	case selectButtons && !selectDpad:
		result |= j.buttons & 0x0F
	case selectDpad && !selectButtons:
		result |= j.dpad & 0x0F
	case selectButtons && selectDpad:
		result |= j.buttons & j.dpad & 0x0F
	default:
		result |= 0x0F
	}

	return result
}

// Write stores the group selection; only bits 5-4 are writable.
func (j *Joypad) Write(value uint8) {
	j.selection = value & 0x30
}

// Press marks a key as held and requests the Joypad interrupt on the
// high-to-low transition.
func (j *Joypad) Press(key JoypadKey) {
	oldButtons, oldDpad := j.buttons, j.dpad

	if index, dpad := keyBit(key); dpad {
		j.dpad = bit.Reset(index, j.dpad)
	} else {
		j.buttons = bit.Reset(index, j.buttons)
	}

	if oldButtons&^j.buttons|oldDpad&^j.dpad != 0 && j.interruptRequester != nil {
		j.interruptRequester()
	}
}

// Release marks a key as released.
func (j *Joypad) Release(key JoypadKey) {
	if index, dpad := keyBit(key); dpad {
		j.dpad = bit.Set(index, j.dpad)
	} else {
		j.buttons = bit.Set(index, j.buttons)
	}
}

func keyBit(key JoypadKey) (index uint8, dpad bool) {
	switch key {
	case JoypadRight:
		return 0, true
	case JoypadLeft:
		return 1, true
	case JoypadUp:
		return 2, true
	case JoypadDown:
		return 3, true
	case JoypadA:
		return 0, false
	case JoypadB:
		return 1, false
	case JoypadSelect:
		return 2, false
	default:
		return 3, false
	}
}
