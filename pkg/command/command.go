package command

import (
	"encoding/binary"
	"fmt"
)

// Command represents a host-to-device command
//
// Wire format (little-endian): [u16 id][u16 tag][arguments...]
type Command struct {
	ID   ID     // Command identifier
	Tag  uint16 // Correlation tag chosen by the host
	Args Args   // Typed arguments, nil for no-argument commands
	Raw  []byte // Raw argument bytes when the id is not recognized
}

// Args holds command-specific arguments. The set of implementations is
// closed: one per identifier that takes arguments.
type Args interface {
	isArgs()
}

// WriteFlashPageArgs are the arguments for WriteFlashPage
type WriteFlashPageArgs struct {
	Address uint32 // Page-aligned target address
	Data    []byte // One flash page of data
}

// ChecksumPagesArgs are the arguments for ChecksumPages
type ChecksumPagesArgs struct {
	Address  uint32 // Page-aligned start address
	NumPages uint32
}

// ReadWordsArgs are the arguments for ReadWords
type ReadWordsArgs struct {
	Address  uint32 // Word-aligned start address
	NumWords uint32
}

// WriteWordsArgs are the arguments for WriteWords
type WriteWordsArgs struct {
	Address uint32 // Word-aligned start address
	Words   []uint32
}

func (WriteFlashPageArgs) isArgs() {}
func (ChecksumPagesArgs) isArgs()  {}
func (ReadWordsArgs) isArgs()      {}
func (WriteWordsArgs) isArgs()     {}

// Encode serializes the command to its wire format
func Encode(cmd *Command) ([]byte, error) {
	buf := make([]byte, CommandHeaderSize, CommandHeaderSize+16)
	binary.LittleEndian.PutUint16(buf[0:2], uint16(cmd.ID))
	binary.LittleEndian.PutUint16(buf[2:4], cmd.Tag)

	switch cmd.ID {
	case IDBinInfo, IDInfo, IDResetIntoApp, IDResetIntoBootloader, IDStartFlash, IDDmesg:
		if cmd.Args != nil {
			return nil, fmt.Errorf("%s takes no arguments: %w", cmd.ID, ErrPayloadLengthMismatch)
		}

	case IDWriteFlashPage:
		args, ok := cmd.Args.(WriteFlashPageArgs)
		if !ok {
			return nil, fmt.Errorf("%s: %w", cmd.ID, ErrPayloadLengthMismatch)
		}
		buf = binary.LittleEndian.AppendUint32(buf, args.Address)
		buf = append(buf, args.Data...)

	case IDChecksumPages:
		args, ok := cmd.Args.(ChecksumPagesArgs)
		if !ok {
			return nil, fmt.Errorf("%s: %w", cmd.ID, ErrPayloadLengthMismatch)
		}
		buf = binary.LittleEndian.AppendUint32(buf, args.Address)
		buf = binary.LittleEndian.AppendUint32(buf, args.NumPages)

	case IDReadWords:
		args, ok := cmd.Args.(ReadWordsArgs)
		if !ok {
			return nil, fmt.Errorf("%s: %w", cmd.ID, ErrPayloadLengthMismatch)
		}
		buf = binary.LittleEndian.AppendUint32(buf, args.Address)
		buf = binary.LittleEndian.AppendUint32(buf, args.NumWords)

	case IDWriteWords:
		args, ok := cmd.Args.(WriteWordsArgs)
		if !ok {
			return nil, fmt.Errorf("%s: %w", cmd.ID, ErrPayloadLengthMismatch)
		}
		buf = binary.LittleEndian.AppendUint32(buf, args.Address)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(args.Words)))
		for _, w := range args.Words {
			buf = binary.LittleEndian.AppendUint32(buf, w)
		}

	default:
		return nil, fmt.Errorf("id 0x%04X: %w", uint16(cmd.ID), ErrUnknownCommand)
	}

	return buf, nil
}

// Decode parses a command from its wire format.
//
// For an unrecognized identifier the returned command still carries the id,
// tag and raw argument bytes alongside ErrUnsupportedCommand, so a device
// can answer with StatusNotRecognized instead of dropping the message.
func Decode(data []byte) (*Command, error) {
	if len(data) < CommandHeaderSize {
		return nil, ErrTruncatedMessage
	}

	cmd := &Command{
		ID:  ID(binary.LittleEndian.Uint16(data[0:2])),
		Tag: binary.LittleEndian.Uint16(data[2:4]),
	}
	args := data[CommandHeaderSize:]

	switch cmd.ID {
	case IDBinInfo, IDInfo, IDResetIntoApp, IDResetIntoBootloader, IDStartFlash, IDDmesg:
		if len(args) != 0 {
			return nil, fmt.Errorf("%s: %w", cmd.ID, ErrPayloadLengthMismatch)
		}

	case IDWriteFlashPage:
		if len(args) < 4 {
			return nil, fmt.Errorf("%s: %w", cmd.ID, ErrTruncatedMessage)
		}
		cmd.Args = WriteFlashPageArgs{
			Address: binary.LittleEndian.Uint32(args[0:4]),
			Data:    args[4:],
		}

	case IDChecksumPages:
		if len(args) != 8 {
			return nil, fmt.Errorf("%s: %w", cmd.ID, ErrPayloadLengthMismatch)
		}
		cmd.Args = ChecksumPagesArgs{
			Address:  binary.LittleEndian.Uint32(args[0:4]),
			NumPages: binary.LittleEndian.Uint32(args[4:8]),
		}

	case IDReadWords:
		if len(args) != 8 {
			return nil, fmt.Errorf("%s: %w", cmd.ID, ErrPayloadLengthMismatch)
		}
		cmd.Args = ReadWordsArgs{
			Address:  binary.LittleEndian.Uint32(args[0:4]),
			NumWords: binary.LittleEndian.Uint32(args[4:8]),
		}

	case IDWriteWords:
		if len(args) < 8 {
			return nil, fmt.Errorf("%s: %w", cmd.ID, ErrTruncatedMessage)
		}
		numWords := binary.LittleEndian.Uint32(args[4:8])
		// Compare against the word count implied by the actual byte
		// count; multiplying the declared count can wrap uint32
		body := len(args) - 8
		if body%4 != 0 || uint32(body/4) != numWords {
			return nil, fmt.Errorf("%s: declared %d words: %w", cmd.ID, numWords, ErrPayloadLengthMismatch)
		}
		words := make([]uint32, numWords)
		for i := range words {
			words[i] = binary.LittleEndian.Uint32(args[8+i*4 : 12+i*4])
		}
		cmd.Args = WriteWordsArgs{
			Address: binary.LittleEndian.Uint32(args[0:4]),
			Words:   words,
		}

	default:
		cmd.Raw = args
		return cmd, fmt.Errorf("id 0x%04X: %w", uint16(cmd.ID), ErrUnsupportedCommand)
	}

	return cmd, nil
}

// String returns a string representation of the command
func (c *Command) String() string {
	return fmt.Sprintf("Command{ID=%s, Tag=%d}", c.ID, c.Tag)
}
