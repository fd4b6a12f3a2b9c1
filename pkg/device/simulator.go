package device

import (
	"bytes"
	"encoding/binary"
	"sync"

	"github.com/umi-eng/hftwo/pkg/command"
)

// SimulatorConfig configures a simulated bootloader
type SimulatorConfig struct {
	FlashPageSize  uint32
	FlashNumPages  uint32
	MaxMessageSize uint32
	FamilyID       uint32
	InfoString     string
}

// DefaultSimulatorConfig returns a simulator resembling a small
// SAMD21-class bootloader
func DefaultSimulatorConfig() SimulatorConfig {
	return SimulatorConfig{
		FlashPageSize:  256,
		FlashNumPages:  1024,
		MaxMessageSize: 320,
		FamilyID:       0x68ED2B88,
		InfoString:     "UF2 Bootloader (simulated)",
	}
}

// Simulator is an in-memory bootloader implementing the full command
// table. It is the device Handler used by loopback tests and examples: a
// host wired to it over a pipe exercises the complete stack without
// hardware.
type Simulator struct {
	config SimulatorConfig

	mu       sync.Mutex
	mode     uint32
	flash    []byte
	flashing bool
	dmesg    bytes.Buffer
	resets   []uint32 // Modes requested by reset commands, in order
}

// NewSimulator creates a simulator in bootloader mode with erased flash
func NewSimulator(config SimulatorConfig) *Simulator {
	s := &Simulator{
		config: config,
		mode:   command.ModeBootloader,
		flash:  bytes.Repeat([]byte{0xFF}, int(config.FlashPageSize*config.FlashNumPages)),
	}
	s.dmesg.WriteString("simulator start\n")
	return s
}

// Handle implements Handler
func (s *Simulator) Handle(cmd *command.Command) *command.Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch cmd.ID {
	case command.IDBinInfo:
		return command.OK(cmd, command.EncodeBinInfo(&command.BinInfo{
			Mode:           s.mode,
			FlashPageSize:  s.config.FlashPageSize,
			FlashNumPages:  s.config.FlashNumPages,
			MaxMessageSize: s.config.MaxMessageSize,
			FamilyID:       s.config.FamilyID,
		}))

	case command.IDInfo:
		return command.OK(cmd, []byte(s.config.InfoString))

	case command.IDResetIntoApp:
		s.mode = command.ModeApplication
		s.flashing = false
		s.resets = append(s.resets, command.ModeApplication)
		return command.OK(cmd, nil)

	case command.IDResetIntoBootloader:
		s.mode = command.ModeBootloader
		s.flashing = false
		s.resets = append(s.resets, command.ModeBootloader)
		return command.OK(cmd, nil)

	case command.IDStartFlash:
		if s.mode != command.ModeBootloader {
			return command.ExecutionError(cmd.Tag, 0x01)
		}
		s.flashing = true
		return command.OK(cmd, nil)

	case command.IDWriteFlashPage:
		args := cmd.Args.(command.WriteFlashPageArgs)
		return s.writeFlashPage(cmd, args)

	case command.IDChecksumPages:
		args := cmd.Args.(command.ChecksumPagesArgs)
		return s.checksumPages(cmd, args)

	case command.IDReadWords:
		args := cmd.Args.(command.ReadWordsArgs)
		return s.readWords(cmd, args)

	case command.IDWriteWords:
		args := cmd.Args.(command.WriteWordsArgs)
		return s.writeWords(cmd, args)

	case command.IDDmesg:
		return command.OK(cmd, s.dmesg.Bytes())

	default:
		return command.NotRecognized(cmd.Tag)
	}
}

func (s *Simulator) writeFlashPage(cmd *command.Command, args command.WriteFlashPageArgs) *command.Response {
	pageSize := s.config.FlashPageSize
	if !s.flashing || s.mode != command.ModeBootloader {
		return command.ExecutionError(cmd.Tag, 0x01)
	}
	if args.Address%pageSize != 0 || uint32(len(args.Data)) != pageSize {
		return command.ExecutionError(cmd.Tag, 0x02)
	}
	// Page-aligned and inside the flash implies the whole page fits;
	// adding pageSize first could wrap uint32
	if args.Address >= uint32(len(s.flash)) {
		return command.ExecutionError(cmd.Tag, 0x03)
	}
	copy(s.flash[args.Address:], args.Data)
	return command.OK(cmd, nil)
}

func (s *Simulator) checksumPages(cmd *command.Command, args command.ChecksumPagesArgs) *command.Response {
	pageSize := s.config.FlashPageSize
	if args.Address%pageSize != 0 {
		return command.ExecutionError(cmd.Tag, 0x02)
	}
	// Range check without multiplying the requested count, which wraps
	// uint32 for large values
	flashSize := uint32(len(s.flash))
	if args.Address > flashSize || args.NumPages > (flashSize-args.Address)/pageSize {
		return command.ExecutionError(cmd.Tag, 0x03)
	}

	payload := make([]byte, 0, args.NumPages*2)
	for page := uint32(0); page < args.NumPages; page++ {
		start := args.Address + page*pageSize
		sum := command.PageChecksum(s.flash[start : start+pageSize])
		payload = binary.LittleEndian.AppendUint16(payload, sum)
	}
	return command.OK(cmd, payload)
}

func (s *Simulator) readWords(cmd *command.Command, args command.ReadWordsArgs) *command.Response {
	if args.Address%4 != 0 {
		return command.ExecutionError(cmd.Tag, 0x02)
	}
	flashSize := uint32(len(s.flash))
	if args.Address > flashSize || args.NumWords > (flashSize-args.Address)/4 {
		return command.ExecutionError(cmd.Tag, 0x03)
	}

	payload := make([]byte, 0, args.NumWords*4)
	for w := uint32(0); w < args.NumWords; w++ {
		offset := args.Address + w*4
		payload = binary.LittleEndian.AppendUint32(payload, binary.LittleEndian.Uint32(s.flash[offset:offset+4]))
	}
	return command.OK(cmd, payload)
}

func (s *Simulator) writeWords(cmd *command.Command, args command.WriteWordsArgs) *command.Response {
	if args.Address%4 != 0 {
		return command.ExecutionError(cmd.Tag, 0x02)
	}
	flashSize := uint32(len(s.flash))
	if args.Address > flashSize || uint32(len(args.Words)) > (flashSize-args.Address)/4 {
		return command.ExecutionError(cmd.Tag, 0x03)
	}

	for i, w := range args.Words {
		binary.LittleEndian.PutUint32(s.flash[args.Address+uint32(i)*4:], w)
	}
	return command.OK(cmd, nil)
}

// Mode returns the simulator's current mode
func (s *Simulator) Mode() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// FlashPage returns a copy of one flash page
func (s *Simulator) FlashPage(address uint32) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	page := make([]byte, s.config.FlashPageSize)
	copy(page, s.flash[address:])
	return page
}

// Resets returns the modes requested by reset commands, in order
func (s *Simulator) Resets() []uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]uint32, len(s.resets))
	copy(out, s.resets)
	return out
}

// Logf appends a line to the simulated diagnostic log
func (s *Simulator) Logf(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dmesg.WriteString(line)
}
