package memory

import "github.com/tmajkech/dotmatrix/dotmatrix/snapshot"

// MBC is a memory bank controller: it serves cartridge reads and decodes
// writes into the ROM address space as banking register updates.
type MBC interface {
	Read(address uint16) byte
	Write(address uint16, v byte)
	// RAM exposes external RAM contents for battery persistence.
	RAM() []byte
	Save(w *snapshot.Writer)
	Load(r *snapshot.Reader)
}

func romBankCount(rom []byte) int {
	n := len(rom) / 0x4000
	if n < 2 {
		n = 2
	}
	return n
}

// NoMBC covers 32KB cartridges with no banking hardware and no external
// RAM.
type NoMBC struct {
	rom []byte
}

func (m *NoMBC) Read(address uint16) byte {
	if address <= 0x7FFF {
		if int(address) < len(m.rom) {
			return m.rom[address]
		}
	}
	return 0xFF
}

func (m *NoMBC) Write(address uint16, v byte) {}

func (m *NoMBC) RAM() []byte { return nil }

func (m *NoMBC) Save(w *snapshot.Writer) {}

func (m *NoMBC) Load(r *snapshot.Reader) {}

// MBC1 supports up to 2MB ROM and 32KB RAM with two banking modes. In
// mode 1 the secondary register also remaps the fixed 0x0000-0x3FFF area.
type MBC1 struct {
	rom         []byte
	ram         []byte
	romBank     byte // lower 5 bits, values 1-31
	ramBank     byte // 2-bit secondary register
	ramEnabled  bool
	bankingMode bool
}

func NewMBC1(rom []byte, ramSize int) *MBC1 {
	return &MBC1{
		rom:     rom,
		ram:     make([]byte, ramSize),
		romBank: 1,
	}
}

func (m *MBC1) Read(address uint16) byte {
	numBanks := romBankCount(m.rom)

	switch {
	case address <= 0x3FFF:
		bank := 0
		if m.bankingMode {
			bank = (int(m.ramBank) << 5) % numBanks
		}
		offset := bank*0x4000 + int(address)
		if offset < len(m.rom) {
			return m.rom[offset]
		}
		return 0xFF
	case address <= 0x7FFF:
		bank := (int(m.ramBank) << 5) | int(m.romBank)
		// lower 5 bits of the bank can never be 0
		if bank&0x1F == 0 {
			bank |= 1
		}
		bank %= numBanks
		offset := bank*0x4000 + int(address-0x4000)
		if offset < len(m.rom) {
			return m.rom[offset]
		}
		return 0xFF
	case address >= 0xA000 && address <= 0xBFFF:
		if !m.ramEnabled || len(m.ram) == 0 {
			return 0xFF
		}
		bank := 0
		if m.bankingMode {
			bank = int(m.ramBank)
		}
		offset := bank*0x2000 + int(address-0xA000)
		if offset < len(m.ram) {
			return m.ram[offset]
		}
		return 0xFF
	}
	return 0xFF
}

func (m *MBC1) Write(address uint16, v byte) {
	switch {
	case address <= 0x1FFF:
		m.ramEnabled = v&0x0F == 0x0A
	case address <= 0x3FFF:
		bank := v & 0x1F
		if bank == 0 {
			bank = 1
		}
		m.romBank = bank
	case address <= 0x5FFF:
		m.ramBank = v & 0x03
	case address <= 0x7FFF:
		m.bankingMode = v&0x01 != 0
	case address >= 0xA000 && address <= 0xBFFF:
		if !m.ramEnabled || len(m.ram) == 0 {
			return
		}
		bank := 0
		if m.bankingMode {
			bank = int(m.ramBank)
		}
		offset := bank*0x2000 + int(address-0xA000)
		if offset < len(m.ram) {
			m.ram[offset] = v
		}
	}
}

func (m *MBC1) RAM() []byte { return m.ram }

func (m *MBC1) Save(w *snapshot.Writer) {
	w.U8(m.romBank)
	w.U8(m.ramBank)
	w.Bool(m.ramEnabled)
	w.Bool(m.bankingMode)
	w.Bytes(m.ram)
}

func (m *MBC1) Load(r *snapshot.Reader) {
	m.romBank = r.U8()
	m.ramBank = r.U8()
	m.ramEnabled = r.Bool()
	m.bankingMode = r.Bool()
	r.ReadInto(m.ram)
}

// MBC3 supports up to 2MB ROM, 32KB RAM and a battery-backed real-time
// clock. The RAM bank register doubles as an RTC register selector for
// values 0x08-0x0C.
type MBC3 struct {
	rom        []byte
	ram        []byte
	romBank    byte // 7 bits, values 1-127
	ramBank    byte
	ramEnabled bool
	rtc        RTC
	lastLatch  byte
}

func NewMBC3(rom []byte, ramSize int) *MBC3 {
	return &MBC3{
		rom:       rom,
		ram:       make([]byte, ramSize),
		romBank:   1,
		rtc:       NewRTC(),
		lastLatch: 0xFF,
	}
}

func (m *MBC3) Read(address uint16) byte {
	switch {
	case address <= 0x3FFF:
		if int(address) < len(m.rom) {
			return m.rom[address]
		}
		return 0xFF
	case address <= 0x7FFF:
		bank := int(m.romBank) % romBankCount(m.rom)
		offset := bank*0x4000 + int(address-0x4000)
		if offset < len(m.rom) {
			return m.rom[offset]
		}
		return 0xFF
	case address >= 0xA000 && address <= 0xBFFF:
		if !m.ramEnabled {
			return 0xFF
		}
		if m.ramBank <= 0x03 {
			offset := int(m.ramBank)*0x2000 + int(address-0xA000)
			if offset < len(m.ram) {
				return m.ram[offset]
			}
			return 0xFF
		}
		if m.ramBank >= 0x08 && m.ramBank <= 0x0C {
			return m.rtc.Read(m.ramBank)
		}
		return 0xFF
	}
	return 0xFF
}

func (m *MBC3) Write(address uint16, v byte) {
	switch {
	case address <= 0x1FFF:
		m.ramEnabled = v&0x0F == 0x0A
	case address <= 0x3FFF:
		bank := v & 0x7F
		if bank == 0 {
			bank = 1
		}
		m.romBank = bank
	case address <= 0x5FFF:
		m.ramBank = v
	case address <= 0x7FFF:
		// Writing 0x00 then 0x01 latches the clock.
		if m.lastLatch == 0x00 && v == 0x01 {
			m.rtc.Latch()
		}
		m.lastLatch = v
	case address >= 0xA000 && address <= 0xBFFF:
		if !m.ramEnabled {
			return
		}
		if m.ramBank <= 0x03 {
			offset := int(m.ramBank)*0x2000 + int(address-0xA000)
			if offset < len(m.ram) {
				m.ram[offset] = v
			}
			return
		}
		if m.ramBank >= 0x08 && m.ramBank <= 0x0C {
			m.rtc.Write(m.ramBank, v)
		}
	}
}

func (m *MBC3) RAM() []byte { return m.ram }

func (m *MBC3) Save(w *snapshot.Writer) {
	w.U8(m.romBank)
	w.U8(m.ramBank)
	w.Bool(m.ramEnabled)
	w.U8(m.lastLatch)
	m.rtc.Save(w)
	w.Bytes(m.ram)
}

func (m *MBC3) Load(r *snapshot.Reader) {
	m.romBank = r.U8()
	m.ramBank = r.U8()
	m.ramEnabled = r.Bool()
	m.lastLatch = r.U8()
	m.rtc.Load(r)
	r.ReadInto(m.ram)
}

// MBC5 supports up to 8MB ROM with a 9-bit bank number and up to 128KB
// RAM, with none of MBC1's remapping quirks.
type MBC5 struct {
	rom        []byte
	ram        []byte
	romBank    uint16 // 9 bits, values 0-511
	ramBank    byte
	ramEnabled bool
}

func NewMBC5(rom []byte, ramSize int) *MBC5 {
	return &MBC5{
		rom:     rom,
		ram:     make([]byte, ramSize),
		romBank: 1,
	}
}

func (m *MBC5) Read(address uint16) byte {
	switch {
	case address <= 0x3FFF:
		if int(address) < len(m.rom) {
			return m.rom[address]
		}
		return 0xFF
	case address <= 0x7FFF:
		bank := int(m.romBank) % romBankCount(m.rom)
		offset := bank*0x4000 + int(address-0x4000)
		if offset < len(m.rom) {
			return m.rom[offset]
		}
		return 0xFF
	case address >= 0xA000 && address <= 0xBFFF:
		if !m.ramEnabled || len(m.ram) == 0 {
			return 0xFF
		}
		offset := int(m.ramBank)*0x2000 + int(address-0xA000)
		if offset < len(m.ram) {
			return m.ram[offset]
		}
		return 0xFF
	}
	return 0xFF
}

func (m *MBC5) Write(address uint16, v byte) {
	switch {
	case address <= 0x1FFF:
		m.ramEnabled = v&0x0F == 0x0A
	case address <= 0x2FFF:
		m.romBank = (m.romBank & 0x100) | uint16(v)
	case address <= 0x3FFF:
		m.romBank = (m.romBank & 0xFF) | (uint16(v&0x01) << 8)
	case address <= 0x5FFF:
		m.ramBank = v & 0x0F
	case address >= 0xA000 && address <= 0xBFFF:
		if !m.ramEnabled || len(m.ram) == 0 {
			return
		}
		offset := int(m.ramBank)*0x2000 + int(address-0xA000)
		if offset < len(m.ram) {
			m.ram[offset] = v
		}
	}
}

func (m *MBC5) RAM() []byte { return m.ram }

func (m *MBC5) Save(w *snapshot.Writer) {
	w.U16(m.romBank)
	w.U8(m.ramBank)
	w.Bool(m.ramEnabled)
	w.Bytes(m.ram)
}

func (m *MBC5) Load(r *snapshot.Reader) {
	m.romBank = r.U16()
	m.ramBank = r.U8()
	m.ramEnabled = r.Bool()
	r.ReadInto(m.ram)
}
