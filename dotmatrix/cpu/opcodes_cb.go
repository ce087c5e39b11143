package cpu

// The CB-prefixed table is perfectly regular: bits 2-0 select the operand
// (B,C,D,E,H,L,(HL),A) and bits 7-3 select the operation, so it decodes
// with two lookups instead of 256 handlers.

// cbTarget reads the operand selected by the low 3 bits.
func (c *CPU) cbTarget(sel byte) byte {
	switch sel {
	case 0:
		return c.b
	case 1:
		return c.c
	case 2:
		return c.d
	case 3:
		return c.e
	case 4:
		return c.h
	case 5:
		return c.l
	case 6:
		return c.bus.Read(c.getHL())
	default:
		return c.a
	}
}

func (c *CPU) setCBTarget(sel, v byte) {
	switch sel {
	case 0:
		c.b = v
	case 1:
		c.c = v
	case 2:
		c.d = v
	case 3:
		c.e = v
	case 4:
		c.h = v
	case 5:
		c.l = v
	case 6:
		c.bus.Write(c.getHL(), v)
	default:
		c.a = v
	}
}

// stepCB decodes and executes one CB-prefixed instruction. Register forms
// cost 8 T-cycles, (HL) forms 16 (12 for BIT, which does not write back).
func (c *CPU) stepCB() int {
	opcode := c.readImmediate()
	c.currentOpcode = 0xCB00 | uint16(opcode)

	sel := opcode & 0x07
	hl := sel == 6

	cycles := 8
	if hl {
		cycles = 16
	}

	switch {
	case opcode < 0x40:
		v := c.cbTarget(sel)
		switch opcode >> 3 {
		case 0: // RLC
			v = c.rlc(v)
		case 1: // RRC
			v = c.rrc(v)
		case 2: // RL
			v = c.rl(v)
		case 3: // RR
			v = c.rr(v)
		case 4: // SLA
			v = c.sla(v)
		case 5: // SRA
			v = c.sra(v)
		case 6: // SWAP
			v = c.swap(v)
		case 7: // SRL
			v = c.srl(v)
		}
		c.setCBTarget(sel, v)
	case opcode < 0x80: // BIT b, r
		index := (opcode >> 3) & 0x07
		c.bitTest(index, c.cbTarget(sel))
		if hl {
			cycles = 12
		}
	case opcode < 0xC0: // RES b, r
		index := (opcode >> 3) & 0x07
		c.setCBTarget(sel, c.cbTarget(sel)&^(1<<index))
	default: // SET b, r
		index := (opcode >> 3) & 0x07
		c.setCBTarget(sel, c.cbTarget(sel)|1<<index)
	}

	return cycles
}
