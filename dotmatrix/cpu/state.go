package cpu

import "github.com/tmajkech/dotmatrix/dotmatrix/snapshot"

// Save serializes registers, PC/SP and the packed control flags, followed
// by everything behind the bus.
func (c *CPU) Save(w *snapshot.Writer) {
	w.U8(c.a)
	w.U8(c.f)
	w.U8(c.b)
	w.U8(c.c)
	w.U8(c.d)
	w.U8(c.e)
	w.U8(c.h)
	w.U8(c.l)
	w.U16(c.pc)
	w.U16(c.sp)

	var flags byte
	if c.ime {
		flags |= 1 << 0
	}
	if c.halted {
		flags |= 1 << 1
	}
	if c.eiPending {
		flags |= 1 << 2
	}
	if c.haltBug {
		flags |= 1 << 3
	}
	w.U8(flags)

	c.bus.Save(w)
}

func (c *CPU) Load(r *snapshot.Reader) {
	c.a = r.U8()
	c.f = r.U8()
	c.b = r.U8()
	c.c = r.U8()
	c.d = r.U8()
	c.e = r.U8()
	c.h = r.U8()
	c.l = r.U8()
	c.pc = r.U16()
	c.sp = r.U16()

	flags := r.U8()
	c.ime = flags&(1<<0) != 0
	c.halted = flags&(1<<1) != 0
	c.eiPending = flags&(1<<2) != 0
	c.haltBug = flags&(1<<3) != 0

	c.bus.Load(r)
}
