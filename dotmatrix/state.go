package dotmatrix

import (
	"github.com/tmajkech/dotmatrix/dotmatrix/snapshot"
)

// Save serializes the entire machine into a GBSS blob.
func (d *DMG) Save() []byte {
	w := &snapshot.Writer{}
	cart := d.bus.Cartridge()
	snapshot.WriteHeader(w, cart.MBCTag(), uint32(len(cart.RAM())))
	d.cpu.Save(w)
	return w.Data()
}

// Load restores the machine from a GBSS blob. The snapshot must match the
// loaded cartridge's MBC type and RAM size; on error the live state is
// untouched except for fields already consumed, so callers should treat a
// failed load as fatal for determinism and reload or reset.
func (d *DMG) Load(data []byte) error {
	cart := d.bus.Cartridge()
	r, err := snapshot.ReadHeader(data, cart.MBCTag(), uint32(len(cart.RAM())))
	if err != nil {
		return err
	}
	d.cpu.Load(r)
	return r.Err()
}
