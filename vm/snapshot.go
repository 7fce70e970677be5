package vm

import "github.com/amazon-ion/ion-go/ion"

// ionSnapshot is the Ion-serializable projection of Snapshot. Stack
// values aren't carried (Value isn't itself Ion-friendly without a
// variant encoding); the export is ip/sp/fp/last-op for tooling
// correlation, not a full heap dump.
type ionSnapshot struct {
	VMID   string `ion:"vm_id"`
	IP     int    `ion:"ip"`
	SP     int    `ion:"sp"`
	FP     int    `ion:"fp"`
	LastOp string `ion:"last_op"`
}

// MarshalIonText renders a Snapshot as text-format Amazon Ion, for
// consumption by external debugging/inspection tooling.
func (s Snapshot) MarshalIonText() ([]byte, error) {
	return ion.MarshalText(ionSnapshot{
		VMID:   s.VMID,
		IP:     s.IP,
		SP:     s.SP,
		FP:     s.FP,
		LastOp: s.LastOp,
	})
}
