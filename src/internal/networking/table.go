package networking

import (
	"strconv"
	"strings"

	"github.com/multihome/mhroute/src/internal/config"
)

// maxSuffix is the largest interface number a prefix range can hold before it
// collides with the next prefix's tables.
const maxSuffix = 9

// TableBase maps an interface name prefix to the first table of its range.
type TableBase struct {
	Prefix string
	Base   int
}

// TableNumberer derives policy routing table numbers from interface names.
type TableNumberer struct {
	bases []TableBase
}

// NewTableNumberer builds a numberer from configured bases. Order matters:
// the first prefix an interface name starts with is used.
func NewTableNumberer(bases []*config.TableBase) *TableNumberer {
	n := &TableNumberer{}
	for _, b := range bases {
		if b == nil {
			continue
		}
		n.bases = append(n.bases, TableBase{Prefix: b.Prefix, Base: b.Base})
	}
	return n
}

// DefaultTableNumberer numbers eth, ath, wlan and ppp interfaces.
func DefaultTableNumberer() *TableNumberer {
	return NewTableNumberer(config.DefaultTableBases())
}

// TableNumber returns base(prefix) + suffix for name, e.g. eth0 -> 1 and
// wlan1 -> 22. The suffix must be all digits and at most 9. Names without a
// known prefix or a valid suffix return false.
func (n *TableNumberer) TableNumber(name string) (int, bool) {
	for _, b := range n.bases {
		if !strings.HasPrefix(name, b.Prefix) {
			continue
		}

		suffix := name[len(b.Prefix):]
		if suffix == "" || strings.TrimLeft(suffix, "0123456789") != "" {
			return 0, false
		}
		num, err := strconv.Atoi(suffix)
		if err != nil || num > maxSuffix {
			return 0, false
		}
		return b.Base + num, true
	}
	return 0, false
}

// Bases returns the configured prefix bases in lookup order.
func (n *TableNumberer) Bases() []TableBase {
	out := make([]TableBase, len(n.bases))
	copy(out, n.bases)
	return out
}
