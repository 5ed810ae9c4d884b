package core

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
)

// PartitionDeduper detects partitions that repeat an earlier partition's
// products, as when the same data is exposed under two tab names. It holds
// state for one run.
type PartitionDeduper struct {
	seen map[string]string // signature -> first partition
}

// NewPartitionDeduper returns an empty deduper.
func NewPartitionDeduper() *PartitionDeduper {
	return &PartitionDeduper{seen: make(map[string]string)}
}

// Signature is the content signature of a partition: its product count and
// sorted identifiers, hashed.
func Signature(products []Product) string {
	ids := make([]string, len(products))
	for i, p := range products {
		ids[i] = p.Identifier
	}
	sort.Strings(ids)

	h := sha256.New()
	h.Write([]byte(strconv.Itoa(len(ids))))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(ids, "\x1f")))
	return hex.EncodeToString(h.Sum(nil))
}

// Check records the partition and reports the earlier partition it
// duplicates, if any. Partitions without products never match.
func (d *PartitionDeduper) Check(partition string, products []Product) (string, bool) {
	if len(products) == 0 {
		return "", false
	}
	sig := Signature(products)
	if first, ok := d.seen[sig]; ok {
		return first, true
	}
	d.seen[sig] = partition
	return "", false
}
