package gemini

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// hashDynamicObject derives a stable content-address for d's structural
// fields, used to name its entry under the cache directory. Two
// DynamicObjects with identical program invocation parameters hash to
// the same value regardless of process or run, unlike a pointer or
// map-iteration-order based identity.
func hashDynamicObject(d *DynamicObject) uint64 {
	var b strings.Builder
	b.WriteString(d.ProgramPath)
	b.WriteByte(0)
	for _, a := range d.Args {
		b.WriteString(a)
		b.WriteByte(0)
	}
	b.WriteString(d.CmdWorkingDir)
	b.WriteByte(0)
	for _, e := range d.CmdEnv {
		b.WriteString(e.Key)
		b.WriteByte('=')
		b.WriteString(e.Value)
		b.WriteByte(0)
	}
	b.WriteString(d.LinkPath)
	b.WriteByte(0)
	b.WriteString(derefString(d.Domain))
	b.WriteByte(0)
	b.WriteString(derefString(d.Mimetype))

	return xxhash.Sum64String(b.String())
}

func hashFileName(d *DynamicObject) string {
	return strconv.FormatUint(hashDynamicObject(d), 16)
}
