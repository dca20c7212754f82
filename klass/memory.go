package klass

import "fmt"

const (
	estimatedClassBytes        = 96
	estimatedStringHeaderBytes = 16
	estimatedValueBytes        = 16
	estimatedFunctionBytes     = 40
	estimatedSliceBaseBytes    = 24
)

func memberFootprint(m Member) int {
	return estimatedStringHeaderBytes + len(m.Name) + estimatedValueBytes
}

func functionFootprint(f Function) int {
	return estimatedStringHeaderBytes + len(f.name) + estimatedFunctionBytes
}

// classFootprint estimates the bytes held by an instance with the given
// tables. Constructor and destructor copies count like table entries.
func classFootprint(name string, ctor, dtor *Function, members []Member, functions []Function) int {
	total := estimatedClassBytes + estimatedStringHeaderBytes + len(name)
	total += 2 * estimatedSliceBaseBytes
	if ctor != nil {
		total += functionFootprint(*ctor)
	}
	if dtor != nil {
		total += functionFootprint(*dtor)
	}
	for _, m := range members {
		total += memberFootprint(m)
	}
	for _, f := range functions {
		total += functionFootprint(f)
	}
	return total
}

// charge reserves n bytes against the runtime quota, leaving the books
// untouched on failure.
func (rt *Runtime) charge(n int) error {
	if rt.used+n > rt.config.MemoryQuotaBytes {
		rt.log.Warn("memory quota rejected allocation",
			"requested", n,
			"in_use", rt.used,
			"quota", rt.config.MemoryQuotaBytes,
		)
		return fmt.Errorf("%w (%d bytes)", ErrQuotaExceeded, rt.config.MemoryQuotaBytes)
	}
	rt.used += n
	return nil
}

func (rt *Runtime) refund(n int) {
	rt.used -= n
	if rt.used < 0 {
		rt.used = 0
	}
}
