// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernel

// wide is a 64-bit value split into 32-bit halves, the way window.wgsl
// holds squared distances. WGSL has no 64-bit integers.
type wide struct {
	lo, hi uint32
}

// mulWide multiplies with 16-bit limbs, matching mul_wide in window.wgsl.
func mulWide(a, b uint32) wide {
	a0, a1 := a&0xffff, a>>16
	b0, b1 := b&0xffff, b>>16
	p00, p01, p10 := a0*b0, a0*b1, a1*b0
	mid := p00>>16 + p01&0xffff + p10&0xffff
	return wide{
		lo: p00&0xffff | mid<<16,
		hi: a1*b1 + p01>>16 + p10>>16 + mid>>16,
	}
}

func addWide(a, b wide) wide {
	lo := a.lo + b.lo
	carry := uint32(0)
	if lo < a.lo {
		carry = 1
	}
	return wide{lo: lo, hi: a.hi + b.hi + carry}
}

func (a wide) le(b wide) bool {
	return a.hi < b.hi || (a.hi == b.hi && a.lo <= b.lo)
}

// inDisk reports whether offset (dx, dy) lies inside a disk of radius r.
func inDisk(dx, dy, r uint32) bool {
	return addWide(mulWide(dx, dx), mulWide(dy, dy)).le(mulWide(r, r))
}
