// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernel

// Pixel computes the output of kernel k at linear pixel index i.
// Out-of-image neighbours are ignored, so the structuring element is
// clipped to the image and always contains the centre pixel.
func Pixel(k Kind, p Params, src []uint8, i int) uint8 {
	switch k {
	case Threshold:
		if v := src[i]; v >= p.Min && v <= p.Max {
			return v
		}
		return 0
	case ReverseThreshold:
		if v := src[i]; v >= p.Min && v <= p.Max {
			return 0
		}
		return src[i]
	case Invert:
		return 255 - src[i]
	case Erode:
		return window(p, src, i, true, true, true)
	case Dilate:
		return window(p, src, i, false, true, true)
	case ErodeRows:
		return window(p, src, i, true, true, false)
	case ErodeCols:
		return window(p, src, i, true, false, true)
	case DilateRows:
		return window(p, src, i, false, true, false)
	case DilateCols:
		return window(p, src, i, false, false, true)
	default:
		return src[i]
	}
}

// Run applies kernel k to every pixel sequentially.
func Run(k Kind, p Params, src, dst []uint8) {
	for i := range p.Pixels() {
		dst[i] = Pixel(k, p, src, i)
	}
}

func window(p Params, src []uint8, i int, minimum, horizontal, vertical bool) uint8 {
	w, h := p.Width, p.Height
	x, y := i%w, i/w
	r := p.EffectiveRadius()

	x0, x1 := x, x
	if horizontal {
		x0, x1 = max(x-r, 0), min(x+r, w-1)
	}
	y0, y1 := y, y
	if vertical {
		y0, y1 = max(y-r, 0), min(y+r, h-1)
	}
	disk := p.Shape == Disk && horizontal && vertical

	acc := uint8(0)
	if minimum {
		acc = 255
	}
	for yy := y0; yy <= y1; yy++ {
		dy := uint32(abs(yy - y)) //nolint:gosec // bounded by the image height
		row := src[yy*w : yy*w+w]
		for xx := x0; xx <= x1; xx++ {
			if disk && !inDisk(uint32(abs(xx-x)), dy, uint32(r)) { //nolint:gosec // bounded by the image size
				continue
			}
			v := row[xx]
			if minimum {
				acc = min(acc, v)
			} else {
				acc = max(acc, v)
			}
		}
	}
	return acc
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
