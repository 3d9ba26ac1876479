package vision

// tan(22.5°) in Q15, truncated as in the classic Canny sector test
const tg22 int64 = 13573

const (
	cannyNone   = 0
	cannyWeak   = 1
	cannyStrong = 2
)

// Canny writes a binary (0/255) edge map of gray into dst.
// Gradients are 3x3 Sobel with replicated borders and L1 magnitude; pixels
// above high seed edges, pixels above low extend them through 8-connectivity.
func Canny(gray []uint8, width, height int, low, high float64, dst []uint8) []uint8 {
	n := width * height
	if cap(dst) < n {
		dst = make([]uint8, n)
	}
	dst = dst[:n]
	for i := range dst {
		dst[i] = 0
	}
	if width == 0 || height == 0 {
		return dst
	}

	dx := make([]int32, n)
	dy := make([]int32, n)
	mag := make([]int32, n)

	px := func(x, y int) int32 {
		if x < 0 {
			x = 0
		} else if x >= width {
			x = width - 1
		}
		if y < 0 {
			y = 0
		} else if y >= height {
			y = height - 1
		}
		return int32(gray[y*width+x])
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			gx := (px(x+1, y-1) + 2*px(x+1, y) + px(x+1, y+1)) -
				(px(x-1, y-1) + 2*px(x-1, y) + px(x-1, y+1))
			gy := (px(x-1, y+1) + 2*px(x, y+1) + px(x+1, y+1)) -
				(px(x-1, y-1) + 2*px(x, y-1) + px(x+1, y-1))
			i := y*width + x
			dx[i] = gx
			dy[i] = gy
			mag[i] = abs32(gx) + abs32(gy)
		}
	}

	magAt := func(x, y int) int32 {
		if x < 0 || y < 0 || x >= width || y >= height {
			return 0
		}
		return mag[y*width+x]
	}

	lo := int32(low)
	hi := int32(high)
	state := make([]uint8, n)
	stack := make([]int, 0, n/16)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			m := mag[i]
			if m <= lo {
				continue
			}

			ax := int64(abs32(dx[i]))
			ay := int64(abs32(dy[i])) << 15
			tg22x := ax * tg22

			var isMax bool
			switch {
			case ay < tg22x:
				isMax = m > magAt(x-1, y) && m >= magAt(x+1, y)
			case ay > tg22x+(ax<<16):
				isMax = m > magAt(x, y-1) && m >= magAt(x, y+1)
			default:
				s := 1
				if (dx[i] ^ dy[i]) < 0 {
					s = -1
				}
				isMax = m > magAt(x-s, y-1) && m > magAt(x+s, y+1)
			}
			if !isMax {
				continue
			}

			if m > hi {
				state[i] = cannyStrong
				stack = append(stack, i)
			} else {
				state[i] = cannyWeak
			}
		}
	}

	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%width, i/width
		for ny := y - 1; ny <= y+1; ny++ {
			if ny < 0 || ny >= height {
				continue
			}
			for nx := x - 1; nx <= x+1; nx++ {
				if nx < 0 || nx >= width {
					continue
				}
				j := ny*width + nx
				if state[j] == cannyWeak {
					state[j] = cannyStrong
					stack = append(stack, j)
				}
			}
		}
	}

	for i, s := range state {
		if s == cannyStrong {
			dst[i] = 255
		}
	}
	return dst
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
