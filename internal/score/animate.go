package score

// Animate returns the display values for moving a score from one value to
// another in steps frames with an ease-out curve. The last frame is always
// exactly to, and the sequence never overshoots.
func Animate(from, to, steps int) []int {
	if steps < 1 {
		steps = 1
	}
	frames := make([]int, steps)
	delta := to - from
	for i := 1; i <= steps; i++ {
		// ease-out quadratic: 1 - (1-p)^2, in integer space to stay monotone
		rem := steps - i
		eased := steps*steps - rem*rem
		frames[i-1] = from + delta*eased/(steps*steps)
	}
	frames[steps-1] = to
	return frames
}
