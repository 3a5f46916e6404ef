package convolve

// DirectLimit is the kernel extent from which the transform path wins.
const DirectLimit = 7

// SelectStrategy returns StrategyDirect when both kernel dimensions are below
// DirectLimit and StrategyTransform otherwise.
func SelectStrategy(rows, cols int) Strategy {
	if rows < DirectLimit && cols < DirectLimit {
		return StrategyDirect
	}
	return StrategyTransform
}

// resolve picks the strategy for a kernel, honoring a forced choice.
func (o *Options) resolve(rows, cols int) Strategy {
	if o.Strategy == StrategyDirect || o.Strategy == StrategyTransform {
		return o.Strategy
	}
	return SelectStrategy(rows, cols)
}
