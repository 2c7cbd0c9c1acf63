package esb

// errata143Affected reports whether the currently configured addresses
// match the pattern the silicon's published errata describes: the high
// bytes of base address 0 (including its prefix) collide with those of
// base address 1, and prefix 0 collides with any of prefixes 1-7. When
// true, a register poke (applied by the Radio implementation, not here —
// see SPEC_FULL.md §13) restores receiver sensitivity at a 3 dB cost.
//
// Whether a cleaner fix exists on newer silicon revisions is an open
// question the original driver leaves unresolved; this mitigation is kept
// gated behind Config.EnableErrata143 rather than applied unconditionally.
func errata143Affected(addr AddressConfig) bool {
	mask0, mask1 := addr.BaseAddr0[0], addr.BaseAddr1[0]
	if addr.AddressLength == 5 {
		if mask0 != addr.BaseAddr1[0] || addr.BaseAddr0[1] != addr.BaseAddr1[1] {
			return false
		}
	} else if mask0 != mask1 {
		return false
	}

	p0 := addr.Prefixes[0]
	for i := 1; i < MaxPipes; i++ {
		if addr.Prefixes[i] == p0 {
			return true
		}
	}
	return false
}
