package simd

import "golang.org/x/sys/cpu"

// HasAVX2 reports whether the host CPU supports AVX2. The scan loop
// itself is portable SWAR, not hand-written assembly; this is exposed so
// callers can size chunk counts more aggressively on capable hardware,
// mirroring the feature-probe idiom the teacher's snapshot used for CPU
// dispatch elsewhere.
func HasAVX2() bool {
	return cpu.X86.HasAVX2
}
