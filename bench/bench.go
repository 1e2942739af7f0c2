// Package bench carries the resident benchmark bodies. Each body
// exercises one security-sensitive primitive over fixed inputs so that
// cycle counts are comparable across runs and backends.
package bench

import (
	"crypto/aes"
	"crypto/sha256"
	"crypto/subtle"

	"github.com/cyclebench/cyclebench/device"
)

// Fixed working set. Inputs never vary between iterations: the point is
// timing stability, not throughput.
var (
	digestInput [256]byte
	digestOut   [sha256.Size]byte

	aesKey   = [16]byte{0x2b, 0x7e, 0x15, 0x16, 0x28, 0xae, 0xd2, 0xa6, 0xab, 0xf7, 0x15, 0x88, 0x09, 0xcf, 0x4f, 0x3c}
	aesBlock [16]byte

	prngState uint64 = 0x9e3779b97f4a7c15
	prngOut   [256]byte

	cmpA [32]byte
	cmpB [32]byte

	// sink defeats dead-code elimination of the measured bodies.
	sink uint64
)

func init() {
	for i := range digestInput {
		digestInput[i] = byte(i)
	}
	copy(cmpA[:], digestInput[:32])
	copy(cmpB[:], digestInput[:32])
	// Differ in the last byte so the variable-time compare walks the
	// whole buffer before diverging.
	cmpB[31] ^= 0xff
}

func sha256Digest() {
	digestOut = sha256.Sum256(digestInput[:])
	sink += uint64(digestOut[0])
}

func aes128EncryptBlock() {
	c, err := aes.NewCipher(aesKey[:])
	if err != nil {
		return
	}
	c.Encrypt(aesBlock[:], aesBlock[:])
	sink += uint64(aesBlock[0])
}

// prngFill is a xorshift fill, the cheap deterministic baseline the
// crypto bodies are measured against.
func prngFill() {
	s := prngState
	for i := range prngOut {
		s ^= s << 13
		s ^= s >> 7
		s ^= s << 17
		prngOut[i] = byte(s)
	}
	prngState = s
	sink += uint64(prngOut[0])
}

func constantTimeCompare() {
	sink += uint64(subtle.ConstantTimeCompare(cmpA[:], cmpB[:]))
}

// earlyExitCompare is the data-dependent counterpart of
// constantTimeCompare; together they bound the timing leak of a naive
// equality check.
func earlyExitCompare() {
	for i := range cmpA {
		if cmpA[i] != cmpB[i] {
			sink += uint64(i)
			return
		}
	}
	sink++
}

func nop() {}

// Registry returns the resident benchmark set for this build.
func Registry() *device.Registry {
	r := device.NewRegistry()
	r.MustRegister(device.Descriptor{ID: 1, Name: "nop", DefaultIterations: 1000, Fn: nop})
	r.MustRegister(device.Descriptor{ID: 2, Name: "sha256-digest", DefaultIterations: 100, Fn: sha256Digest})
	r.MustRegister(device.Descriptor{ID: 3, Name: "aes128-encrypt-block", DefaultIterations: 100, Fn: aes128EncryptBlock})
	r.MustRegister(device.Descriptor{ID: 4, Name: "prng-fill", DefaultIterations: 100, Fn: prngFill})
	r.MustRegister(device.Descriptor{ID: 5, Name: "compare-constant-time", DefaultIterations: 1000, Fn: constantTimeCompare})
	r.MustRegister(device.Descriptor{ID: 6, Name: "compare-early-exit", DefaultIterations: 1000, Fn: earlyExitCompare})
	return r
}
