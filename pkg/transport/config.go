package transport

// DefaultMaxMessage is the default maximum reassembled message size.
//
// This bound is a shared protocol constant: both sides must agree on it,
// it is not negotiated. 320 bytes covers the largest fixed command plus a
// full flash page on common HF2 targets.
const DefaultMaxMessage = 320
