package core

// packageName is used for debug and error messages
const packageName = "core"

// MaxParts is the largest number of parts a split may have (the count is stored in 16 bits).
const MaxParts = 1 << 16

// NameLength is the length of a part file name: 20 random bytes as lowercase hex.
const NameLength = 40

// nameBytes is the number of random bytes behind a part file name.
const nameBytes = NameLength / 2

// maxPlanAttempts limits how often a whole plan is thrown away (name collision or too many parts).
const maxPlanAttempts = 1000

// DefaultBufferSize is the copy buffer for reading and writing parts.
const DefaultBufferSize = 256 * 1024

// tempPattern names the in-flight files. The leading dot never matches a part name.
const tempPattern = ".splitparts-*.tmp"
