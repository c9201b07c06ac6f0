package fdup

// Hash type constants
const (
	HashTypeSHA1   uint16 = 1 // SHA-1 (20 bytes)
	HashTypeSHA256 uint16 = 2 // SHA-256 (32 bytes)
	HashTypeSHA512 uint16 = 3 // SHA-512 (64 bytes)
	HashTypeBLAKE3 uint16 = 4 // BLAKE3 (32 bytes)
)

// Hash size constants
const (
	HashSizeSHA1   = 20 // SHA-1 hash size in bytes
	HashSizeSHA256 = 32 // SHA-256 hash size in bytes
	HashSizeSHA512 = 64 // SHA-512 hash size in bytes
	HashSizeBLAKE3 = 32 // BLAKE3 default output size in bytes
)

// Defaults shared by the config file, the CLI and DefaultOptions.
const (
	DefaultHashAlgorithm = "sha256"
	DefaultHashBuffer    = 64 * 1024 // bytes read per chunk while hashing
	DefaultFDMargin      = 8         // descriptors kept spare below RLIMIT_NOFILE
	DefaultConfigFile    = "fdup/config"
)

// TempLinkFormat names the sibling entry a replacement is staged under.
// The %010d is the process id.
const TempLinkFormat = "fdup.%010d.tmp"

// progressInterval is how many registered files pass between progress lines.
const progressInterval = 1000
