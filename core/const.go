package core

// packageName is used for debug and error messages
const packageName = "core"

// MetadataExt is appended to the ciphertext path for the metadata sidecar.
const MetadataExt = ".metadata.json"

// CiphertextExt is appended to the input path if no output path is given.
const CiphertextExt = ".enc"

// MiB is the unit for pad sizes in the user interfaces.
const MiB = 1024 * 1024
