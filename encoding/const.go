package enc

// packageName is used for debug and error messages
const packageName = "enc"

// ChunkSize is the buffer size for streaming input and output.
// The pad segment itself is always held in full.
const ChunkSize = 8 * 1024
