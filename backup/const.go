package backup

// packageName is used for debug and error messages
const packageName = "backup"

// gcmStandardNonceSize is the nonce prefix of every snapshot.
const gcmStandardNonceSize = 12

// checkSumSize is the crc32 prefix of the compressed state.
const checkSumSize = 4
