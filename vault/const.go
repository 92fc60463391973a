package vault

// packageName is used for debug and error messages
const packageName = "vault"

// StateFileName is the name of the state ledger in the vault root.
const StateFileName = "vault_state.json"

// PadDir is the folder (relative to the vault root) with both pad areas.
const PadDir = "pads"

// AvailableDir holds pads with unused bytes (relative to PadDir).
const AvailableDir = "available"

// UsedDir holds fully consumed pads (relative to PadDir).
const UsedDir = "used"

// PadExt is appended to the pad id to build the backing file name.
const PadExt = ".pad"
