package core

import (
	"github.com/mackerelio/go-osstat/memory"
	log "github.com/sirupsen/logrus"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// checkFreeRam warns if a pad segment of n bytes does not fit into the free memory.
// The whole segment is held in RAM during a cipher pass.
// Nothing happens if the memory stats are not available.
func checkFreeRam(n int64) bool {
	mem, err := memory.Get()
	if err != nil {
		return true // unknown: no warning
	}

	// limit: segment + 20%
	need := uint64(float64(n)*1.2) + 1
	if mem.Free >= need {
		return true // OK
	}

	p := message.NewPrinter(language.English)
	log.Warn(p.Sprintf("%s/checkFreeRam: segment needs %d MB, only %d MB of %d MB free", packageName,
		uint64(n)/MiB, mem.Free/MiB, mem.Total/MiB))
	return false
}
