package docservice

import (
	"github.com/shirou/gopsutil/v4/mem"
)

const (
	// reservedRAMBytes is held back for the runtime and the rest of the host
	reservedRAMBytes = int64(1 * 1024 * 1024 * 1024)
	// fallbackRAMBytes is assumed when system memory cannot be read
	fallbackRAMBytes = int64(8 * 1024 * 1024 * 1024)

	minConcurrency = 32
	maxConcurrency = 4096
)

// CalculateConcurrency returns the fasthttp concurrency limit. A positive
// configured value wins; 0 auto-sizes from installed RAM divided by the
// estimated per-request peak, which is a multiple of the upload ceiling
// (input bytes, decompressed parts, joined copies, rewritten output).
func CalculateConcurrency(configured int, maxUploadBytes int64) int {
	if configured > 0 {
		return configured
	}

	totalRAM := fallbackRAMBytes
	if v, err := mem.VirtualMemory(); err == nil {
		totalRAM = int64(v.Total)
	}

	perRequest := maxUploadBytes * 8
	if perRequest < 1*1024*1024 {
		perRequest = 1 * 1024 * 1024
	}

	available := totalRAM - reservedRAMBytes
	concurrency := int(available / perRequest)

	if concurrency < minConcurrency {
		return minConcurrency
	}
	if concurrency > maxConcurrency {
		return maxConcurrency
	}
	return concurrency
}
