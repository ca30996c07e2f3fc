package stats

import (
	"math"
	"sync"
)

// ----------------------------------------------------------------------------
// SizeHistogram
// ----------------------------------------------------------------------------

// sizeHistogram tracks the distribution of response sizes in exponential
// buckets, from a few bytes up to the maximum frame size.
type sizeHistogram struct {
	mutex      sync.RWMutex
	boundaries []int   // upper bucket boundaries in bytes
	buckets    []int64 // count of samples per bucket, the last one is unbounded
	count      int64
	sum        int64
}

func newSizeHistogram() *sizeHistogram {
	boundaries := []int{
		16, 32, 64, 128, 256, 512, // small responses
		1024, 4096, 16384, 65536, // KB range
		262144, 1048576, // up to the default max frame size
	}
	return &sizeHistogram{
		boundaries: boundaries,
		buckets:    make([]int64, len(boundaries)+1),
	}
}

// AddSample adds a size sample to the histogram
//
// Thread-safe: This method is safe for concurrent use
func (h *sizeHistogram) AddSample(size int) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	bucketIndex := len(h.boundaries)
	for i, boundary := range h.boundaries {
		if size <= boundary {
			bucketIndex = i
			break
		}
	}

	h.buckets[bucketIndex]++
	h.count++
	h.sum += int64(size)
}

// Average returns the exact average size across all samples
func (h *sizeHistogram) Average() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if h.count == 0 {
		return 0
	}
	return int(h.sum / h.count)
}

// Percentile returns the upper boundary of the bucket containing the given percentile (0-100)
func (h *sizeHistogram) Percentile(percentile int) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if h.count == 0 || percentile < 0 || percentile > 100 {
		return 0
	}

	targetCount := int64(math.Ceil(float64(h.count) * float64(percentile) / 100.0))
	cumulativeCount := int64(0)

	for i, count := range h.buckets {
		cumulativeCount += count
		if cumulativeCount >= targetCount {
			if i < len(h.boundaries) {
				return h.boundaries[i]
			}
			// everything above the last boundary
			return h.boundaries[len(h.boundaries)-1] * 2
		}
	}

	return int(h.sum / h.count)
}
