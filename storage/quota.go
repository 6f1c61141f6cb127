package storage

// DefaultCapacityBytes is the conservative capacity ceiling assumed for a
// medium that does not expose a true limit, matching the low end of
// browser localStorage quotas.
const DefaultCapacityBytes int64 = 5 << 20

// DefaultSafetyMargin leaves headroom for the medium's own bookkeeping
// overhead when asking whether a write would fit.
const DefaultSafetyMargin = 0.95

// Band classifies current usage for caller-facing warnings.
type Band int

const (
	// BandNormal is usage below 80%.
	BandNormal Band = iota
	// BandWarning is usage from 80% up to 95%.
	BandWarning
	// BandCritical is usage at or above 95%.
	BandCritical
)

func (b Band) String() string {
	switch b {
	case BandNormal:
		return "normal"
	case BandWarning:
		return "warning"
	case BandCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Estimator reports capacity accounting over a BlobStore. It is advisory
// only: it never blocks a write. The medium's own rejection, surfaced by
// the Adapter as ErrCapacityExceeded, is the authoritative signal.
type Estimator struct {
	store    BlobStore
	capacity int64
}

// NewEstimator creates an estimator with the given capacity ceiling.
// A non-positive capacity falls back to DefaultCapacityBytes.
func NewEstimator(store BlobStore, capacity int64) *Estimator {
	if capacity <= 0 {
		capacity = DefaultCapacityBytes
	}
	return &Estimator{store: store, capacity: capacity}
}

// CapacityBytes returns the fixed capacity ceiling.
func (e *Estimator) CapacityBytes() int64 {
	return e.capacity
}

// UsedBytes sums the sizes of every key currently held in the store, not
// just this system's key; the medium is shared.
func (e *Estimator) UsedBytes() int64 {
	var used int64
	for i := 0; i < e.store.Len(); i++ {
		key := e.store.Key(i)
		if key == "" {
			continue
		}
		value, ok := e.store.Get(key)
		if !ok {
			continue
		}
		used += int64(len(key) + len(value))
	}
	return used
}

// UsagePercent returns current usage as a percentage of capacity, clamped
// to 0..100.
func (e *Estimator) UsagePercent() float64 {
	pct := float64(e.UsedBytes()) / float64(e.capacity) * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}

// HasRoom reports whether forBytes more bytes would fit, inflating the
// request by the inverse of margin to leave bookkeeping headroom. A margin
// outside (0, 1] falls back to DefaultSafetyMargin.
func (e *Estimator) HasRoom(forBytes int64, margin float64) bool {
	if margin <= 0 || margin > 1 {
		margin = DefaultSafetyMargin
	}
	required := float64(forBytes) / margin
	return float64(e.UsedBytes())+required <= float64(e.capacity)
}

// Band classifies current usage into the advisory warning bands.
func (e *Estimator) Band() Band {
	pct := e.UsagePercent()
	switch {
	case pct >= 95:
		return BandCritical
	case pct >= 80:
		return BandWarning
	default:
		return BandNormal
	}
}
