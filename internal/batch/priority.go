package batch

// Size thresholds for the priority classifier. Small files convert quickly,
// so they are scheduled first and a time-bounded tick completes the maximum
// item count.
const (
	highPrioritySizeLimit   = 500 * 1024      // <= 500 KiB converts near-instantly
	normalPrioritySizeLimit = 2 * 1024 * 1024 // <= 2 MiB
)

// classifyPriority assigns a priority tier from the item's estimated
// conversion cost, using file size as the proxy. It is a pure function of the
// single item inspected and always returns a tier.
func classifyPriority(ref ItemRef) Priority {
	switch {
	case ref.Size <= highPrioritySizeLimit:
		return PriorityHigh
	case ref.Size <= normalPrioritySizeLimit:
		return PriorityNormal
	default:
		return PriorityLow
	}
}
