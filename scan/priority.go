package scan

// priorityThresholds is a step function: nice starts at 20 and steps
// down to 0 as
// the node's count of already-submitted tasks grows, so a node whose
// scanners have consumed many thread-pool turns gradually yields to
// fresher work.
var priorityThresholds = [...]int{
	5, 19, 49, 91, 145, 211, 289, 379, 481, 595,
	721, 859, 1009, 1171, 1345, 1531, 1729, 1939, 2161, 2395,
}

// computePriority maps a submit count to a nice value in [0, 20],
// non-increasing in numSubmitted.
func computePriority(numSubmitted int32) int {
	nice := 20
	for _, threshold := range priorityThresholds {
		if int(numSubmitted) < threshold {
			return nice
		}
		nice--
	}
	return nice
}
