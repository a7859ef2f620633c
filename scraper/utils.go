package scraper

// FindMaxSeeders reduces an aggregated result to the highest seeder count
// any tracker reported per hash. A hash whose records all report zero or
// negative seeders maps to 0.
func FindMaxSeeders(aggregated Result) map[string]int {
	maxSeeders := make(map[string]int, len(aggregated))
	for infoHash, records := range aggregated {
		best := 0
		for _, record := range records {
			if record.Seeders > best {
				best = record.Seeders
			}
		}
		maxSeeders[infoHash] = best
	}
	return maxSeeders
}
