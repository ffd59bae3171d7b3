package pipeline

// Credit cost model. The estimate reserves credits before any work; the
// actual cost settles the reservation from what the job really did.
const (
	baseCost     = 10
	ocrPageCost  = 5
	chunkCost    = 5
	embedPerCost = 2

	defaultEstimatedPages  = 1
	defaultEstimatedChunks = 10
)

// EstimateCredits computes the up-front cost estimate for a job.
// Zero or negative hints fall back to defaults.
func EstimateCredits(needsOCR bool, estimatedPages, estimatedChunks int) int {
	if estimatedPages <= 0 {
		estimatedPages = defaultEstimatedPages
	}
	if estimatedChunks <= 0 {
		estimatedChunks = defaultEstimatedChunks
	}

	cost := baseCost + chunkCost + embedPerCost*estimatedChunks
	if needsOCR {
		cost += ocrPageCost * estimatedPages
	}
	return cost
}

// ActualCredits computes the settled cost from what actually happened.
// ocrPages is zero when the ocr phase did not run.
func ActualCredits(ocrPages, embedded int) int {
	return baseCost + chunkCost + ocrPageCost*ocrPages + embedPerCost*embedded
}
