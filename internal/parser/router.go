package parser

// MergeAction says what happens to the two OCR outputs after the join.
type MergeAction string

const (
	// Reconcile merges both outputs through one model call.
	Reconcile MergeAction = "RECONCILE"
	// DirectPassthrough trusts the structured-document output directly.
	DirectPassthrough MergeAction = "DIRECT_PASSTHROUGH"
)

// MergeDecision is the routing verdict plus the inputs that produced it,
// so logs can always explain why a run did or did not reconcile.
type MergeDecision struct {
	Action    MergeAction
	PageCount int
	Threshold int
}

// Decide routes on the true page count against the configured threshold.
// Short documents are cheap enough to reconcile for maximum accuracy; long
// ones skip the extra model call and trust the structured-document
// strategy. No code path may override the verdict with a fixed literal.
func Decide(pageCount, threshold int) MergeDecision {
	action := DirectPassthrough
	if pageCount <= threshold {
		action = Reconcile
	}
	return MergeDecision{Action: action, PageCount: pageCount, Threshold: threshold}
}
