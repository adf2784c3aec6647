package rfm

// Segment labels.
const (
	SegmentLoyal              = "loyal"
	SegmentOneTimeBigSpenders = "one_time_big_spenders"
	SegmentLowValueOneTimers  = "low_value_one_timers"
	SegmentAtRisk             = "at_risk"
	SegmentRisingStar         = "rising_star"
	SegmentLost               = "lost"
	SegmentOthers             = "others"
)

// Rule is one entry of the segmentation decision list.
type Rule struct {
	Label string
	Match func(Scores) bool
}

// Rules is evaluated top-down and the first match wins. The categories
// overlap, so the order is part of the definition and must not change.
var Rules = []Rule{
	{SegmentLoyal, func(s Scores) bool {
		return s.Recency >= 4 && s.Frequency >= 3 && s.Monetary >= 3
	}},
	{SegmentOneTimeBigSpenders, func(s Scores) bool {
		return s.Frequency == 1 && s.Monetary >= 3
	}},
	{SegmentLowValueOneTimers, func(s Scores) bool {
		return s.Frequency == 1 && s.Monetary < 3
	}},
	{SegmentAtRisk, func(s Scores) bool {
		return s.Frequency >= 3 && s.Recency <= 3
	}},
	{SegmentRisingStar, func(s Scores) bool {
		return s.Frequency == 2 && s.Recency >= 4 && s.Monetary >= 3
	}},
	{SegmentLost, func(s Scores) bool {
		return s.Frequency == 2 && s.Recency < 3 && s.Monetary >= 3
	}},
}

// Segment returns the label of the first rule matching s, or SegmentOthers.
func Segment(s Scores) string {
	for _, r := range Rules {
		if r.Match(s) {
			return r.Label
		}
	}
	return SegmentOthers
}
