// Package fact builds the order-grain tables: deduplicated reviews, item and
// payment aggregates, and the canonical order fact.
package fact

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sells-group/commerce-warehouse/internal/model"
	"github.com/sells-group/commerce-warehouse/internal/nullable"
)

// LowQualityTextLength is the comment length below which a review is low quality.
const LowQualityTextLength = 5

// DedupeReviews keeps exactly one row per review_id.
//
// Rows are ranked by coalesce(answered_at, created_at) descending, then score
// descending. A row without either timestamp ranks below any row with one.
// Remaining ties resolve to the smaller order_id, then the later creation
// date, then the larger comment message and title, so the survivor does not
// depend on input order. Losing rows are discarded, not merged.
func DedupeReviews(rows []model.Review) []model.DedupedReview {
	groups := make(map[string][]model.Review)
	var ids []string
	for _, r := range rows {
		if _, ok := groups[r.ReviewID]; !ok {
			ids = append(ids, r.ReviewID)
		}
		groups[r.ReviewID] = append(groups[r.ReviewID], r)
	}
	sort.Strings(ids)

	out := make([]model.DedupedReview, 0, len(ids))
	for _, id := range ids {
		group := groups[id]
		best := group[0]
		for _, r := range group[1:] {
			if reviewRanksAbove(r, best) {
				best = r
			}
		}
		out = append(out, withTextQuality(best, len(group)))
	}
	return out
}

// reviewRanksAbove reports whether a strictly outranks b.
func reviewRanksAbove(a, b model.Review) bool {
	if cmp := compareTimes(reviewTime(a), reviewTime(b)); cmp != 0 {
		return cmp > 0
	}
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.OrderID != b.OrderID {
		return a.OrderID < b.OrderID
	}
	if cmp := compareTimes(a.CreatedAt, b.CreatedAt); cmp != 0 {
		return cmp > 0
	}
	if am, bm := deref(a.CommentMessage), deref(b.CommentMessage); am != bm {
		return am > bm
	}
	return deref(a.CommentTitle) > deref(b.CommentTitle)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func reviewTime(r model.Review) *time.Time {
	return nullable.Coalesce(r.AnsweredAt, r.CreatedAt)
}

func withTextQuality(r model.Review, duplicates int) model.DedupedReview {
	var text string
	if r.CommentMessage != nil {
		text = *r.CommentMessage
	}
	length := utf8.RuneCountInString(text)
	hasText := strings.TrimSpace(text) != ""

	return model.DedupedReview{
		ReviewID:       r.ReviewID,
		OrderID:        r.OrderID,
		Score:          r.Score,
		CommentTitle:   r.CommentTitle,
		CommentMessage: r.CommentMessage,
		CreatedAt:      r.CreatedAt,
		AnsweredAt:     r.AnsweredAt,
		TextLength:     length,
		HasText:        hasText,
		LowQuality:     length < LowQualityTextLength || !hasText,
		DuplicateCount: duplicates,
	}
}
