package aggregate

import (
	"sort"

	"github.com/nuestro-pulso/pulso-search/internal/model"
)

// Rank sorts records by descending relevance in place. Ties keep their input order.
func Rank(records []model.ResultRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].RelevanceScore > records[j].RelevanceScore
	})
}
