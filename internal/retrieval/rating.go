package retrieval

import (
	"regexp"
	"strings"

	"github.com/ldecicco-USGS/USGSwsDataRetrieval/internal/domain"
)

var ratingAttrRe = regexp.MustCompile(`(\w+)="([^"]*)"`)

// RatingExpansion extracts the rating metadata embedded in the comment
// block of an expanded rating table. NWIS writes it as an attribute line,
// for example:
//
//	# //RATING ID="18.0" TYPE="STGQ" NAME="stage-discharge" AGING=Working
//
// The returned map holds the quoted attributes of the first //RATING line.
// ok is false when the comment block carries no rating line, which is the
// case for every non-rating table.
func RatingExpansion(t *domain.Table) (map[string]string, bool) {
	if t == nil {
		return nil, false
	}
	for _, c := range t.Comments {
		line := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(c), "#"))
		if !strings.HasPrefix(line, "//RATING ") {
			continue
		}
		attrs := make(map[string]string)
		for _, m := range ratingAttrRe.FindAllStringSubmatch(line, -1) {
			attrs[m[1]] = m[2]
		}
		return attrs, true
	}
	return nil, false
}
