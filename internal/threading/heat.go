package threading

import (
	"math"
	"time"

	"github.com/jonesrussell/newsthreader/internal/domain"
)

// HeatScore ranks a thread by recent weighted activity. Each member
// contributes its importance weight, decayed exponentially by age. With the
// default decay rate a contribution halves roughly every two and a half
// days, so a thread with three fresh articles outranks one with ten stale
// ones.
func HeatScore(members []domain.Article, decayRate float64, now time.Time) float64 {
	heat := 0.0
	for i := range members {
		ageDays := now.Sub(members[i].PublishedAt).Hours() / 24
		if ageDays < 0 {
			ageDays = 0
		}
		heat += members[i].ImportanceWeight * math.Exp(-decayRate*ageDays)
	}
	return heat
}
