package replanning

import (
	"math"
	"time"

	"blipee/sustainability-engine/internal/targets"
)

// buildTrajectory interpolates the expected monthly emissions from the
// current run rate down to the target rate, month by month from the
// next month through December of the target year.
func buildTrajectory(currentAnnual, targetAnnual float64, now time.Time, targetYear int) []targets.TrajectoryPoint {
	firstMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	lastMonth := time.Date(targetYear, time.December, 1, 0, 0, 0, 0, time.UTC)
	if lastMonth.Before(firstMonth) {
		return nil
	}

	months := monthsBetween(firstMonth, lastMonth) + 1
	startRate := currentAnnual / 12
	endRate := targetAnnual / 12

	trajectory := make([]targets.TrajectoryPoint, 0, months)
	for i := 0; i < months; i++ {
		progress := 1.0
		if months > 1 {
			progress = float64(i) / float64(months-1)
		}
		value := startRate + (endRate-startRate)*progress
		trajectory = append(trajectory, targets.TrajectoryPoint{
			Month: firstMonth.AddDate(0, i, 0).Format("2006-01"),
			Value: math.Round(value*10) / 10,
		})
	}
	return trajectory
}

func monthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}
