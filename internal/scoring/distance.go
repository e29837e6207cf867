package scoring

import (
	"math"

	"github.com/jonathan/job-alerts/internal/types"
)

const earthRadiusKm = 6371.0

type point struct {
	lat, lon float64
}

// HaversineKm returns the great-circle distance between two coordinates.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	p1, p2 := radians(lat1), radians(lat2)
	dPhi := radians(lat2 - lat1)
	dLambda := radians(lon2 - lon1)
	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) + math.Cos(p1)*math.Cos(p2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

func (s *Scorer) distanceKm(p types.Posting) (float64, bool) {
	if s.base == nil || !p.HasCoordinates() {
		return 0, false
	}
	return HaversineKm(s.base.lat, s.base.lon, *p.Latitude, *p.Longitude), true
}

// distanceWeight returns the weight of the nearest band containing km.
func (s *Scorer) distanceWeight(km float64) float64 {
	for _, b := range s.bands {
		if km <= b.WithinKm {
			return b.Weight
		}
	}
	return 0
}
