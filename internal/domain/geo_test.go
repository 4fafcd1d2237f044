package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceKm(t *testing.T) {
	rome := Coordinate{Lat: 41.9028, Lon: 12.4964}
	naples := Coordinate{Lat: 40.8518, Lon: 14.2681}

	t.Run("identical points are zero", func(t *testing.T) {
		assert.Equal(t, 0.0, DistanceKm(rome, rome))
	})

	t.Run("symmetric", func(t *testing.T) {
		assert.InDelta(t, DistanceKm(rome, naples), DistanceKm(naples, rome), 1e-9)
	})

	t.Run("known distance Rome-Naples", func(t *testing.T) {
		// Great-circle distance is ~188 km.
		d := DistanceKm(rome, naples)
		assert.InDelta(t, 188, d, 3)
	})

	t.Run("one degree of latitude", func(t *testing.T) {
		a := Coordinate{Lat: 0, Lon: 0}
		b := Coordinate{Lat: 1, Lon: 0}
		// 1 degree of arc on a 6371 km sphere is ~111.19 km.
		assert.InDelta(t, 111.19, DistanceKm(a, b), 0.1)
	})

	t.Run("monotonic with angular separation", func(t *testing.T) {
		origin := Coordinate{}
		near := Coordinate{Lat: 0.5, Lon: 0.5}
		far := Coordinate{Lat: 5, Lon: 5}
		assert.Less(t, DistanceKm(origin, near), DistanceKm(origin, far))
	})

	t.Run("antipodal points are half the circumference", func(t *testing.T) {
		a := Coordinate{Lat: 0, Lon: 0}
		b := Coordinate{Lat: 0, Lon: 180}
		assert.InDelta(t, 20015, DistanceKm(a, b), 1)
	})
}
