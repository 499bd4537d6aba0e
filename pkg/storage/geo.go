package storage

import (
	"math"

	"github.com/ncruces/go-sqlite3"
)

const earthRadiusKm = 6371.0

// distanceFunc is the SQL name of the HaversineKm scalar.
const distanceFunc = "haversine_km"

// HaversineKm returns the great-circle distance between two points.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}

// registerFunctions adds haversine_km(lat1, lng1, lat2, lng2) to a new
// connection. Any NULL argument yields NULL.
func registerFunctions(c *sqlite3.Conn) error {
	return c.CreateFunction(distanceFunc, 4, sqlite3.DETERMINISTIC|sqlite3.INNOCUOUS,
		func(ctx sqlite3.Context, arg ...sqlite3.Value) {
			for _, a := range arg {
				if a.Type() == sqlite3.NULL {
					ctx.ResultNull()
					return
				}
			}
			ctx.ResultFloat(HaversineKm(arg[0].Float(), arg[1].Float(), arg[2].Float(), arg[3].Float()))
		})
}
