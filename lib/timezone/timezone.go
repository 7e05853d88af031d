package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Asia/Tokyo")
	if err != nil {
		panic(err)
	}
}

// force timezone to be in Japan because the upstream publishes release
// dates in JST, and a UTC server clock near midnight would otherwise
// derive dates based on <time.Time>.Year()/Month()/Day()/... one day
// behind the official ones.
func Now() time.Time {
	return time.Now().In(Location)
}
