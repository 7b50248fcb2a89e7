package gtfsfeed

import (
	"archive/zip"
	"bytes"
	"io"
	"log"
	"testing"
	"time"

	"github.com/matryer/is"
)

func buildZip(t *testing.T, files map[string]string) *zip.Reader {
	t.Helper()
	is := is.New(t)

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		is.NoErr(err)
		_, err = f.Write([]byte(content))
		is.NoErr(err)
	}
	is.NoErr(w.Close())

	r, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	is.NoErr(err)
	return r
}

func baseFiles() map[string]string {
	return map[string]string{
		"calendar.txt": "service_id,monday,start_date,end_date\n" +
			"WKDY,1,20131001,20131231\n" +
			"SAT,0,20131001,20131231\n",
		"routes.txt": "route_id,agency_id,route_short_name,route_long_name,route_type\n" +
			"r14,SFMTA,14,14-MISSION,3\n",
		"trips.txt": "trip_id,route_id,service_id,direction_id,trip_headsign,shape_id\n" +
			"t1,r14,WKDY,0,Daly City,sh1\n" +
			"t2,r14,SAT,1,Downtown,\n",
		"stops.txt": "stop_id,stop_name,stop_lat,stop_lon\n" +
			"s1,MISSION & 16TH,37.765,-122.42\n" +
			"s2,MISSION & 24TH,37.752,-122.418\n",
		"stop_times.txt": "trip_id,arrival_time,departure_time,stop_id,stop_sequence,shape_dist_traveled\n" +
			"t1,08:00:00,08:02:00,s1,1,\n" +
			"t1,08:10:00,08:10:00,s2,2,1609.3\n" +
			"t2,09:00:00,09:00:00,s2,1,\n" +
			"t2,09:10:00,09:10:00,s1,2,\n",
		"shapes.txt": "shape_id,shape_pt_lat,shape_pt_lon,shape_pt_sequence\n" +
			"sh1,37.752,-122.418,2\n" +
			"sh1,37.765,-122.42,1\n",
		"fare_attributes.txt": "fare_id,price,currency_type\n" +
			"adult,2.00,USD\n",
		"fare_rules.txt": "fare_id,route_id\n" +
			"adult,r14\n",
		"feed_info.txt": "feed_publisher_name,feed_start_date,feed_end_date\n" +
			"SFMTA,20131001,20131231\n",
	}
}

func loadTestFeed(t *testing.T, files map[string]string) (*Feed, error) {
	t.Helper()
	return loadFeed(log.New(io.Discard, "", 0), buildZip(t, files))
}

func TestLoadFeed(t *testing.T) {
	is := is.New(t)
	feed, err := loadTestFeed(t, baseFiles())
	is.NoErr(err)

	periods := feed.ServicePeriods()
	is.Equal(2, len(periods))
	is.Equal("WKDY", periods[0].ServiceID)
	is.Equal(time.Date(2013, 10, 1, 0, 0, 0, 0, time.UTC), periods[0].StartDate)

	route, found := feed.RouteByID("r14")
	is.True(found)
	is.Equal("14", route.ShortName)
	is.Equal(int64(3), route.RouteType)

	trips := feed.TripsForPeriod("WKDY")
	is.Equal(1, len(trips))
	is.Equal("Daly City", trips[0].Headsign)
	is.Equal("sh1", trips[0].ShapeID)

	times := feed.StopTimes("t1")
	is.Equal(2, len(times))
	is.Equal("MISSION & 16TH", times[0].StopName)
	is.Equal(-122.42, times[0].Lon)
	is.True(times[0].DistTraveled == nil)
	is.True(times[1].DistTraveled != nil)
	is.Equal(1609.3, *times[1].DistTraveled)

	// shape points come back in sequence order regardless of file order
	points := feed.ShapePoints("sh1")
	is.Equal(2, len(points))
	is.Equal(int64(1), points[0].Seq)

	rules := feed.FareRules()
	is.Equal(1, len(rules))
	is.Equal(2.0, rules[0].Price)

	start, end := feed.DateRange()
	is.Equal(time.Date(2013, 10, 1, 0, 0, 0, 0, time.UTC), start)
	is.Equal(time.Date(2013, 12, 31, 0, 0, 0, 0, time.UTC), end)
}

func TestLoadFeedDateRangeFromCalendar(t *testing.T) {
	is := is.New(t)
	files := baseFiles()
	delete(files, "feed_info.txt")

	feed, err := loadTestFeed(t, files)
	is.NoErr(err)
	start, end := feed.DateRange()
	is.Equal(time.Date(2013, 10, 1, 0, 0, 0, 0, time.UTC), start)
	is.Equal(time.Date(2013, 12, 31, 0, 0, 0, 0, time.UTC), end)
}

func TestLoadFeedMissingFile(t *testing.T) {
	is := is.New(t)
	files := baseFiles()
	delete(files, "stop_times.txt")

	_, err := loadTestFeed(t, files)
	is.True(err != nil)
}

func TestLoadFeedUnknownStop(t *testing.T) {
	is := is.New(t)
	files := baseFiles()
	files["stop_times.txt"] = "trip_id,arrival_time,departure_time,stop_id,stop_sequence\n" +
		"t1,08:00:00,08:00:00,missing,1\n"

	_, err := loadTestFeed(t, files)
	is.True(err != nil)
}

func TestLoadFeedBadColumn(t *testing.T) {
	is := is.New(t)
	files := baseFiles()
	files["routes.txt"] = "route_id,route_type\nr14,bus\n"

	_, err := loadTestFeed(t, files)
	is.True(err != nil)
}
