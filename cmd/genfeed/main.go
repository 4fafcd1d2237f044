// Command genfeed generates mock FDSN GeoJSON event feeds for local
// development and test fixtures. It can write a fixture file or serve a
// rolling feed over HTTP so the service can be run without hitting the real
// endpoint.
//
// Usage:
//
//	go run ./cmd/genfeed -count 40 -out testdata/feed.json
//	go run ./cmd/genfeed -serve :9200
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// epicenters are rough coordinates of seismically active Italian areas. Place
// strings follow the feed's "<distance> km <bearing> <name>" convention.
var epicenters = []struct {
	name     string
	lat, lon float64
}{
	{"Napoli", 40.8518, 14.2681},
	{"Campi Flegrei", 40.8270, 14.1390},
	{"Vesuvio", 40.8219, 14.4260},
	{"Amatrice", 42.6276, 13.2884},
	{"Etna", 37.7510, 14.9934},
	{"Norcia", 42.7940, 13.0960},
	{"Stromboli", 38.7890, 15.2130},
}

var bearings = []string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

type feature struct {
	Type       string   `json:"type"`
	Properties props    `json:"properties"`
	Geometry   geometry `json:"geometry"`
}

type props struct {
	EventID int     `json:"eventId"`
	Time    string  `json:"time"`
	Mag     float64 `json:"mag"`
	MagType string  `json:"magType"`
	Place   string  `json:"place"`
	Type    string  `json:"type"`
}

type geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

type collection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	count := flag.Int("count", 30, "number of events to generate")
	seed := flag.Int64("seed", 1, "random seed, for reproducible fixtures")
	window := flag.Duration("window", 24*time.Hour, "time window the events span")
	out := flag.String("out", "", "output path for a GeoJSON fixture file")
	serve := flag.String("serve", "", "serve a rolling feed on this address instead of writing a file")
	flag.Parse()

	if *out == "" && *serve == "" {
		flag.Usage()
		return fmt.Errorf("one of -out or -serve is required")
	}

	if *serve != "" {
		return serveFeed(*serve, *count, *window)
	}

	rng := rand.New(rand.NewSource(*seed))
	coll := generate(rng, *count, time.Now().UTC(), *window)
	if err := writeJSON(*out, coll); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}
	log.Printf("wrote %d events to %s", *count, *out)
	return nil
}

// generate produces events spread uniformly across the window ending at end,
// newest first like the real feed.
func generate(rng *rand.Rand, count int, end time.Time, window time.Duration) collection {
	coll := collection{Type: "FeatureCollection", Features: make([]feature, 0, count)}
	for i := 0; i < count; i++ {
		epi := epicenters[rng.Intn(len(epicenters))]
		distKm := rng.Float64() * 9
		lat := epi.lat + (rng.Float64()-0.5)*0.2
		lon := epi.lon + (rng.Float64()-0.5)*0.2
		ts := end.Add(-time.Duration(float64(window) * float64(i) / float64(count)))

		coll.Features = append(coll.Features, feature{
			Type: "Feature",
			Properties: props{
				EventID: 36700000 + rng.Intn(99999),
				// The feed omits the Z suffix; times are UTC by convention.
				Time:    ts.Format("2006-01-02T15:04:05.000000"),
				Mag:     0.5 + rng.Float64()*3.5,
				MagType: "ML",
				Place:   fmt.Sprintf("%.0f km %s %s", distKm, bearings[rng.Intn(len(bearings))], epi.name),
				Type:    "earthquake",
			},
			Geometry: geometry{
				Type: "Point",
				// Depth is positive-down in km on the wire.
				Coordinates: []float64{lon, lat, 1 + rng.Float64()*20},
			},
		})
	}
	return coll
}

// serveFeed answers every query with a fresh window of events so the poller
// sees new activity on each cycle.
func serveFeed(addr string, count int, window time.Duration) error {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	http.HandleFunc("/fdsnws/event/1/query", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		coll := generate(rng, count, time.Now().UTC(), window)
		if err := json.NewEncoder(w).Encode(coll); err != nil {
			log.Printf("encode feed: %v", err)
		}
	})
	log.Printf("serving mock feed on %s/fdsnws/event/1/query", addr)
	return http.ListenAndServe(addr, nil) //nolint:gosec // local development tool
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}
