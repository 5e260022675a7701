// Command genmock emits rtl_433-style JSON lines for local runs and demos.
// Point RECEIVER_COMMAND at it to exercise the logger without a radio.
//
// Usage:
//
//	go run ./cmd/genmock -sensor-id 42 -interval 30s
//	go run ./cmd/genmock -count 500 -start "2024-06-01 00:00:00" > data/mock/capture.jsonl
//
// With -start the clock is simulated: lines are produced as fast as possible
// with timestamps advancing by -interval. Without it, genmock sleeps between
// lines and stamps them with the wall clock.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"time"

	"github.com/couchcryptid/pool-weather-logger/internal/domain"
	"github.com/jonboulle/clockwork"
)

// neighbours are other devices a 433 MHz receiver typically hears.
var neighbours = []string{
	"Acurite-Tower",
	"LaCrosse-TX141THBv2",
	"Nexus-TH",
	"Fineoffset-WH2",
}

type line struct {
	Time         string  `json:"time"`
	Model        string  `json:"model"`
	ID           int64   `json:"id"`
	Channel      int     `json:"channel,omitempty"`
	BatteryOK    int     `json:"battery_ok"`
	TemperatureC float64 `json:"temperature_C"`
	Humidity     int     `json:"humidity,omitempty"`
	MIC          string  `json:"mic"`
}

type options struct {
	sensorID  int64
	model     string
	count     int
	interval  time.Duration
	noise     float64
	garbage   float64
	seed      uint64
	startTime string
}

func main() {
	var o options
	flag.Int64Var(&o.sensorID, "sensor-id", 42, "id of the simulated pool sensor")
	flag.StringVar(&o.model, "model", "Inkbird-ITH20R", "model name of the simulated pool sensor")
	flag.IntVar(&o.count, "count", 0, "number of lines to emit (0 = unbounded)")
	flag.DurationVar(&o.interval, "interval", 30*time.Second, "time between lines")
	flag.Float64Var(&o.noise, "noise", 0.3, "fraction of lines from other sensors")
	flag.Float64Var(&o.garbage, "garbage", 0.02, "fraction of corrupted lines")
	flag.Uint64Var(&o.seed, "seed", 1, "random seed")
	flag.StringVar(&o.startTime, "start", "", "simulated start time (YYYY-MM-DD HH:MM:SS, UTC)")
	flag.Parse()

	if err := run(os.Stdout, o); err != nil {
		log.Fatal(err)
	}
}

func run(out io.Writer, o options) error {
	clock := clockwork.NewRealClock()
	simulated := o.startTime != ""
	if simulated {
		start, err := time.Parse(domain.ReadingTimeLayout, o.startTime)
		if err != nil {
			return fmt.Errorf("parse -start: %w", err)
		}
		clock = clockwork.NewFakeClockAt(start)
	}

	rng := rand.New(rand.NewPCG(o.seed, o.seed^0x9e3779b97f4a7c15))
	w := bufio.NewWriter(out)

	for i := 0; o.count == 0 || i < o.count; i++ {
		text, err := nextLine(rng, clock.Now(), i, o)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, text); err != nil {
			return err
		}
		// Flush every line so a reading process sees it immediately.
		if err := w.Flush(); err != nil {
			return err
		}

		if fake, ok := clock.(*clockwork.FakeClock); ok {
			fake.Advance(o.interval)
		} else {
			clock.Sleep(o.interval)
		}
	}
	return nil
}

func nextLine(rng *rand.Rand, now time.Time, i int, o options) (string, error) {
	if rng.Float64() < o.garbage {
		return fmt.Sprintf(`{"model":"Inkbird-ITH20R","id":%d,"temperature_C":`, o.sensorID), nil
	}

	l := line{
		Time:      now.Format(domain.ReadingTimeLayout),
		BatteryOK: 1,
		MIC:       "CRC",
	}
	if rng.Float64() < o.noise {
		l.Model = neighbours[rng.IntN(len(neighbours))]
		l.ID = int64(rng.IntN(255))
		l.Channel = 1 + rng.IntN(3)
		l.TemperatureC = round1(15 + rng.Float64()*15)
		l.Humidity = 30 + rng.IntN(50)
	} else {
		l.Model = o.model
		l.ID = o.sensorID
		// Slow daily swing around 26 C with a little sensor jitter.
		hours := float64(now.Hour()) + float64(now.Minute())/60
		l.TemperatureC = round1(26 + 1.5*math.Sin((hours-9)/24*2*math.Pi) + rng.NormFloat64()*0.1)
	}

	data, err := json.Marshal(l)
	if err != nil {
		return "", fmt.Errorf("line %d: %w", i, err)
	}
	return string(data), nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
