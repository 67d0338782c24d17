// Command genmock writes a synthetic Archive II volume for local runs and
// integration tests, plus the summary the ETL produces for it. It uses the
// actual domain package so the summary fixture matches real pipeline behavior.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -site KTLX -sweeps 3 -radials 360 \
//	  -out data/mock/KTLX20240426_150000_V06 \
//	  -summary-out data/mock/KTLX20240426_150000_V06.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/couchcryptid/nexrad-etl/internal/domain"
	"github.com/couchcryptid/nexrad-etl/internal/level2test"
	"github.com/jonboulle/clockwork"
)

// fixtureTime is the processed_at stamped on generated summaries. cmd/validate
// uses the same instant so IDs and timestamps compare equal.
var fixtureTime = time.Date(2024, time.April, 27, 6, 0, 0, 0, time.UTC)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	site := flag.String("site", "KTLX", "four-letter ICAO radar site")
	sweeps := flag.Int("sweeps", 2, "number of elevation sweeps")
	radials := flag.Int("radials", 360, "radials per sweep")
	out := flag.String("out", "", "output path for the Archive II volume")
	summaryOut := flag.String("summary-out", "", "optional output path for the volume summary JSON")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	if len(*site) != 4 {
		return fmt.Errorf("site %q: must be four characters", *site)
	}
	if *sweeps < 1 || *radials < 2 {
		return fmt.Errorf("need at least 1 sweep of 2 radials, got %d x %d", *sweeps, *radials)
	}

	data := level2test.SampleVolume(strings.ToUpper(*site), *sweeps, *radials)
	if err := writeFile(*out, data); err != nil {
		return fmt.Errorf("writing volume: %w", err)
	}
	log.Printf("wrote volume: %s (%d bytes)", *out, len(data))

	domain.SetClock(clockwork.NewFakeClockAt(fixtureTime))
	defer domain.SetClock(nil)

	v, err := domain.DecodeVolume(data, domain.DecodeOptions{})
	if err != nil {
		return fmt.Errorf("decoding generated volume: %w", err)
	}
	summary, err := domain.SummarizeVolume(v, filepath.Base(*out))
	if err != nil {
		return fmt.Errorf("summarizing generated volume: %w", err)
	}

	if *summaryOut != "" {
		b, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return err
		}
		if err := writeFile(*summaryOut, append(b, '\n')); err != nil {
			return fmt.Errorf("writing summary: %w", err)
		}
		log.Printf("wrote summary: %s", *summaryOut)
	}

	printStats(summary)
	return nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func printStats(s domain.VolumeSummary) {
	fmt.Printf("\n=== %s %s ===\n", s.Site, s.VolumeTime.Format(time.RFC3339))
	fmt.Printf("ID: %s\n", s.ID)
	fmt.Printf("Records: %d (compressed=%t)\n", s.Records, s.Compressed)

	types := make([]string, 0, len(s.FrameCounts))
	for t := range s.FrameCounts {
		types = append(types, t)
	}
	sort.Strings(types)
	fmt.Println("\nFrames:")
	for _, t := range types {
		fmt.Printf("  %-36s %d\n", t, s.FrameCounts[t])
	}

	for i, scan := range s.Scans {
		fmt.Printf("\nScan %d (VCP %d): %s to %s\n", i+1, scan.CoveragePattern,
			scan.StartTime.Format(time.RFC3339), scan.EndTime.Format(time.RFC3339))
		for _, sw := range scan.Sweeps {
			fmt.Printf("  elevation %2d  %5.2f°  %4d radials\n", sw.ElevationNumber, sw.ElevationAngle, sw.Radials)
		}
	}
}
