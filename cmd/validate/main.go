// Command validate performs integrity checks on an Archive II volume file and,
// optionally, on the summary fixture generated for it. It verifies the record
// and frame structure, the radial sequence of every sweep, and that the summary
// the ETL produces today matches the fixture.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -volume data/mock/KTLX20240426_150000_V06 \
//	  -summary data/mock/KTLX20240426_150000_V06.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/nexrad-etl/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
)

// fixtureTime matches cmd/genmock so IDs and timestamps compare equal.
var fixtureTime = time.Date(2024, time.April, 27, 6, 0, 0, 0, time.UTC)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	volumePath := flag.String("volume", "", "path to an Archive II volume file")
	summaryPath := flag.String("summary", "", "optional path to the summary JSON fixture")
	flag.Parse()

	if *volumePath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*volumePath, *summaryPath); code != 0 {
		os.Exit(code)
	}
}

func run(volumePath, summaryPath string) int {
	domain.SetClock(clockwork.NewFakeClockAt(fixtureTime))
	defer domain.SetClock(nil)

	fmt.Println("=== Level II Volume Validation ===")
	fmt.Println()

	data, err := os.ReadFile(volumePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read volume: %v\n", err)
		return 1
	}

	structure := &phase{name: "Archive structure"}
	v, err := domain.DecodeVolume(data, domain.DecodeOptions{SkipCorruptFrames: true})
	if err != nil {
		structure.errorf("decode: %v (kind=%s)", err, domain.ErrorKind(err))
	}
	validateStructure(structure, v)

	phases := []*phase{structure}
	if structure.passed() {
		phases = append(phases, validateSequence(v))
		if summaryPath != "" {
			phases = append(phases, validateSummary(v, volumePath, summaryPath))
		}
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Volume: %d bytes, %d records, %d frames, %d radials\n",
		len(data), v.Records, len(v.Frames), len(v.Radials()))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func validateStructure(p *phase, v domain.Volume) {
	if v.Header == nil {
		p.errorf("missing volume header")
	}
	if v.Records == 0 {
		p.errorf("no records")
	}
	if len(v.Frames) == 0 {
		p.errorf("no frames decoded")
	}
	for _, fe := range v.Skipped {
		p.errorf("corrupt %s frame at offset %d: %v", fe.Header.Type, fe.Offset, fe.Err)
	}
	if v.LatestStatus() == nil {
		p.errorf("no RDA status message")
	}
}

// validateSequence checks that radials assemble into complete scans and that
// every sweep is internally consistent.
func validateSequence(v domain.Volume) *phase {
	p := &phase{name: "Radial sequence"}

	scans, pending, err := domain.AssembleScans(v.Radials())
	if err != nil {
		p.errorf("assemble: %v", err)
		return p
	}
	if len(scans) == 0 {
		p.errorf("no complete scan")
	}
	if pending > 0 {
		p.errorf("%d radials after the last volume scan end", pending)
	}

	for si, scan := range scans {
		for wi, sw := range scan.Sweeps {
			if len(sw.Radials) == 0 {
				p.errorf("scan %d sweep %d: empty", si+1, wi+1)
				continue
			}
			var prev time.Time
			for ri, r := range sw.Radials {
				if r.ElevationNumber != sw.ElevationNumber {
					p.errorf("scan %d sweep %d radial %d: elevation number %d, sweep is %d",
						si+1, wi+1, ri, r.ElevationNumber, sw.ElevationNumber)
				}
				if r.CoveragePattern != scan.CoveragePattern {
					p.errorf("scan %d sweep %d radial %d: VCP %d, scan is %d",
						si+1, wi+1, ri, r.CoveragePattern, scan.CoveragePattern)
				}
				if r.CollectionTime.Before(prev) {
					p.errorf("scan %d sweep %d radial %d: collection time goes backwards", si+1, wi+1, ri)
				}
				prev = r.CollectionTime
			}
		}
	}
	return p
}

// validateSummary recomputes the summary and compares it to the fixture.
func validateSummary(v domain.Volume, volumePath, summaryPath string) *phase {
	p := &phase{name: "Summary matches fixture"}

	raw, err := os.ReadFile(summaryPath)
	if err != nil {
		p.errorf("read fixture: %v", err)
		return p
	}
	var want domain.VolumeSummary
	if err := json.Unmarshal(raw, &want); err != nil {
		p.errorf("parse fixture: %v", err)
		return p
	}

	got, err := domain.SummarizeVolume(v, filepath.Base(volumePath))
	if err != nil {
		p.errorf("summarize: %v", err)
		return p
	}
	// Round trip through JSON so both sides carry the same precision.
	b, err := json.Marshal(got)
	if err != nil {
		p.errorf("encode summary: %v", err)
		return p
	}
	var gotRT domain.VolumeSummary
	if err := json.Unmarshal(b, &gotRT); err != nil {
		p.errorf("decode summary: %v", err)
		return p
	}

	if diff := cmp.Diff(want, gotRT); diff != "" {
		p.errorf("summary mismatch (-fixture +current):\n%s", diff)
	}
	return p
}
