package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/couchcryptid/nexrad-etl/internal/message"
)

// VolumeSummary is the per-volume record published to the sink topic.
type VolumeSummary struct {
	ID             string             `json:"id"`
	Site           string             `json:"site"`
	VolumeTime     time.Time          `json:"volume_time"`
	ArchiveVersion string             `json:"archive_version,omitempty"`
	Compressed     bool               `json:"compressed"`
	Records        int                `json:"records"`
	FrameCounts    map[string]int     `json:"frame_counts"`
	SkippedFrames  int                `json:"skipped_frames,omitempty"`
	Status         *StatusSummary     `json:"rda_status,omitempty"`
	ClutterMap     *ClutterMapSummary `json:"clutter_map,omitempty"`
	Location       *SiteLocation      `json:"location,omitempty"`
	Scans          []ScanSummary      `json:"scans"`
	PendingRadials int                `json:"pending_radials,omitempty"`
	SourceKey      string             `json:"source_key,omitempty"`

	// Geocoding enrichment fields.
	FormattedAddress string  `json:"formatted_address,omitempty"`
	PlaceName        string  `json:"place_name,omitempty"`
	GeoConfidence    float64 `json:"geo_confidence,omitempty"`
	GeoSource        string  `json:"geo_source,omitempty"` // "reverse", "original", "failed"

	ProcessedAt time.Time `json:"processed_at"`
}

// StatusSummary is a snapshot of the last RDA status message in the volume.
type StatusSummary struct {
	CoveragePattern     int16    `json:"vcp"`
	Build               float64  `json:"build"`
	OperationalMode     uint16   `json:"operational_mode"`
	AVSETEnabled        bool     `json:"avset_enabled"`
	EBCEnabled          bool     `json:"ebc_enabled"`
	RDALogDataEnabled   bool     `json:"rda_log_data_enabled"`
	TimeSeriesRecording bool     `json:"time_series_recording"`
	ActiveAlarms        []uint16 `json:"active_alarms,omitempty"`
}

// ClutterMapSummary describes the shape of the last clutter filter map.
type ClutterMapSummary struct {
	GeneratedAt       time.Time `json:"generated_at"`
	ElevationSegments int       `json:"elevation_segments"`
	RangeZones        int       `json:"range_zones"`
}

// SiteLocation is the radar position from the VOL block.
type SiteLocation struct {
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
	HeightMeters int     `json:"height_m"`
}

// ScanSummary describes one complete volume scan.
type ScanSummary struct {
	CoveragePattern uint16         `json:"vcp"`
	StartTime       time.Time      `json:"start_time"`
	EndTime         time.Time      `json:"end_time"`
	Sweeps          []SweepSummary `json:"sweeps"`
}

// SweepSummary describes one elevation sweep of a scan.
type SweepSummary struct {
	ElevationNumber uint8          `json:"elevation_number"`
	ElevationAngle  float64        `json:"elevation_angle"`
	Radials         int            `json:"radials"`
	Gates           map[string]int `json:"gates"` // moment name → max gate count
}

// SummarizeVolume assembles the volume's radials into scans and reduces the
// result to a VolumeSummary. A malformed radial sequence is returned as an
// error.
func SummarizeVolume(v Volume, sourceKey string) (VolumeSummary, error) {
	scans, pending, err := AssembleScans(v.Radials())
	if err != nil {
		return VolumeSummary{}, err
	}

	s := VolumeSummary{
		Compressed:     v.Compressed,
		Records:        v.Records,
		FrameCounts:    make(map[string]int),
		SkippedFrames:  len(v.Skipped),
		Scans:          make([]ScanSummary, 0, len(scans)),
		PendingRadials: pending,
		SourceKey:      sourceKey,
		ProcessedAt:    clock.Now().UTC(),
	}

	if v.Header != nil {
		s.Site = v.Header.ICAO
		s.VolumeTime = v.Header.Time()
		s.ArchiveVersion = v.Header.Version()
	}
	if first := v.FirstRadial(); first != nil {
		if s.Site == "" {
			s.Site = strings.TrimSpace(first.RadarID)
		}
		if s.VolumeTime.IsZero() {
			s.VolumeTime = first.CollectionTime()
		}
		if first.Volume != nil {
			s.Location = &SiteLocation{
				Lat:          float64(first.Volume.Latitude),
				Lon:          float64(first.Volume.Longitude),
				HeightMeters: int(first.Volume.SiteHeight),
			}
		}
	}
	if s.VolumeTime.IsZero() && len(v.Frames) > 0 {
		s.VolumeTime = v.Frames[0].Header.Time()
	}

	for t, n := range v.FrameCounts() {
		s.FrameCounts[t.String()] = n
	}

	if status := v.LatestStatus(); status != nil {
		ss, err := summarizeStatus(status)
		if err != nil {
			return VolumeSummary{}, err
		}
		s.Status = ss
	}
	if cfm := v.LatestClutterMap(); cfm != nil {
		s.ClutterMap = &ClutterMapSummary{
			GeneratedAt:       cfm.GeneratedAt(),
			ElevationSegments: len(cfm.ElevationSegments),
			RangeZones:        cfm.RangeZoneCount(),
		}
	}

	for _, scan := range scans {
		s.Scans = append(s.Scans, summarizeScan(scan))
	}

	s.ID = generateID(s.Site, s.VolumeTime, sourceKey)
	return s, nil
}

func summarizeStatus(m *message.RDAStatus) (*StatusSummary, error) {
	avset, err := m.ScanDataFlags.AVSETEnabled()
	if err != nil {
		return nil, err
	}
	return &StatusSummary{
		CoveragePattern:     m.VolumeCoveragePattern,
		Build:               m.Build(),
		OperationalMode:     m.OperationalMode,
		AVSETEnabled:        avset,
		EBCEnabled:          m.ScanDataFlags.EBCEnabled(),
		RDALogDataEnabled:   m.ScanDataFlags.RDALogDataEnabled(),
		TimeSeriesRecording: m.ScanDataFlags.TimeSeriesRecordingEnabled(),
		ActiveAlarms:        m.ActiveAlarms(),
	}, nil
}

func summarizeScan(scan Scan) ScanSummary {
	out := ScanSummary{
		CoveragePattern: scan.CoveragePattern,
		Sweeps:          make([]SweepSummary, 0, len(scan.Sweeps)),
	}
	for i, sw := range scan.Sweeps {
		if i == 0 {
			out.StartTime = sw.StartTime()
		}
		out.EndTime = sw.EndTime()

		gates := make(map[string]int)
		for name, n := range sw.MaxGates() {
			gates[string(name)] = n
		}
		out.Sweeps = append(out.Sweeps, SweepSummary{
			ElevationNumber: sw.ElevationNumber,
			ElevationAngle:  float64(sw.ElevationAngle),
			Radials:         len(sw.Radials),
			Gates:           gates,
		})
	}
	return out
}

// generateID creates a deterministic ID from the fields that identify a volume.
func generateID(site string, volumeTime time.Time, sourceKey string) string {
	raw := fmt.Sprintf("%s|%s|%s", strings.ToUpper(site), volumeTime.UTC().Format(time.RFC3339Nano), sourceKey)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// SerializeVolumeSummary marshals a summary into the sink topic message shape.
func SerializeVolumeSummary(s VolumeSummary) (OutputEvent, error) {
	value, err := json.Marshal(s)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("marshal volume summary: %w", err)
	}
	return OutputEvent{
		Key:   []byte(s.ID),
		Value: value,
		Headers: map[string]string{
			"site":         s.Site,
			"processed_at": s.ProcessedAt.Format(time.RFC3339),
		},
	}, nil
}
