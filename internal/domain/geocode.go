package domain

import (
	"context"
	"log/slog"
)

// EnrichWithGeocoding attempts to resolve the radar site location to a place
// name. If geocoder is nil or geocoding fails, the summary is returned with
// GeoSource set accordingly (graceful degradation).
func EnrichWithGeocoding(ctx context.Context, s VolumeSummary, geocoder Geocoder, logger *slog.Logger) VolumeSummary {
	if geocoder == nil {
		return s
	}

	if s.Location == nil || (s.Location.Lat == 0 && s.Location.Lon == 0) {
		s.GeoSource = "original"
		return s
	}

	result, err := geocoder.ReverseGeocode(ctx, s.Location.Lat, s.Location.Lon)
	if err != nil {
		logger.Warn("reverse geocoding failed",
			"volume_id", s.ID,
			"site", s.Site,
			"lat", s.Location.Lat,
			"lon", s.Location.Lon,
			"error", err,
		)
		s.GeoSource = "failed"
		return s
	}
	if result.FormattedAddress == "" {
		s.GeoSource = "original"
		return s
	}

	s.FormattedAddress = result.FormattedAddress
	s.PlaceName = result.PlaceName
	s.GeoConfidence = result.Confidence
	s.GeoSource = "reverse"
	return s
}
