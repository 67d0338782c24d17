package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/nexrad-etl/internal/domain"
	"github.com/couchcryptid/nexrad-etl/internal/observability"
)

// RadarTransformer implements Transformer by decoding an Archive II volume,
// assembling its radials into scans, and summarizing the result with optional
// geocoding enrichment.
type RadarTransformer struct {
	geocoder domain.Geocoder
	opts     domain.DecodeOptions
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewTransformer creates a RadarTransformer. Pass a nil geocoder to disable
// geocoding enrichment.
func NewTransformer(geocoder domain.Geocoder, opts domain.DecodeOptions, logger *slog.Logger, metrics *observability.Metrics) *RadarTransformer {
	return &RadarTransformer{
		geocoder: geocoder,
		opts:     opts,
		logger:   logger,
		metrics:  metrics,
	}
}

func (t *RadarTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.VolumeSummary, error) {
	start := time.Now()
	t.metrics.VolumeBytes.Observe(float64(len(raw.Value)))

	v, err := domain.ParseRawEvent(raw, t.opts)
	if err != nil {
		t.metrics.DecodeErrors.WithLabelValues(domain.ErrorKind(err)).Inc()
		return domain.VolumeSummary{}, err
	}

	t.metrics.RecordsDecompressed.Add(float64(v.Records))
	for typ, n := range v.FrameCounts() {
		t.metrics.FramesDecoded.WithLabelValues(typ.String()).Add(float64(n))
	}
	for _, skipped := range v.Skipped {
		t.metrics.FramesSkipped.Inc()
		t.metrics.DecodeErrors.WithLabelValues(domain.ErrorKind(skipped)).Inc()
		t.logger.Debug("corrupt frame skipped",
			"key", string(raw.Key),
			"offset", skipped.Offset,
			"type", skipped.Header.Type.String(),
			"error", skipped.Err,
		)
	}

	summary, err := domain.SummarizeVolume(v, string(raw.Key))
	if err != nil {
		t.metrics.DecodeErrors.WithLabelValues(domain.ErrorKind(err)).Inc()
		return domain.VolumeSummary{}, fmt.Errorf("summarize volume %q: %w", raw.Key, err)
	}
	t.metrics.ScansAssembled.Add(float64(len(summary.Scans)))
	t.metrics.VolumeDecodeDuration.Observe(time.Since(start).Seconds())

	return domain.EnrichWithGeocoding(ctx, summary, t.geocoder, t.logger), nil
}

// Decode summarizes a volume that did not arrive through Kafka, such as an
// HTTP request body.
func (t *RadarTransformer) Decode(ctx context.Context, key string, data []byte) (domain.VolumeSummary, error) {
	return t.Transform(ctx, domain.RawEvent{Key: []byte(key), Value: data})
}
