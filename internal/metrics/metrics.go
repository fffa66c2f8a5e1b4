// Package metrics holds the domain-level Prometheus instruments. HTTP-level
// request counting lives in the middleware; these counters track what the
// variation pipeline actually produced.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// VariationMetrics counts variant production per strategy and the images the
// pipeline had to skip.
type VariationMetrics struct {
	TextVariants  *prometheus.CounterVec
	ImageVariants prometheus.Counter
	ImagesSkipped prometheus.Counter
}

// NewVariationMetrics creates and registers the instruments on reg.
func NewVariationMetrics(reg prometheus.Registerer) (*VariationMetrics, error) {
	m := &VariationMetrics{
		TextVariants: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "text_variants_total",
				Help: "Text variants issued, by kind and strategy.",
			},
			[]string{"kind", "strategy"},
		),
		ImageVariants: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "image_variants_total",
			Help: "Image derivatives produced.",
		}),
		ImagesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "images_skipped_total",
			Help: "Source images skipped because they could not be derived.",
		}),
	}

	for _, c := range []prometheus.Collector{m.TextVariants, m.ImageVariants, m.ImagesSkipped} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RecordText is a nil-safe increment for one issued text variant.
func (m *VariationMetrics) RecordText(kind, strategy string) {
	if m == nil {
		return
	}
	m.TextVariants.WithLabelValues(kind, strategy).Inc()
}

// RecordImage is a nil-safe increment for one produced derivative.
func (m *VariationMetrics) RecordImage() {
	if m == nil {
		return
	}
	m.ImageVariants.Inc()
}

// RecordSkip is a nil-safe increment for one skipped source image.
func (m *VariationMetrics) RecordSkip() {
	if m == nil {
		return
	}
	m.ImagesSkipped.Inc()
}
