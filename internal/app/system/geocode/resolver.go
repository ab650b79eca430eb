package geocode

import (
	"context"
	"fmt"

	"github.com/dalemusser/testimonyhub/internal/app/system/metrics"
	"go.uber.org/zap"
)

// Lookuper performs a reverse lookup.
type Lookuper interface {
	Reverse(ctx context.Context, lat, lon float64) (Place, error)
}

// Resolver fronts a Lookuper with an optional cache and never fails.
type Resolver struct {
	lookup Lookuper
	cache  Cache
	log    *zap.Logger
}

// NewResolver builds a Resolver. lookup and cache may be nil.
func NewResolver(lookup Lookuper, cache Cache, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{lookup: lookup, cache: cache, log: logger}
}

// Fallback formats the coordinate used when no name can be found.
func Fallback(lat, lon float64) string {
	return fmt.Sprintf("%.4f, %.4f", lat, lon)
}

// Resolve returns the place at lat, lon and whether one was found.
func (r *Resolver) Resolve(ctx context.Context, lat, lon float64) (Place, bool) {
	if r == nil {
		return Place{}, false
	}
	if r.cache != nil {
		p, ok, err := r.cache.Get(ctx, lat, lon)
		if err != nil {
			r.log.Warn("geocode cache read failed", zap.Error(err))
		} else if ok {
			metrics.GeocodeLookups.WithLabelValues("hit").Inc()
			return p, true
		}
	}
	if r.lookup == nil {
		return Place{}, false
	}
	p, err := r.lookup.Reverse(ctx, lat, lon)
	if err != nil {
		metrics.GeocodeLookups.WithLabelValues("error").Inc()
		r.log.Warn("reverse geocoding failed; using coordinates",
			zap.Float64("lat", lat), zap.Float64("lon", lon), zap.Error(err))
		return Place{}, false
	}
	metrics.GeocodeLookups.WithLabelValues("miss").Inc()
	if r.cache != nil {
		if err := r.cache.Set(ctx, lat, lon, p); err != nil {
			r.log.Warn("geocode cache write failed", zap.Error(err))
		}
	}
	return p, true
}

// PlaceName returns a short name for lat, lon, or the formatted coordinate
// when none is available. The result is never empty.
func (r *Resolver) PlaceName(ctx context.Context, lat, lon float64) string {
	if p, ok := r.Resolve(ctx, lat, lon); ok && p.Name != "" {
		return p.Name
	}
	return Fallback(lat, lon)
}
