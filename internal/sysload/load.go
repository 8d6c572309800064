package sysload

import (
	"context"

	"github.com/shirou/gopsutil/v4/load"
)

// Source reads the 1, 5 and 15 minute system load averages
type Source struct{}

// New creates a load average source
func New() *Source {
	return &Source{}
}

// Average returns the current load averages in 1, 5, 15 minute order
func (s *Source) Average(ctx context.Context) ([3]float64, error) {
	avg, err := load.AvgWithContext(ctx)
	if err != nil {
		return [3]float64{}, err
	}
	return [3]float64{avg.Load1, avg.Load5, avg.Load15}, nil
}
