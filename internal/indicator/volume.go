package indicator

import "swing-screenerv1/internal/model"

// VolumeAvg calculates the rolling mean of share volume.
type VolumeAvg struct {
	window *SMA
	last   int64
}

// NewVolumeAvg creates a volume average with the given period (typically 20).
func NewVolumeAvg(period int) *VolumeAvg {
	return &VolumeAvg{window: NewSMA(period)}
}

func (v *VolumeAvg) Name() string { return "VOL_AVG" }

func (v *VolumeAvg) Update(bar model.PriceBar) {
	v.last = bar.Volume
	v.window.push(float64(bar.Volume))
}

func (v *VolumeAvg) Value() float64 { return v.window.Value() }
func (v *VolumeAvg) Ready() bool    { return v.window.Ready() }

// SurgeRatio returns current volume / rolling average. Zero until Ready,
// or when the average itself is zero (thinly traded symbol).
func (v *VolumeAvg) SurgeRatio() float64 {
	if !v.Ready() || v.window.Value() == 0 {
		return 0
	}
	return float64(v.last) / v.window.Value()
}
