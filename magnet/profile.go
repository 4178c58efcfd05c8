package magnet

import "github.com/rustyeddy/magnet/market"

// VolumeProfile sums, for each level, the volume of bars closing within the
// detector's tolerance of it.
func (d *Detector) VolumeProfile(bars []market.Bar, levels []float64) map[float64]float64 {
	profile := make(map[float64]float64, len(levels))
	for _, level := range levels {
		total := 0.0
		for _, b := range bars {
			if d.within(b.Close, level) {
				total += b.Volume
			}
		}
		profile[level] = total
	}
	return profile
}

// MarketMemoryIndex measures how far price has travelled from the previous
// magnet in units of ATR. It is 0 without a previous magnet or ATR.
func MarketMemoryIndex(current, previous, atr float64) float64 {
	if previous == 0 || atr == 0 {
		return 0
	}
	return (current - previous) / atr
}

// VolumeLiquidityScore is the relative volume, signed by direction.
func VolumeLiquidityScore(volume, avgVolume float64, up bool) float64 {
	if avgVolume == 0 {
		return 0
	}
	ratio := volume / avgVolume
	if !up {
		return -ratio
	}
	return ratio
}
