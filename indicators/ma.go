package indicators

import (
	"fmt"

	"github.com/rustyeddy/magnet/market"
)

// VolumeAverage is the mean volume of the last period bars.
func VolumeAverage(bars []market.Bar, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("period must be positive, got %d", period)
	}
	if len(bars) < period {
		return 0, fmt.Errorf("not enough bars: need %d, got %d", period, len(bars))
	}
	return Run(NewVolumeMA(period), bars[len(bars)-period:]), nil
}

// VolumeMA is a streaming simple moving average of bar volume.
type VolumeMA struct {
	period int
	window []float64
	sum    float64
}

func NewVolumeMA(period int) *VolumeMA {
	return &VolumeMA{period: period, window: make([]float64, 0, period)}
}

func (m *VolumeMA) Name() string { return fmt.Sprintf("VMA(%d)", m.period) }

func (m *VolumeMA) Warmup() int { return m.period }

func (m *VolumeMA) Reset() {
	m.window = m.window[:0]
	m.sum = 0
}

func (m *VolumeMA) Update(b market.Bar) {
	m.window = append(m.window, b.Volume)
	m.sum += b.Volume
	if len(m.window) > m.period {
		m.sum -= m.window[0]
		m.window = m.window[1:]
	}
}

func (m *VolumeMA) Ready() bool { return len(m.window) >= m.period }

func (m *VolumeMA) Value() float64 {
	if !m.Ready() {
		return 0
	}
	return m.sum / float64(m.period)
}
