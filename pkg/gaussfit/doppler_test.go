package gaussfit

import (
	"math"
	"testing"
)

func TestIonTemperatureEV(t *testing.T) {
	tests := []struct {
		name     string
		comp     Component
		ionMass  float64
		expected float64
		epsilon  float64
	}{
		{
			// T = m c^2 (sigma/center)^2 / (2 q) with the carbon default:
			// (12/6.02e23) * 9e16 * (0.05/229.687)^2 / 3.2e-19
			name:     "carbon line width",
			comp:     Component{Center: 229.687, Sigma: 0.05},
			ionMass:  DefaultIonMass,
			expected: 12.0 / 6.02e23 * 9e16 * math.Pow(0.05/229.687, 2) / (2 * 1.6e-19),
			epsilon:  1e-9,
		},
		{
			name:     "zero width is zero temperature",
			comp:     Component{Center: 500, Sigma: 0},
			ionMass:  DefaultIonMass,
			expected: 0,
			epsilon:  0,
		},
		{
			name:     "temperature scales with ion mass",
			comp:     Component{Center: 656.28, Sigma: 0.1},
			ionMass:  2 * DefaultIonMass,
			expected: 2 * Component{Center: 656.28, Sigma: 0.1}.IonTemperatureEV(DefaultIonMass),
			epsilon:  1e-9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.comp.IonTemperatureEV(tt.ionMass)
			if math.Abs(got-tt.expected) > tt.epsilon*math.Max(math.Abs(tt.expected), 1) {
				t.Errorf("IonTemperatureEV = %.6g, want %.6g", got, tt.expected)
			}
		})
	}
}

func TestIonTemperatureK(t *testing.T) {
	c := Component{Center: 229.687, Sigma: 0.05}
	ev := c.IonTemperatureEV(DefaultIonMass)
	k := c.IonTemperatureK(DefaultIonMass)
	want := ev * ElementaryCharge / Boltzmann
	if math.Abs(k-want) > 1e-6*want {
		t.Errorf("IonTemperatureK = %.6g, want %.6g", k, want)
	}
}

func TestVelocity(t *testing.T) {
	tests := []struct {
		name     string
		center   float64
		rest     float64
		expected float64
		epsilon  float64
	}{
		{"at rest", 229.687, 229.687, 0, 1e-9},
		{"red shift is positive", 229.697, 229.687, 0.01 / 229.687 * SpeedOfLight, 1},
		{"blue shift is negative", 229.677, 229.687, -0.01 / 229.687 * SpeedOfLight, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Component{Center: tt.center}.Velocity(tt.rest)
			if math.Abs(got-tt.expected) > tt.epsilon {
				t.Errorf("Velocity = %.4f, want %.4f", got, tt.expected)
			}
		})
	}
}
