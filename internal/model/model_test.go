package model

import (
	"math"
	"testing"

	"github.com/nvandessel/phsim/internal/rng"
)

func linearParams() Parameters {
	p := DefaultParameters()
	p.Impact.BreakevenCurve = BreakevenLinear
	return p
}

func near(got, want, tol float64) bool {
	return math.Abs(got-want) <= tol
}

func TestDefaultParameters_Valid(t *testing.T) {
	if err := DefaultParameters().Validate(); err != nil {
		t.Fatalf("default parameters invalid: %v", err)
	}
	if err := linearParams().Validate(); err != nil {
		t.Fatalf("linear parameters invalid: %v", err)
	}
}

func TestParameters_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Parameters)
	}{
		{"inverted health", func(p *Parameters) { p.Health.Min, p.Health.Max = 10, 1 }},
		{"zero sigma", func(p *Parameters) { p.Sigma.Min = 0 }},
		{"inverted sigma", func(p *Parameters) { p.Sigma.Max = 0.05 }},
		{"zero sigma floor", func(p *Parameters) { p.SigmaScale.Floor = 0 }},
		{"zero attenuation floor", func(p *Parameters) { p.VarianceAttenuation.Floor = 0 }},
		{"inverted time cost", func(p *Parameters) { p.TimeCost.Max = 0.5 }},
		{"negative drift", func(p *Parameters) { p.Drift.Growth = -1 }},
		{"zero ceiling base", func(p *Parameters) { p.Ceiling.Base = 0 }},
		{"negative ceiling base", func(p *Parameters) { p.Ceiling.Base = -1 }},
		{"ceiling collapses at full rigor", func(p *Parameters) { p.Ceiling.Base, p.Ceiling.Slope = 2, -2 }},
		{"zero ceiling and decay", func(p *Parameters) {
			p.Ceiling.Base, p.Ceiling.Slope = 0, 0
			p.CeilingDecay = 0
		}},
		{"zero ceiling decay", func(p *Parameters) { p.CeilingDecay = 0 }},
		{"negative ceiling decay", func(p *Parameters) { p.CeilingDecay = -1 }},
		{"zero ceiling factor exponent", func(p *Parameters) { p.CeilingFactorExponent = 0 }},
		{"unknown breakeven", func(p *Parameters) { p.Impact.BreakevenCurve = "cubic" }},
		{"decreasing breakeven", func(p *Parameters) { p.Impact.BreakevenRate = -1 }},
		{"unknown tractability", func(p *Parameters) { p.Tractability.Curve = "step" }},
		{"zero floor exponent", func(p *Parameters) { p.Tractability.FloorExponent = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParameters()
			tt.mutate(&p)
			if err := p.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestParameters_ValidateAcceptsNegativeCeilingSlope(t *testing.T) {
	p := DefaultParameters()
	p.Ceiling.Base, p.Ceiling.Slope = 8, -2
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestAgent_MaxHealth(t *testing.T) {
	p := DefaultParameters()
	tests := []struct {
		er   float64
		want float64
	}{
		{0.1, 5.5},
		{0.8, 9.0},
		{1.0, 10.0},
	}
	for _, tt := range tests {
		if got := NewAgent(p, tt.er, 1).MaxHealth(); !near(got, tt.want, 1e-12) {
			t.Errorf("MaxHealth(er=%v) = %v, want %v", tt.er, got, tt.want)
		}
	}
}

func TestBreakevenRigor_MonotonicInComplexity(t *testing.T) {
	for _, params := range []Parameters{DefaultParameters(), linearParams()} {
		t.Run(params.Impact.BreakevenCurve, func(t *testing.T) {
			prev := BreakevenRigor(params, 0)
			for sc := 0.05; sc <= 1.0001; sc += 0.05 {
				cur := BreakevenRigor(params, sc)
				if cur < prev {
					t.Errorf("breakeven decreased at SC=%.2f: %v < %v", sc, cur, prev)
				}
				prev = cur
			}
		})
	}
}

func TestBreakevenRigor_Range(t *testing.T) {
	exp := DefaultParameters()
	if got := BreakevenRigor(exp, 0); !near(got, 0.25, 0.01) {
		t.Errorf("exponential breakeven at SC=0 = %v, want ~0.25", got)
	}
	if got := BreakevenRigor(exp, 1); got < 0.9 {
		t.Errorf("exponential breakeven at SC=1 = %v, want >= 0.9", got)
	}

	lin := linearParams()
	if got := BreakevenRigor(lin, 0); !near(got, 0.25, 1e-12) {
		t.Errorf("linear breakeven at SC=0 = %v, want 0.25", got)
	}
	if got := BreakevenRigor(lin, 1); !near(got, 0.5, 1e-12) {
		t.Errorf("linear breakeven at SC=1 = %v, want 0.5", got)
	}
}

func TestAgent_BaseImpactSignFlipsAtBreakeven(t *testing.T) {
	for _, sc := range []float64{0.1, 0.5, 0.85, 1.0} {
		p := DefaultParameters()
		be := BreakevenRigor(p, sc)

		if got := NewAgent(p, be, sc).BaseImpact(); got != 0 {
			t.Errorf("SC=%v: impact at breakeven = %v, want 0", sc, got)
		}
		if got := NewAgent(p, be-0.01, sc).BaseImpact(); got >= 0 {
			t.Errorf("SC=%v: impact below breakeven = %v, want negative", sc, got)
		}
		if be+0.01 <= 1 {
			if got := NewAgent(p, be+0.01, sc).BaseImpact(); got <= 0 {
				t.Errorf("SC=%v: impact above breakeven = %v, want positive", sc, got)
			}
		}
	}
}

func TestAgent_BaseImpactLowerInComplexSystems(t *testing.T) {
	p := DefaultParameters()
	simple := NewAgent(p, 0.9, 0.1).BaseImpact()
	complexSys := NewAgent(p, 0.9, 0.9).BaseImpact()
	if simple <= complexSys {
		t.Errorf("simple impact %v should exceed complex impact %v", simple, complexSys)
	}
}

func TestAgent_BaseSigma(t *testing.T) {
	p := DefaultParameters()
	if lo, hi := NewAgent(p, 0.1, 1).BaseSigma(), NewAgent(p, 0.8, 1).BaseSigma(); lo <= hi {
		t.Errorf("sigma(er=0.1) = %v should exceed sigma(er=0.8) = %v", lo, hi)
	}
	if got := NewAgent(p, 1.0, 1).BaseSigma(); !near(got, 0.1, 1e-12) {
		t.Errorf("sigma(er=1) = %v, want 0.1", got)
	}
	if got := NewAgent(p, 0.0, 1).BaseSigma(); !near(got, 0.5, 1e-12) {
		t.Errorf("sigma(er=0) = %v, want 0.5", got)
	}
}

func TestAgent_TractabilityMonotonicAndFloored(t *testing.T) {
	for _, curve := range []string{TractabilityPower, TractabilitySigmoid} {
		t.Run(curve, func(t *testing.T) {
			p := DefaultParameters()
			p.Tractability.Curve = curve
			for _, sc := range []float64{0, 0.25, 0.85, 1} {
				a := NewAgent(p, 0.5, sc)
				prev := a.Tractability(1)
				if prev < a.SimplicityFloor() {
					t.Errorf("SC=%v: tractability(1) = %v below floor %v", sc, prev, a.SimplicityFloor())
				}
				for h := 1.5; h <= 10; h += 0.5 {
					cur := a.Tractability(h)
					if cur < prev {
						t.Errorf("SC=%v h=%v: tractability decreased %v < %v", sc, h, cur, prev)
					}
					if cur > 1 {
						t.Errorf("SC=%v h=%v: tractability %v above 1", sc, h, cur)
					}
					prev = cur
				}
			}
		})
	}
}

func TestAgent_SimplicityFloor(t *testing.T) {
	p := DefaultParameters()
	if got := NewAgent(p, 0.5, 1).SimplicityFloor(); got != 0 {
		t.Errorf("floor(SC=1) = %v, want 0", got)
	}
	if got := NewAgent(p, 0.5, 0).SimplicityFloor(); got != 1 {
		t.Errorf("floor(SC=0) = %v, want 1", got)
	}
	if got := NewAgent(p, 0.5, 0.5).SimplicityFloor(); !near(got, 0.0625, 1e-12) {
		t.Errorf("floor(SC=0.5) = %v, want 0.0625", got)
	}

	// Enterprise complexity has no forgiveness at rock bottom.
	if got := NewAgent(p, 0.5, 1).Tractability(1); got != 0 {
		t.Errorf("tractability(1) at SC=1 = %v, want 0", got)
	}
}

func TestAgent_ExpectedImpactZeroAtCeiling(t *testing.T) {
	p := DefaultParameters()
	a := NewAgent(p, 0.95, 0.5)
	if a.BaseImpact() <= 0 {
		t.Fatalf("BaseImpact() = %v, want positive", a.BaseImpact())
	}

	if got := a.ExpectedImpact(a.MaxHealth()); got != 0 {
		t.Errorf("ExpectedImpact(ceiling) = %v, want 0", got)
	}
	if got := a.CeilingFactor(a.MaxHealth()); got != 0 {
		t.Errorf("CeilingFactor(ceiling) = %v, want 0", got)
	}
	for _, over := range []float64{0.01, 0.3, 0.5} {
		if got := a.ExpectedImpact(a.MaxHealth() + over); got != 0 {
			t.Errorf("ExpectedImpact(ceiling+%v) = %v, want 0", over, got)
		}
	}
	if got := a.ExpectedImpact(a.MaxHealth() - 1); got <= 0 {
		t.Errorf("ExpectedImpact(ceiling-1) = %v, want positive", got)
	}
}

func TestAgent_ExpectedImpactNegativeAgentCascades(t *testing.T) {
	p := DefaultParameters()
	a := NewAgent(p, 0.1, 0.85)
	if a.BaseImpact() >= 0 {
		t.Fatalf("BaseImpact() = %v, want negative", a.BaseImpact())
	}

	high := a.ExpectedImpact(9)
	low := a.ExpectedImpact(3)
	if high >= 0 {
		t.Errorf("ExpectedImpact(9) = %v, want negative", high)
	}
	if low >= high {
		t.Errorf("damage should be larger in a low-health system: low=%v high=%v", low, high)
	}
}

func TestAgent_EffectiveSigmaPositiveAndBellShaped(t *testing.T) {
	p := DefaultParameters()
	a := NewAgent(p, 1.0, 1.0)
	for h := 1.0; h <= 10; h += 0.25 {
		if got := a.EffectiveSigma(h); got <= 0 {
			t.Errorf("EffectiveSigma(%v) = %v, want positive", h, got)
		}
		if got := a.VarianceAttenuation(h); got <= 0 {
			t.Errorf("VarianceAttenuation(%v) = %v, want positive", h, got)
		}
	}

	// s = n^1.5 crosses 0.5 near n = 0.63 (h ≈ 6.67).
	mid := a.EffectiveSigma(6.67)
	if mid <= a.EffectiveSigma(1) || mid <= a.EffectiveSigma(10) {
		t.Errorf("EffectiveSigma should peak mid-range: mid=%v low=%v high=%v", mid, a.EffectiveSigma(1), a.EffectiveSigma(10))
	}
	if !near(mid, a.BaseSigma(), 1e-3) {
		t.Errorf("EffectiveSigma(6.67) = %v, want ~%v", mid, a.BaseSigma())
	}
}

func TestAgent_CeilingResistance(t *testing.T) {
	p := DefaultParameters()
	a := NewAgent(p, 0.1, 0.5)
	if got := a.CeilingResistance(a.MaxHealth()); got != 1 {
		t.Errorf("CeilingResistance(ceiling) = %v, want 1", got)
	}
	if got := a.CeilingResistance(2); got != 1 {
		t.Errorf("CeilingResistance(2) = %v, want 1", got)
	}

	r1 := a.CeilingResistance(6)
	r2 := a.CeilingResistance(8)
	if r1 >= 1 {
		t.Errorf("CeilingResistance(6) = %v, want < 1", r1)
	}
	if r2 >= r1 {
		t.Errorf("CeilingResistance(8) = %v, want < %v", r2, r1)
	}
}

func TestAgent_ComplexityDrift(t *testing.T) {
	p := DefaultParameters()
	a := NewAgent(p, 0.8, 0.85)

	d0 := a.ComplexityDrift(8, 0)
	d500 := a.ComplexityDrift(8, 500)
	if d0 >= 0 {
		t.Errorf("ComplexityDrift(8, 0) = %v, want negative", d0)
	}
	if d500 >= d0 {
		t.Errorf("drift should grow with accumulated changes: d500=%v d0=%v", d500, d0)
	}

	if got := NewAgent(p, 0.8, 0).ComplexityDrift(8, 1000); got != 0 {
		t.Errorf("drift without complexity = %v, want 0", got)
	}
}

func TestAgent_TimeCostBounds(t *testing.T) {
	p := DefaultParameters()
	a := NewAgent(p, 0.3, 1)
	if got := a.TimeCost(1); !near(got, 3, 1e-12) {
		t.Errorf("TimeCost(1) = %v, want 3", got)
	}
	if got := a.TimeCost(10); !near(got, 1, 1e-12) {
		t.Errorf("TimeCost(10) = %v, want 1", got)
	}
	for h := 1.0; h <= 10; h += 0.5 {
		if tc := a.TimeCost(h); tc < 1 || tc > 3 {
			t.Errorf("TimeCost(%v) = %v, want in [1,3]", h, tc)
		}
	}
}

func TestAgent_SampleNextHealthBreakevenIsNoiseOnly(t *testing.T) {
	p := linearParams()
	a := NewAgent(p, 0.5, 1.0)
	if a.BaseImpact() != 0 || a.ExpectedImpact(5) != 0 {
		t.Fatalf("agent at breakeven should have zero impact, got base=%v expected=%v", a.BaseImpact(), a.ExpectedImpact(5))
	}

	got := a.SampleNextHealth(5, 0, rng.Constant(0.5))

	want := 5 + a.ComplexityDrift(5, 0) + a.NoiseTerm(5, rng.Constant(0.5))
	if !near(got, want, 1e-12) {
		t.Errorf("SampleNextHealth = %v, want %v", got, want)
	}
	// u=0.5 yields a negative standard normal sample.
	if got >= 5 || got <= 4 {
		t.Errorf("SampleNextHealth = %v, want in (4,5)", got)
	}
}

func TestAgent_SampleNextHealthStaysInBounds(t *testing.T) {
	p := DefaultParameters()
	sources := map[string]rng.Source{
		"tiny u1":  rng.NewSequence(1e-300, 0.0),
		"tiny u1b": rng.NewSequence(1e-300, 0.5),
		"zero":     rng.Constant(0),
		"high":     rng.Constant(0.999999),
	}
	for name, src := range sources {
		t.Run(name, func(t *testing.T) {
			for _, er := range []float64{0, 0.3, 0.8, 1} {
				a := NewAgent(p, er, 0.85)
				for _, h := range []float64{1, 5, 10} {
					if next := a.SampleNextHealth(h, 100, src); next < 1 || next > 10 || math.IsNaN(next) {
						t.Errorf("er=%v h=%v: next health %v escapes [1,10]", er, h, next)
					}
				}
			}
		})
	}
}
