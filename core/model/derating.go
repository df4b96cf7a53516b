package model

import (
	"fmt"
	"sort"
)

// DeratingPoint gives the fraction of the nominal charge power available at
// a given SoC.
type DeratingPoint struct {
	SoC      float64 `json:"soc" yaml:"soc"`
	Fraction float64 `json:"fraction" yaml:"fraction"`
}

// Derating is a piecewise linear power-vs-SoC table sorted by SoC. An empty
// table means no derating.
type Derating []DeratingPoint

// Validate checks ordering and value ranges.
func (d Derating) Validate() error {
	for i, p := range d {
		if p.SoC < 0 || p.SoC > 1 || p.Fraction < 0 || p.Fraction > 1 {
			return fmt.Errorf("derating point %d out of range: %+v", i, p)
		}
		if i > 0 && p.SoC <= d[i-1].SoC {
			return fmt.Errorf("derating table must be strictly increasing in SoC")
		}
	}
	return nil
}

// Factor returns the interpolated fraction at soc. Values beyond the table
// ends are held constant.
func (d Derating) Factor(soc float64) float64 {
	if len(d) == 0 {
		return 1
	}
	if soc <= d[0].SoC {
		return d[0].Fraction
	}
	last := d[len(d)-1]
	if soc >= last.SoC {
		return last.Fraction
	}
	i := sort.Search(len(d), func(i int) bool { return d[i].SoC >= soc })
	lo, hi := d[i-1], d[i]
	w := (soc - lo.SoC) / (hi.SoC - lo.SoC)
	return lo.Fraction + w*(hi.Fraction-lo.Fraction)
}
