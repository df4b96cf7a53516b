package planner

import (
	"errors"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// ErrInfeasible indicates the program had no solution reaching the target.
var ErrInfeasible = errors.New("lp infeasible")

// LP minimises the cost weighted energy drawn over the connection window
// subject to the power limits, the SoC bounds after every step and a final
// SoC at least equal to the target. When the program is infeasible or the
// solver fails the naive schedule is returned with Feasible=false.
type LP struct {
	// Tolerance passed to the simplex solver.
	Tolerance float64
	// Throughput adds a small cost per kWh moved in either direction so the
	// solver does not charge and discharge in the same step.
	Throughput float64
}

// NewLP returns an LP planner with default settings.
func NewLP() *LP {
	return &LP{Tolerance: 1e-7, Throughput: 1e-6}
}

// program is the standard form min cᵀx s.t. Ax = b, x >= 0.
type program struct {
	c []float64
	a *mat.Dense
	b []float64
}

// lpSolve points to the solver. Tests override it to simulate failures.
var lpSolve = func(p program, tol float64) ([]float64, error) {
	_, x, err := lp.Simplex(p.c, p.a, p.b, tol, nil)
	return x, err
}

// Plan implements Planner.
func (l *LP) Plan(r Request) (Schedule, error) {
	if err := r.Validate(); err != nil {
		return Schedule{}, err
	}
	instants := r.Instants()
	if len(instants) == 0 {
		return r.trajectory(nil, nil), nil
	}
	power, err := l.solve(r, instants)
	if err != nil {
		s := r.trajectory(instants, naivePower(r, instants))
		s.Feasible = false
		return s, nil
	}
	return r.trajectory(instants, power), nil
}

func (l *LP) solve(r Request, instants []time.Time) ([]float64, error) {
	p := l.build(r, instants)
	x, err := lpSolve(p, l.Tolerance)
	if errors.Is(err, lp.ErrInfeasible) {
		return nil, ErrInfeasible
	}
	if err != nil {
		return nil, err
	}
	n := len(instants)
	power := make([]float64, n)
	for k := 0; k < n; k++ {
		power[k] = math.Max(0, math.Min(r.MaxChargeKW, x[k]))
		if r.AllowV2G {
			power[k] -= math.Max(0, math.Min(r.MaxDischargeKW, x[n+k]))
		}
	}
	return power, nil
}

// build lays out x = [c_0..c_n-1, d_0..d_n-1, s...] where c and d are the
// charge and discharge powers and s the slack of every inequality row.
// Rows whose right-hand side is negative are negated so b stays
// non-negative.
func (l *LP) build(r Request, instants []time.Time) program {
	n := len(instants)
	vars := n
	if r.AllowV2G {
		vars = 2 * n
	}
	type row struct {
		coef []float64
		rhs  float64
	}
	var rows []row
	newRow := func(rhs float64) row { return row{coef: make([]float64, vars), rhs: rhs} }

	for k := 0; k < n; k++ {
		up := newRow(r.MaxChargeKW)
		up.coef[k] = 1
		rows = append(rows, up)
		if r.AllowV2G {
			dn := newRow(r.MaxDischargeKW)
			dn.coef[n+k] = 1
			rows = append(rows, dn)
		}
	}
	// Cumulative SoC after step k stays in [MinSoC, MaxSoC].
	for k := 0; k < n; k++ {
		hi := newRow(r.MaxSoC - r.SoC)
		lo := newRow(r.SoC - r.MinSoC)
		for j := 0; j <= k; j++ {
			unit := r.socDelta(1, instants[j])
			hi.coef[j] = unit
			lo.coef[j] = -unit
			if r.AllowV2G {
				hi.coef[n+j] = -unit
				lo.coef[n+j] = unit
			}
		}
		rows = append(rows, hi, lo)
	}
	final := newRow(r.SoC - r.TargetSoC)
	for j := 0; j < n; j++ {
		unit := r.socDelta(1, instants[j])
		final.coef[j] = -unit
		if r.AllowV2G {
			final.coef[n+j] = unit
		}
	}
	rows = append(rows, final)

	m := len(rows)
	cols := vars + m
	c := make([]float64, cols)
	for k, t := range instants {
		cost := r.Cost(t) * r.hours(t)
		c[k] = cost + l.Throughput
		if r.AllowV2G {
			c[n+k] = -cost + l.Throughput
		}
	}
	a := mat.NewDense(m, cols, nil)
	b := make([]float64, m)
	for i, rw := range rows {
		sign := 1.0
		if rw.rhs < 0 {
			sign = -1
		}
		for j, v := range rw.coef {
			if v != 0 {
				a.Set(i, j, sign*v)
			}
		}
		a.Set(i, vars+i, sign)
		b[i] = sign * rw.rhs
	}
	return program{c: c, a: a, b: b}
}
