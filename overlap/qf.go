package overlap

import (
	"fmt"
	"math"
)

// Term is one weighted noncentral chi-squared component λ·χ²(DoF, NC).
// NC is the noncentrality δ² (sum of squared means).
type Term struct {
	Lambda float64
	DoF    int
	NC     float64
}

// QF returns P(Q < x) for Q = Σ_j λ_j χ²(n_j, δ²_j) + sigma·Z, Z ~ N(0,1),
// using Davies' (1980) numerical inversion of the characteristic function.
//
// Behavior highlights:
//   - acc is the requested absolute error bound of the returned probability.
//   - lim bounds the number of integration terms and internal evaluations;
//     exhausting it yields ErrLimitExceeded.
//   - Round-off warnings of the algorithm are not reported; the value is returned.
//   - A form with zero variance returns 1 when x > 0 and 0 otherwise.
//
// Errors:
//   - ErrBadQFParams: negative DoF or NC, acc ≤ 0, lim < 1.
//   - ErrLimitExceeded: integration budget exhausted.
//
// Determinism: pure function of its inputs.
func QF(terms []Term, sigma, x, acc float64, lim int) (float64, error) {
	if !(acc > 0) || lim < 1 {
		return 0, fmt.Errorf("QF: acc=%g lim=%d: %w", acc, lim, ErrBadQFParams)
	}
	for i, t := range terms {
		if t.DoF < 0 || t.NC < 0 || math.IsNaN(t.Lambda) || math.IsNaN(t.NC) {
			return 0, fmt.Errorf("QF: term %d %+v: %w", i, t, ErrBadQFParams)
		}
	}

	q := &davies{
		terms:    terms,
		c:        x,
		lim:      lim,
		th:       make([]int, len(terms)),
		unsorted: true,
	}
	p, err := q.run(sigma, acc)
	if err != nil {
		return 0, err
	}

	return p, nil
}

// log28 is log(2)/8 rounded as in the published algorithm.
const log28 = .0866

// davies carries the state shared by the helpers of one QF evaluation.
type davies struct {
	terms    []Term
	th       []int // indices of terms ordered by decreasing |λ|
	unsorted bool

	sigsq, lmax, lmin, mean, c float64
	intl, ersm                 float64
	count, lim                 int
	fail                       bool
}

// errBudget is panicked by counter and recovered in run; it unwinds the deep
// search loops the same way for every helper.
type errBudget struct{}

func (q *davies) counter() {
	q.count++
	if q.count > q.lim {
		panic(errBudget{})
	}
}

func exp1(x float64) float64 {
	if x < -50 {
		return 0
	}

	return math.Exp(x)
}

// log1 returns log(1+x) when first, log(1+x) − x otherwise, with a series for small |x|.
func log1(x float64, first bool) float64 {
	if math.Abs(x) > 0.1 {
		if first {
			return math.Log1p(x)
		}
		return math.Log1p(x) - x
	}
	y := x / (2 + x)
	term := 2 * y * y * y
	k := 3.0
	var s float64
	if first {
		s = 2 * y
	} else {
		s = -x * y
	}
	y *= y
	for s1 := s + term/k; s1 != s; s1 = s + term/k {
		k += 2
		term *= y
		s = s1
	}

	return s
}

// order fills th with term indices sorted by decreasing |λ| (insertion sort).
func (q *davies) order() {
	for j := range q.terms {
		lj := math.Abs(q.terms[j].Lambda)
		k := j - 1
		for ; k >= 0; k-- {
			if lj > math.Abs(q.terms[q.th[k]].Lambda) {
				q.th[k+1] = q.th[k]
			} else {
				break
			}
		}
		q.th[k+1] = j
	}
	q.unsorted = false
}

// errbd bounds the tail probability with the moment generating function;
// the cutoff point goes to cx.
func (q *davies) errbd(u float64, cx *float64) float64 {
	q.counter()
	xconst := u * q.sigsq
	sum1 := u * xconst
	u *= 2
	for j := len(q.terms) - 1; j >= 0; j-- {
		t := q.terms[j]
		nj := float64(t.DoF)
		x := u * t.Lambda
		y := 1 - x
		xconst += t.Lambda * (t.NC/y + nj) / y
		sum1 += t.NC*(x/y)*(x/y) + nj*(x*x/y+log1(-x, false))
	}
	*cx = xconst

	return exp1(-0.5 * sum1)
}

// ctff finds a cutoff c such that P(Q > c) < accx when *upn > 0, or
// P(Q < c) < accx otherwise.
func (q *davies) ctff(accx float64, upn *float64) float64 {
	u2 := *upn
	u1 := 0.0
	c1 := q.mean
	var c2, xconst float64
	rb := 2 * q.lmin
	if u2 > 0 {
		rb = 2 * q.lmax
	}
	for u := u2 / (1 + u2*rb); q.errbd(u, &c2) > accx; u = u2 / (1 + u2*rb) {
		u1 = u2
		c1 = c2
		u2 *= 2
	}
	for u := (c1 - q.mean) / (c2 - q.mean); u < 0.9; u = (c1 - q.mean) / (c2 - q.mean) {
		u = (u1 + u2) / 2
		if q.errbd(u/(1+u*rb), &xconst) > accx {
			u1 = u
			c1 = xconst
		} else {
			u2 = u
			c2 = xconst
		}
	}
	*upn = u2

	return c2
}

// truncation bounds the integration error due to truncating at u.
func (q *davies) truncation(u, tausq float64) float64 {
	q.counter()
	var sum1, prod2, prod3 float64
	var s int
	sum2 := (q.sigsq + tausq) * u * u
	prod1 := 2 * sum2
	u *= 2
	for _, t := range q.terms {
		nj := float64(t.DoF)
		x := (u * t.Lambda) * (u * t.Lambda)
		sum1 += t.NC * x / (1 + x)
		if x > 1 {
			prod2 += nj * math.Log(x)
			prod3 += nj * log1(x, true)
			s += t.DoF
		} else {
			prod1 += nj * log1(x, true)
		}
	}
	sum1 *= 0.5
	prod2 += prod1
	prod3 += prod1
	x := exp1(-sum1-0.25*prod2) / math.Pi
	y := exp1(-sum1-0.25*prod3) / math.Pi

	err1 := 1.0
	if s != 0 {
		err1 = x * 2 / float64(s)
	}
	err2 := 1.0
	if prod3 > 1 {
		err2 = 2.5 * y
	}
	if err2 < err1 {
		err1 = err2
	}
	x = 0.5 * sum2
	err2 = 1.0
	if x > y {
		err2 = y / x
	}

	return math.Min(err1, err2)
}

var findDivisors = [...]float64{2.0, 1.4, 1.2, 1.1}

// findu finds u with truncation(u) ≤ accx and truncation(u/1.2) > accx.
func (q *davies) findu(utx *float64, accx float64) {
	ut := *utx
	u := ut / 4
	if q.truncation(u, 0) > accx {
		for u = ut; q.truncation(u, 0) > accx; u = ut {
			ut *= 4
		}
	} else {
		ut = u
		for u /= 4; q.truncation(u, 0) <= accx; u /= 4 {
			ut = u
		}
	}
	for _, d := range findDivisors {
		u = ut / d
		if q.truncation(u, 0) <= accx {
			ut = u
		}
	}
	*utx = ut
}

// integrate adds nterm+1 terms of step interv to intl/ersm. Unless mainx,
// the integrand is multiplied by 1 − exp(−tausq·u²/2).
func (q *davies) integrate(nterm int, interv, tausq float64, mainx bool) {
	inpi := interv / math.Pi
	for k := nterm; k >= 0; k-- {
		u := (float64(k) + 0.5) * interv
		sum1 := -2 * u * q.c
		sum2 := math.Abs(sum1)
		sum3 := -0.5 * q.sigsq * u * u
		for j := len(q.terms) - 1; j >= 0; j-- {
			t := q.terms[j]
			nj := float64(t.DoF)
			x := 2 * t.Lambda * u
			y := x * x
			sum3 -= 0.25 * nj * log1(y, true)
			y = t.NC * x / (1 + y)
			z := nj*math.Atan(x) + y
			sum1 += z
			sum2 += math.Abs(z)
			sum3 -= 0.5 * x * y
		}
		x := inpi * exp1(sum3) / u
		if !mainx {
			x *= 1 - exp1(-0.5*tausq*u*u)
		}
		q.intl += math.Sin(0.5*sum1) * x
		q.ersm += 0.5 * sum2 * x
	}
}

// cfe is the coefficient of tausq in the error when the convergence factor
// exp(−tausq·u²/2) is used and the distribution function is evaluated at x.
func (q *davies) cfe(x float64) float64 {
	q.counter()
	if q.unsorted {
		q.order()
	}
	axl := math.Abs(x)
	sxl := 1.0
	if x <= 0 {
		sxl = -1
	}
	sum1 := 0.0
	for j := len(q.terms) - 1; j >= 0; j-- {
		t := q.terms[q.th[j]]
		if t.Lambda*sxl <= 0 {
			continue
		}
		lj := math.Abs(t.Lambda)
		axl1 := axl - lj*(float64(t.DoF)+t.NC)
		axl2 := lj / log28
		if axl1 > axl2 {
			axl = axl1
			continue
		}
		if axl > axl2 {
			axl = axl2
		}
		sum1 = (axl - axl1) / lj
		for k := j - 1; k >= 0; k-- {
			tk := q.terms[q.th[k]]
			sum1 += float64(tk.DoF) + tk.NC
		}
		break
	}
	if sum1 > 100 {
		q.fail = true
		return 1
	}

	return math.Pow(2, sum1/4) / (math.Pi * axl * axl)
}

// run is the driver: range finding, optional auxiliary integrations with a
// convergence factor, then the main integration.
func (q *davies) run(sigma, acc float64) (p float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(errBudget); !ok {
				panic(r)
			}
			p, err = 0, fmt.Errorf("QF: %d evaluations: %w", q.count, ErrLimitExceeded)
		}
	}()

	q.sigsq = sigma * sigma
	sd := q.sigsq
	for _, t := range q.terms {
		sd += t.Lambda * t.Lambda * (2*float64(t.DoF) + 4*t.NC)
		q.mean += t.Lambda * (float64(t.DoF) + t.NC)
		if q.lmax < t.Lambda {
			q.lmax = t.Lambda
		} else if q.lmin > t.Lambda {
			q.lmin = t.Lambda
		}
	}
	if sd == 0 {
		if q.c > 0 {
			return 1, nil
		}
		return 0, nil
	}
	sd = math.Sqrt(sd)
	almx := q.lmax
	if almx < -q.lmin {
		almx = -q.lmin
	}

	xlim := float64(q.lim)
	acc1 := acc
	utx := 16 / sd
	up := 4.5 / sd
	un := -up

	// truncation point with no convergence factor
	q.findu(&utx, 0.5*acc1)
	// does a convergence factor help
	if q.c != 0 && almx > 0.07*sd {
		tausq := 0.25 * acc1 / q.cfe(q.c)
		if q.fail {
			q.fail = false
		} else if q.truncation(utx, tausq) < 0.2*acc1 {
			q.sigsq += tausq
			q.findu(&utx, 0.25*acc1)
		}
	}
	acc1 *= 0.5

	for {
		// range of the distribution; quit if c is outside it
		d1 := q.ctff(acc1, &up) - q.c
		if d1 < 0 {
			return 1, nil
		}
		d2 := q.c - q.ctff(acc1, &un)
		if d2 < 0 {
			return 0, nil
		}
		intv := 2 * math.Pi / math.Max(d1, d2)

		xnt := utx / intv
		xntm := 3 / math.Sqrt(acc1)
		if xnt > xntm*1.5 {
			if xntm > xlim {
				return 0, fmt.Errorf("QF: %.0f auxiliary terms: %w", xntm, ErrLimitExceeded)
			}
			ntm := int(math.Floor(xntm + 0.5))
			intv1 := utx / float64(ntm)
			x := 2 * math.Pi / intv1
			if x > math.Abs(q.c) {
				tausq := 0.33 * acc1 / (1.1 * (q.cfe(q.c-x) + q.cfe(q.c+x)))
				if !q.fail {
					acc1 *= 0.67
					q.integrate(ntm, intv1, tausq, false)
					xlim -= xntm
					q.sigsq += tausq
					q.findu(&utx, 0.25*acc1)
					acc1 *= 0.75
					continue
				}
			}
		}

		// main integration
		if xnt > xlim {
			return 0, fmt.Errorf("QF: %.0f terms: %w", xnt, ErrLimitExceeded)
		}
		nt := int(math.Floor(xnt + 0.5))
		q.integrate(nt, intv, 0, true)

		return clampProb(0.5 - q.intl), nil
	}
}

func clampProb(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}
