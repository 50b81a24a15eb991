package regress

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// rankTol is the singular-value cutoff for numerical rank detection.
const rankTol = 1e-10

// lsFit holds the raw least-squares solution for one design.
type lsFit struct {
	beta   []float64
	fitted []float64
	resid  []float64
	xtxInv *mat.Dense
	rss    float64
}

// checkRank verifies the design matrix has full column rank. On deficiency it
// returns an EstimationError naming the columns involved in the dependency,
// found by testing which columns can be removed without lowering the rank.
func checkRank(X *mat.Dense, names []string) error {
	n, p := X.Dims()
	if n < p {
		return &EstimationError{
			Reason:  fmt.Sprintf("fewer observations (%d) than regressors (%d)", n, p),
			Columns: names,
			Rows:    n,
		}
	}

	rank := matrixRank(X)
	if rank == p {
		return nil
	}

	var dependent []string
	for j := 0; j < p; j++ {
		reduced := withoutColumn(X, j)
		if matrixRank(reduced) == rank {
			dependent = append(dependent, names[j])
		}
	}
	if len(dependent) == 0 {
		dependent = names
	}

	return &EstimationError{
		Reason:  "design matrix is rank-deficient (perfectly collinear regressors)",
		Columns: dependent,
		Rows:    n,
		Rank:    rank,
	}
}

func matrixRank(X *mat.Dense) int {
	var svd mat.SVD
	if ok := svd.Factorize(X, mat.SVDThin); !ok {
		return 0
	}
	return svd.Rank(rankTol)
}

func withoutColumn(X *mat.Dense, drop int) *mat.Dense {
	n, p := X.Dims()
	out := mat.NewDense(n, p-1, nil)
	for r := 0; r < n; r++ {
		c := 0
		for j := 0; j < p; j++ {
			if j == drop {
				continue
			}
			out.Set(r, c, X.At(r, j))
			c++
		}
	}
	return out
}

// solveLS solves ordinary least squares via the normal equations.
// The design must already have passed checkRank.
func solveLS(X *mat.Dense, y []float64) (*lsFit, error) {
	n, p := X.Dims()

	var xtx mat.Dense
	xtx.Mul(X.T(), X)

	var xtxInv mat.Dense
	if err := xtxInv.Inverse(&xtx); err != nil {
		return nil, &EstimationError{
			Reason: fmt.Sprintf("normal equations singular despite rank check: %v", err),
			Rows:   n,
		}
	}

	yVec := mat.NewVecDense(n, y)
	var xty mat.VecDense
	xty.MulVec(X.T(), yVec)

	var betaVec mat.VecDense
	betaVec.MulVec(&xtxInv, &xty)

	beta := make([]float64, p)
	for j := 0; j < p; j++ {
		beta[j] = betaVec.AtVec(j)
	}

	var fittedVec mat.VecDense
	fittedVec.MulVec(X, &betaVec)

	fitted := make([]float64, n)
	resid := make([]float64, n)
	rss := 0.0
	for i := 0; i < n; i++ {
		fitted[i] = fittedVec.AtVec(i)
		resid[i] = y[i] - fitted[i]
		rss += resid[i] * resid[i]
	}

	return &lsFit{
		beta:   beta,
		fitted: fitted,
		resid:  resid,
		xtxInv: &xtxInv,
		rss:    rss,
	}, nil
}

// plainStdErrs computes classical OLS standard errors from sigma^2 (X'X)^-1.
func plainStdErrs(xtxInv *mat.Dense, sigma2 float64) []float64 {
	p, _ := xtxInv.Dims()
	se := make([]float64, p)
	for j := 0; j < p; j++ {
		se[j] = sqrtNonNeg(sigma2 * xtxInv.At(j, j))
	}
	return se
}

// clusteredStdErrs computes CR1 cluster-robust standard errors grouped by
// entity: (X'X)^-1 [sum_g s_g s_g'] (X'X)^-1 with the finite-sample
// adjustment G/(G-1) * (n-1)/(n-p). Entities must be contiguous in rows.
func clusteredStdErrs(X *mat.Dense, resid []float64, entities []string, xtxInv *mat.Dense) []float64 {
	n, p := X.Dims()

	meat := mat.NewDense(p, p, nil)
	score := make([]float64, p)
	groups := 0

	flush := func() {
		groups++
		for a := 0; a < p; a++ {
			for b := 0; b < p; b++ {
				meat.Set(a, b, meat.At(a, b)+score[a]*score[b])
			}
		}
		for j := range score {
			score[j] = 0
		}
	}

	for i := 0; i < n; i++ {
		if i > 0 && entities[i] != entities[i-1] {
			flush()
		}
		for j := 0; j < p; j++ {
			score[j] += X.At(i, j) * resid[i]
		}
	}
	flush()

	var bread mat.Dense
	bread.Mul(xtxInv, meat)
	var cov mat.Dense
	cov.Mul(&bread, xtxInv)

	adjust := 1.0
	if groups > 1 && n > p {
		adjust = float64(groups) / float64(groups-1) * float64(n-1) / float64(n-p)
	}

	se := make([]float64, p)
	for j := 0; j < p; j++ {
		se[j] = sqrtNonNeg(adjust * cov.At(j, j))
	}
	return se
}

func sqrtNonNeg(v float64) float64 {
	if v <= 0 {
		return 0
	}
	return math.Sqrt(v)
}
