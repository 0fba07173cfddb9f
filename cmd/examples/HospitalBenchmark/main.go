package main

import (
	"fmt"
	"image/color"
	"log"
	"math/rand"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/gmcirco/pscore-benchmarking/pkg/benchmark"
	"github.com/gmcirco/pscore-benchmarking/pkg/data"
)

// generateHospitalData builds a synthetic patient dataset: nFocal
// patients at the focal hospital and nPeer patients elsewhere. Focal
// patients skew older and sicker, and length of stay depends on both
// plus a small focal-hospital effect.
func generateHospitalData(nFocal, nPeer int, seed int64) (*data.Dataset, []bool) {
	rnd := rand.New(rand.NewSource(seed))
	n := nFocal + nPeer

	age := make([]float64, n)
	severity := make([]float64, n)
	drg := make([]string, n)
	los := make([]float64, n)
	focal := make([]bool, n)

	drgs := []string{"cardiac", "ortho", "general"}
	for i := 0; i < n; i++ {
		focal[i] = i < nFocal
		if focal[i] {
			age[i] = 62 + rnd.NormFloat64()*8
			severity[i] = 2.2 + rnd.NormFloat64()*0.5
		} else {
			age[i] = 55 + rnd.NormFloat64()*12
			severity[i] = 1.8 + rnd.NormFloat64()*0.6
		}
		drg[i] = drgs[rnd.Intn(len(drgs))]

		los[i] = 2 + 0.05*age[i] + 1.5*severity[i] + rnd.NormFloat64()
		if focal[i] {
			los[i] += 0.8 // the effect we want the benchmark to recover
		}
	}

	ds, err := data.New(
		data.NumericColumn("age", age),
		data.NumericColumn("severity", severity),
		data.CategoricalColumn("drg", drg),
		data.NumericColumn("los", los),
	)
	if err != nil {
		log.Fatal(err)
	}
	return ds, focal
}

// plotBalance renders focal vs weighted-peer means per predictor
// column as a paired dot plot.
func plotBalance(records []benchmark.BalanceRecord, filename string) {
	p := plot.New()
	p.Title.Text = "Covariate Balance: Focal vs Weighted Peer Means"
	p.X.Label.Text = "Predictor Column"
	p.Y.Label.Text = "Mean"

	focalPts := make(plotter.XYs, len(records))
	peerPts := make(plotter.XYs, len(records))
	for i, r := range records {
		focalPts[i] = plotter.XY{X: float64(i), Y: r.FocalMean}
		peerPts[i] = plotter.XY{X: float64(i), Y: r.PeerMean}
	}

	sf, err := plotter.NewScatter(focalPts)
	if err != nil {
		log.Fatal(err)
	}
	sf.Color = color.RGBA{B: 255, A: 255}
	p.Add(sf)
	p.Legend.Add("focal", sf)

	sp, err := plotter.NewScatter(peerPts)
	if err != nil {
		log.Fatal(err)
	}
	sp.Color = color.RGBA{R: 255, A: 255}
	p.Add(sp)
	p.Legend.Add("weighted peer", sp)

	if err := p.Save(6*vg.Inch, 4*vg.Inch, filename); err != nil {
		log.Fatal(err)
	}
}

func main() {
	fmt.Println("=== Propensity-Score Hospital Benchmark Demo ===")

	// Step 1. Generate dataset: one focal hospital vs a peer pool.
	ds, focal := generateHospitalData(150, 850, 42)
	fmt.Printf("Generated %d patients (%d focal).\n", ds.Len(), 150)

	// Step 2. Build the benchmark: predict focal membership from
	// age/severity/drg, evaluate length of stay.
	b, err := benchmark.New(ds, focal,
		[]string{"age", "severity", "drg"},
		[]string{"los"},
		benchmark.WithSeed(42),
		benchmark.WithTruncationPercentile(99),
	)
	if err != nil {
		log.Fatal(err)
	}

	// Step 3. Fit the propensity model and derive weights.
	fmt.Println("\nFitting propensity model...")
	if err := b.Fit(); err != nil {
		log.Fatal(err)
	}
	fmt.Println("Fit complete.")

	// Step 4. Check covariate balance.
	records, err := b.CalcBalance()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("\nBalance (focal mean, weighted peer mean):")
	for _, r := range records {
		fmt.Printf("  %s\n", r)
	}
	plotBalance(records, "balance.png")
	fmt.Println("Saved balance plot to balance.png")

	// Step 5. Evaluate the outcome difference.
	if err := b.Evaluate(); err != nil {
		log.Fatal(err)
	}
	fmt.Println("\nOutcome differences (focal - weighted peer):")
	for _, o := range b.Outcomes() {
		fmt.Printf("  %s: %.2f\n", o.Name, o.Diff)
	}
}
