//Package maceplot draws diagnostic plots for a potential: the radial
//basis, the cutoff envelopes and per-model distance scans. Nothing here
//touches evaluation; it exists so a model's radial behavior can be
//eyeballed before training against it.
package maceplot

import (
	"fmt"
	"image/color"

	"github.com/rmera/gomace"
	"github.com/rmera/gomace/ad"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

//points per curve; plenty for the smooth functions involved.
const samples = 400

func basicPlot(title, xlabel, ylabel string) *plot.Plot {
	p := plot.New()
	p.Title.Padding = 3 * vg.Millimeter
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = ylabel
	p.Add(plotter.NewGrid())
	return p
}

//colors spreads hues over the curves of one plot.
func colors(key, steps int) color.RGBA {
	t := float64(key) / float64(steps)
	return color.RGBA{R: uint8(40 + 180*t), G: uint8(60 + 100*(1-t)), B: uint8(220 * (1 - t)), A: 255}
}

func save(p *plot.Plot, plotname string) error {
	filename := fmt.Sprintf("%s.png", plotname)
	return p.Save(15*vg.Centimeter, 10*vg.Centimeter, filename)
}

//Envelope plots a cutoff envelope from the origin to its cutoff.
func Envelope(env mace.Envelope, title, plotname string) error {
	p := basicPlot(title, "r (A)", "envelope")
	rmax := env.Cutoff()
	pts := make(plotter.XYs, samples)
	for i := range pts {
		r := rmax * float64(i) / float64(samples-1)
		pts[i].X = r
		pts[i].Y = env.Eval(r)
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	p.Add(line)
	return save(p, plotname)
}

//RadialBasis plots every enveloped Bessel function of an embedding over
//(0, rmax].
func RadialBasis(emb *mace.RadialEmbedding, title, plotname string) error {
	p := basicPlot(title, "r (A)", "basis value")
	rs := make([]float64, samples)
	for i := range rs {
		rs[i] = emb.RMax * float64(i+1) / float64(samples)
	}
	vals := emb.Embed(ad.NewLeaf(samples, 1, rs))
	for n := 0; n < emb.NumBasis; n++ {
		pts := make(plotter.XYs, samples)
		for i := range pts {
			pts[i].X = rs[i]
			pts[i].Y = vals.At(i, n)
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Color = colors(n, emb.NumBasis)
		p.Add(line)
	}
	return save(p, plotname)
}

//DistanceScan plots the energy of a two-atom system of the given
//species as a function of separation, out to the model cutoff. A quick
//sanity check that a parameter set produces a smooth curve that
//flattens to the isolated-atom limit at the cutoff.
func DistanceScan(m *mace.Model, P *mace.Params, s1, s2 int, title, plotname string) error {
	p := basicPlot(title, "r (A)", "E (eV)")
	rmax := m.Conf.Cutoff
	pts := make(plotter.XYs, 0, samples)
	for i := 0; i < samples; i++ {
		r := rmax * float64(i+1) / float64(samples)
		g := twoAtoms(r, s1, s2)
		res, err := m.Evaluate(P, g)
		if err != nil {
			return err
		}
		pts = append(pts, plotter.XY{X: r, Y: res.Energies[0]})
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	p.Add(line)
	return save(p, plotname)
}

func twoAtoms(r float64, s1, s2 int) *mace.Graph {
	return &mace.Graph{
		Positions: mat.NewDense(2, 3, []float64{0, 0, 0, r, 0, 0}),
		Species:   []int{s1, s2},
		Senders:   []int{0, 1},
		Receivers: []int{1, 0},
	}
}
