// Command premiumctl estimates an insurance premium from the command line.
//
//	premiumctl estimate --age 45 --height 175 --weight 70 --surgeries 1
//	premiumctl estimate ... --save --token $ID_TOKEN
//	premiumctl history --token $ID_TOKEN --limit 10
//
// It talks to the backend's public API: /predict for the estimate and
// /history (bearer token) for saving and listing.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/tbourn/go-premium-backend/internal/compare"
	"github.com/tbourn/go-premium-backend/internal/domain"
	"github.com/tbourn/go-premium-backend/internal/predictor"
)

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.App {
	common := []cli.Flag{
		&cli.StringFlag{Name: "api", Value: "http://localhost:8000/api", EnvVars: []string{"PREMIUM_API"}, Usage: "backend API base URL"},
		&cli.DurationFlag{Name: "timeout", Value: 10 * time.Second, Usage: "request timeout"},
		&cli.StringFlag{Name: "token", EnvVars: []string{"PREMIUM_TOKEN"}, Usage: "bearer ID token for history calls"},
	}

	return &cli.App{
		Name:   "premiumctl",
		Usage:  "estimate insurance premiums and manage saved estimates",
		Writer: out,
		Commands: []*cli.Command{
			{
				Name:  "estimate",
				Usage: "estimate a premium from health metrics",
				Flags: append([]cli.Flag{
					&cli.IntFlag{Name: "age", Usage: "age in years"},
					&cli.Float64Flag{Name: "height", Usage: "height in cm"},
					&cli.Float64Flag{Name: "weight", Usage: "weight in kg"},
					&cli.BoolFlag{Name: "transplants", Usage: "any organ transplants"},
					&cli.IntFlag{Name: "surgeries", Usage: "number of major surgeries"},
					&cli.BoolFlag{Name: "save", Usage: "save the estimate to history (needs --token)"},
				}, common...),
				Action: estimate,
			},
			{
				Name:  "history",
				Usage: "list saved estimates",
				Flags: append([]cli.Flag{
					&cli.IntFlag{Name: "limit", Value: 20, Usage: "maximum records"},
				}, common...),
				Action: history,
			},
		},
	}
}

// formFrom leaves unset flags nil so BuildFeatureInput reports them.
func formFrom(c *cli.Context) predictor.MetricsForm {
	var f predictor.MetricsForm
	if c.IsSet("age") {
		v := c.Int("age")
		f.Age = &v
	}
	if c.IsSet("height") {
		v := c.Float64("height")
		f.HeightCm = &v
	}
	if c.IsSet("weight") {
		v := c.Float64("weight")
		f.WeightKg = &v
	}
	t := c.Bool("transplants")
	f.AnyTransplants = &t
	if c.IsSet("surgeries") {
		v := c.Int("surgeries")
		f.Surgeries = &v
	}
	return f
}

func estimate(c *cli.Context) error {
	in, err := predictor.BuildFeatureInput(formFrom(c))
	if err != nil {
		return err
	}

	base := strings.TrimRight(c.String("api"), "/")
	res, err := predictor.New(base+"/predict", c.Duration("timeout")).Estimate(c.Context, in)
	if err != nil {
		return err
	}

	out := c.App.Writer
	fmt.Fprintf(out, "BMI:               %.2f\n", in.BMI)
	fmt.Fprintf(out, "Estimated premium: %s / year\n", compare.FormatINR(res.PredictedPremium))
	fmt.Fprintf(out, "Monthly:           %s / month\n", compare.FormatINR(float64(compare.MonthlyEquivalent(res.PredictedPremium))))
	renderPlacement(out, res)

	if !c.Bool("save") {
		return nil
	}
	hc := newHistoryClient(base, c.String("token"), c.Duration("timeout"))
	id, replayed, err := hc.Save(c.Context, uuid.NewString(), saveRequest{
		Input:         in,
		Output:        res.PredictedPremium,
		Analysis:      res.AgeGroupAnalysis,
		PredictorType: domain.PredictorMedical,
		Timestamp:     time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	if replayed {
		fmt.Fprintf(out, "Already saved as %s\n", id)
		return nil
	}
	fmt.Fprintf(out, "Saved as %s\n", id)
	return nil
}

func renderPlacement(out io.Writer, res domain.PredictionResult) {
	r := compare.RangeOf(res.AgeGroupAnalysis)
	p, err := compare.Place(res.PredictedPremium, r)
	if err != nil {
		fmt.Fprintln(out, compare.FallbackMessage)
		return
	}

	const width = 40
	bar := []rune(strings.Repeat("-", width+1))
	if p.AvgPercent != nil {
		bar[int(*p.AvgPercent*width/100+0.5)] = '|'
	}
	bar[int(p.UserPercent*width/100+0.5)] = '*'

	fmt.Fprintf(out, "%s  [%s]  %s\n", compare.FormatINR(*r.Min), string(bar), compare.FormatINR(*r.Max))
	if r.Avg != nil {
		fmt.Fprintf(out, "Average:           %s (|)\n", compare.FormatINR(*r.Avg))
	}
	fmt.Fprintf(out, "You:               %.1f%% of range (*)\n", p.UserPercent)
	fmt.Fprintln(out, compare.Summary(res.AgeGroupAnalysis.AgeRange))
}

func history(c *cli.Context) error {
	base := strings.TrimRight(c.String("api"), "/")
	hc := newHistoryClient(base, c.String("token"), c.Duration("timeout"))
	items, err := hc.List(c.Context, c.Int("limit"))
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(c.App.Writer, "No saved estimates.")
		return nil
	}

	tw := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tAGE\tBMI\tPREMIUM\tTYPE")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%d\t%.2f\t%s\t%s\n",
			it.Timestamp.Format(time.RFC3339), it.Input.Age, it.Input.BMI,
			compare.FormatINR(it.Output), it.PredictorType)
	}
	return tw.Flush()
}
