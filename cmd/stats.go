package cmd

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/AyushAagrwal/DataStatX/internal/analysis"
	"github.com/AyushAagrwal/DataStatX/internal/heatmap"
	"github.com/AyushAagrwal/DataStatX/internal/utils"
)

var (
	statsOutputPath  string
	statsHeatmapPath string
	statsDelimiter   string
	statsDecimal     string
	statsThousands   string
	statsMaxRows     int
	statsPreview     int
	statsJSON        bool
)

var statsCmd = &cobra.Command{
	Use:   "stats <file.csv>",
	Short: "Describe a CSV: summary statistics, mean/median/mode and correlations",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opt, err := csvOptions(statsDelimiter, statsDecimal, statsThousands, statsMaxRows)
		if err != nil {
			return err
		}
		ds, err := analysis.ParseFile(args[0], opt)
		if err != nil {
			return err
		}
		if ds.Truncated {
			log.WithField("max_rows", opt.MaxRows).Warn("Dataset truncated")
		}
		if statsPreview > 0 {
			fmt.Println(ds.Preview(statsPreview))
		}
		st, err := analysis.Describe(ds)
		if err != nil {
			return err
		}

		if statsHeatmapPath != "" {
			hopt := heatmap.DefaultOptions()
			if cfg != nil && cfg.HeatmapSize > 0 {
				hopt.Width, hopt.Height = cfg.HeatmapSize, cfg.HeatmapSize
			}
			png, err := heatmap.Render(st.Corr, hopt)
			if err != nil {
				return fmt.Errorf("render heatmap: %w", err)
			}
			if err := utils.SafeWriteFile(statsHeatmapPath, png); err != nil {
				return err
			}
			fmt.Printf("✓ Wrote heatmap to %s\n", statsHeatmapPath)
		}

		var out string
		if statsJSON {
			b, err := utils.PrettyJSON(newStatsView(st))
			if err != nil {
				return err
			}
			out = string(b)
		} else {
			out = st.Markdown()
		}
		if statsOutputPath != "" {
			if err := utils.SafeWriteFile(statsOutputPath, []byte(out)); err != nil {
				return err
			}
			fmt.Printf("✓ Wrote statistics to %s\n", statsOutputPath)
			return nil
		}
		fmt.Println(out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().StringVarP(&statsOutputPath, "output", "o", "", "optional path to write the statistics")
	statsCmd.Flags().StringVar(&statsHeatmapPath, "heatmap", "", "optional path to write the correlation heatmap PNG")
	statsCmd.Flags().StringVar(&statsDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | '|' | 'tab'")
	statsCmd.Flags().StringVar(&statsDecimal, "decimal", "", "decimal separator for numbers: '.'|'comma'")
	statsCmd.Flags().StringVar(&statsThousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space'")
	statsCmd.Flags().IntVar(&statsMaxRows, "max-rows", 0, "maximum rows to process (0 = default limit)")
	statsCmd.Flags().IntVar(&statsPreview, "preview", 0, "print the first N rows before the statistics")
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "emit JSON instead of Markdown")
}

type statsColumnView struct {
	Name   string   `json:"name"`
	Count  int      `json:"count"`
	Mean   *float64 `json:"mean"`
	Std    *float64 `json:"std"`
	Min    *float64 `json:"min"`
	Q1     *float64 `json:"25%"`
	Median *float64 `json:"50%"`
	Q3     *float64 `json:"75%"`
	Max    *float64 `json:"max"`
}

type statsView struct {
	Name        string            `json:"name"`
	Rows        int               `json:"rows"`
	Describe    []statsColumnView `json:"describe"`
	Mode        map[string]string `json:"mode"`
	Columns     []string          `json:"correlation_columns"`
	Correlation [][]*float64      `json:"correlation"`
}

func newStatsView(st *analysis.Stats) statsView {
	v := statsView{Name: st.Name, Rows: st.Rows, Mode: map[string]string{}}
	for _, c := range st.Describe {
		v.Describe = append(v.Describe, statsColumnView{
			Name: c.Name, Count: c.Count,
			Mean: finite(c.Mean), Std: finite(c.Std), Min: finite(c.Min),
			Q1: finite(c.Q1), Median: finite(c.Median), Q3: finite(c.Q3), Max: finite(c.Max),
		})
	}
	for _, m := range st.Mode {
		v.Mode[m.Column] = m.Value
	}
	if st.Corr != nil {
		v.Columns = st.Corr.Columns
		for _, row := range st.Corr.Values {
			r := make([]*float64, len(row))
			for i, x := range row {
				r[i] = finite(x)
			}
			v.Correlation = append(v.Correlation, r)
		}
	}
	return v
}

// finite maps NaN to nil so JSON carries null.
func finite(x float64) *float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return nil
	}
	return &x
}
