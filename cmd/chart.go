package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/AyushAagrwal/DataStatX/internal/analysis"
	"github.com/AyushAagrwal/DataStatX/internal/utils"
)

var (
	chartQuery      string
	chartOutputPath string
	chartMethod     string
	chartN          int
	chartTemp       float64
	chartModel      string
	chartProvider   string
	chartJSON       bool
	chartOllamaHost string
	chartTimeoutSec int
	chartDelimiter  string
)

var chartCmd = &cobra.Command{
	Use:   "chart <file.csv>",
	Short: "Answer a question about a CSV with a generated chart",
	Example: `  datastatx chart sales.csv --query "total units by region"
  datastatx chart cars.csv -q "horsepower against weight" --output hp.png --method llm
  datastatx chart cars.csv -q "mpg over the years" --provider ollama --model llama3`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		provided := map[string]bool{}
		cmd.Flags().Visit(func(fl *pflag.Flag) { provided[fl.Name] = true })

		opt, err := csvOptions(chartDelimiter, "", "", 0)
		if err != nil {
			return err
		}
		ds, err := analysis.ParseFile(args[0], opt)
		if err != nil {
			return err
		}
		method := chartMethod
		if method == "" {
			method = c.SummaryMethod
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		tg := textGenConfig(c, chartModel, chartN, chartTemp, provided["temperature"])
		st, err := openStore(ctx, c)
		if err != nil {
			return err
		}
		defer st.Close()
		b, err := newBridge(c, st, log, pipelineOptions{
			Runtime: runtimeOptions{ProviderFlag: chartProvider, OllamaHost: chartOllamaHost},
			Method:  method,
			TextGen: tg,
		})
		if err != nil {
			return err
		}

		if chartTimeoutSec > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, time.Duration(chartTimeoutSec)*time.Second)
			defer cancel()
		}
		res, err := b.Generate(ctx, ds, chartQuery)
		if err != nil {
			provider := chartProvider
			if provider == "" {
				provider = c.DefaultProvider
			}
			return explainProviderError(err, provider)
		}
		if err := utils.SafeWriteFile(chartOutputPath, res.PNG); err != nil {
			return err
		}
		if chartJSON {
			out, err := utils.PrettyJSON(map[string]any{
				"query":      res.Query,
				"output":     chartOutputPath,
				"library":    res.Chart.Library,
				"spec":       res.Chart.Spec,
				"elapsed_ms": res.Elapsed.Milliseconds(),
			})
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		}
		fmt.Printf("✓ Wrote %s chart \"%s\" to %s (%s)\n", res.Chart.Spec.Type, res.Chart.Spec.Title, chartOutputPath, res.Elapsed.Round(time.Millisecond))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chartCmd)
	chartCmd.Flags().StringVarP(&chartQuery, "query", "q", "", "question to answer with a chart")
	chartCmd.Flags().StringVarP(&chartOutputPath, "output", "o", "chart.png", "path to write the chart PNG")
	chartCmd.Flags().StringVar(&chartMethod, "method", "", "summary method: default|llm (default from config)")
	chartCmd.Flags().IntVar(&chartN, "n", 0, "number of chart candidates to request (default from config)")
	chartCmd.Flags().Float64Var(&chartTemp, "temperature", 0, "sampling temperature (default from config)")
	chartCmd.Flags().StringVar(&chartModel, "model", "", "model name (default from config)")
	chartCmd.Flags().StringVar(&chartProvider, "provider", "", "provider: openai|openrouter|ollama (default from config)")
	chartCmd.Flags().BoolVar(&chartJSON, "json", false, "print a JSON description of the chart")
	chartCmd.Flags().StringVar(&chartOllamaHost, "ollama-host", "", "Ollama host when --provider ollama")
	chartCmd.Flags().IntVar(&chartTimeoutSec, "timeout-sec", 180, "overall timeout in seconds (0 = none)")
	chartCmd.Flags().StringVar(&chartDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | '|' | 'tab'")
}
