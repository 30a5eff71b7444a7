package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AyushAagrwal/DataStatX/internal/ai"
	"github.com/AyushAagrwal/DataStatX/internal/analysis"
	"github.com/AyushAagrwal/DataStatX/internal/summarize"
	"github.com/AyushAagrwal/DataStatX/internal/utils"
)

var (
	sumMethod     string
	sumModel      string
	sumProvider   string
	sumOllamaHost string
	sumOutputPath string
	sumDelimiter  string
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize <file.csv>",
	Short: "Print the dataset summary used to prompt chart generation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		method, err := summarize.ParseMethod(sumMethod)
		if err != nil {
			return err
		}
		opt, err := csvOptions(sumDelimiter, "", "", 0)
		if err != nil {
			return err
		}
		ds, err := analysis.ParseFile(args[0], opt)
		if err != nil {
			return err
		}

		var sum *summarize.Summary
		if method == summarize.MethodDefault {
			sum = summarize.Base(ds)
		} else {
			rt, provider, err := buildRuntime(c, runtimeOptions{ProviderFlag: sumProvider, OllamaHost: sumOllamaHost})
			if err != nil {
				return err
			}
			s := summarize.New(ai.NewTextGenerator(rt, nil, 0), log)
			sum, err = s.Summarize(cmd.Context(), ds, method, textGenConfig(c, sumModel, 1, 0, false))
			if err != nil {
				return explainProviderError(err, provider)
			}
		}

		out, err := utils.PrettyJSON(sum)
		if err != nil {
			return err
		}
		if sumOutputPath != "" {
			if err := utils.SafeWriteFile(sumOutputPath, out); err != nil {
				return err
			}
			fmt.Printf("✓ Wrote summary to %s\n", sumOutputPath)
			return nil
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(summarizeCmd)
	summarizeCmd.Flags().StringVar(&sumMethod, "method", "default", "summary method: default|llm")
	summarizeCmd.Flags().StringVar(&sumModel, "model", "", "model name for --method llm (default from config)")
	summarizeCmd.Flags().StringVar(&sumProvider, "provider", "", "provider for --method llm: openai|openrouter|ollama")
	summarizeCmd.Flags().StringVar(&sumOllamaHost, "ollama-host", "", "Ollama host when --provider ollama")
	summarizeCmd.Flags().StringVarP(&sumOutputPath, "output", "o", "", "optional path to write the summary JSON")
	summarizeCmd.Flags().StringVar(&sumDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | '|' | 'tab'")
}
