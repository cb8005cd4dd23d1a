package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/flowminds/internal/nexus"
	"github.com/ziadkadry99/flowminds/internal/render"
)

var generateCmd = &cobra.Command{
	Use:   "generate [prompt]",
	Short: "Generate a Mermaid diagram from a description",
	Long: `Sends the prompt to the FlowMinds API at api_url and prints the Mermaid
source. The prompt may also be piped on stdin. With --svg the result is
rendered locally as well.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGenerate,
}

var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "Show how many generations remain today",
	Args:  cobra.NoArgs,
	RunE:  runQuota,
}

func init() {
	generateCmd.Flags().StringP("output", "o", "", "write the Mermaid source to this file instead of stdout")
	generateCmd.Flags().String("svg", "", "also render the diagram to this SVG file")
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(quotaCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	prompt, err := readPrompt(args)
	if err != nil {
		return err
	}

	output, _ := cmd.Flags().GetString("output")
	svgPath, _ := cmd.Flags().GetString("svg")

	ctx := context.Background()
	client := nexus.New(cfg.APIURL)

	spinner := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("Generating diagram"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	stopSpinner := make(chan struct{})
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stopSpinner:
				return
			case <-ticker.C:
				spinner.Add(1)
			}
		}
	}()

	start := time.Now()
	source, err := client.Generate(ctx, prompt)
	close(stopSpinner)
	spinner.Finish()
	if err != nil {
		if errors.Is(err, nexus.ErrDailyLimit) {
			return errors.New(nexus.DailyLimitMessage)
		}
		return fmt.Errorf("generating diagram: %w", err)
	}
	logger.Debug("diagram generated", "elapsed", time.Since(start).Round(time.Millisecond))

	if output != "" {
		if err := os.WriteFile(output, []byte(source+"\n"), 0644); err != nil {
			return fmt.Errorf("writing %s: %w", output, err)
		}
		fmt.Fprintf(os.Stderr, "Wrote %s\n", output)
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), source)
	}

	if svgPath != "" {
		engine, err := newEngine(cfg)
		if err != nil {
			return err
		}
		defer closeEngine(engine)

		switch res := render.Once(ctx, engine, diagramID(svgPath), source).(type) {
		case render.Rendered:
			if err := os.WriteFile(svgPath, []byte(res.Markup), 0644); err != nil {
				return fmt.Errorf("writing %s: %w", svgPath, err)
			}
			fmt.Fprintf(os.Stderr, "Wrote %s\n", svgPath)
		case render.Failed:
			return fmt.Errorf("rendering diagram: %s", res.Message)
		}
	}

	if n, known := client.Remaining(); known {
		fmt.Fprintf(os.Stderr, "%d generation(s) left today\n", n)
	}
	return nil
}

// readPrompt takes the prompt from the argument, or from stdin when it is
// piped.
func readPrompt(args []string) (string, error) {
	if len(args) == 1 {
		if p := strings.TrimSpace(args[0]); p != "" {
			return p, nil
		}
		return "", fmt.Errorf("prompt is empty")
	}
	info, err := os.Stdin.Stat()
	if err != nil || info.Mode()&os.ModeCharDevice != 0 {
		return "", fmt.Errorf("a prompt argument or piped stdin is required")
	}
	data, err := io.ReadAll(io.LimitReader(os.Stdin, 64*1024))
	if err != nil {
		return "", fmt.Errorf("reading prompt from stdin: %w", err)
	}
	if p := strings.TrimSpace(string(data)); p != "" {
		return p, nil
	}
	return "", fmt.Errorf("prompt is empty")
}

func runQuota(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	q, err := nexus.New(cfg.APIURL).Quota(context.Background())
	if err != nil {
		return fmt.Errorf("fetching quota: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Remaining: %d of %d\n", q.Remaining, q.Limit)
	fmt.Fprintf(out, "Resets:    %s (in %s)\n", q.ResetAt.Local().Format(time.RFC1123),
		time.Until(q.ResetAt).Round(time.Minute))
	return nil
}
