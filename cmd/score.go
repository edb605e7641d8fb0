package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/spigell/carbon-match/internal/logger"
	"github.com/spigell/carbon-match/internal/scoring"
	"github.com/spigell/carbon-match/internal/server"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const allScores = "calculate-all-scores"

var scoreCmd = &cobra.Command{
	Use:   "score [operation]",
	Short: "Compute a score locally and print the JSON response",
	Long: `Compute a score without starting the server.

The operation is one of the /api/ routes (risk-score, goal-alignment, ...) or
calculate-all-scores. Without an operation an interactive menu is shown.
The request body is read from --input ("-" for stdin); without --input each
field is prompted for.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		score(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().StringP("input", "i", "", "file with the JSON request body, - for stdin")
}

func score(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	name := ""
	if len(args) == 1 {
		name = args[0]
	} else if name, err = selectOperation(); err != nil {
		logger.Fatal("exiting", zap.Error(err))
	}

	fields, err := operationFields(name)
	if err != nil {
		logger.Fatal("unknown operation", zap.Error(err))
	}

	var body server.Body
	input := cmd.Flag("input").Value.String()
	if input != "" {
		body, err = readBody(input, cmd.InOrStdin())
	} else {
		body, err = promptBody(fields, requiredFields(name))
	}
	if err != nil {
		logger.Fatal("reading the request body", zap.Error(err))
	}

	engine := newEngine(ctx, config.Embedding, logger, nil)

	var response any
	if name == allScores {
		in, err := server.AllInputs(body)
		if err != nil {
			logger.Fatal("invalid request", zap.Error(err))
		}
		response = struct {
			Success bool `json:"success"`
			scoring.Scores
		}{Success: true, Scores: engine.All(ctx, in)}
	} else {
		op, _ := server.Lookup(name)
		value, err := op.Score(ctx, engine, body)
		if err != nil {
			logger.Fatal("invalid request", zap.Error(err))
		}
		response = map[string]any{"success": true, op.Key: value}
	}

	pretty, _ := json.MarshalIndent(response, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(pretty))
}

func selectOperation() (string, error) {
	items := []string{allScores}
	for _, op := range server.Operations() {
		items = append(items, op.Name)
	}

	prompt := promptui.Select{
		Label: "Choose a score to compute",
		Items: items,
	}

	_, selected, err := prompt.Run()
	return selected, err
}

// operationFields returns the request fields of the named operation.
func operationFields(name string) ([]string, error) {
	if name == allScores {
		seen := make(map[string]bool)
		fields := make([]string, 0)
		for _, op := range server.Operations() {
			for _, f := range op.Fields {
				if !seen[f] {
					seen[f] = true
					fields = append(fields, f)
				}
			}
		}
		return fields, nil
	}

	op, ok := server.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("no such operation %q", name)
	}
	return op.Fields, nil
}

// requiredFields returns the set of fields the named operation cannot do without.
func requiredFields(name string) map[string]bool {
	required := make(map[string]bool)
	for _, op := range server.Operations() {
		if name != allScores && op.Name != name {
			continue
		}
		for _, f := range op.RequiredFields() {
			required[f] = true
		}
	}
	return required
}

func readBody(path string, stdin io.Reader) (server.Body, error) {
	if path == "-" {
		return server.DecodeBody(stdin)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return server.DecodeBody(f)
}

func promptBody(fields []string, required map[string]bool) (server.Body, error) {
	body := server.Body{}

	for _, field := range fields {
		label := fmt.Sprintf("%s (JSON, empty to skip)", field)
		if required[field] {
			label = fmt.Sprintf("%s (JSON, required)", field)
		}

		prompt := promptui.Prompt{
			Label: label,
			Validate: func(s string) error {
				if strings.TrimSpace(s) == "" {
					if required[field] {
						return errors.New("value is required")
					}
					return nil
				}
				_, err := parsePromptValue(s)
				return err
			},
		}

		raw, err := prompt.Run()
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(raw) == "" {
			continue
		}

		value, err := parsePromptValue(raw)
		if err != nil {
			return nil, err
		}
		body[field] = value
	}

	return body, nil
}

// parsePromptValue accepts any JSON value; bare words are taken as strings.
func parsePromptValue(raw string) (any, error) {
	raw = strings.TrimSpace(raw)

	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		if strings.HasPrefix(raw, "{") || strings.HasPrefix(raw, "[") {
			return nil, errors.New("invalid JSON")
		}
		return raw, nil
	}
	if dec.More() {
		// trailing text, e.g. "500 tons"
		return raw, nil
	}

	return value, nil
}
