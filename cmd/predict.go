package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"heartform/ml"
)

func newPredictCmd(configPath *string) *cobra.Command {
	var inputPath string

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Run one prediction from a YAML file of form inputs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			model, err := ml.LoadModel(cfg.ML.ModelType, cfg.ML.ModelPath)
			if err != nil {
				return fmt.Errorf("load model: %w", err)
			}
			in, err := readInputs(inputPath, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return runPredict(cmd.Context(), ml.NewPredictor(model), in, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().StringVar(&inputPath, "input", "-", "YAML file with form inputs, - for stdin")
	return cmd
}

// readInputs decodes form inputs on top of the form defaults.
func readInputs(path string, stdin io.Reader) (ml.ClinicalInputs, error) {
	var (
		payload []byte
		err     error
	)
	if path == "-" {
		payload, err = io.ReadAll(stdin)
	} else {
		payload, err = os.ReadFile(path)
	}
	if err != nil {
		return ml.ClinicalInputs{}, fmt.Errorf("read inputs: %w", err)
	}

	in := ml.DefaultInputs()
	if err := yaml.UnmarshalStrict(payload, &in); err != nil {
		return ml.ClinicalInputs{}, fmt.Errorf("decode inputs: %w", err)
	}
	if err := ml.CheckRanges(in); err != nil {
		return ml.ClinicalInputs{}, err
	}
	return in, nil
}

func runPredict(ctx context.Context, predictor *ml.Predictor, in ml.ClinicalInputs, out, errOut io.Writer) error {
	enc := ml.Encode(in)
	for _, group := range enc.Defaulted {
		fmt.Fprintf(errOut, "warning: %s value outside its domain, encoded as default\n", group)
	}
	label, err := predictor.Predict(ctx, enc.Vector)
	if err != nil {
		return fmt.Errorf("predict: %w", err)
	}
	_, err = fmt.Fprintf(out, "Prediction (0: No Heart Disease, 1: Heart Disease): %s\n", ml.FormatLabel(label))
	return err
}
