package pipeline

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/SM97490/agent-produits-distrisku/internal/model"
	"github.com/SM97490/agent-produits-distrisku/internal/sheet"
)

// OutputSuffix replaces the input extension in the default output name.
const OutputSuffix = "_enrichi_production.xlsx"

// DefaultOutputPath derives the output workbook path from the input path.
func DefaultOutputPath(inputPath string) string {
	ext := filepath.Ext(inputPath)
	return strings.TrimSuffix(inputPath, ext) + OutputSuffix
}

// ProcessFile reads the input workbook, runs the batch and writes the
// validated rows to outputPath (DefaultOutputPath when empty). Batch-level
// failures return an outcome with Success false plus the error; no output is
// written in that case.
func (p *Pipeline) ProcessFile(ctx context.Context, inputPath, outputPath string, onProgress ProgressFunc) (model.BatchOutcome, error) {
	if outputPath == "" {
		outputPath = DefaultOutputPath(inputPath)
	}

	rows, err := sheet.ReadInput(inputPath)
	if err != nil {
		return failed(err), eris.Wrap(err, "pipeline: read input")
	}

	res, err := p.Run(ctx, rows, onProgress)
	if err != nil {
		return failed(err), err
	}

	if err := sheet.WriteOutput(outputPath, res.Rows); err != nil {
		return failed(err), eris.Wrap(err, "pipeline: write output")
	}

	out := res.Outcome
	out.OutputPath = outputPath
	zap.L().Info("pipeline: output written",
		zap.String("path", outputPath),
		zap.Int("rows", len(res.Rows)),
	)
	return out, nil
}

func failed(err error) model.BatchOutcome {
	return model.BatchOutcome{Success: false, Error: err.Error()}
}
