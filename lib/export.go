package lib

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/mholt/archiver"
	"go.uber.org/zap"
)

type ExportOptions struct {
	OutputDir string
	Config    *Config
	Library   *Library
	Logger    *zap.Logger

	/*
		Zip the output directory after a fully successful run.
	*/
	Archive bool
}

type OutputResult struct {
	Name string
	Path string
	Err  error
}

/*
	Summary of one export run: every output file attempted, with the
	error that stopped it if one did.
*/
type Summary struct {
	Results []OutputResult
}

func (s *Summary) Failed() []OutputResult {
	failed := []OutputResult{}
	for _, result := range s.Results {
		if result.Err != nil {
			failed = append(failed, result)
		}
	}

	return failed
}

func (s *Summary) Succeeded() []OutputResult {
	succeeded := []OutputResult{}
	for _, result := range s.Results {
		if result.Err == nil {
			succeeded = append(succeeded, result)
		}
	}

	return succeeded
}

/*
	Export runs the whole pipeline: snapshot, inclusion, placement
	transform, then the four renderers in parallel over the immutable
	board. Adapter and transform errors abort before any file exists;
	a renderer error loses only that renderer's outputs and shows up in
	the summary, while the others still complete. The returned error is
	non-nil if anything at all went wrong.
*/
func Export(src BoardSource, opts ExportOptions) (*Summary, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = DefaultConfig()
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	board, err := Snapshot(src, cfg)
	if err != nil {
		return nil, err
	}

	ApplyInclusion(board)

	corrections := map[string]Position{}
	if opts.Library != nil {
		corrections = opts.Library.Offsets()
	}

	if err := TransformPlacements(board, corrections, cfg); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, err
	}

	included := fabIncluded(board)
	results := make(chan OutputResult, 16)

	/*
		Render fully into memory first, so a failed render never leaves
		a truncated fabrication file on disk.
	*/
	emit := func(name string, render func(w io.Writer) error) {
		path := filepath.Join(opts.OutputDir, name)

		buffer := &bytes.Buffer{}
		if err := render(buffer); err != nil {
			results <- OutputResult{Name: name, Path: path, Err: err}
			return
		}

		results <- OutputResult{
			Name: name,
			Path: path,
			Err:  os.WriteFile(path, buffer.Bytes(), 0644),
		}
	}

	var wg sync.WaitGroup
	wg.Add(4)

	go func() {
		defer wg.Done()

		for _, name := range cfg.Layers {
			layer := board.FindLayer(name)
			if layer == nil {
				continue
			}

			emit(GerberFileName(board.Name, name), func(w io.Writer) error {
				return RenderGerber(w, board, layer, included)
			})
		}

		emit(DrillFileName(board.Name), func(w io.Writer) error {
			return RenderDrill(w, board, included)
		})
	}()

	go func() {
		defer wg.Done()

		entries := BuildBOM(board, opts.Library)

		path := filepath.Join(opts.OutputDir, "bom.csv")
		results <- OutputResult{Name: "bom.csv", Path: path, Err: WriteBOM(path, entries)}

		path = filepath.Join(opts.OutputDir, "bom.xlsx")
		results <- OutputResult{Name: "bom.xlsx", Path: path, Err: WriteBOMXLSX(path, entries)}
	}()

	go func() {
		defer wg.Done()

		components := BuildCPL(board, cfg.Precision)
		name := CPLFileName(board.Name)
		path := filepath.Join(opts.OutputDir, name)
		results <- OutputResult{Name: name, Path: path, Err: WriteCPL(path, components)}
	}()

	go func() {
		defer wg.Done()

		emit(NetlistFileName(board.Name), func(w io.Writer) error {
			return RenderNetlist(w, board, included)
		})
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	summary := &Summary{}
	for result := range results {
		summary.Results = append(summary.Results, result)
	}

	sort.SliceStable(summary.Results, func(i, j int) bool {
		return summary.Results[i].Name < summary.Results[j].Name
	})

	for _, result := range summary.Results {
		if result.Err != nil {
			logger.Error("output failed",
				zap.String("output", result.Name),
				zap.Error(result.Err),
			)
			continue
		}

		logger.Info("output written",
			zap.String("output", result.Name),
			zap.String("path", result.Path),
		)
	}

	failed := summary.Failed()

	if len(failed) == 0 && (opts.Archive || cfg.Archive) {
		name := board.Name + ".zip"
		path := filepath.Join(filepath.Dir(opts.OutputDir), name)
		os.Remove(path)

		err := archiver.Archive([]string{opts.OutputDir}, path)
		summary.Results = append(summary.Results, OutputResult{Name: name, Path: path, Err: err})
		if err != nil {
			failed = summary.Failed()
		} else {
			logger.Info("output written", zap.String("output", name), zap.String("path", path))
		}
	}

	if len(failed) > 0 {
		return summary, fmt.Errorf("export completed with %d failed outputs", len(failed))
	}

	return summary, nil
}
