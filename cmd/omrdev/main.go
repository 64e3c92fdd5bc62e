// Command omrdev scores scanned bubble sheets and renders synthetic ones
// for testing layouts.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"

	"github.com/brianolson/omrsheet/draw"
	"github.com/brianolson/omrsheet/grid"
	"github.com/brianolson/omrsheet/internal/config"
	"github.com/brianolson/omrsheet/internal/logger"
	"github.com/brianolson/omrsheet/layoutdb"
	"github.com/brianolson/omrsheet/scan"
)

type devcx struct {
	cfg *config.Config

	pretty     bool
	outPath    string
	rawOutPath string
	highlight  string
	regDebug   string
	cellsDebug string

	answers    string
	barcode    uint64
	width      int
	height     int
	maxDegrees float64
	maxScale   float64

	store layoutdb.Store
}

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	dc := &devcx{cfg: cfg}
	defer dc.Close()

	rootCmd := &cobra.Command{
		Use:               "omrdev",
		Short:             "Score and synthesize bubble sheets",
		PersistentPreRunE: dc.preRun,
		SilenceUsage:      true,
	}
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfg.Layout, "layout", cfg.Layout, "layout preset, stored layout name or YAML file")
	pf.StringVar(&cfg.LayoutDB, "layout-db", cfg.LayoutDB, "bbolt path, sqlite3:path or postgres:// DSN of stored layouts")
	pf.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")

	scoreCmd := &cobra.Command{
		Use:   "score [scan image]",
		Short: "Register a scan and print its marks and barcode as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  dc.score,
	}
	scoreCmd.Flags().BoolVar(&dc.pretty, "pretty", false, "Pretty-print JSON output")
	scoreCmd.Flags().StringVarP(&dc.outPath, "output", "o", "", "write the registered image here")
	scoreCmd.Flags().StringVar(&dc.rawOutPath, "raw-out", "", "write the scan with search areas here")
	scoreCmd.Flags().StringVar(&dc.highlight, "highlight", "marked", "registered image highlight: all, marked, barcode or none")
	scoreCmd.Flags().StringVar(&dc.regDebug, "reg-debug", "", "write tiled mark search windows here")
	scoreCmd.Flags().StringVar(&dc.cellsDebug, "cells-debug", "", "write stacked choice cells here")

	synthCmd := &cobra.Command{
		Use:   "synth [out image]",
		Short: "Render a filled-in sheet for the layout",
		Args:  cobra.ExactArgs(1),
		RunE:  dc.synth,
	}
	synthCmd.Flags().StringVar(&dc.answers, "answers", "", "filled choices, questions split by ',' and choices by '+', e.g. 2,0,,1+3")
	synthCmd.Flags().Uint64Var(&dc.barcode, "barcode", 0, "barcode value")
	synthCmd.Flags().IntVar(&dc.width, "width", 1000, "page width px")
	synthCmd.Flags().IntVar(&dc.height, "height", 1400, "page height px")
	synthCmd.Flags().Float64Var(&dc.maxDegrees, "perturb", 0, "rotate by up to +/- this many degrees")
	synthCmd.Flags().Float64Var(&dc.maxScale, "scale", 0, "scale by up to +/- this fraction")

	layoutsCmd := &cobra.Command{
		Use:   "layouts",
		Short: "Manage stored layouts",
	}
	layoutsCmd.AddCommand(
		&cobra.Command{
			Use:   "import [layout.yaml...]",
			Short: "Store layout files under their names",
			Args:  cobra.MinimumNArgs(1),
			RunE:  dc.layoutsImport,
		},
		&cobra.Command{
			Use:   "list",
			Short: "List presets and stored layouts",
			Args:  cobra.NoArgs,
			RunE:  dc.layoutsList,
		},
		&cobra.Command{
			Use:   "show [name]",
			Short: "Print a layout as YAML",
			Args:  cobra.ExactArgs(1),
			RunE:  dc.layoutsShow,
		},
	)

	rootCmd.AddCommand(scoreCmd, synthCmd, layoutsCmd)
	if err := rootCmd.Execute(); err != nil {
		dc.Close()
		os.Exit(1)
	}
}

// preRun applies --log-level, which overrides LOG_LEVEL.
func (dc *devcx) preRun(cmd *cobra.Command, args []string) error {
	if err := config.ValidLogLevel(dc.cfg.LogLevel); err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}
	logger.SetLevel(dc.cfg.LogLevel)
	return nil
}

func (dc *devcx) Close() {
	if dc.store != nil {
		dc.store.Close()
		dc.store = nil
	}
}

func (dc *devcx) getStore() (layoutdb.Store, error) {
	if dc.store != nil || dc.cfg.LayoutDB == "" {
		return dc.store, nil
	}
	st, err := layoutdb.Open(dc.cfg.LayoutDB)
	if err != nil {
		return nil, err
	}
	dc.store = st
	return st, nil
}

func (dc *devcx) getLayout(ctx context.Context, name string) (*grid.Layout, error) {
	st, err := dc.getStore()
	if err != nil {
		return nil, err
	}
	return layoutdb.Resolve(ctx, st, name)
}

type scoreResult struct {
	Sheet        string                   `json:"sheet"`
	Layout       string                   `json:"layout"`
	Valid        bool                     `json:"valid"`
	Marks        [4]scan.RegistrationMark `json:"marks"`
	Thresholds   *scan.Thresholds         `json:"thresholds,omitempty"`
	Answers      [][]int                  `json:"answers,omitempty"`
	Barcode      string                   `json:"barcode,omitempty"`
	BarcodeValue uint64                   `json:"barcode_value"`
	Error        string                   `json:"error,omitempty"`
}

func (dc *devcx) score(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	layout, err := dc.getLayout(ctx, dc.cfg.Layout)
	if err != nil {
		return err
	}
	start := time.Now()
	s, err := scan.Open(args[0], layout)
	if err != nil {
		return err
	}
	res := scoreResult{
		Sheet:  s.Name(),
		Layout: layout.Name,
		Valid:  s.Valid(),
		Marks:  s.Marks(),
	}
	var scoreErr error
	if s.Valid() {
		scoreErr = dc.fillScore(s, &res)
	} else {
		scoreErr = s.HighlightRegArea()
	}
	if scoreErr != nil {
		res.Error = scoreErr.Error()
	}
	logger.WithField("sheet", s.Name()).WithField("valid", res.Valid).
		WithField("elapsed", time.Since(start).String()).Info("scored")

	if err := dc.writeDebug(s); err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	if dc.pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(res); err != nil {
		return err
	}
	return scoreErr
}

func (dc *devcx) fillScore(s *scan.Sheet, res *scoreResult) error {
	th, err := s.Thresholds()
	if err != nil {
		return err
	}
	res.Thresholds = &th
	if res.Answers, err = s.MarkArray(scan.AllQuestions()); err != nil {
		return err
	}
	if res.Barcode, err = s.BarcodeString(); err != nil {
		return err
	}
	if res.BarcodeValue, err = s.Barcode(); err != nil {
		return err
	}
	if err := s.HighlightRegArea(); err != nil {
		return err
	}
	switch dc.highlight {
	case "all":
		err = s.HighlightAll()
	case "marked":
		err = s.HighlightMarked()
	case "barcode":
		err = s.HighlightBarcode()
	case "none", "":
	default:
		err = fmt.Errorf("unknown highlight %q", dc.highlight)
	}
	return err
}

func (dc *devcx) writeDebug(s *scan.Sheet) error {
	if dc.rawOutPath != "" {
		if err := s.WriteRaw(dc.rawOutPath); err != nil {
			return err
		}
		logger.WithField("path", dc.rawOutPath).Info("wrote raw")
	}
	if dc.regDebug != "" {
		if err := imaging.Save(s.RegistrationDebugImage(), dc.regDebug); err != nil {
			return fmt.Errorf("%s: %w", dc.regDebug, err)
		}
	}
	if !s.Valid() {
		// nothing registered to write
		return nil
	}
	if dc.outPath != "" {
		if err := s.Write(dc.outPath); err != nil {
			return err
		}
		logger.WithField("path", dc.outPath).Info("wrote registered")
	}
	if dc.cellsDebug != "" {
		im, err := s.CellsDebugImage()
		if err != nil {
			return err
		}
		if err := imaging.Save(im, dc.cellsDebug); err != nil {
			return fmt.Errorf("%s: %w", dc.cellsDebug, err)
		}
	}
	return nil
}

// parseAnswers reads "2,0,,1+3" as [[2] [0] [] [1 3]].
func parseAnswers(s string) ([][]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out [][]int
	for qi, q := range strings.Split(s, ",") {
		choices := []int{}
		for _, c := range strings.Split(q, "+") {
			c = strings.TrimSpace(c)
			if c == "" {
				continue
			}
			v, err := strconv.Atoi(c)
			if err != nil {
				return nil, fmt.Errorf("answers: question %d: %w", qi, err)
			}
			choices = append(choices, v)
		}
		out = append(out, choices)
	}
	return out, nil
}

func (dc *devcx) synth(cmd *cobra.Command, args []string) error {
	layout, err := dc.getLayout(context.Background(), dc.cfg.Layout)
	if err != nil {
		return err
	}
	answers, err := parseAnswers(dc.answers)
	if err != nil {
		return err
	}
	im, err := draw.Sheet(dc.width, dc.height, layout, draw.Fill{Answers: answers, Barcode: dc.barcode})
	if err != nil {
		return err
	}
	if dc.maxDegrees == 0 && dc.maxScale == 0 {
		return imaging.Save(im, args[0])
	}
	seed := dc.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	out, p := draw.Perturb(im, rand.New(rand.NewSource(seed)), dc.maxDegrees, dc.maxScale)
	logger.WithField("seed", seed).WithField("degrees", p.Degrees).WithField("scale", p.Scale).Info("perturbed")
	return imaging.Save(out, args[0])
}

func (dc *devcx) layoutsImport(cmd *cobra.Command, args []string) error {
	st, err := dc.getStore()
	if err != nil {
		return err
	}
	if st == nil {
		return errors.New("no layout db, set --layout-db or OMR_LAYOUT_DB")
	}
	for _, path := range args {
		l, err := grid.LoadLayout(path)
		if err != nil {
			return err
		}
		if err := st.Put(cmd.Context(), l); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", path, l.Name)
	}
	return nil
}

func (dc *devcx) layoutsList(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	for _, name := range grid.PresetNames() {
		fmt.Fprintf(w, "%s\tpreset\n", name)
	}
	st, err := dc.getStore()
	if err != nil || st == nil {
		return err
	}
	names, err := st.List(cmd.Context())
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Fprintf(w, "%s\tstored\n", name)
	}
	return nil
}

func (dc *devcx) layoutsShow(cmd *cobra.Command, args []string) error {
	l, err := dc.getLayout(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	blob, err := l.Marshal()
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(blob)
	return err
}
