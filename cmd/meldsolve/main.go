// Command meldsolve partitions tile pools into melds from the command line.
//
//	meldsolve R7 R8 R9 G7 B7 U7 J
//	meldsolve -f pools.yaml
//	meldsolve -stats
//
// A pool file is YAML (or JSON) with either a single pool under tiles or
// several under pools.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"svw.info/meldsolver/internal/diag"
	"svw.info/meldsolver/internal/domain"
	"svw.info/meldsolver/internal/ports"
	"svw.info/meldsolver/internal/solver"
)

type poolFile struct {
	Tiles []string   `yaml:"tiles"`
	Pools [][]string `yaml:"pools"`
}

func parsePool(words []string) (domain.TileSet, error) {
	var fields []string
	for _, w := range words {
		fields = append(fields, strings.FieldsFunc(w, func(r rune) bool { return r == ',' || r == ' ' })...)
	}
	tiles, err := domain.ParseTiles(fields)
	if err != nil {
		return domain.TileSet{}, err
	}
	return domain.CollectTiles(tiles)
}

func readPools(r io.Reader) ([]domain.TileSet, error) {
	var f poolFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("pool file: %w", err)
	}
	lists := f.Pools
	if f.Tiles != nil {
		lists = append([][]string{f.Tiles}, lists...)
	}
	if len(lists) == 0 {
		return nil, errors.New("pool file: no tiles or pools")
	}
	out := make([]domain.TileSet, 0, len(lists))
	for i, l := range lists {
		p, err := parsePool(l)
		if err != nil {
			return nil, fmt.Errorf("pool %d: %w", i, err)
		}
		out = append(out, p)
	}
	return out, nil
}

type result struct {
	Pool     domain.TileSet  `json:"pool"`
	Solution domain.Solution `json:"solution"`
	Nodes    int             `json:"nodes"`
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("meldsolve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	file := fs.String("f", "", "pool file (YAML or JSON), - for stdin")
	kind := fs.String("solver", "dlx", "dlx|backtrack")
	maxNodes := fs.Int("max-nodes", 0, "search node budget for dlx, 0 for none")
	timeout := fs.Duration("timeout", 10*time.Second, "per pool time limit")
	asJSON := fs.Bool("json", false, "print results as JSON")
	verbose := fs.Bool("v", false, "log search statistics")
	stats := fs.Bool("stats", false, "print combo catalogue statistics and exit")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *stats {
		for _, row := range diag.Rows(diag.Collect()) {
			fmt.Fprintf(stdout, "%-32s %s\n", row[0], row[1])
		}
		return 0
	}

	lvl := slog.LevelWarn
	if *verbose {
		lvl = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: lvl}))

	var pools []domain.TileSet
	switch {
	case *file != "":
		in := stdin
		if *file != "-" {
			f, err := os.Open(*file)
			if err != nil {
				logger.Error("open pool file", "err", err)
				return 1
			}
			defer f.Close()
			in = f
		}
		ps, err := readPools(in)
		if err != nil {
			logger.Error("read pools", "err", err)
			return 1
		}
		pools = ps
	case fs.NArg() > 0:
		p, err := parsePool(fs.Args())
		if err != nil {
			logger.Error("parse pool", "err", err)
			return 1
		}
		pools = []domain.TileSet{p}
	default:
		fs.Usage()
		return 2
	}

	var s ports.Solver = solver.NewDLXSolver(*maxNodes)
	if strings.HasPrefix(strings.ToLower(*kind), "back") {
		s = solver.NewBacktrackingSolver()
	}

	status := 0
	results := make([]result, 0, len(pools))
	for _, p := range pools {
		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		sol, st := s.Solve(ctx, p)
		cancel()
		logger.Debug("solve", "pool", p.String(), "outcome", sol.Outcome.String(), "nodes", st.Nodes, "forced", st.Forced, "dur", st.Duration)
		if sol.Outcome != domain.Solved {
			status = 3
		}
		results = append(results, result{Pool: p, Solution: sol, Nodes: st.Nodes})
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			logger.Error("encode", "err", err)
			return 1
		}
		return status
	}
	for _, r := range results {
		fmt.Fprintf(stdout, "%s: %s\n", r.Pool, r.Solution.Outcome)
		for _, m := range r.Solution.Melds {
			fmt.Fprintf(stdout, "  %s\n", m)
		}
	}
	return status
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
