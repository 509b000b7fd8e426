package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	repomap "github.com/cyber-nic/repomap"
	"github.com/cyber-nic/repomap/internal/config"
	"github.com/cyber-nic/repomap/internal/debugfmt"
)

func main() {
	var (
		query = flag.String("query", "", "search or exploration query; empty renders the full ranked map")
		cmd   = flag.String("cmd", "map", "map | search | stats | cycles | centrality | impact | explore")
		debug = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	configLogging(*debug)

	root := "."
	if flag.NArg() > 0 {
		root = flag.Arg(0)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		log.Fatal().Err(err).Msg("resolving project root")
	}

	opts := config.Default()
	eng, err := repomap.New(absRoot, opts)
	if err != nil {
		log.Fatal().Err(err).Msg("constructing engine")
	}
	defer eng.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result, err := eng.Analyze(ctx, nil, nil)
	_ = result
	if err != nil {
		log.Fatal().Err(err).Msg("analyzing project")
	}

	sectionHeader := color.New(color.FgCyan, color.Bold).FprintfFunc()

	switch *cmd {
	case "search":
		if *query == "" {
			log.Fatal().Msg("-query is required for -cmd=search")
		}
		matches, err := eng.Search(*query)
		if err != nil {
			log.Fatal().Err(err).Msg("search failed")
		}
		sectionHeader(os.Stderr, "%d match(es) for %q\n", len(matches), *query)
		debugfmt.PrintStdout(matches)
	case "stats":
		stats, err := eng.DependencyStats()
		if err != nil {
			log.Fatal().Err(err).Msg("computing dependency stats")
		}
		sectionHeader(os.Stderr, "dependency stats\n")
		debugfmt.PrintStdout(stats)
	case "cycles":
		cycles, err := eng.FindCycles()
		if err != nil {
			log.Fatal().Err(err).Msg("finding cycles")
		}
		if len(cycles) == 0 {
			color.New(color.FgGreen).Fprintln(os.Stderr, "no import cycles found")
			return
		}
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "%d import cycle(s)\n", len(cycles))
		debugfmt.PrintStdout(cycles)
	case "centrality":
		c, err := eng.Centrality(config.CentralityPageRank)
		if err != nil {
			log.Fatal().Err(err).Msg("computing centrality")
		}
		sectionHeader(os.Stderr, "centrality ranking\n")
		debugfmt.PrintStdout(c.Ranked())
	case "impact":
		if *query == "" {
			log.Fatal().Msg("-query is required for -cmd=impact (comma-separated file paths)")
		}
		impact, err := eng.Impact(strings.Split(*query, ","))
		if err != nil {
			log.Fatal().Err(err).Msg("computing change impact")
		}
		sectionHeader(os.Stderr, "change impact\n")
		debugfmt.PrintStdout(impact)
	case "explore":
		if *query == "" {
			log.Fatal().Msg("-query is required for -cmd=explore")
		}
		session, err := eng.StartExploration(*query, time.Now().Unix())
		if err != nil {
			log.Fatal().Err(err).Msg("starting exploration")
		}
		sectionHeader(os.Stderr, "session %s\n", session.ID)
		debugfmt.PrintStdout(eng.Status(session))

		if trees := eng.ListTrees(session); len(trees) > 0 {
			if err := eng.Focus(session, trees[0].ID, time.Now().Unix()); err != nil {
				log.Fatal().Err(err).Msg("focusing first tree")
			}
		}
		treeMap, err := eng.ExplorationMap(session)
		if err != nil {
			log.Fatal().Err(err).Msg("rendering exploration map")
		}
		fmt.Println(colorizeExplorationMap(treeMap))
	case "map":
		fallthrough
	default:
		out, err := eng.Map(nil, nil)
		if err != nil {
			log.Fatal().Err(err).Msg("rendering map")
		}
		fmt.Println(out)
	}
}

// colorizeExplorationMap highlights the 🎯 focused-tree marker and 🆕
// EXPANDED node markers when stdout is a terminal; fatih/color degrades to
// plain ASCII automatically otherwise, so the data explore.Render returns
// stays uncolored and only this display layer ever adds escape codes.
func colorizeExplorationMap(rendered string) string {
	focused := color.New(color.FgYellow, color.Bold).SprintFunc()
	expanded := color.New(color.FgGreen).SprintFunc()

	lines := strings.Split(rendered, "\n")
	for i, line := range lines {
		if strings.Contains(line, "🎯") {
			line = focused(line)
		}
		if strings.Contains(line, "🆕 EXPANDED") {
			line = expanded(line)
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

func configLogging(debug bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	log.Logger = log.With().Caller().Logger()

	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}

	if logLevel, ok := os.LookupEnv("REPOMAP_LOG"); ok {
		switch logLevel {
		case "debug":
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		case "trace":
			zerolog.SetGlobalLevel(zerolog.TraceLevel)
		case "error":
			zerolog.SetGlobalLevel(zerolog.ErrorLevel)
		default:
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
			log.Warn().Msgf("invalid REPOMAP_LOG level: %s", logLevel)
		}
		return
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}
