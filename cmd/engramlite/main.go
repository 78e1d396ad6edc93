// Command engramlite is the composition-root binary: it loads
// configuration, opens the engine, and runs a line-oriented command shell
// over stdin, mirroring the way the teacher's memento-backup and
// memento-setup binaries wrap their service behind a flag-configured CLI.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/engramai/engramlite/internal/config"
	"github.com/engramai/engramlite/internal/engine"
	"github.com/engramai/engramlite/internal/query"
	"github.com/engramai/engramlite/pkg/types"
)

var (
	configPath = flag.String("config", "", "Path to config file (optional, uses defaults/env vars otherwise)")
	dbPath     = flag.String("db", "", "Path to database directory (overrides config)")
)

// Exit codes per the command surface's shell contract.
const (
	exitOK             = 0
	exitGenericError   = 1
	exitInvalidArgs    = 2
	exitNotFound       = 3
	exitStorageBackend = 4
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	eng, err := engine.Open(cfg, false)
	if err != nil {
		log.Fatalf("failed to open engine: %v", err)
	}
	defer func() {
		if err := eng.Close(); err != nil {
			log.Printf("error closing engine: %v", err)
		}
	}()

	shell := &shell{engine: eng, out: os.Stdout}
	os.Exit(shell.run(os.Stdin))
}

// shell runs the line-oriented command surface: one command per line,
// semicolon-delimited arguments, a single trailing exit code for the
// whole session (the code of the last command that failed, or 0).
type shell struct {
	engine *engine.Engine
	out    *os.File
}

func (s *shell) run(in *os.File) int {
	scanner := bufio.NewScanner(in)
	lastCode := exitOK
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		code := s.dispatch(line)
		if code != exitOK {
			lastCode = code
		}
	}
	return lastCode
}

func (s *shell) dispatch(line string) int {
	cmd, rest, _ := strings.Cut(line, " ")
	args := strings.Split(strings.TrimSpace(rest), ";")
	if len(args) == 1 && args[0] == "" {
		args = nil
	}

	var err error
	switch cmd {
	case "add-engram":
		err = s.cmdAddEngram(args)
	case "get-engram":
		err = s.cmdGetEngram(args)
	case "add-connection":
		err = s.cmdAddConnection(args)
	case "create-collection":
		err = s.cmdCreateCollection(args)
	case "add-to-collection":
		err = s.cmdAddToCollection(args)
	case "create-agent":
		err = s.cmdCreateAgent(args)
	case "grant-access":
		err = s.cmdGrantAccess(args)
	case "query":
		err = s.cmdQuery(args)
	case "filter-by-confidence":
		err = s.cmdFilterByConfidence(args)
	case "delete-engram":
		err = s.cmdDeleteEngram(args)
	case "export":
		err = s.cmdExport(args)
	case "import":
		err = s.cmdImport(args)
	case "stats":
		err = s.cmdStats(args)
	case "compact":
		err = s.cmdCompact(args)
	default:
		fmt.Fprintf(s.out, "error: unrecognized command %q\n", cmd)
		return exitInvalidArgs
	}

	if err == nil {
		return exitOK
	}
	fmt.Fprintf(s.out, "error: %v\n", err)
	return exitCodeFor(err)
}

// exitCodeFor maps an EngramError's Kind to the shell's exit code
// contract; anything else (or an unrecognized error) is a generic error.
func exitCodeFor(err error) int {
	var ee *types.EngramError
	if errors.As(err, &ee) {
		switch ee.Kind {
		case types.KindNotFound:
			return exitNotFound
		case types.KindInvalidInput, types.KindIntegrityViolation:
			return exitInvalidArgs
		case types.KindStorageBackend, types.KindSerializationError:
			return exitStorageBackend
		}
	}
	return exitGenericError
}

func requireArgs(args []string, n int, usage string) error {
	if len(args) != n {
		return types.InvalidInput("arguments", fmt.Sprintf("expected %s", usage))
	}
	return nil
}

func (s *shell) cmdAddEngram(args []string) error {
	if err := requireArgs(args, 3, "content;source;confidence"); err != nil {
		return err
	}
	confidence, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return types.InvalidInput("confidence", "must be a real number")
	}
	eng := types.NewEngram(args[0], args[1], confidence)
	if err := s.engine.PutEngram(context.Background(), eng); err != nil {
		return err
	}
	fmt.Fprintln(s.out, eng.ID)
	return nil
}

func (s *shell) cmdGetEngram(args []string) error {
	if err := requireArgs(args, 1, "id"); err != nil {
		return err
	}
	eng, err := s.engine.GetEngram(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%+v\n", eng)
	return nil
}

func (s *shell) cmdAddConnection(args []string) error {
	if err := requireArgs(args, 4, "source_id;target_id;type;weight"); err != nil {
		return err
	}
	weight, err := strconv.ParseFloat(args[3], 64)
	if err != nil {
		return types.InvalidInput("weight", "must be a real number")
	}
	conn := types.NewConnection(args[0], args[1], args[2], weight)
	if err := s.engine.AddConnection(conn); err != nil {
		return err
	}
	fmt.Fprintln(s.out, conn.ID)
	return nil
}

func (s *shell) cmdCreateCollection(args []string) error {
	if err := requireArgs(args, 2, "name;description"); err != nil {
		return err
	}
	col := types.NewCollection(args[0], args[1])
	if err := s.engine.CreateCollection(col); err != nil {
		return err
	}
	fmt.Fprintln(s.out, col.ID)
	return nil
}

func (s *shell) cmdAddToCollection(args []string) error {
	if err := requireArgs(args, 2, "engram_id;collection_id"); err != nil {
		return err
	}
	if err := s.engine.AddToCollection(args[0], args[1]); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "ok")
	return nil
}

func (s *shell) cmdCreateAgent(args []string) error {
	if err := requireArgs(args, 2, "name;description"); err != nil {
		return err
	}
	agent := types.NewAgent(args[0], args[1])
	if err := s.engine.CreateAgent(agent); err != nil {
		return err
	}
	fmt.Fprintln(s.out, agent.ID)
	return nil
}

func (s *shell) cmdGrantAccess(args []string) error {
	if err := requireArgs(args, 2, "agent_id;collection_id"); err != nil {
		return err
	}
	if err := s.engine.GrantAccess(args[0], args[1]); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "ok")
	return nil
}

func (s *shell) cmdQuery(args []string) error {
	if err := requireArgs(args, 1, "source"); err != nil {
		return err
	}
	source := args[0]
	results, err := s.engine.Query(query.EngramQuery{Source: &source, Sort: query.SortRecency})
	if err != nil {
		return err
	}
	return s.printResults(results)
}

func (s *shell) cmdFilterByConfidence(args []string) error {
	if err := requireArgs(args, 1, "min"); err != nil {
		return err
	}
	min, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return types.InvalidInput("min", "must be a real number")
	}
	results, err := s.engine.Query(query.EngramQuery{MinConfidence: &min, Sort: query.SortRecency})
	if err != nil {
		return err
	}
	return s.printResults(results)
}

func (s *shell) printResults(results []*engine.EngramResult) error {
	for _, r := range results {
		fmt.Fprintf(s.out, "%s\t%s\t%s\t%.3f\n", r.Engram.ID, r.Engram.Source, r.Engram.Content, r.Engram.Confidence)
	}
	return nil
}

func (s *shell) cmdDeleteEngram(args []string) error {
	if err := requireArgs(args, 1, "id"); err != nil {
		return err
	}
	cascaded, err := s.engine.DeleteEngram(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "deleted %d\n", cascaded)
	return nil
}

func (s *shell) cmdExport(args []string) error {
	if len(args) == 0 || len(args) > 2 {
		return types.InvalidInput("arguments", "expected file[;collection_id]")
	}
	var collectionID string
	if len(args) == 2 {
		collectionID = args[1]
	}
	f, err := os.Create(args[0])
	if err != nil {
		return types.StorageBackend("failed to create export file", err)
	}
	defer f.Close()

	counts, err := s.engine.Export(f, collectionID)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%+v\n", counts)
	return nil
}

func (s *shell) cmdImport(args []string) error {
	if err := requireArgs(args, 1, "file"); err != nil {
		return err
	}
	f, err := os.Open(args[0])
	if err != nil {
		return types.StorageBackend("failed to open import file", err)
	}
	defer f.Close()

	counts, err := s.engine.Import(f)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%+v\n", counts)
	return nil
}

func (s *shell) cmdStats(args []string) error {
	if err := requireArgs(args, 0, "(no arguments)"); err != nil {
		return err
	}
	stats, err := s.engine.Stats()
	if err != nil {
		return err
	}
	for _, fs := range stats {
		fmt.Fprintf(s.out, "%s\t%d\t%s\n", fs.Family, fs.Count, fs.HumanApproxSize)
	}
	return nil
}

func (s *shell) cmdCompact(args []string) error {
	if err := requireArgs(args, 0, "(no arguments)"); err != nil {
		return err
	}
	if err := s.engine.Compact(); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "ok")
	return nil
}
