// Package shell provides the interactive console over the query service.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/c-bata/go-prompt"

	"github.com/xtxerr/salesgrid/internal/analysis"
	sgerrors "github.com/xtxerr/salesgrid/internal/errors"
	"github.com/xtxerr/salesgrid/internal/query"
	"github.com/xtxerr/salesgrid/internal/report"
	"github.com/xtxerr/salesgrid/internal/store"
)

// Shell is an interactive console over one table.
type Shell struct {
	ctx      context.Context
	queries  *query.Service
	renderer *report.Renderer
	offline  *analysis.Offline
	// SnapshotPattern is the parquet glob used by the sql command;
	// empty disables it.
	SnapshotPattern string

	country   string
	threshold float64
	topN      int
}

// New creates a shell. offline may be nil when no snapshot was exported.
func New(ctx context.Context, queries *query.Service, renderer *report.Renderer,
	offline *analysis.Offline, country string, threshold float64, topN int) *Shell {
	return &Shell{
		ctx:       ctx,
		queries:   queries,
		renderer:  renderer,
		offline:   offline,
		country:   country,
		threshold: threshold,
		topN:      topN,
	}
}

var suggestions = []prompt.Suggest{
	{Text: "get", Description: "get <order> <product> - fetch one row"},
	{Text: "update", Description: "update <order> <product> <family:qualifier> <value> - partial update"},
	{Text: "scan", Description: "scan [family:qualifier=value] [limit] - list rows"},
	{Text: "large", Description: "large [country] [threshold] - large sales query"},
	{Text: "report", Description: "report - scan and summarize the whole table"},
	{Text: "sql", Description: "sql <query> - SQL over exported snapshots"},
	{Text: "exit", Description: "leave the shell"},
}

// Run blocks until the user exits.
func (s *Shell) Run() {
	fmt.Println("salesgrid shell - type a command, 'exit' to leave")
	if s.SnapshotPattern != "" {
		fmt.Printf("snapshots: %s (sql: select ... from read_parquet('%s'))\n",
			s.SnapshotPattern, s.SnapshotPattern)
	}
	p := prompt.New(
		s.execute,
		completer,
		prompt.OptionPrefix("salesgrid> "),
		prompt.OptionTitle("salesgrid"),
		prompt.OptionSetExitCheckerOnInput(func(in string, breakline bool) bool {
			in = strings.TrimSpace(in)
			return breakline && (in == "exit" || in == "quit")
		}),
	)
	p.Run()
}

func completer(d prompt.Document) []prompt.Suggest {
	if d.TextBeforeCursor() != d.GetWordBeforeCursor() {
		return nil
	}
	return prompt.FilterHasPrefix(suggestions, d.GetWordBeforeCursor(), true)
}

func (s *Shell) execute(line string) {
	args := strings.Fields(line)
	if len(args) == 0 {
		return
	}

	var err error
	switch args[0] {
	case "get":
		err = s.get(args[1:])
	case "update":
		err = s.update(args[1:])
	case "scan":
		err = s.scan(args[1:])
	case "large":
		err = s.large(args[1:])
	case "report":
		err = s.report()
	case "sql":
		err = s.sql(strings.TrimSpace(strings.TrimPrefix(line, "sql")))
	case "exit", "quit":
		return
	default:
		err = fmt.Errorf("unknown command %q", args[0])
	}

	if err != nil {
		fmt.Printf("error: %v\n", err)
	}
}

func (s *Shell) naturalKey(args []string) (int, string, error) {
	if len(args) < 2 {
		return 0, "", fmt.Errorf("need <order> <product>")
	}
	orderNumber, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, "", fmt.Errorf("bad order number %q", args[0])
	}
	return orderNumber, args[1], nil
}

func (s *Shell) get(args []string) error {
	orderNumber, productCode, err := s.naturalKey(args)
	if err != nil {
		return err
	}
	row, err := s.queries.Get(s.ctx, orderNumber, productCode)
	if sgerrors.IsNotFound(err) {
		fmt.Println("(not found)")
		return nil
	}
	if err != nil {
		return err
	}
	printRow(row)
	return nil
}

func (s *Shell) update(args []string) error {
	orderNumber, productCode, err := s.naturalKey(args)
	if err != nil {
		return err
	}
	if len(args) < 4 {
		return fmt.Errorf("need <order> <product> <family:qualifier> <value>")
	}
	fam, qual, ok := strings.Cut(args[2], ":")
	if !ok {
		return fmt.Errorf("%q is not of the form family:qualifier", args[2])
	}
	value := strings.Join(args[3:], " ")

	err = s.queries.Update(s.ctx, orderNumber, productCode,
		map[string]map[string]string{fam: {qual: value}})
	if err != nil {
		return err
	}
	fmt.Println("updated")
	return nil
}

func (s *Shell) scan(args []string) error {
	opts := store.ScanOptions{}
	limit := 20

	for _, arg := range args {
		if n, err := strconv.Atoi(arg); err == nil {
			limit = n
			continue
		}
		col, value, ok := strings.Cut(arg, "=")
		if !ok {
			return fmt.Errorf("bad argument %q", arg)
		}
		fam, qual, ok := strings.Cut(col, ":")
		if !ok {
			return fmt.Errorf("%q is not of the form family:qualifier", col)
		}
		opts.Predicate = store.Equals(fam, qual, value)
	}

	it, err := s.queries.Scan(s.ctx, opts)
	if err != nil {
		return err
	}
	defer it.Close()

	shown := 0
	for shown < limit {
		row, err := it.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		printRow(row)
		shown++
	}
	fmt.Printf("(%d rows shown)\n", shown)
	return nil
}

func (s *Shell) large(args []string) error {
	country := s.country
	threshold := s.threshold
	if len(args) > 0 {
		country = args[0]
	}
	if len(args) > 1 {
		v, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("bad threshold %q", args[1])
		}
		threshold = v
	}

	sales, err := s.queries.LargeSalesByCountry(s.ctx, country, threshold)
	if err != nil {
		return err
	}
	s.renderer.LargeSales(country, threshold, sales)
	return nil
}

func (s *Shell) report() error {
	it, err := s.queries.Scan(s.ctx, store.ScanOptions{})
	if err != nil {
		return err
	}
	defer it.Close()

	metrics, err := analysis.Summarize(s.ctx, it)
	if err != nil {
		return err
	}
	s.renderer.Metrics(metrics, s.topN)
	return nil
}

func (s *Shell) sql(q string) error {
	if s.offline == nil {
		return fmt.Errorf("no snapshot exported; run with export enabled")
	}
	if q == "" {
		return fmt.Errorf("need a query")
	}
	rows, err := s.offline.ExecuteSQL(s.ctx, q)
	if err != nil {
		return err
	}
	for _, row := range rows {
		cols := make([]string, 0, len(row))
		for k := range row {
			cols = append(cols, k)
		}
		sort.Strings(cols)
		parts := make([]string, 0, len(cols))
		for _, c := range cols {
			parts = append(parts, fmt.Sprintf("%s=%v", c, row[c]))
		}
		fmt.Println(strings.Join(parts, " "))
	}
	fmt.Printf("(%d rows)\n", len(rows))
	return nil
}

func printRow(row *store.StoredRow) {
	fmt.Printf("%s\n", row.Key)
	fams := make([]string, 0, len(row.Families))
	for f := range row.Families {
		fams = append(fams, f)
	}
	sort.Strings(fams)
	for _, f := range fams {
		quals := make([]string, 0, len(row.Families[f]))
		for q := range row.Families[f] {
			quals = append(quals, q)
		}
		sort.Strings(quals)
		for _, q := range quals {
			fmt.Printf("  %s:%s = %s\n", f, q, row.Families[f][q])
		}
	}
}
