package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/muelle-planner/platform/pkg/common/logger"
	"github.com/muelle-planner/platform/pkg/planner"
	"github.com/muelle-planner/platform/pkg/query"
	"github.com/muelle-planner/platform/pkg/schema"
	"github.com/muelle-planner/platform/pkg/storage"
	"github.com/muelle-planner/platform/pkg/terminology"
)

func main() {
	var (
		in       string
		format   string
		document bool
		catalog  string
		snapshot string
		outDir   string
		status   string
		search   string
		verbose  bool
	)
	flag.StringVar(&in, "in", "", "table (csv, xlsx, json grid) or board document to import")
	flag.StringVar(&format, "format", "", "table format; guessed from the file name when empty")
	flag.BoolVar(&document, "document", false, "treat the input as a board document instead of a table")
	flag.StringVar(&catalog, "catalog", "", "YAML header catalog")
	flag.StringVar(&snapshot, "snapshot", "", "snapshot file to write, as read by planner-service with SNAPSHOT_BACKEND=file")
	flag.StringVar(&outDir, "out", "", "directory for the json and csv exports")
	flag.StringVar(&status, "status", "all", "records to print: all, pending, accepted, incident")
	flag.StringVar(&search, "q", "", "only print records matching this text")
	flag.BoolVar(&verbose, "v", false, "log to stderr")
	flag.Parse()

	if verbose {
		logger.Log.SetOutput(os.Stderr)
	} else {
		logger.Silence()
	}
	if in == "" {
		fmt.Fprintln(os.Stderr, "-in is required")
		flag.Usage()
		os.Exit(2)
	}

	cat, err := terminology.Load(catalog)
	if err != nil {
		fail("load catalog", err)
	}
	filter, err := query.ParseStatusFilter(status)
	if err != nil {
		fail("status", err)
	}

	opts := planner.Options{Catalog: cat}
	if snapshot != "" {
		opts.Snapshots = storage.NewFileStore(snapshot)
	}
	svc := planner.NewService(opts)

	f, err := os.Open(in)
	if err != nil {
		fail("open input", err)
	}
	defer f.Close()

	ctx := context.Background()
	var summary planner.ImportSummary
	if document {
		summary, err = svc.ImportDocument(ctx, f)
	} else {
		summary, err = svc.ImportFile(ctx, filepath.Base(in), format, f)
	}
	if err != nil {
		fail("import", err)
	}

	fmt.Printf("lado %s: %d records imported", summary.Variant, summary.Imported)
	if summary.HeaderRow > 0 {
		fmt.Printf(" (header on row %d, %d rows skipped)", summary.HeaderRow, summary.Skipped)
	}
	fmt.Println()

	printBoard(svc.View(filter, search))

	if outDir != "" {
		for _, export := range []func(io.Writer) (string, error){svc.ExportDocument, svc.ExportCSV} {
			name, err := writeExport(outDir, export)
			if err != nil {
				fail("export", err)
			}
			fmt.Println("wrote", name)
		}
	}
}

func printBoard(view planner.View) {
	columns := schema.Columns(view.Variant)
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	header := []string{"ID", "STATUS"}
	for _, c := range columns {
		header = append(header, c.Source)
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, rec := range view.Records {
		row := []string{fmt.Sprint(rec.ID), string(rec.Status)}
		for _, c := range columns {
			row = append(row, rec.Value(c.Field))
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	tw.Flush()
	fmt.Printf("total %d  pending %d  accepted %d  incidents %d\n",
		view.Stats.Total, view.Stats.Pending, view.Stats.Accepted, view.Stats.Incidents)
}

// writeExport writes into a temporary file first since the export name is
// only known once the board is encoded.
func writeExport(dir string, export func(io.Writer) (string, error)) (string, error) {
	tmp, err := os.CreateTemp(dir, ".export-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	name, err := export(tmp)
	if err == nil {
		err = tmp.Close()
	} else {
		tmp.Close()
	}
	if err != nil {
		return "", err
	}
	target := filepath.Join(dir, name)
	return target, os.Rename(tmp.Name(), target)
}

func fail(step string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", step, err)
	os.Exit(1)
}
