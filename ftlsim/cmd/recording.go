package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sarchlab/ftlsim/datarecording"
	"github.com/sarchlab/ftlsim/ssd"
)

// openRecording opens a database written by run --record. The .sqlite3
// suffix may be left out.
func openRecording(path string) (datarecording.DataReader, error) {
	if _, err := os.Stat(path); err != nil {
		if strings.HasSuffix(path, ".sqlite3") {
			return nil, err
		}

		path += ".sqlite3"
		if _, err := os.Stat(path); err != nil {
			return nil, err
		}
	}

	reader, err := datarecording.NewReader(path)
	if err != nil {
		return nil, err
	}

	reader.MapTable(ssd.StatsTable, ssd.StatsEntry{})
	reader.MapTable(ssd.MergeTable, ssd.MergeEntry{})
	reader.MapTable(ssd.BlockTable, ssd.BlockEntry{})

	return reader, nil
}

// printRecording prints the counters, the latest merges, and the most worn
// blocks of a recorded run.
func printRecording(
	ctx context.Context,
	w io.Writer,
	reader datarecording.DataReader,
	limit int,
) error {
	stats, _, err := reader.Query(ctx, ssd.StatsTable,
		datarecording.QueryParams{OrderBy: "rowid"})
	if err != nil {
		return err
	}

	var pairs [][2]string
	for _, row := range stats {
		e := row.(*ssd.StatsEntry)
		pairs = append(pairs, [2]string{e.Name, formatFloat(e.Value)})
	}

	printPairs(w, pairs)

	merges, total, err := reader.Query(ctx, ssd.MergeTable,
		datarecording.QueryParams{OrderBy: "Time DESC", Limit: limit})
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(merges))
	for _, row := range merges {
		e := row.(*ssd.MergeEntry)
		rows = append(rows, []string{
			formatFloat(e.Time), e.Result, e.Kind, fmt.Sprint(e.Forced),
			fmt.Sprint(e.DataBlock), fmt.Sprint(e.LogBlock),
			fmt.Sprintf("%d->%d", e.From, e.To),
			fmt.Sprint(e.PagesCopied), fmt.Sprint(e.Erases),
		})
	}

	fmt.Fprintf(w, "\n%d merges, latest %d:\n", total, len(rows))
	printTable(w, []string{"Time", "Result", "Kind", "Forced", "Data",
		"Log", "Moved", "Copied", "Erases"}, rows)

	blocks, _, err := reader.Query(ctx, ssd.BlockTable,
		datarecording.QueryParams{
			OrderBy: "EraseCount DESC, Block",
			Limit:   limit,
		})
	if err != nil {
		return err
	}

	rows = make([][]string, 0, len(blocks))
	for _, row := range blocks {
		e := row.(*ssd.BlockEntry)
		rows = append(rows, []string{
			fmt.Sprint(e.Block), e.State, fmt.Sprint(e.EraseCount),
		})
	}

	fmt.Fprintln(w)
	printTable(w, []string{"Block", "State", "Erases"}, rows)

	return nil
}
