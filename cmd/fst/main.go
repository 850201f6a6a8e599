package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/ZaninAndrea/fstable/pkg/compression"
	"github.com/ZaninAndrea/fstable/pkg/fstable"
)

const usage = `usage:
  fst meta <file>                      print the table schema
  fst head [-n rows] [-cols a,b] <file>  print the first rows of a selection
  fst verify <file>                    read the full table and report its shape`

func main() {
	log.SetFlags(0)

	if len(os.Args) < 2 {
		log.Fatal(usage)
	}

	switch os.Args[1] {
	case "meta":
		runMeta(os.Args[2:])
	case "head":
		runHead(os.Args[2:])
	case "verify":
		runVerify(os.Args[2:])
	default:
		log.Fatal(usage)
	}
}

func runMeta(args []string) {
	if len(args) != 1 {
		log.Fatal(usage)
	}

	meta, err := fstable.ReadMeta(args[0])
	if err != nil {
		log.Fatal(err)
	}
	warnLegacy(meta.Legacy)

	fmt.Printf("rows:    %d\n", meta.NrOfRows)
	fmt.Printf("columns: %d\n", meta.NrOfCols)
	fmt.Printf("version: %d\n", meta.Version)
	fmt.Printf("chunks:  %d\n", meta.NrOfChunks)
	if len(meta.KeyNames) > 0 {
		fmt.Printf("keys:    %s\n", strings.Join(meta.KeyNames, ", "))
	}
	for i, name := range meta.ColumnNames {
		fmt.Printf("  %-20s %s\n", name, meta.ColumnTypes[i])
	}
}

func runHead(args []string) {
	flags := flag.NewFlagSet("head", flag.ExitOnError)
	rows := flags.Int("n", 10, "number of rows to print")
	cols := flags.String("cols", "", "comma separated column selection")
	flags.Parse(args)

	if flags.NArg() != 1 {
		log.Fatal(usage)
	}

	var selection []string
	if *cols != "" {
		selection = strings.Split(*cols, ",")
	}

	result, err := fstable.Read(flags.Arg(0), selection, 1, *rows)
	if err != nil {
		log.Fatal(err)
	}
	warnLegacy(result.Legacy)

	names := make([]string, len(result.Columns))
	for i, col := range result.Columns {
		names[i] = col.Name
	}
	fmt.Println(strings.Join(names, "\t"))

	if len(result.Columns) == 0 {
		return
	}
	for row := 0; row < result.Columns[0].Data.Len(); row++ {
		cells := make([]string, len(result.Columns))
		for i, col := range result.Columns {
			cells[i] = formatCell(col, row)
		}
		fmt.Println(strings.Join(cells, "\t"))
	}
}

func runVerify(args []string) {
	if len(args) != 1 {
		log.Fatal(usage)
	}

	meta, err := fstable.ReadMeta(args[0])
	if err != nil {
		log.Fatal(err)
	}
	warnLegacy(meta.Legacy)

	result, err := fstable.Read(args[0], nil, 1, 0)
	if err != nil {
		log.Fatalf("table is not fully readable: %v", err)
	}

	for _, col := range result.Columns {
		if col.Data.Len() != meta.NrOfRows {
			log.Fatalf("column %q decoded %d rows, header promises %d", col.Name, col.Data.Len(), meta.NrOfRows)
		}
	}

	stats, err := fstable.Stat(args[0])
	if err != nil {
		log.Fatalf("inspecting block layout: %v", err)
	}
	for _, col := range stats {
		fmt.Printf("  %-20s %-10s %5d blocks  %s\n", col.Name, col.Type, col.NrOfBlocks, formatAlgoCounts(col.AlgoBlocks))
	}

	log.Printf("ok: %d columns x %d rows", meta.NrOfCols, meta.NrOfRows)
}

func formatAlgoCounts(counts map[compression.Algo]int) string {
	ids := make([]compression.Algo, 0, len(counts))
	for algo := range counts {
		ids = append(ids, algo)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	parts := make([]string, len(ids))
	for i, algo := range ids {
		parts[i] = fmt.Sprintf("%s:%d", algo, counts[algo])
	}
	return strings.Join(parts, " ")
}

func formatCell(col fstable.Column, row int) string {
	switch data := col.Data.(type) {
	case fstable.IntegerData:
		if data[row] == fstable.IntNA {
			return "NA"
		}
		return fmt.Sprintf("%d", data[row])
	case fstable.DoubleData:
		if fstable.IsDoubleNA(data[row]) {
			return "NA"
		}
		return fmt.Sprintf("%g", data[row])
	case fstable.LogicalData:
		switch data[row] {
		case fstable.LogicalNA:
			return "NA"
		case 0:
			return "false"
		default:
			return "true"
		}
	case fstable.CharacterData:
		if data.NA != nil && data.NA[row] {
			return "NA"
		}
		return data.Values[row]
	case fstable.FactorData:
		index := data.Indices[row]
		if index == fstable.IntNA || index < 1 || int(index) > len(data.Levels) {
			return "NA"
		}
		return data.Levels[index-1]
	}
	return "?"
}

func warnLegacy(legacy bool) {
	if legacy {
		log.Print("warning: this file uses a deprecated format, please re-write it")
	}
}
