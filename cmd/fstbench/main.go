package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/ZaninAndrea/fstable/pkg/fstable"
)

func main() {
	log.SetFlags(0)

	rows := flag.Int("rows", 1_000_000, "number of rows in the generated table")
	dir := flag.String("dir", "./tmp/bench", "directory for the generated files")
	flag.Parse()

	if err := os.MkdirAll(*dir, 0755); err != nil {
		log.Fatal(err)
	}

	table := generate(*rows)
	rawBytes := int64(*rows) * (4 + 8 + 4 + 10)

	log.Printf("table: %d rows, ~%d MB raw", *rows, rawBytes/(1<<20))

	for _, level := range []int{0, 25, 50, 75, 100} {
		path := filepath.Join(*dir, fmt.Sprintf("bench_%d.fst", level))

		start := time.Now()
		if err := fstable.Write(path, table, level); err != nil {
			log.Fatal(err)
		}
		writeTime := time.Since(start)

		info, err := os.Stat(path)
		if err != nil {
			log.Fatal(err)
		}

		start = time.Now()
		if _, err := fstable.Read(path, nil, 1, 0); err != nil {
			log.Fatal(err)
		}
		readTime := time.Since(start)

		log.Printf("level %3d: %8.2f MB  write %6.0f MB/s  read %6.0f MB/s",
			level,
			float64(info.Size())/(1<<20),
			float64(rawBytes)/(1<<20)/writeTime.Seconds(),
			float64(rawBytes)/(1<<20)/readTime.Seconds())
	}
}

func generate(rows int) *fstable.Table {
	rnd := rand.New(rand.NewSource(1))

	ints := make([]int32, rows)
	doubles := make([]float64, rows)
	logicals := make([]int32, rows)
	labels := make([]string, rows)

	hosts := make([]string, 100)
	for i := range hosts {
		hosts[i] = fmt.Sprintf("server%d", i)
	}

	for i := 0; i < rows; i++ {
		ints[i] = int32(i)
		doubles[i] = rnd.NormFloat64()*10 + 100
		logicals[i] = int32(i % 2)
		labels[i] = hosts[rnd.Intn(len(hosts))]
	}

	return &fstable.Table{
		Columns: []fstable.Column{
			{Name: "ts", Data: fstable.IntegerData(ints)},
			{Name: "value", Data: fstable.DoubleData(doubles)},
			{Name: "flag", Data: fstable.LogicalData(logicals)},
			{Name: "host", Data: fstable.CharacterData{Values: labels}},
		},
		Keys: []string{"ts"},
	}
}
