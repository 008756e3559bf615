//go:build ignore

// Generates sample files for trying the viewer:
//
//	go run testdata/generate.go
package main

import (
	"encoding/csv"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/parquet-go/parquet-go"
)

type Order struct {
	ID       int64     `parquet:"id"`
	Customer string    `parquet:"customer"`
	Country  string    `parquet:"country"`
	Status   string    `parquet:"status"`
	Amount   *float64  `parquet:"amount,optional"`
	Express  bool      `parquet:"express"`
	Placed   time.Time `parquet:"placed,timestamp(millisecond)"`
}

const rows = 5000

func main() {
	rng := rand.New(rand.NewSource(1))
	countries := []string{"NO", "SE", "DK", "FI", "DE"}
	statuses := []string{"new", "paid", "shipped", "failed", "refunded"}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	orders := make([]Order, rows)
	for i := range orders {
		o := Order{
			ID:       int64(i + 1),
			Customer: fmt.Sprintf("customer-%04d", rng.Intn(800)),
			Country:  countries[rng.Intn(len(countries))],
			Status:   statuses[rng.Intn(len(statuses))],
			Express:  rng.Intn(4) == 0,
			Placed:   start.Add(time.Duration(rng.Intn(365*24)) * time.Hour),
		}
		if rng.Intn(20) != 0 {
			amount := float64(rng.Intn(100000)) / 100
			o.Amount = &amount
		}
		orders[i] = o
	}

	if err := writeParquet("orders.parquet", orders); err != nil {
		log.Fatal(err)
	}
	if err := writeCSV("orders.csv.gz", orders); err != nil {
		log.Fatal(err)
	}
	log.Printf("Generated orders.parquet and orders.csv.gz with %d orders", rows)
}

func writeParquet(path string, orders []Order) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := parquet.NewGenericWriter[Order](file)
	if _, err := writer.Write(orders); err != nil {
		return err
	}
	return writer.Close()
}

func writeCSV(path string, orders []Order) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	gz := gzip.NewWriter(file)
	w := csv.NewWriter(gz)
	if err := w.Write([]string{"id", "customer", "country", "status", "amount", "express", "placed"}); err != nil {
		return err
	}
	for _, o := range orders {
		amount := ""
		if o.Amount != nil {
			amount = strconv.FormatFloat(*o.Amount, 'f', 2, 64)
		}
		record := []string{
			strconv.FormatInt(o.ID, 10), o.Customer, o.Country, o.Status, amount,
			strconv.FormatBool(o.Express), o.Placed.Format("2006-01-02 15:04:05"),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return gz.Close()
}
