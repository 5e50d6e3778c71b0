// Command send_requests replays rows of the cleaned dataset against a running
// service, then sends a few empty (invalid) requests so both the score
// histogram and the error counter move.
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"flatprice/validation"
)

func main() {
	dataPath := flag.String("data", "./data/clean_data.csv", "cleaned dataset (CSV with header)")
	url := flag.String("url", "http://localhost:1702/predict", "prediction endpoint")
	correct := flag.Int("correct", 5, "number of correct requests")
	wrong := flag.Int("wrong", 2, "number of wrong requests")
	pause := flag.Duration("pause", 5*time.Second, "pause after each wrong request")
	flag.Parse()

	rows, err := loadRows(*dataPath, validation.DefaultSchema())
	if err != nil {
		log.Fatalf("failed to load dataset: %v", err)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))

	n := *correct
	if n > len(rows) {
		n = len(rows)
	}
	for cnt, idx := range rnd.Perm(len(rows))[:n] {
		fmt.Printf("Sending correct request %d/%d...\n", cnt+1, n)
		if err := send(client, *url, rows[idx]); err != nil {
			log.Printf("%v", err)
			break
		}
	}

	fmt.Println()
	for cnt := 0; cnt < *wrong; cnt++ {
		fmt.Printf("Sending wrong request %d/%d...\n", cnt+1, *wrong)
		if err := send(client, *url, map[string]any{}); err != nil {
			log.Printf("%v", err)
			break
		}
		time.Sleep(*pause)
	}
}

func send(client *http.Client, url string, params map[string]any) error {
	body, err := json.Marshal(params)
	if err != nil {
		return err
	}
	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	fmt.Println(strings.TrimSpace(string(payload)))
	return nil
}

// loadRows reads the schema's columns from the CSV at path. Other columns
// are ignored.
func loadRows(path string, schema *validation.Schema) ([]map[string]any, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return readRows(file, schema)
}

func readRows(r io.Reader, schema *validation.Schema) ([]map[string]any, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("dataset is empty")
	}

	header := records[0]
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}
	for _, name := range schema.Names() {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("dataset has no column %q", name)
		}
	}

	rows := make([]map[string]any, 0, len(records)-1)
	for line, record := range records[1:] {
		row := make(map[string]any, schema.Len())
		for _, name := range schema.Names() {
			field, _ := schema.Field(name)
			value, err := parseCell(record[columns[name]], field)
			if err != nil {
				return nil, fmt.Errorf("line %d, column %s: %w", line+2, name, err)
			}
			row[name] = value
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// parseCell converts a CSV cell to the first kind the field accepts.
func parseCell(cell string, field validation.Field) (any, error) {
	cell = strings.TrimSpace(cell)
	switch field.Kinds[0] {
	case validation.KindBool:
		return strconv.ParseBool(cell)
	case validation.KindInt:
		if i, err := strconv.ParseInt(cell, 10, 64); err == nil {
			return i, nil
		}
		// pandas writes integer columns with NaNs as floats ("1979.0").
		f, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, err
		}
		if f != float64(int64(f)) {
			return nil, fmt.Errorf("%q is not an integer", cell)
		}
		return int64(f), nil
	default:
		return strconv.ParseFloat(cell, 64)
	}
}
