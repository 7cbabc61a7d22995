// Package export renders price histories as CSV and PNG charts.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/andygrunwald/fuelprices/internal/models"
)

// WriteCSV writes one row per record: date, price and revision count.
func WriteCSV(w io.Writer, history models.PriceHistory) error {
	writer := csv.NewWriter(w)

	if err := writer.Write([]string{"date", "price", "revisions"}); err != nil {
		return err
	}
	for _, rec := range history.Sorted() {
		row := []string{
			rec.Date.String(),
			rec.Price.StringFixed(2),
			strconv.Itoa(len(rec.PriorRevisions)),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// WritePNG renders the history as a line chart. At least two records are
// required.
func WritePNG(w io.Writer, fuelType models.FuelType, history models.PriceHistory) error {
	sorted := history.Sorted()
	if len(sorted) < 2 {
		return errors.New("chart needs at least two records")
	}

	x := make([]time.Time, len(sorted))
	y := make([]float64, len(sorted))
	for i, rec := range sorted {
		x[i] = rec.Date.In(time.UTC)
		y[i] = rec.Price.InexactFloat64()
	}

	priceFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	graph := chart.Chart{
		Title:  fmt.Sprintf("%s price", fuelType),
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeDateValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "DKK per liter",
			ValueFormatter: priceFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    string(fuelType),
				XValues: x,
				YValues: y,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	return graph.Render(chart.PNG, w)
}

// Downsample keeps at most limit evenly spaced records, always including the
// first and the last.
func Downsample(history models.PriceHistory, limit int) models.PriceHistory {
	if limit <= 0 || len(history) <= limit {
		return history
	}
	if limit == 1 {
		return history[len(history)-1:]
	}

	result := make(models.PriceHistory, 0, limit)
	step := float64(len(history)-1) / float64(limit-1)
	for i := 0; i < limit; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(history) {
			idx = len(history) - 1
		}
		result = append(result, history[idx])
	}
	return result
}

// WriteCSVFile writes the CSV to path, creating parent directories.
func WriteCSVFile(path string, history models.PriceHistory) error {
	return writeFile(path, func(w io.Writer) error {
		return WriteCSV(w, history)
	})
}

// WritePNGFile writes the chart to path, creating parent directories.
func WritePNGFile(path string, fuelType models.FuelType, history models.PriceHistory) error {
	return writeFile(path, func(w io.Writer) error {
		return WritePNG(w, fuelType, history)
	})
}

func writeFile(path string, write func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(file); err != nil {
		file.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return file.Close()
}
