package export

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andygrunwald/fuelprices/internal/models"
)

func history(n int) models.PriceHistory {
	start := models.NewDay(2022, time.March, 1)
	h := models.PriceHistory{}
	for i := n - 1; i >= 0; i-- {
		h = append(h, models.PriceRecord{
			Date:  start.AddDays(i),
			Price: decimal.NewFromFloat(14.5).Add(decimal.NewFromFloat(0.1).Mul(decimal.NewFromInt(int64(i)))),
		})
	}
	return h
}

func TestWriteCSV(t *testing.T) {
	h := history(2)
	h[1].PriorRevisions = []models.Revision{{Price: decimal.NewFromInt(14)}}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, h))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "date,price,revisions", lines[0])
	assert.Equal(t, "2022-03-01,14.50,1", lines[1])
	assert.Equal(t, "2022-03-02,14.60,0", lines[2])
}

func TestWritePNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePNG(&buf, models.FuelTypeDiesel, history(10)))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))

	assert.Error(t, WritePNG(&buf, models.FuelTypeDiesel, history(1)))
}

func TestDownsample(t *testing.T) {
	h := history(100).Sorted()
	out := Downsample(h, 10)
	require.Len(t, out, 10)
	assert.Equal(t, h[0].Date, out[0].Date)
	assert.Equal(t, h[99].Date, out[9].Date)

	assert.Len(t, Downsample(h, 0), 100)
	assert.Len(t, Downsample(h, 200), 100)
	assert.Equal(t, h[99].Date, Downsample(h, 1)[0].Date)
}

func TestWriteFiles(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "out", "prices.csv")
	pngPath := filepath.Join(dir, "out", "prices.png")

	require.NoError(t, WriteCSVFile(csvPath, history(5)))
	require.NoError(t, WritePNGFile(pngPath, models.FuelTypeUnleaded95, history(5)))

	for _, p := range []string{csvPath, pngPath} {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
}
