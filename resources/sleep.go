package resources

import (
	"context"
	"time"

	runeq "github.com/runelabs/runeq-go"
	"github.com/runelabs/runeq-go/ident"
)

// The Strive API caps each sleep metrics query at 30 days; longer ranges are
// split into consecutive chunks.
const maxSleepChunkDays = 30

// GetSleepMetrics fetches HealthKit sleep metrics for a patient between two
// dates, both inclusive. The range is queried in 30-day chunks; the time of
// day on either bound is ignored.
func GetSleepMetrics(ctx context.Context, c *runeq.Client, patientID string, startDate, endDate time.Time) ([]map[string]any, error) {
	sc, err := striveFor(c)
	if err != nil {
		return nil, err
	}
	id, err := ident.Parse(patientID, TypePatient.Name)
	if err != nil {
		return nil, err
	}

	var all []map[string]any
	chunkStart := startDate
	for !chunkStart.After(endDate) {
		chunkEnd := chunkStart.AddDate(0, 0, maxSleepChunkDays)
		if chunkEnd.After(endDate) {
			chunkEnd = endDate
		}

		body, err := sc.GetJSON(ctx, "/api/v3/sleep_metrics", map[string]string{
			"patient_id": id.Unqualified(),
			"start_date": chunkStart.Format("2006-01-02"),
			"end_date":   chunkEnd.Format("2006-01-02"),
		})
		if err != nil {
			return nil, err
		}

		data, _ := body["data"].(map[string]any)
		metrics, _ := data["sleep_metrics_healthkit"].([]any)
		for _, m := range metrics {
			if rec, ok := m.(map[string]any); ok {
				all = append(all, rec)
			}
		}

		chunkStart = chunkEnd.AddDate(0, 0, 1)
	}
	return all, nil
}
