package backup

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"machine-service-backend/internal/model"
)

func TestParseValidation(t *testing.T) {
	testCases := []struct {
		name      string
		payload   string
		expectErr bool
	}{
		{name: "valid empty", payload: `{"machines":{},"lastUpdated":"2024-05-01T10:00:00Z"}`},
		{name: "missing machines", payload: `{"lastUpdated":"2024-05-01T10:00:00Z"}`, expectErr: true},
		{name: "missing lastUpdated", payload: `{"machines":{}}`, expectErr: true},
		{name: "not json", payload: `machines`, expectErr: true},
		{name: "array", payload: `[]`, expectErr: true},
		{name: "wrong machines type", payload: `{"machines":[],"lastUpdated":"2024-05-01T10:00:00Z"}`, expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			doc, err := Parse([]byte(tc.payload))
			if tc.expectErr {
				assert.ErrorIs(t, err, ErrInvalidDocument)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, doc.Machines)
		})
	}
}

func TestDecodeOriginalLayout(t *testing.T) {
	payload := `{
  "machines": {
    "BC001": {
      "barcodeId": "BC001",
      "currentWorkstation": null,
      "completedWorkstations": [1],
      "records": [{
        "barcodeId": "BC001",
        "operator": {"name": "Ashoka", "epf": "2258"},
        "workstation": 1,
        "checkinTime": "2024-05-01T08:00:00.000Z",
        "checkoutTime": "2024-05-01T08:30:00.000Z",
        "waitTime": 900000,
        "tasksCompleted": ["ws1_task1"],
        "totalTasks": 11
      }],
      "startTime": "2024-05-01T08:00:00.000Z",
      "endTime": null
    }
  },
  "lastUpdated": "2024-05-01T09:00:00.000Z"
}`

	doc, err := Decode(strings.NewReader(payload))
	require.NoError(t, err)
	require.Contains(t, doc.Machines, "BC001")

	journey := doc.Machines["BC001"]
	assert.Nil(t, journey.CurrentWorkstation)
	assert.Equal(t, []int{1}, journey.CompletedWorkstations)
	require.Len(t, journey.Records, 1)
	assert.Equal(t, "2258", journey.Records[0].Operator.EPF)
	assert.Equal(t, 15*time.Minute, *journey.Records[0].Wait())
	assert.Equal(t, 30*time.Minute, journey.Records[0].ProcessingTime())
}

func TestEncodeDecode(t *testing.T) {
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	ws := 2
	doc := New(now)
	doc.Machines["BC002"] = &model.MachineJourney{
		BarcodeID:             "BC002",
		CurrentWorkstation:    &ws,
		CompletedWorkstations: []int{1},
		StartTime:             now,
		Records: []model.MachineRecord{
			{ID: "r1", BarcodeID: "BC002", Workstation: 2, CheckinTime: now, TasksCompleted: []string{}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, doc))
	assert.Contains(t, buf.String(), `"lastUpdated"`)

	decoded, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, doc.LastUpdated, decoded.LastUpdated)
	assert.Equal(t, 2, *decoded.Machines["BC002"].CurrentWorkstation)
	assert.Equal(t, "r1", decoded.Machines["BC002"].Records[0].ID)
}
