package export

import (
	"fmt"
	"math"
	"sort"
	"time"

	"machine-service-backend/internal/model"
	"machine-service-backend/internal/station"
)

const (
	dateLayout     = "2006-01-02"
	timeLayout     = "15:04:05"
	dateTimeLayout = dateLayout + " " + timeLayout

	inProgress = "In progress"
)

// Sheet is one tab of the report: a header row and data rows. Cells are
// strings or ints so that counts stay numeric in the workbook.
type Sheet struct {
	Name    string
	Headers []string
	Rows    [][]any
}

// Formatter renders journeys into report sheets.
type Formatter struct {
	// Location is used for every displayed timestamp. Defaults to UTC.
	Location *time.Location
	// Now dates the final-status row of unfinished machines. Defaults to time.Now.
	Now func() time.Time
}

// NewFormatter returns a formatter showing times in loc.
func NewFormatter(loc *time.Location) *Formatter {
	if loc == nil {
		loc = time.UTC
	}
	return &Formatter{Location: loc, Now: time.Now}
}

func (f *Formatter) loc() *time.Location {
	if f.Location == nil {
		return time.UTC
	}
	return f.Location
}

func (f *Formatter) now() time.Time {
	if f.Now == nil {
		return time.Now()
	}
	return f.Now()
}

func (f *Formatter) dateTime(t time.Time) string {
	return t.In(f.loc()).Format(dateTimeLayout)
}

// FormatDuration renders d as "Hh Mm Ss", truncating each unit.
func FormatDuration(d time.Duration) string {
	d = d.Truncate(time.Second)
	hours := int64(d / time.Hour)
	minutes := int64(d % time.Hour / time.Minute)
	seconds := int64(d % time.Minute / time.Second)
	return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
}

// FormatWait renders a wait estimate in whole minutes.
func FormatWait(d *time.Duration) string {
	if d == nil || *d <= 0 {
		return "No wait"
	}
	return fmt.Sprintf("%d minutes", int64(*d/time.Minute))
}

func roundMinutes(d time.Duration) int {
	return int(math.Round(d.Minutes()))
}

func operatorLabel(op model.OperatorRef) string {
	return fmt.Sprintf("%s (%s)", op.Name, op.EPF)
}

// Summary has one row per machine.
func (f *Formatter) Summary(journeys []*model.MachineJourney) Sheet {
	sheet := Sheet{
		Name: "Summary",
		Headers: []string{
			"Barcode ID", "Start Time", "End Time", "Total Duration", "Total Wait Time",
			"Completed Workstations", "Progress", "Current Workstation", "Status",
		},
	}
	for _, j := range journeys {
		endTime, duration, status := inProgress, inProgress, "In Progress"
		if j.EndTime != nil {
			endTime = f.dateTime(*j.EndTime)
			duration = FormatDuration(j.Duration())
			status = "Completed"
		}

		wait := j.TotalWait()
		progress := int(math.Round(float64(len(j.CompletedWorkstations)) / float64(station.Count) * 100))

		var current any
		switch {
		case j.CurrentWorkstation != nil:
			current = *j.CurrentWorkstation
		case j.EndTime != nil:
			current = "Completed"
		default:
			current = "Between stations"
		}

		sheet.Rows = append(sheet.Rows, []any{
			j.BarcodeID,
			f.dateTime(j.StartTime),
			endTime,
			duration,
			FormatWait(&wait),
			len(j.CompletedWorkstations),
			fmt.Sprintf("%d%%", progress),
			current,
			status,
		})
	}
	return sheet
}

// Detailed has one row per station visit.
func (f *Formatter) Detailed(journeys []*model.MachineJourney) Sheet {
	sheet := Sheet{
		Name: "Detailed Records",
		Headers: []string{
			"Barcode ID", "Workstation", "Operator Name", "Operator EPF", "Check-in Time",
			"Check-out Time", "Duration", "Processing Time (mins)", "Wait Time",
			"Tasks Completed", "Total Tasks", "Completion Rate",
		},
	}
	for _, j := range journeys {
		for _, r := range j.Records {
			checkout, duration := inProgress, inProgress
			var processing any = "N/A"
			if r.CheckoutTime != nil {
				checkout = f.dateTime(*r.CheckoutTime)
				duration = FormatDuration(r.ProcessingTime())
				processing = roundMinutes(r.ProcessingTime())
			}
			rate := "N/A"
			if r.TotalTasks > 0 {
				rate = fmt.Sprintf("%d%%", int(math.Round(float64(len(r.TasksCompleted))/float64(r.TotalTasks)*100)))
			}
			sheet.Rows = append(sheet.Rows, []any{
				j.BarcodeID,
				r.Workstation,
				r.Operator.Name,
				r.Operator.EPF,
				f.dateTime(r.CheckinTime),
				checkout,
				duration,
				processing,
				FormatWait(r.Wait()),
				len(r.TasksCompleted),
				r.TotalTasks,
				rate,
			})
		}
	}
	return sheet
}

// Tasks has one row per completed task. Visits checked out with nothing
// ticked get a single "None completed" row; open visits are skipped.
func (f *Formatter) Tasks(journeys []*model.MachineJourney) Sheet {
	sheet := Sheet{
		Name:    "Task Completion",
		Headers: []string{"Barcode ID", "Workstation", "Operator", "Task ID", "Task", "Completed On", "Note"},
	}
	descriptions := taskDescriptions()
	for _, j := range journeys {
		for _, r := range j.Records {
			completedOn := inProgress
			if r.CheckoutTime != nil {
				completedOn = f.dateTime(*r.CheckoutTime)
			}
			if len(r.TasksCompleted) == 0 {
				if r.CheckoutTime == nil {
					continue
				}
				sheet.Rows = append(sheet.Rows, []any{
					j.BarcodeID, r.Workstation, operatorLabel(r.Operator), "None completed", "",
					completedOn, "Machine processed with no tasks marked as complete",
				})
				continue
			}
			for _, taskID := range r.TasksCompleted {
				sheet.Rows = append(sheet.Rows, []any{
					j.BarcodeID, r.Workstation, operatorLabel(r.Operator), taskID, descriptions[taskID],
					completedOn, "",
				})
			}
		}
	}
	return sheet
}

// Journey traces each machine station by station and closes with a
// final-status row.
func (f *Formatter) Journey(journeys []*model.MachineJourney) Sheet {
	sheet := Sheet{
		Name: "Machine Journey",
		Headers: []string{
			"Barcode ID", "Journey Step", "Date", "Check-in Time", "Check-out Time",
			"Duration", "Operator", "Tasks Done", "Status",
		},
	}
	loc := f.loc()
	for _, j := range journeys {
		records := append([]model.MachineRecord(nil), j.Records...)
		sort.SliceStable(records, func(a, b int) bool {
			return records[a].Workstation < records[b].Workstation
		})

		for _, r := range records {
			checkin := r.CheckinTime.In(loc)
			checkout, duration, status := inProgress, inProgress, "In Progress"
			if r.CheckoutTime != nil {
				checkout = r.CheckoutTime.In(loc).Format(timeLayout)
				duration = fmt.Sprintf("%d mins", roundMinutes(r.ProcessingTime()))
				status = "Completed"
			}
			sheet.Rows = append(sheet.Rows, []any{
				j.BarcodeID,
				fmt.Sprintf("Workstation %d", r.Workstation),
				checkin.Format(dateLayout),
				checkin.Format(timeLayout),
				checkout,
				duration,
				r.Operator.Name,
				fmt.Sprintf("%d of %d", len(r.TasksCompleted), r.TotalTasks),
				status,
			})
		}

		date := f.now().In(loc).Format(dateLayout)
		checkout, total := "-", "Total: "+inProgress
		status := "At Workstation ?"
		if j.CurrentWorkstation != nil {
			status = fmt.Sprintf("At Workstation %d", *j.CurrentWorkstation)
		}
		if j.EndTime != nil {
			end := j.EndTime.In(loc)
			date = end.Format(dateLayout)
			checkout = end.Format(timeLayout)
			total = fmt.Sprintf("Total: %d mins", roundMinutes(j.Duration()))
			status = "Process Complete"
		}
		sheet.Rows = append(sheet.Rows, []any{
			j.BarcodeID,
			"Final Status",
			date,
			"-",
			checkout,
			total,
			"-",
			fmt.Sprintf("%d of %d workstations", len(j.CompletedWorkstations), station.Count),
			status,
		})
	}
	return sheet
}

// Sheets returns the full report in tab order.
func (f *Formatter) Sheets(journeys []*model.MachineJourney) []Sheet {
	return []Sheet{
		f.Summary(journeys),
		f.Detailed(journeys),
		f.Tasks(journeys),
		f.Journey(journeys),
	}
}

func taskDescriptions() map[string]string {
	out := make(map[string]string)
	for _, ws := range station.All() {
		for _, t := range ws.Tasks {
			out[t.ID] = t.Description
		}
	}
	return out
}
