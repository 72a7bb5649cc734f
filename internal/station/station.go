package station

// Count is the number of service workstations a machine passes through.
const Count = 6

// FinalStation is the station whose check-out completes a machine's service.
const FinalStation = Count

// Task is one checklist item at a workstation.
type Task struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

// Workstation is the static configuration of one service station.
type Workstation struct {
	Number int    `json:"stationNumber"`
	Name   string `json:"stationName"`
	Tasks  []Task `json:"tasks"`
}

var workstations = []Workstation{
	{
		Number: 1,
		Name:   "Initial Inspection",
		Tasks: []Task{
			{ID: "ws1_task1", Description: "Check task light"},
			{ID: "ws1_task2", Description: "Check plug top"},
			{ID: "ws1_task3", Description: "Check wire sleeving"},
			{ID: "ws1_task4", Description: "Check switch"},
			{ID: "ws1_task5", Description: "Check ACCU 10 & Other feeder"},
			{ID: "ws1_task6", Description: "Check bobbin winder condition"},
			{ID: "ws1_task7", Description: "Check all function & standard"},
			{ID: "ws1_task8", Description: "Check air leakage & Pneumatic"},
			{ID: "ws1_task9", Description: "Check control box & electronics"},
			{ID: "ws1_task10", Description: "Check painting condition"},
			{ID: "ws1_task11", Description: "Check oil condition"},
		},
	},
	{
		Number: 2,
		Name:   "External Parts Service",
		Tasks: []Task{
			{ID: "ws2_task1", Description: "Change caster wheel"},
			{ID: "ws2_task2", Description: "Clean caster wheel"},
			{ID: "ws2_task3", Description: "Remove thread stand"},
			{ID: "ws2_task4", Description: "Adjust stand height"},
			{ID: "ws2_task5", Description: "Change machine stand"},
			{ID: "ws2_task6", Description: "Paddle change"},
		},
	},
	{
		Number: 3,
		Name:   "Disassembly",
		Tasks: []Task{
			{ID: "ws3_task1", Description: "Remove synchronizer"},
			{ID: "ws3_task2", Description: "Remove wires"},
			{ID: "ws3_task3", Description: "Remove air tube"},
			{ID: "ws3_task4", Description: "Remove dust hose"},
			{ID: "ws3_task5", Description: "Remove machine head"},
			{ID: "ws3_task6", Description: "Remove covers"},
			{ID: "ws3_task7", Description: "Remove attachment & parts"},
			{ID: "ws3_task8", Description: "Change oil filter"},
			{ID: "ws3_task9", Description: "Clean oil filter"},
			{ID: "ws3_task10", Description: "Remove silicon cup"},
			{ID: "ws3_task11", Description: "Remove belt cover"},
			{ID: "ws3_task12", Description: "Remove hand wheel"},
		},
	},
	{
		Number: 4,
		Name:   "Cleaning",
		Tasks: []Task{
			{ID: "ws4_task1", Description: "Clean machine head inside"},
			{ID: "ws4_task2", Description: "Remove oil"},
			{ID: "ws4_task3", Description: "Clean thread cam"},
			{ID: "ws4_task4", Description: "Clean tension post"},
			{ID: "ws4_task5", Description: "Clean thread take-up"},
			{ID: "ws4_task6", Description: "Clean thread eyelet"},
			{ID: "ws4_task7", Description: "Clean wires"},
			{ID: "ws4_task8", Description: "Clean motor cover & control box"},
			{ID: "ws4_task9", Description: "Clean silicon cup"},
			{ID: "ws4_task10", Description: "Clean table top"},
			{ID: "ws4_task11", Description: "Clean machine head outside"},
			{ID: "ws4_task12", Description: "Touch up damaged paint areas"},
		},
	},
	{
		Number: 5,
		Name:   "Reassembly",
		Tasks: []Task{
			{ID: "ws5_task1", Description: "Fix thread take-up"},
			{ID: "ws5_task2", Description: "Fix tension post"},
			{ID: "ws5_task3", Description: "Fix hand wheel"},
			{ID: "ws5_task4", Description: "Fix synchronizer"},
			{ID: "ws5_task5", Description: "Fix belt cover"},
			{ID: "ws5_task6", Description: "Fix thread stand"},
			{ID: "ws5_task7", Description: "Fix needle plate"},
			{ID: "ws5_task8", Description: "Fix covers"},
			{ID: "ws5_task9", Description: "Fix oil or condition"},
			{ID: "ws5_task10", Description: "Fix eye guard"},
			{ID: "ws5_task11", Description: "Fix finger guard"},
			{ID: "ws5_task12", Description: "Fix thread eyelet"},
			{ID: "ws5_task13", Description: "Fix pressure foot"},
		},
	},
	{
		Number: 6,
		Name:   "Final Inspection",
		Tasks: []Task{
			{ID: "ws6_task1", Description: "Make or correct wire condition"},
			{ID: "ws6_task2", Description: "Make or correct pneumatic condition"},
			{ID: "ws6_task3", Description: "Replace dust bag"},
			{ID: "ws6_task4", Description: "Attach main wire clip"},
			{ID: "ws6_task5", Description: "Recheck all function & standards"},
			{ID: "ws6_task6", Description: "Paste service sticker"},
			{ID: "ws6_task7", Description: "Paste safety sticker"},
		},
	},
}

// All returns a copy of every workstation in service order.
func All() []Workstation {
	out := make([]Workstation, len(workstations))
	for i, ws := range workstations {
		out[i] = ws
		out[i].Tasks = append([]Task(nil), ws.Tasks...)
	}
	return out
}

// Valid reports whether n names a workstation.
func Valid(n int) bool {
	return n >= 1 && n <= Count
}

// Get returns the workstation numbered n.
func Get(n int) (Workstation, bool) {
	if !Valid(n) {
		return Workstation{}, false
	}
	ws := workstations[n-1]
	ws.Tasks = append([]Task(nil), ws.Tasks...)
	return ws, true
}

// Name returns the display name of station n, or an empty string.
func Name(n int) string {
	if !Valid(n) {
		return ""
	}
	return workstations[n-1].Name
}

// TaskIDs returns the task identifiers of station n in checklist order.
func TaskIDs(n int) []string {
	if !Valid(n) {
		return nil
	}
	ids := make([]string, len(workstations[n-1].Tasks))
	for i, t := range workstations[n-1].Tasks {
		ids[i] = t.ID
	}
	return ids
}

// Next returns the station after n, and false when n is the final station.
func Next(n int) (int, bool) {
	if !Valid(n) || n == FinalStation {
		return 0, false
	}
	return n + 1, true
}
