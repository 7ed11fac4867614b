// Package agents holds the simulated population: workers, firms and training
// programs. Every cross reference between agents is an integer ID resolved
// through the owning Population; no agent holds a pointer to another.
package agents

import "fmt"

// NoFirm and NoProgram are the null values of EmployerID and ProgramID.
const (
	NoFirm    = -1
	NoProgram = -1
)

type Status int

const (
	Employed Status = iota
	Unemployed
	Retraining
	OutOfLaborForce
	NumStatuses
)

var statusNames = [NumStatuses]string{"employed", "unemployed", "retraining", "out_of_labor_force"}

func (s Status) String() string {
	if s < 0 || s >= NumStatuses {
		return fmt.Sprintf("status(%d)", int(s))
	}
	return statusNames[s]
}

func (s Status) Valid() bool { return s >= 0 && s < NumStatuses }

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Status) UnmarshalText(b []byte) error {
	for i, n := range statusNames {
		if n == string(b) {
			*s = Status(i)
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", string(b))
}

// Population is the arena that owns every agent of a run. IDs are slice
// indexes and never change after initialization.
type Population struct {
	Workers  []*Worker
	Firms    []*Firm
	Programs []*Program

	postingSeq int
}

func (p *Population) Worker(id int) *Worker {
	if id < 0 || id >= len(p.Workers) {
		return nil
	}
	return p.Workers[id]
}

func (p *Population) Firm(id int) *Firm {
	if id < 0 || id >= len(p.Firms) {
		return nil
	}
	return p.Firms[id]
}

func (p *Population) Program(id int) *Program {
	if id < 0 || id >= len(p.Programs) {
		return nil
	}
	return p.Programs[id]
}

// AddWorker appends w and assigns its ID.
func (p *Population) AddWorker(w *Worker) *Worker {
	w.ID = len(p.Workers)
	p.Workers = append(p.Workers, w)
	return w
}

func (p *Population) AddFirm(f *Firm) *Firm {
	f.ID = len(p.Firms)
	p.Firms = append(p.Firms, f)
	return f
}

func (p *Population) AddProgram(pr *Program) *Program {
	pr.ID = len(p.Programs)
	p.Programs = append(p.Programs, pr)
	return pr
}

func (p *Population) nextPostingID() int {
	p.postingSeq++
	return p.postingSeq
}

// StatusCounts tallies workers per status. Workers with an undefined status
// are counted in the returned invalid total.
func (p *Population) StatusCounts() (counts [NumStatuses]int, invalid int) {
	for _, w := range p.Workers {
		if !w.Status.Valid() {
			invalid++
			continue
		}
		counts[w.Status]++
	}
	return counts, invalid
}

// OpenPostings returns every unfilled posting, firm order then posting order.
func (p *Population) OpenPostings() []*Posting {
	var out []*Posting
	for _, f := range p.Firms {
		for _, jp := range f.Postings {
			if !jp.Filled {
				out = append(out, jp)
			}
		}
	}
	return out
}

// Employ moves w into firm f at the given wage. A worker already employed
// elsewhere leaves that employer first.
func (p *Population) Employ(w *Worker, f *Firm, occupationID, industry string, wage float64) {
	if w.EmployerID != NoFirm && w.EmployerID != f.ID {
		if old := p.Firm(w.EmployerID); old != nil {
			old.removeEmployee(w.ID)
		}
	}
	if w.EmployerID != f.ID {
		f.Employees = append(f.Employees, w.ID)
		w.Tenure = 0
	}
	w.Status = Employed
	w.EmployerID = f.ID
	w.OccupationID = occupationID
	w.Industry = industry
	w.Wage = wage
	w.ReservationWage = wage
	w.UnemployedMonths = 0
	w.Searching = false
	w.MarkedForLayoff = false
	w.WageSubsidy = 0
	w.WantsRetraining = false
}

// Separate ends w's employment. The caller chooses the resulting status.
func (p *Population) Separate(w *Worker, status Status) {
	if f := p.Firm(w.EmployerID); f != nil {
		f.removeEmployee(w.ID)
		f.cancelLayoff(w.ID)
	}
	w.EmployerID = NoFirm
	w.Status = status
	w.Tenure = 0
	w.MarkedForLayoff = false
	w.WageSubsidy = 0
	if status == Unemployed {
		w.UnemployedMonths = 0
		w.Searching = true
		if w.Wage > 0 {
			w.ReservationWage = w.Wage * 0.9
		}
	}
	w.Wage = 0
}
