package engine

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"math"
)

// StateDigest hashes every agent field that drives future months, in ID
// order. Two runs with the same scenario and seed produce the same digest
// sequence.
func (s *Simulation) StateDigest() string { return s.digest(s.month) }

func (s *Simulation) digest(month int) string {
	h := sha256.New()
	var tmp [8]byte

	digestWriteI64(h, &tmp, int64(month))
	digestWriteF64(h, &tmp, s.frontier.Level())
	s.digestWorkers(h, &tmp)
	s.digestFirms(h, &tmp)
	s.digestPrograms(h, &tmp)

	return hex.EncodeToString(h.Sum(nil))
}

func (s *Simulation) digestWorkers(h hash.Hash, tmp *[8]byte) {
	digestWriteI64(h, tmp, int64(len(s.pop.Workers)))
	for _, w := range s.pop.Workers {
		digestWriteI64(h, tmp, int64(w.Status))
		digestWriteI64(h, tmp, int64(w.EmployerID))
		digestWriteI64(h, tmp, int64(w.ProgramID))
		digestWriteI64(h, tmp, int64(w.Age))
		digestWriteI64(h, tmp, int64(w.UnemployedMonths))
		digestWriteF64(h, tmp, w.Wage)
		digestWriteF64(h, tmp, w.Savings)
		digestWriteF64(h, tmp, w.ReservationWage)
		digestWriteF64(h, tmp, w.InfoLevel)
		digestWriteF64(h, tmp, w.Anxiety)
		for _, v := range w.Skills {
			digestWriteF64(h, tmp, v)
		}
		for _, v := range w.PolicySupport {
			digestWriteF64(h, tmp, v)
		}
		h.Write([]byte{boolByte(w.Searching), boolByte(w.MarkedForLayoff)})
	}
}

func (s *Simulation) digestFirms(h hash.Hash, tmp *[8]byte) {
	digestWriteI64(h, tmp, int64(len(s.pop.Firms)))
	for _, f := range s.pop.Firms {
		digestWriteI64(h, tmp, int64(f.AIStatus))
		digestWriteI64(h, tmp, int64(f.StageMonths))
		digestWriteI64(h, tmp, int64(f.TargetHeadcount))
		digestWriteF64(h, tmp, f.Automation)
		digestWriteI64(h, tmp, int64(len(f.Employees)))
		for _, id := range f.Employees {
			digestWriteI64(h, tmp, int64(id))
		}
		digestWriteI64(h, tmp, int64(len(f.PlannedLayoffs)))
	}
}

func (s *Simulation) digestPrograms(h hash.Hash, tmp *[8]byte) {
	digestWriteI64(h, tmp, int64(len(s.pop.Programs)))
	for _, p := range s.pop.Programs {
		digestWriteI64(h, tmp, int64(p.MaxEnrollment))
		digestWriteI64(h, tmp, int64(len(p.Waitlist)))
		for _, e := range p.Students {
			digestWriteI64(h, tmp, int64(e.WorkerID))
			digestWriteI64(h, tmp, int64(e.MonthsDone))
		}
		digestWriteF64(h, tmp, p.CompletionRate)
	}
}

func digestWriteU64(h hash.Hash, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestWriteI64(h hash.Hash, tmp *[8]byte, v int64) {
	digestWriteU64(h, tmp, uint64(v))
}

func digestWriteF64(h hash.Hash, tmp *[8]byte, v float64) {
	digestWriteU64(h, tmp, math.Float64bits(v))
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
