/*
conflict.go - Interval overlap detection

PURPOSE:
  Pure same-day overlap detection between a candidate interval and a
  worker's existing intervals. This is the gate in front of every
  interval create and edit: any conflict refuses the write.

OVERLAP SEMANTICS:
  Bounds are half-open minute ranges [start, end) on one calendar day.
  Two ranges overlap iff ns < ee && es < ne. An interval ending exactly
  when another begins does NOT overlap — touching is allowed.

DIAGNOSTIC CASES:
  The single intersection test is enough to decide, but callers render a
  precise diagnostic, so each conflict also records which of four cases
  fired:
    starts_inside     candidate start lies inside the existing range
    ends_inside       candidate end lies inside the existing range
    contains_existing candidate fully covers the existing range
    inside_existing   existing fully covers the candidate

REJECTED EXEMPTION:
  Rejected intervals are invisible to conflict checks. A worker may book
  over a rejected claim freely.

SEE ALSO:
  - interval.go: the create/edit services that call FindConflicts
  - store/sqlite: runs this check inside the insert transaction
*/
package core

// OverlapKind names one of the four user-facing overlap diagnostics.
type OverlapKind string

const (
	OverlapStartsInside     OverlapKind = "starts_inside"
	OverlapEndsInside       OverlapKind = "ends_inside"
	OverlapContainsExisting OverlapKind = "contains_existing"
	OverlapInsideExisting   OverlapKind = "inside_existing"
)

// Candidate is the interval being created or edited, reduced to the
// fields conflict detection needs. ExcludeID removes the interval's own
// prior version from the comparison set on edit.
type Candidate struct {
	Date      Day
	Start     MinuteOfDay
	End       MinuteOfDay
	ExcludeID string
}

// Conflict describes one existing interval the candidate overlaps.
type Conflict struct {
	IntervalID string
	Start      MinuteOfDay
	End        MinuteOfDay

	OverlapStart MinuteOfDay
	OverlapEnd   MinuteOfDay

	Kinds []OverlapKind
}

// OverlapRange renders the overlapping sub-range as HH:MM–HH:MM.
func (c Conflict) OverlapRange() string {
	return c.OverlapStart.String() + "–" + c.OverlapEnd.String()
}

// FindConflicts returns every existing same-day interval the candidate
// overlaps. The existing set is the full set for (owner, date); rejected
// intervals and the excluded id are filtered here so callers can pass
// rows straight from storage. Symmetric: overlap(a,b) == overlap(b,a).
func FindConflicts(cand Candidate, existing []WorkInterval) []Conflict {
	var conflicts []Conflict
	for _, iv := range existing {
		if iv.ID == cand.ExcludeID {
			continue
		}
		if iv.Status == IntervalRejected {
			continue
		}
		if !iv.Date.Equal(cand.Date) {
			continue
		}
		if cand.Start >= iv.End || iv.Start >= cand.End {
			continue // disjoint or merely touching
		}
		conflicts = append(conflicts, Conflict{
			IntervalID:   iv.ID,
			Start:        iv.Start,
			End:          iv.End,
			OverlapStart: maxOfDay(cand.Start, iv.Start),
			OverlapEnd:   minOfDay(cand.End, iv.End),
			Kinds:        overlapKinds(cand.Start, cand.End, iv.Start, iv.End),
		})
	}
	return conflicts
}

// overlapKinds classifies an overlap between candidate [ns, ne) and
// existing [es, ee). More than one case can fire; identical ranges fire
// all four.
func overlapKinds(ns, ne, es, ee MinuteOfDay) []OverlapKind {
	var kinds []OverlapKind
	if ns >= es && ns < ee {
		kinds = append(kinds, OverlapStartsInside)
	}
	if ne > es && ne <= ee {
		kinds = append(kinds, OverlapEndsInside)
	}
	if ns <= es && ne >= ee {
		kinds = append(kinds, OverlapContainsExisting)
	}
	if es <= ns && ee >= ne {
		kinds = append(kinds, OverlapInsideExisting)
	}
	return kinds
}

// NewConflictReport wraps detected conflicts in the error returned to
// callers. Nil when there are no conflicts.
func NewConflictReport(cand Candidate, conflicts []Conflict) *ConflictReport {
	if len(conflicts) == 0 {
		return nil
	}
	report := &ConflictReport{Date: cand.Date, Conflicts: conflicts}
	report.Candidate.Start = cand.Start
	report.Candidate.End = cand.End
	return report
}
