// Package comparison classifies a set of runs into a comparison case and
// holds the grouped tree and report produced for it.
package comparison

import (
	"fmt"

	"greenmetrics/domain/core"
	"greenmetrics/domain/phasestat"
)

// Case is the single axis along which the compared runs differ
type Case string

const (
	CaseRepository    Case = "Repository"
	CaseUsageScenario Case = "Usage Scenario"
	CaseMachine       Case = "Machine"
	CaseCommit        Case = "Commit"
	CaseRepeatedRun   Case = "Repeated Run"
)

// DimensionCounts are the distinct values of each comparison dimension
// across the phase statistics of a run set
type DimensionCounts struct {
	Repos          int `db:"repos" json:"repos"`
	UsageScenarios int `db:"usage_scenarios" json:"usage_scenarios"`
	Machines       int `db:"machines" json:"machines"`
	Commits        int `db:"commits" json:"commits"`
}

func (c DimensionCounts) String() string {
	return fmt.Sprintf("repos=%d usage_scenarios=%d machines=%d commits=%d",
		c.Repos, c.UsageScenarios, c.Machines, c.Commits)
}

// UnsupportedComparisonError names why a dimension tuple has no case
type UnsupportedComparisonError struct {
	Counts DimensionCounts
	Reason string
}

func (e *UnsupportedComparisonError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", core.ErrUnsupportedComparison, e.Reason, e.Counts)
}

func (e *UnsupportedComparisonError) Unwrap() error {
	return core.ErrUnsupportedComparison
}

func unsupported(c DimensionCounts, reason string) (Case, error) {
	return "", &UnsupportedComparisonError{Counts: c, Reason: reason}
}

// Resolve maps a dimension tuple to its comparison case. Only pairwise
// comparisons that differ along one axis are supported:
//
//	repos  scenarios  machines  commits  case
//	2      <=2        1         2        Repository
//	1      2          1         1        Usage Scenario
//	1      1          2         1        Machine
//	1      1          1         >1       Commit
//	1      1          1         1        Repeated Run
//
// Every other tuple is an *UnsupportedComparisonError; the all-zero tuple is
// ErrNoComparisonData.
func Resolve(c DimensionCounts) (Case, error) {
	if c == (DimensionCounts{}) {
		return "", core.ErrNoComparisonData
	}
	switch {
	case c.Repos == 0:
		return unsupported(c, "runs without repository")
	case c.Commits == 0:
		return unsupported(c, "runs without commit hash")
	}

	switch c.Repos {
	case 2:
		switch {
		case c.UsageScenarios > 2:
			return unsupported(c, "3+ usage scenarios for different repos")
		case c.Machines == 2:
			return unsupported(c, "different repos and machines")
		case c.Machines != 1:
			return unsupported(c, "3+ machines and different repos")
		case c.Commits == 2:
			return CaseRepository, nil
		case c.Commits == 1:
			return unsupported(c, "same commit hash for different repos")
		default:
			return unsupported(c, "different repos and multiple commits")
		}

	case 1:
		switch c.UsageScenarios {
		case 2:
			switch {
			case c.Machines == 2:
				return unsupported(c, "different usage scenarios and machines")
			case c.Machines != 1:
				return unsupported(c, "3+ machines per repo")
			case c.Commits == 1:
				return CaseUsageScenario, nil
			default:
				return unsupported(c, "different usage scenarios and commits")
			}
		case 1:
			switch {
			case c.Machines == 2 && c.Commits == 1:
				return CaseMachine, nil
			case c.Machines == 2:
				return unsupported(c, "different machines and commits")
			case c.Machines != 1:
				return unsupported(c, "3+ machines per repo")
			case c.Commits > 1:
				return CaseCommit, nil
			case c.Commits == 1:
				return CaseRepeatedRun, nil
			default:
				return unsupported(c, "runs without commit hash")
			}
		default:
			return unsupported(c, "3+ usage scenarios per repo")
		}

	default:
		return unsupported(c, "multiple repos need a metric filter")
	}
}

// Row is one persisted phase statistic joined with the run dimensions it
// is grouped by
type Row struct {
	Phase             string              `db:"phase"`
	Metric            string              `db:"metric"`
	DetailName        string              `db:"detail_name"`
	Value             float64             `db:"value"`
	Type              phasestat.ValueType `db:"type"`
	MaxValue          *float64            `db:"max_value"`
	Unit              string              `db:"unit"`
	URI               string              `db:"uri"`
	MachineID         int                 `db:"machine_id"`
	UsageScenarioFile string              `db:"usage_scenario_file"`
	CommitHash        string              `db:"commit_hash"`
}

// GroupKey selects the dimension a row is grouped by for case c
func (c Case) GroupKey(r Row) string {
	switch c {
	case CaseRepository:
		return r.URI
	case CaseUsageScenario:
		return r.UsageScenarioFile
	case CaseMachine:
		return fmt.Sprint(r.MachineID)
	default:
		return r.CommitHash
	}
}
