package models

import (
	dErrors "caseflow/pkg/domain-errors"
)

// CaseType classifies an investigation. Immutable after creation.
type CaseType string

const (
	CaseTypeFraud           CaseType = "FRAUD"
	CaseTypeAML             CaseType = "AML"
	CaseTypeSanctions       CaseType = "SANCTIONS"
	CaseTypeKYC             CaseType = "KYC"
	CaseTypeCybersecurity   CaseType = "CYBERSECURITY"
	CaseTypeInsiderTrading  CaseType = "INSIDER_TRADING"
	CaseTypeCompliance      CaseType = "COMPLIANCE"
	CaseTypeOperationalRisk CaseType = "OPERATIONAL_RISK"
)

type caseTypeInfo struct {
	prefix      string
	displayName string
	description string
}

// caseTypeTable is the single source of truth for case type metadata,
// including the case number prefix.
var caseTypeTable = map[CaseType]caseTypeInfo{
	CaseTypeFraud:           {"FRD", "Fraud Investigation", "Cases involving suspected fraudulent activities"},
	CaseTypeAML:             {"AML", "Anti-Money Laundering", "Money laundering investigation cases"},
	CaseTypeSanctions:       {"SAN", "Sanctions Screening", "Sanctions violations and screening cases"},
	CaseTypeKYC:             {"KYC", "Know Your Customer", "Customer due diligence and verification cases"},
	CaseTypeCybersecurity:   {"CYB", "Cybersecurity Incident", "Security breaches and cyber attacks"},
	CaseTypeInsiderTrading:  {"INT", "Insider Trading", "Market manipulation and insider trading cases"},
	CaseTypeCompliance:      {"CMP", "Regulatory Compliance", "General regulatory compliance violations"},
	CaseTypeOperationalRisk: {"OPR", "Operational Risk", "Operational failures and risk incidents"},
}

var caseTypeByPrefix = func() map[string]CaseType {
	m := make(map[string]CaseType, len(caseTypeTable))
	for t, info := range caseTypeTable {
		m[info.prefix] = t
	}
	return m
}()

// ParseCaseType resolves a case type from its code.
func ParseCaseType(s string) (CaseType, error) {
	t := CaseType(s)
	if !t.IsValid() {
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown case type: %s", s)
	}
	return t, nil
}

// CaseTypeFromPrefix resolves a case type from its 3-letter case number prefix.
func CaseTypeFromPrefix(prefix string) (CaseType, bool) {
	t, ok := caseTypeByPrefix[prefix]
	return t, ok
}

func (t CaseType) IsValid() bool {
	_, ok := caseTypeTable[t]
	return ok
}

func (t CaseType) Prefix() string      { return caseTypeTable[t].prefix }
func (t CaseType) DisplayName() string { return caseTypeTable[t].displayName }
func (t CaseType) Description() string { return caseTypeTable[t].description }
func (t CaseType) String() string      { return string(t) }

// Priority is ordered LOW < MEDIUM < HIGH < CRITICAL.
type Priority string

const (
	PriorityLow      Priority = "LOW"
	PriorityMedium   Priority = "MEDIUM"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

// DefaultPriority applies when a create request omits priority.
const DefaultPriority = PriorityMedium

type priorityInfo struct {
	level       int
	displayName string
	description string
}

var priorityTable = map[Priority]priorityInfo{
	PriorityLow:      {1, "Low", "Non-urgent cases with minimal impact"},
	PriorityMedium:   {2, "Medium", "Standard priority cases"},
	PriorityHigh:     {3, "High", "High priority cases requiring urgent attention"},
	PriorityCritical: {4, "Critical", "Critical cases requiring immediate action"},
}

// ParsePriority resolves a priority from its code.
func ParsePriority(s string) (Priority, error) {
	p := Priority(s)
	if !p.IsValid() {
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown priority: %s", s)
	}
	return p, nil
}

func (p Priority) IsValid() bool {
	_, ok := priorityTable[p]
	return ok
}

func (p Priority) Level() int          { return priorityTable[p].level }
func (p Priority) DisplayName() string { return priorityTable[p].displayName }
func (p Priority) Description() string { return priorityTable[p].description }
func (p Priority) String() string      { return string(p) }

func (p Priority) IsHigherThan(other Priority) bool { return p.Level() > other.Level() }
func (p Priority) IsLowerThan(other Priority) bool  { return p.Level() < other.Level() }

// IsHigh reports the "high priority" bucket: HIGH or CRITICAL.
func (p Priority) IsHigh() bool { return p.Level() >= PriorityHigh.Level() }

// HighPriorities lists the members of the high bucket.
func HighPriorities() []Priority { return []Priority{PriorityHigh, PriorityCritical} }

// Status is the lifecycle state of a case.
type Status string

const (
	StatusOpen          Status = "OPEN"
	StatusInProgress    Status = "IN_PROGRESS"
	StatusPendingReview Status = "PENDING_REVIEW"
	StatusEscalated     Status = "ESCALATED"
	StatusClosed        Status = "CLOSED"
	StatusArchived      Status = "ARCHIVED"
)

type statusInfo struct {
	displayName string
	description string
	next        []Status
}

// statusTable encodes the lifecycle graph. CLOSED only moves to ARCHIVED;
// ARCHIVED is terminal.
var statusTable = map[Status]statusInfo{
	StatusOpen: {"Open", "Case is newly created and not yet assigned",
		[]Status{StatusInProgress, StatusEscalated, StatusClosed, StatusArchived}},
	StatusInProgress: {"In Progress", "Case is actively being investigated",
		[]Status{StatusPendingReview, StatusEscalated, StatusClosed, StatusArchived}},
	StatusPendingReview: {"Pending Review", "Case investigation is complete, awaiting review",
		[]Status{StatusEscalated, StatusClosed, StatusArchived}},
	StatusEscalated: {"Escalated", "Case has been escalated to higher authority",
		[]Status{StatusPendingReview, StatusEscalated, StatusClosed, StatusArchived}},
	StatusClosed: {"Closed", "Case investigation is complete and closed",
		[]Status{StatusArchived}},
	StatusArchived: {"Archived", "Case is archived for long-term storage", nil},
}

// AllStatuses lists statuses in lifecycle order.
func AllStatuses() []Status {
	return []Status{StatusOpen, StatusInProgress, StatusPendingReview, StatusEscalated, StatusClosed, StatusArchived}
}

// ParseStatus resolves a status from its code.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.IsValid() {
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown status: %s", s)
	}
	return st, nil
}

func (s Status) IsValid() bool {
	_, ok := statusTable[s]
	return ok
}

func (s Status) DisplayName() string { return statusTable[s].displayName }
func (s Status) Description() string { return statusTable[s].description }
func (s Status) String() string      { return string(s) }

// IsActive is true for statuses still under investigation.
func (s Status) IsActive() bool {
	return s == StatusOpen || s == StatusInProgress || s == StatusPendingReview || s == StatusEscalated
}

// IsFinal is true for CLOSED and ARCHIVED.
func (s Status) IsFinal() bool {
	return s == StatusClosed || s == StatusArchived
}

// CanTransitionTo reports whether the lifecycle graph has an edge s -> target.
func (s Status) CanTransitionTo(target Status) bool {
	for _, n := range statusTable[s].next {
		if n == target {
			return true
		}
	}
	return false
}
