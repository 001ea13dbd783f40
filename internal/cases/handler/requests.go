package handler

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"caseflow/internal/cases/models"
	id "caseflow/pkg/domain"
	dErrors "caseflow/pkg/domain-errors"
)

const defaultOverdueDays = 7

// AssignCaseRequest is the body of POST /api/v1/cases/{id}/assign.
type AssignCaseRequest struct {
	AssigneeID string `json:"assignee_id"`

	parsedAssigneeID id.UserID
}

func (r *AssignCaseRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.AssigneeID = strings.TrimSpace(r.AssigneeID)
	if r.AssigneeID == "" {
		return dErrors.New(dErrors.CodeValidation, "assignee_id is required")
	}
	assignee, err := id.ParseUserID(r.AssigneeID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "assignee_id must be a UUID")
	}
	r.parsedAssigneeID = assignee
	return nil
}

func (r *AssignCaseRequest) ParsedAssigneeID() id.UserID {
	return r.parsedAssigneeID
}

// TransitionCaseRequest is the body of close, escalate and review.
// Close and escalate send a reason; review sends a note.
type TransitionCaseRequest struct {
	Reason string `json:"reason"`
	Note   string `json:"note"`
}

func (r *TransitionCaseRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Reason != "" && r.Note != "" {
		return dErrors.New(dErrors.CodeValidation, "send either reason or note, not both")
	}
	return models.TransitionRequest{Reason: r.Text()}.Validate()
}

// Text returns whichever of reason or note was supplied.
func (r *TransitionCaseRequest) Text() string {
	if r.Note != "" {
		return strings.TrimSpace(r.Note)
	}
	return strings.TrimSpace(r.Reason)
}

// parseIfMatch reads the expected version from an If-Match header.
// Accepts 3, "3" and W/"3"; an empty header or * means no precondition.
func parseIfMatch(header string) (*int64, error) {
	v := strings.TrimSpace(header)
	if v == "" || v == "*" {
		return nil, nil
	}
	v = strings.TrimPrefix(v, "W/")
	v = strings.Trim(v, `"`)
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 1 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "If-Match must carry a case version")
	}
	return &n, nil
}

func etag(version int64) string {
	return `"` + strconv.FormatInt(version, 10) + `"`
}

// parseListFilter maps query parameters onto a ListFilter. Paging defaults
// are applied later by the service.
func parseListFilter(q url.Values) (models.ListFilter, error) {
	var f models.ListFilter
	var err error

	if f.Page, err = intParam(q, "page"); err != nil {
		return f, err
	}
	if f.Size, err = intParam(q, "size"); err != nil {
		return f, err
	}
	if v := q.Get("status"); v != "" {
		status, err := models.ParseStatus(v)
		if err != nil {
			return f, badQuery(err)
		}
		f.Status = &status
	}
	if v := q.Get("caseType"); v != "" {
		caseType, err := models.ParseCaseType(v)
		if err != nil {
			return f, badQuery(err)
		}
		f.CaseType = &caseType
	}
	if v := q.Get("priority"); v != "" {
		priority, err := models.ParsePriority(v)
		if err != nil {
			return f, badQuery(err)
		}
		f.Priority = &priority
	}
	if f.AssignedTo, err = userParam(q, "assignedTo"); err != nil {
		return f, err
	}
	if f.CreatedBy, err = userParam(q, "createdBy"); err != nil {
		return f, err
	}
	f.Tag = q.Get("tag")
	f.Search = q.Get("search")
	if f.ActiveOnly, err = boolParam(q, "activeOnly"); err != nil {
		return f, err
	}
	if f.HighPriorityOnly, err = boolParam(q, "highPriorityOnly"); err != nil {
		return f, err
	}
	if f.CreatedFrom, err = timeParam(q, "createdFrom"); err != nil {
		return f, err
	}
	if f.CreatedTo, err = timeParam(q, "createdTo"); err != nil {
		return f, err
	}
	return f, nil
}

func badQuery(err error) error {
	return dErrors.Wrap(err, dErrors.CodeBadRequest, err.Error())
}

func intParam(q url.Values, name string) (int, error) {
	v := q.Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, dErrors.Newf(dErrors.CodeBadRequest, "%s must be an integer", name)
	}
	return n, nil
}

func boolParam(q url.Values, name string) (bool, error) {
	v := q.Get(name)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, dErrors.Newf(dErrors.CodeBadRequest, "%s must be true or false", name)
	}
	return b, nil
}

func userParam(q url.Values, name string) (*id.UserID, error) {
	v := q.Get(name)
	if v == "" {
		return nil, nil
	}
	uid, err := id.ParseUserID(v)
	if err != nil {
		return nil, dErrors.Newf(dErrors.CodeBadRequest, "%s must be a UUID", name)
	}
	return &uid, nil
}

// timeParam accepts RFC 3339 timestamps or plain dates (midnight UTC).
func timeParam(q url.Values, name string) (*time.Time, error) {
	v := q.Get(name)
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		t = t.UTC()
		return &t, nil
	}
	if t, err := time.Parse(time.DateOnly, v); err == nil {
		return &t, nil
	}
	return nil, dErrors.Newf(dErrors.CodeBadRequest, "%s must be an RFC 3339 timestamp or a date", name)
}
