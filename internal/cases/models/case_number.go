package models

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
	"unicode/utf16"

	dErrors "caseflow/pkg/domain-errors"
)

// MaxSequence is the largest value the six-digit sequence field can hold.
const MaxSequence = 999999

const tenantHashAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

var caseNumberPattern = regexp.MustCompile(`^[A-Z]{3}-\d{6}-\d{6}-[A-Z0-9]{4}$`)

// CaseNumber is the parsed form of PREFIX-YYYYMM-NNNNNN-HHHH.
type CaseNumber struct {
	CaseType   CaseType
	YearMonth  string
	Sequence   int64
	TenantHash string
}

// String renders the canonical human-readable number.
func (n CaseNumber) String() string {
	return fmt.Sprintf("%s-%s-%06d-%s", n.CaseType.Prefix(), n.YearMonth, n.Sequence, n.TenantHash)
}

// YearMonth formats t as YYYYMM in UTC.
func YearMonth(t time.Time) string {
	return t.UTC().Format("200601")
}

// FormatCaseNumber builds the case number for a freshly allocated sequence.
func FormatCaseNumber(caseType CaseType, t time.Time, sequence int64, tenantID string) string {
	return CaseNumber{
		CaseType:   caseType,
		YearMonth:  YearMonth(t),
		Sequence:   sequence,
		TenantHash: TenantHash(tenantID),
	}.String()
}

// ParseCaseNumber validates the textual format and resolves the prefix.
func ParseCaseNumber(s string) (CaseNumber, error) {
	if !caseNumberPattern.MatchString(s) {
		return CaseNumber{}, dErrors.Newf(dErrors.CodeInvalidFormat, "invalid case number format: %s", s)
	}
	caseType, ok := CaseTypeFromPrefix(s[0:3])
	if !ok {
		return CaseNumber{}, dErrors.Newf(dErrors.CodeInvalidFormat, "unknown case number prefix: %s", s[0:3])
	}
	seq, err := strconv.ParseInt(s[11:17], 10, 64)
	if err != nil {
		return CaseNumber{}, dErrors.Wrap(err, dErrors.CodeInvalidFormat, "invalid case number sequence")
	}
	return CaseNumber{
		CaseType:   caseType,
		YearMonth:  s[4:10],
		Sequence:   seq,
		TenantHash: s[18:22],
	}, nil
}

// IsValidCaseNumber reports whether s parses.
func IsValidCaseNumber(s string) bool {
	_, err := ParseCaseNumber(s)
	return err == nil
}

// TenantHash derives the 4-character tag embedded in case numbers. It uses the
// 32-bit polynomial string hash (multiplier 31 over UTF-16 code units), takes
// the absolute value and emits base-36 digits least significant first.
// It is cosmetic and not unique per tenant.
func TenantHash(tenantID string) string {
	if tenantID == "" {
		return "0000"
	}
	var h int32
	for _, unit := range utf16.Encode([]rune(tenantID)) {
		h = 31*h + int32(unit)
	}
	n := int64(h)
	if n < 0 {
		n = -n
	}
	out := make([]byte, 4)
	for i := range out {
		out[i] = tenantHashAlphabet[n%36]
		n /= 36
	}
	return string(out)
}
