package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "caseflow/pkg/domain-errors"
)

func TestFormatCaseNumber(t *testing.T) {
	at := time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)

	t.Run("fraud case for tenant T1", func(t *testing.T) {
		assert.Equal(t, "FRD-202403-000001-P120", FormatCaseNumber(CaseTypeFraud, at, 1, "T1"))
	})

	t.Run("month is taken in UTC", func(t *testing.T) {
		// 2024-04-01 02:00 in UTC+5 is still March in UTC.
		local := time.Date(2024, time.April, 1, 2, 0, 0, 0, time.FixedZone("UTC+5", 5*3600))
		assert.True(t, strings.HasPrefix(FormatCaseNumber(CaseTypeAML, local, 7, "T1"), "AML-202403-000007-"))
	})

	t.Run("every type uses its prefix", func(t *testing.T) {
		for caseType, prefix := range map[CaseType]string{
			CaseTypeFraud:           "FRD",
			CaseTypeAML:             "AML",
			CaseTypeSanctions:       "SAN",
			CaseTypeKYC:             "KYC",
			CaseTypeCybersecurity:   "CYB",
			CaseTypeInsiderTrading:  "INT",
			CaseTypeCompliance:      "CMP",
			CaseTypeOperationalRisk: "OPR",
		} {
			number := FormatCaseNumber(caseType, at, 123456, "tenant-x")
			assert.True(t, strings.HasPrefix(number, prefix+"-202403-123456-"), number)
			assert.True(t, IsValidCaseNumber(number), number)
		}
	})
}

func TestTenantHash(t *testing.T) {
	t.Run("empty tenant", func(t *testing.T) {
		assert.Equal(t, "0000", TenantHash(""))
	})

	t.Run("known value", func(t *testing.T) {
		assert.Equal(t, "P120", TenantHash("T1"))
	})

	t.Run("deterministic and within alphabet", func(t *testing.T) {
		for _, tenant := range []string{"acme", "globex-corp", "ünïcødé", strings.Repeat("x", 500)} {
			h := TenantHash(tenant)
			require.Len(t, h, 4)
			assert.Equal(t, h, TenantHash(tenant))
			for _, r := range h {
				assert.Contains(t, tenantHashAlphabet, string(r))
			}
		}
	})
}

func TestParseCaseNumber(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		n, err := ParseCaseNumber("SAN-202312-000042-AB12")
		require.NoError(t, err)
		assert.Equal(t, CaseTypeSanctions, n.CaseType)
		assert.Equal(t, "202312", n.YearMonth)
		assert.Equal(t, int64(42), n.Sequence)
		assert.Equal(t, "AB12", n.TenantHash)
		assert.Equal(t, "SAN-202312-000042-AB12", n.String())
	})

	invalid := []string{
		"",
		"INVALID",
		"FRD-2024-000001-AB12",
		"FRD-202403-1-AB12",
		"frd-202403-000001-AB12",
		"FRD-202403-000001-ab12",
		"FRD-202403-000001-AB123",
		"XYZ-202403-000001-AB12",
		" FRD-202403-000001-AB12",
	}
	for _, s := range invalid {
		t.Run("rejects "+s, func(t *testing.T) {
			_, err := ParseCaseNumber(s)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidFormat))
			assert.False(t, IsValidCaseNumber(s))
		})
	}
}
