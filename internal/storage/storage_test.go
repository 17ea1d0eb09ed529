package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/equityline/caseenrich/internal/model"
)

func TestObjectKey(t *testing.T) {
	runDate := time.Date(2025, time.March, 7, 14, 30, 0, 0, time.UTC)
	d := model.DocumentDescriptor{
		CaseNumber: "25SP001130-910",
		Name:       "Notice of Sale",
		EventDate:  "02/14/2025",
	}

	key := ObjectKey(runDate, d)
	assert.Equal(t, "case_details/2025_03_07/910/25SP001130-910/02_14_2025_Notice of Sale.pdf", key)
}

func TestObjectKey_SanitizesName(t *testing.T) {
	runDate := time.Date(2025, time.March, 7, 0, 0, 0, 0, time.UTC)
	d := model.DocumentDescriptor{
		CaseNumber: "25SP001130-910",
		Name:       `Order: Appoint "GAL"/Service?.pdf`,
		EventDate:  "02/14/2025",
	}

	key := ObjectKey(runDate, d)
	assert.Equal(t, "case_details/2025_03_07/910/25SP001130-910/02_14_2025_Order_ Appoint _GAL__Service_.pdf", key)
}

func TestCasePrefix(t *testing.T) {
	runDate := time.Date(2025, time.March, 7, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "case_details/2025_03_07/910/25SP001130-910/",
		CasePrefix(runDate, "25SP001130-910"))
}
