package workflow

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rangeInput struct {
	Title     string    `json:"title" validate:"required"`
	StartDate time.Time `json:"startDate" validate:"required"`
	EndDate   time.Time `json:"endDate" validate:"required,gtefield=StartDate"`
}

func TestValidateReportsFieldIssues(t *testing.T) {
	start := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	err := Validate(rangeInput{StartDate: start, EndDate: start.AddDate(0, 0, -1)})

	require.ErrorIs(t, err, ErrInvalidInput)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []FieldIssue{
		{Field: "title", Reason: "is required"},
		{Field: "endDate", Reason: "must not be before startDate"},
	}, verr.Issues)
	assert.Equal(t, "invalid input: title is required; endDate must not be before startDate", err.Error())
}

func TestValidateAcceptsValidInput(t *testing.T) {
	start := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, Validate(rangeInput{Title: "x", StartDate: start, EndDate: start}))
}

func TestFieldHelpers(t *testing.T) {
	var verr *ValidationError

	err := ValidateRating("rating", 6)
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "rating", verr.Issues[0].Field)

	err = ValidateText("text", "  ", 10)
	require.ErrorIs(t, err, ErrInvalidInput)
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "is required", verr.Issues[0].Reason)

	require.NoError(t, ValidateRating("rating", 3))
	require.NoError(t, ValidateText("text", "fine", 10))
}
