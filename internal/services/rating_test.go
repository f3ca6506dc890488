package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worktravel-server/internal/apperrors"
	"worktravel-server/internal/models"
)

func ptr(v float64) *float64 { return &v }

func TestCombineReputation(t *testing.T) {
	tests := []struct {
		name    string
		grades  *float64
		answers *float64
		want    float64
	}{
		{"both empty", nil, nil, 0},
		{"only grades", ptr(5), nil, 5},
		{"only answers", nil, ptr(4), 4},
		{"mean of means", ptr(3), ptr(5), 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CombineReputation(tt.grades, tt.answers), 1e-9)
		})
	}
}

func TestGradeRoundTrip(t *testing.T) {
	f := newFixture(t)
	svc := NewRatingService(f.db)
	ctx := context.Background()

	first := f.message(t, f.offer.ID, f.applicant.ID, f.owner.ID, "first", 1)
	f.message(t, f.offer.ID, f.applicant.ID, f.owner.ID, "second", 2)

	form, err := svc.GetOrInitGrade(ctx, f.offer.ID, f.applicant.ID, f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, StateUngraded, form.State)
	assert.Zero(t, form.Grade.ID)
	assert.Equal(t, first.ID, form.Message.ID)
	assert.Equal(t, f.applicant.ID, form.Grade.UserID)
	assert.Equal(t, "user2", form.FirstMessageSender.Username)
	assert.Nil(t, form.Answer)

	grade, err := svc.SubmitGrade(ctx, f.offer.ID, f.applicant.ID, f.owner.ID, GradeInput{Grade: 4, Description: "Reliable"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, grade.MessageID)

	form, err = svc.GetOrInitGrade(ctx, f.offer.ID, f.applicant.ID, f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, StateGraded, form.State)
	assert.Equal(t, grade.ID, form.Grade.ID)
	assert.Equal(t, 4, form.Grade.Grade)
	assert.Equal(t, "Reliable", form.Grade.Description)
}

func TestSubmitGradeUpdatesInPlace(t *testing.T) {
	f := newFixture(t)
	svc := NewRatingService(f.db)
	ctx := context.Background()
	f.message(t, f.offer.ID, f.applicant.ID, f.owner.ID, "first", 1)

	g1, err := svc.SubmitGrade(ctx, f.offer.ID, f.applicant.ID, f.owner.ID, GradeInput{Grade: 2, Description: "late"})
	require.NoError(t, err)
	g2, err := svc.SubmitGrade(ctx, f.offer.ID, f.applicant.ID, f.owner.ID, GradeInput{Grade: 5, Description: "made up for it"})
	require.NoError(t, err)

	assert.Equal(t, g1.ID, g2.ID)
	assert.Equal(t, 5, g2.Grade)

	var count int64
	require.NoError(t, f.db.Model(&models.Grade{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSubmitGradeBoundaries(t *testing.T) {
	f := newFixture(t)
	svc := NewRatingService(f.db)
	ctx := context.Background()
	f.message(t, f.offer.ID, f.applicant.ID, f.owner.ID, "first", 1)

	tests := []struct {
		grade int
		ok    bool
	}{
		{models.MinRating - 1, false},
		{models.MinRating, true},
		{models.MaxRating, true},
		{models.MaxRating + 1, false},
	}
	for _, tt := range tests {
		_, err := svc.SubmitGrade(ctx, f.offer.ID, f.applicant.ID, f.owner.ID, GradeInput{Grade: tt.grade, Description: "ok"})
		if tt.ok {
			assert.NoError(t, err, "grade %d", tt.grade)
		} else {
			assert.True(t, apperrors.Is(err, apperrors.CodeInvalidArgument), "grade %d: %v", tt.grade, err)
		}
	}

	_, err := svc.SubmitGrade(ctx, f.offer.ID, f.applicant.ID, f.owner.ID, GradeInput{Grade: 3, Description: "  "})
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidArgument))
}

func TestGradeAuthorization(t *testing.T) {
	f := newFixture(t)
	svc := NewRatingService(f.db)
	ctx := context.Background()
	f.message(t, f.offer.ID, f.applicant.ID, f.owner.ID, "first", 1)

	_, err := svc.GetOrInitGrade(ctx, f.offer.ID, f.applicant.ID, f.applicant.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodePermissionDenied))

	_, err = svc.GetOrInitGrade(ctx, f.offer.ID, f.applicant.ID, f.other.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodePermissionDenied))

	_, err = svc.SubmitGrade(ctx, f.offer.ID, f.applicant.ID, f.other.ID, GradeInput{Grade: 1, Description: "spite"})
	assert.True(t, apperrors.Is(err, apperrors.CodePermissionDenied))

	_, err = svc.GetOrInitGrade(ctx, 999, f.applicant.ID, f.owner.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))

	// the other user never wrote about this offer
	_, err = svc.GetOrInitGrade(ctx, f.offer.ID, f.other.ID, f.owner.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))

	_, err = svc.SubmitGrade(ctx, f.offer.ID, f.owner.ID, f.owner.ID, GradeInput{Grade: 5, Description: "me"})
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidArgument))
}

func TestOwnerCannotOpenOwnGradeForm(t *testing.T) {
	f := newFixture(t)
	svc := NewRatingService(f.db)
	ctx := context.Background()
	// the owner has written in the offer, so a first message exists
	f.message(t, f.offer.ID, f.owner.ID, f.applicant.ID, "welcome", 1)

	form, err := svc.GetOrInitGrade(ctx, f.offer.ID, f.owner.ID, f.owner.ID)
	assert.Nil(t, form)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidArgument), "%v", err)

	_, err = svc.SubmitGrade(ctx, f.offer.ID, f.owner.ID, f.owner.ID, GradeInput{Grade: 5, Description: "me"})
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidArgument))
}

func TestAnswerFlow(t *testing.T) {
	f := newFixture(t)
	svc := NewRatingService(f.db)
	ctx := context.Background()
	f.message(t, f.offer.ID, f.applicant.ID, f.owner.ID, "first", 1)

	grade, err := svc.SubmitGrade(ctx, f.offer.ID, f.applicant.ID, f.owner.ID, GradeInput{Grade: 3, Description: "average"})
	require.NoError(t, err)

	form, err := svc.GetAnswer(ctx, grade.ID, f.applicant.ID)
	require.NoError(t, err)
	assert.Zero(t, form.Answer.ID)
	assert.Equal(t, grade.ID, form.Answer.GradeID)
	assert.Equal(t, "Software Developer", form.OfferName)

	_, err = svc.GetAnswer(ctx, grade.ID, f.owner.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodePermissionDenied))
	_, err = svc.GetAnswer(ctx, grade.ID, f.other.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodePermissionDenied))
	_, err = svc.GetAnswer(ctx, 999, f.applicant.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))

	_, err = svc.SubmitAnswer(ctx, grade.ID, f.applicant.ID, AnswerInput{GradeAnswer: 0, Text: "no"})
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidArgument))
	_, err = svc.SubmitAnswer(ctx, grade.ID, f.other.ID, AnswerInput{GradeAnswer: 5, Text: "hijack"})
	assert.True(t, apperrors.Is(err, apperrors.CodePermissionDenied))

	a1, err := svc.SubmitAnswer(ctx, grade.ID, f.applicant.ID, AnswerInput{GradeAnswer: 5, Text: "Thank you!"})
	require.NoError(t, err)
	a2, err := svc.SubmitAnswer(ctx, grade.ID, f.applicant.ID, AnswerInput{GradeAnswer: 4, Text: "Thanks"})
	require.NoError(t, err)
	assert.Equal(t, a1.ID, a2.ID)
	assert.Equal(t, 4, a2.GradeAnswer)

	var count int64
	require.NoError(t, f.db.Model(&models.Answer{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	gradeForm, err := svc.GetOrInitGrade(ctx, f.offer.ID, f.applicant.ID, f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, StateAnswered, gradeForm.State)
	require.NotNil(t, gradeForm.Answer)
	assert.Equal(t, "Thanks", gradeForm.Answer.Text)

	// answered grades are closed for the grader
	_, err = svc.SubmitGrade(ctx, f.offer.ID, f.applicant.ID, f.owner.ID, GradeInput{Grade: 1, Description: "revenge"})
	assert.True(t, apperrors.Is(err, apperrors.CodeFailedPrecondition))
}

func TestListMyGrades(t *testing.T) {
	f := newFixture(t)
	svc := NewRatingService(f.db)
	ctx := context.Background()

	designer := createOffer(t, f.db, f.other.ID, "Graphic Designer", "UK", false)
	f.message(t, f.offer.ID, f.applicant.ID, f.owner.ID, "dev", 1)
	f.message(t, designer.ID, f.applicant.ID, f.other.ID, "design", 2)

	g1, err := svc.SubmitGrade(ctx, f.offer.ID, f.applicant.ID, f.owner.ID, GradeInput{Grade: 4, Description: "good dev"})
	require.NoError(t, err)
	g2, err := svc.SubmitGrade(ctx, designer.ID, f.applicant.ID, f.other.ID, GradeInput{Grade: 2, Description: "meh design"})
	require.NoError(t, err)
	_, err = svc.SubmitAnswer(ctx, g2.ID, f.applicant.ID, AnswerInput{GradeAnswer: 5, Text: "disagree"})
	require.NoError(t, err)

	grades, err := svc.ListMyGrades(ctx, f.applicant.ID)
	require.NoError(t, err)
	require.Len(t, grades, 2)

	assert.Equal(t, g1.ID, grades[0].GradeID)
	assert.Equal(t, "Software Developer", grades[0].OfferName)
	assert.Equal(t, "user1", grades[0].OwnerUsername)
	assert.Equal(t, 4, grades[0].GradeValue)
	assert.Nil(t, grades[0].AnswerValue)

	assert.Equal(t, "Graphic Designer", grades[1].OfferName)
	assert.Equal(t, "user3", grades[1].OwnerUsername)
	require.NotNil(t, grades[1].AnswerValue)
	assert.Equal(t, 5, *grades[1].AnswerValue)

	none, err := svc.ListMyGrades(ctx, f.owner.ID)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestAverageReputation(t *testing.T) {
	f := newFixture(t)
	svc := NewRatingService(f.db)
	ctx := context.Background()

	avg, err := svc.AverageReputation(ctx, f.applicant.ID)
	require.NoError(t, err)
	assert.Zero(t, avg)

	f.message(t, f.offer.ID, f.applicant.ID, f.owner.ID, "dev", 1)
	g1, err := svc.SubmitGrade(ctx, f.offer.ID, f.applicant.ID, f.owner.ID, GradeInput{Grade: 5, Description: "top"})
	require.NoError(t, err)

	avg, err = svc.AverageReputation(ctx, f.applicant.ID)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, avg, 1e-9)

	// grades [4, 2] and answers [5] give ((4+2)/2 + 5) / 2
	_, err = svc.SubmitGrade(ctx, f.offer.ID, f.applicant.ID, f.owner.ID, GradeInput{Grade: 4, Description: "good"})
	require.NoError(t, err)
	designer := createOffer(t, f.db, f.other.ID, "Graphic Designer", "UK", true)
	f.message(t, designer.ID, f.applicant.ID, f.other.ID, "design", 2)
	_, err = svc.SubmitGrade(ctx, designer.ID, f.applicant.ID, f.other.ID, GradeInput{Grade: 2, Description: "poor"})
	require.NoError(t, err)
	_, err = svc.SubmitAnswer(ctx, g1.ID, f.applicant.ID, AnswerInput{GradeAnswer: 5, Text: "fair"})
	require.NoError(t, err)

	avg, err = svc.AverageReputation(ctx, f.applicant.ID)
	require.NoError(t, err)
	assert.InDelta(t, 3.5, avg, 1e-9)

	// the owners were never graded
	avg, err = svc.AverageReputation(ctx, f.owner.ID)
	require.NoError(t, err)
	assert.Zero(t, avg)
}
