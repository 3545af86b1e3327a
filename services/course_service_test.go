package services

import (
	"context"
	"testing"
	"time"

	"github.com/sahilchouksey/lessionprm-api/database/testdb"
	"github.com/sahilchouksey/lessionprm-api/model"
	"github.com/sahilchouksey/lessionprm-api/utils/apperror"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCourseEnroll(t *testing.T) {
	db := testdb.New(t)
	svc := NewCourseService(db)
	ctx := context.Background()

	user := createUser(t, db, "student", model.RoleUser)
	free := createCourse(t, db, "Intro", 0, model.CourseStatusPublished)
	priced := createCourse(t, db, "Advanced Go", 200000, model.CourseStatusPublished)
	draft := createCourse(t, db, "Draft", 0, model.CourseStatusDraft)

	t.Run("free course", func(t *testing.T) {
		e, err := svc.Enroll(ctx, user.ID, free.ID)
		require.NoError(t, err)
		assert.Equal(t, model.EnrollmentSourceFree, e.Source)
	})

	t.Run("duplicate", func(t *testing.T) {
		_, err := svc.Enroll(ctx, user.ID, free.ID)
		assert.True(t, apperror.Is(err, apperror.KindBadRequest))
	})

	t.Run("priced without payment", func(t *testing.T) {
		_, err := svc.Enroll(ctx, user.ID, priced.ID)
		require.Error(t, err)
		assert.Equal(t, "Payment required", apperror.MessageOf(err))
	})

	t.Run("priced with paid invoice", func(t *testing.T) {
		paidAt := time.Now().UTC()
		inv := createInvoice(t, db, user.ID, priced.ID, 200000, model.InvoiceStatusPaid, &paidAt)
		e, err := svc.Enroll(ctx, user.ID, priced.ID)
		require.NoError(t, err)
		assert.Equal(t, model.EnrollmentSourcePayment, e.Source)
		require.NotNil(t, e.InvoiceID)
		assert.Equal(t, inv.ID, *e.InvoiceID)
	})

	t.Run("unpublished", func(t *testing.T) {
		_, err := svc.Enroll(ctx, user.ID, draft.ID)
		assert.True(t, apperror.Is(err, apperror.KindBadRequest))
	})

	mine, err := svc.MyCourses(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}

func TestCourseVisibility(t *testing.T) {
	db := testdb.New(t)
	svc := NewCourseService(db)
	ctx := context.Background()

	published := createCourse(t, db, "Published", 1000, model.CourseStatusPublished)
	draft := createCourse(t, db, "Draft", 1000, model.CourseStatusDraft)

	courses, total, err := svc.List(ctx, CourseFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, courses, 1)
	assert.Equal(t, published.ID, courses[0].ID)

	_, err = svc.Get(ctx, draft.ID, false)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	got, err := svc.Get(ctx, draft.ID, true)
	require.NoError(t, err)
	assert.Equal(t, "Draft", got.Title)

	_, total, err = svc.List(ctx, CourseFilter{IncludeUnpublished: true})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func TestCourseLifecycle(t *testing.T) {
	db := testdb.New(t)
	svc := NewCourseService(db)
	ctx := context.Background()

	course, err := svc.Create(ctx, CourseInput{
		Title:    "Concurrency in Go",
		Price:    decimal.NewFromInt(300000),
		Category: "Programming",
		Level:    model.LevelIntermediate,
	})
	require.NoError(t, err)
	assert.Equal(t, model.CourseStatusDraft, course.Status)

	published, err := svc.Publish(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CourseStatusPublished, published.Status)

	categories, err := svc.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Programming"}, categories)

	archived, err := svc.Archive(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CourseStatusArchived, archived.Status)

	require.NoError(t, svc.Delete(ctx, course.ID))
	_, err = svc.Get(ctx, course.ID, true)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestAddReview(t *testing.T) {
	db := testdb.New(t)
	svc := NewCourseService(db)
	ctx := context.Background()

	user := createUser(t, db, "student", model.RoleUser)
	course := createCourse(t, db, "Intro", 0, model.CourseStatusPublished)

	_, err := svc.AddReview(ctx, user.ID, course.ID, ReviewInput{Rating: 5})
	assert.True(t, apperror.Is(err, apperror.KindBadRequest))

	_, err = svc.Enroll(ctx, user.ID, course.ID)
	require.NoError(t, err)

	review, err := svc.AddReview(ctx, user.ID, course.ID, ReviewInput{Rating: 4, Comment: " solid "})
	require.NoError(t, err)
	assert.Equal(t, "solid", review.Comment)

	_, err = svc.AddReview(ctx, user.ID, course.ID, ReviewInput{Rating: 3})
	assert.True(t, apperror.Is(err, apperror.KindBadRequest))

	got, err := svc.Get(ctx, course.ID, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.EnrollmentCount)
	assert.InDelta(t, 4.0, got.AverageRating, 0.001)
}
