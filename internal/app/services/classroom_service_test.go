package services

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sistempim/pimserver/internal/app/models"
	"github.com/sistempim/pimserver/internal/pkg/apperrors"
	"github.com/sistempim/pimserver/internal/pkg/docstore/memstore"
)

var joinCodeFormat = regexp.MustCompile(`^PIM-\d{6}$`)

func newClassroomFixture(t *testing.T) (*memstore.Store, ClassroomService, NotificationService) {
	t.Helper()
	store := memstore.New()
	notifications := NewNotificationService(store, zerolog.Nop())
	return store, NewClassroomService(store, notifications, zerolog.Nop()), notifications
}

func teacherProfile() models.UserProfile {
	return models.UserProfile{UID: "prof-1", Name: "Prof. Helena", Role: models.RoleTeacher}
}

func studentProfile(uid, name string) models.UserProfile {
	return models.UserProfile{UID: uid, Name: name, Role: models.RoleStudent}
}

func TestCreateClassroomAssignsJoinCode(t *testing.T) {
	ctx := context.Background()
	_, svc, _ := newClassroomFixture(t)

	classroom, err := svc.CreateClassroom(ctx, teacherProfile(), ClassroomInput{Name: "Turma A", Subject: "Matemática"})
	require.NoError(t, err)

	assert.Regexp(t, joinCodeFormat, classroom.JoinCode)
	assert.Equal(t, "prof-1", classroom.OwnerUID)
	assert.Empty(t, classroom.Roster)
	assert.False(t, classroom.CreatedAt.IsZero())
}

func TestJoinByCode(t *testing.T) {
	ctx := context.Background()
	_, svc, _ := newClassroomFixture(t)

	created, err := svc.CreateClassroom(ctx, teacherProfile(), ClassroomInput{Name: "Turma A"})
	require.NoError(t, err)

	joined, err := svc.JoinByCode(ctx, studentProfile("s1", "João"), created.JoinCode)
	require.NoError(t, err)
	require.Len(t, joined.Roster, 1)
	assert.Equal(t, "João", joined.Roster[0].Name)
	assert.Contains(t, joined.RosterIDs, "s1")

	// Joining again conflicts.
	_, err = svc.JoinByCode(ctx, studentProfile("s1", "João"), created.JoinCode)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyMember)

	// Unknown codes miss.
	_, err = svc.JoinByCode(ctx, studentProfile("s2", "Maria"), "PIM-000000")
	assert.ErrorIs(t, err, apperrors.ErrClassroomNotFound)
}

func TestListForUserByRole(t *testing.T) {
	ctx := context.Background()
	_, svc, _ := newClassroomFixture(t)

	first, err := svc.CreateClassroom(ctx, teacherProfile(), ClassroomInput{Name: "Turma A"})
	require.NoError(t, err)
	_, err = svc.CreateClassroom(ctx, teacherProfile(), ClassroomInput{Name: "Turma B"})
	require.NoError(t, err)

	_, err = svc.JoinByCode(ctx, studentProfile("s1", "João"), first.JoinCode)
	require.NoError(t, err)

	owned, err := svc.ListForUser(ctx, "prof-1", models.RoleTeacher)
	require.NoError(t, err)
	assert.Len(t, owned, 2)

	enrolled, err := svc.ListForUser(ctx, "s1", models.RoleStudent)
	require.NoError(t, err)
	require.Len(t, enrolled, 1)
	assert.Equal(t, "Turma A", enrolled[0].Name)
}

func TestRemoveStudentIsTargeted(t *testing.T) {
	ctx := context.Background()
	_, svc, _ := newClassroomFixture(t)

	created, err := svc.CreateClassroom(ctx, teacherProfile(), ClassroomInput{Name: "Turma A"})
	require.NoError(t, err)
	_, err = svc.JoinByCode(ctx, studentProfile("s1", "João"), created.JoinCode)
	require.NoError(t, err)
	_, err = svc.JoinByCode(ctx, studentProfile("s2", "Maria"), created.JoinCode)
	require.NoError(t, err)

	changed, err := svc.RemoveStudent(ctx, created.ID, "prof-1", "s1")
	require.NoError(t, err)
	assert.True(t, changed)

	classroom, err := svc.GetClassroom(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, classroom.Roster, 1)
	assert.Equal(t, "Maria", classroom.Roster[0].Name)
	assert.Equal(t, []string{"s2"}, classroom.RosterIDs)

	// Removing an absent student is a no-op.
	changed, err = svc.RemoveStudent(ctx, created.ID, "prof-1", "s1")
	require.NoError(t, err)
	assert.False(t, changed)

	// Only the owner may remove.
	_, err = svc.RemoveStudent(ctx, created.ID, "s2", "s2")
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
}

func TestAnnouncementFanOut(t *testing.T) {
	ctx := context.Background()
	_, svc, notifications := newClassroomFixture(t)

	created, err := svc.CreateClassroom(ctx, teacherProfile(), ClassroomInput{Name: "Turma A"})
	require.NoError(t, err)
	_, err = svc.JoinByCode(ctx, studentProfile("s1", "João"), created.JoinCode)
	require.NoError(t, err)
	_, err = svc.JoinByCode(ctx, studentProfile("s2", "Maria"), created.JoinCode)
	require.NoError(t, err)

	announcement, err := svc.PostAnnouncement(ctx, created.ID, teacherProfile(), "Prova na sexta", "")
	require.NoError(t, err)
	assert.Equal(t, "Prova na sexta", announcement.Content)
	assert.False(t, announcement.CreatedAt.IsZero())

	// Both students got notified, the author did not.
	for _, uid := range []string{"s1", "s2"} {
		count, err := notifications.UnreadCount(ctx, uid)
		require.NoError(t, err)
		assert.Equal(t, 1, count, uid)
	}
	count, err := notifications.UnreadCount(ctx, "prof-1")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestAnnouncementPermissions(t *testing.T) {
	ctx := context.Background()
	_, svc, _ := newClassroomFixture(t)

	created, err := svc.CreateClassroom(ctx, teacherProfile(), ClassroomInput{Name: "Turma A"})
	require.NoError(t, err)

	// Outsiders can neither post nor read the wall.
	_, err = svc.PostAnnouncement(ctx, created.ID, studentProfile("outsider", "X"), "spam", "")
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
	_, err = svc.ListAnnouncements(ctx, created.ID, "outsider")
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
}

func TestAssignmentsOrderedByDueDate(t *testing.T) {
	ctx := context.Background()
	_, svc, notifications := newClassroomFixture(t)

	created, err := svc.CreateClassroom(ctx, teacherProfile(), ClassroomInput{Name: "Turma A"})
	require.NoError(t, err)
	_, err = svc.JoinByCode(ctx, studentProfile("s1", "João"), created.JoinCode)
	require.NoError(t, err)

	late := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	early := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
	_, err = svc.CreateAssignment(ctx, created.ID, "prof-1", "Trabalho final", "", late)
	require.NoError(t, err)
	_, err = svc.CreateAssignment(ctx, created.ID, "prof-1", "Lista 1", "", early)
	require.NoError(t, err)

	assignments, err := svc.ListAssignments(ctx, created.ID, "s1")
	require.NoError(t, err)
	require.Len(t, assignments, 2)
	assert.Equal(t, "Lista 1", assignments[0].Title)
	assert.Equal(t, "Trabalho final", assignments[1].Title)

	// Assignment creation notified the student with the atividade kind.
	inbox, err := notifications.List(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, inbox, 2)
	assert.Equal(t, models.NotificationAssignment, inbox[0].Kind)

	// Only the owner may create assignments.
	_, err = svc.CreateAssignment(ctx, created.ID, "s1", "Hack", "", early)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
}

func TestDeleteClassroomRemovesWallContent(t *testing.T) {
	ctx := context.Background()
	store, svc, _ := newClassroomFixture(t)

	created, err := svc.CreateClassroom(ctx, teacherProfile(), ClassroomInput{Name: "Turma A"})
	require.NoError(t, err)
	_, err = svc.PostAnnouncement(ctx, created.ID, teacherProfile(), "Aviso", "")
	require.NoError(t, err)

	// Non-owners are rejected first.
	err = svc.DeleteClassroom(ctx, created.ID, "s1")
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	require.NoError(t, svc.DeleteClassroom(ctx, created.ID, "prof-1"))

	_, err = svc.GetClassroom(ctx, created.ID)
	assert.ErrorIs(t, err, apperrors.ErrClassroomNotFound)

	posts, err := store.Query(ctx, models.ClassroomPostsCollection(created.ID), nil, nil, 0)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestJoinCodesAreUniqueAcrossClassrooms(t *testing.T) {
	ctx := context.Background()
	_, svc, _ := newClassroomFixture(t)

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		classroom, err := svc.CreateClassroom(ctx, teacherProfile(), ClassroomInput{Name: "Turma"})
		require.NoError(t, err)
		assert.False(t, seen[classroom.JoinCode], "duplicate code %s", classroom.JoinCode)
		seen[classroom.JoinCode] = true
	}
}
